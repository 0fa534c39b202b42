/*
 * Copyright 2025 The HiveNote Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package backend provides the backend of the HiveNote server. It wires
// the database, the session registry, the per-document lockers and the
// housekeeping service together.
package backend

import (
	"time"

	"github.com/rohan-kumar-006/HiveNote/pkg/crdt"
	"github.com/rohan-kumar-006/HiveNote/pkg/locker"
	"github.com/rohan-kumar-006/HiveNote/server/backend/database"
	memdb "github.com/rohan-kumar-006/HiveNote/server/backend/database/memory"
	"github.com/rohan-kumar-006/HiveNote/server/backend/database/mongo"
	"github.com/rohan-kumar-006/HiveNote/server/backend/housekeeping"
	"github.com/rohan-kumar-006/HiveNote/server/backend/sync"
	"github.com/rohan-kumar-006/HiveNote/server/logging"
	"github.com/rohan-kumar-006/HiveNote/server/profiling/prometheus"
)

// Backend manages the server's backend such as database and session
// registry.
type Backend struct {
	Config *Config

	// InitialStateDelay is the parsed Config.InitialStateDelay.
	InitialStateDelay time.Duration

	// DB is the update log store, the single source of truth.
	DB database.Database

	// PubSub is the session registry used to fan out events to the
	// members of a document room.
	PubSub *sync.PubSub

	// Lockers provides per-document mutual exclusion between appends and
	// compaction.
	Lockers *locker.Locker

	// ActiveDocs scopes the periodic compaction sweep.
	ActiveDocs *ActiveDocs

	// Merger is the injected merge primitive.
	Merger crdt.Merger

	// Housekeeping runs the periodic compaction sweep.
	Housekeeping *housekeeping.Housekeeping

	// Metrics exposes the operational counters of the server.
	Metrics *prometheus.Metrics
}

// New creates a new instance of Backend. If the MongoDB configuration is
// given, the documents are stored in MongoDB; otherwise in memory.
func New(
	conf *Config,
	mongoConf *mongo.Config,
	housekeepingConf *housekeeping.Config,
	merger crdt.Merger,
	metrics *prometheus.Metrics,
) (*Backend, error) {
	delay, err := conf.ParseInitialStateDelay()
	if err != nil {
		return nil, err
	}

	var db database.Database
	if mongoConf != nil {
		db, err = mongo.Dial(mongoConf)
		if err != nil {
			return nil, err
		}
	} else {
		db, err = memdb.New()
		if err != nil {
			return nil, err
		}
	}

	keeper, err := housekeeping.New(housekeepingConf)
	if err != nil {
		return nil, err
	}

	dbInfo := "memory"
	if mongoConf != nil {
		dbInfo = mongoConf.ConnectionURI
	}
	logging.DefaultLogger().Infof("backend created: db: %s", dbInfo)

	return &Backend{
		Config:            conf,
		InitialStateDelay: delay,

		DB:         db,
		PubSub:     sync.NewPubSub(),
		Lockers:    locker.New(),
		ActiveDocs: NewActiveDocs(),
		Merger:     merger,

		Housekeeping: keeper,
		Metrics:      metrics,
	}, nil
}

// Start starts the backend.
func (b *Backend) Start() error {
	if err := b.Housekeeping.Start(); err != nil {
		return err
	}

	logging.DefaultLogger().Infof("backend started")
	return nil
}

// Shutdown closes all resources of this instance.
func (b *Backend) Shutdown() error {
	if err := b.Housekeeping.Stop(); err != nil {
		return err
	}

	if err := b.DB.Close(); err != nil {
		return err
	}

	logging.DefaultLogger().Infof("backend stopped")
	return nil
}
