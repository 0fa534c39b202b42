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

// Package server provides the HiveNote server which is the main entry
// point of the system. The server receives deltas from sessions, stores
// them in the repository and propagates them to the sessions subscribed
// to the document.
package server

import (
	"context"
	gosync "sync"

	"github.com/rohan-kumar-006/HiveNote/pkg/crdt"
	"github.com/rohan-kumar-006/HiveNote/server/backend"
	"github.com/rohan-kumar-006/HiveNote/server/documents"
	"github.com/rohan-kumar-006/HiveNote/server/profiling"
	"github.com/rohan-kumar-006/HiveNote/server/profiling/prometheus"
	"github.com/rohan-kumar-006/HiveNote/server/ws"
)

// HiveNote is a server of HiveNote.
type HiveNote struct {
	lock gosync.Mutex

	conf            *Config
	backend         *backend.Backend
	wsServer        *ws.Server
	profilingServer *profiling.Server

	shutdown   bool
	shutdownCh chan struct{}
}

// New creates a new instance of HiveNote.
func New(conf *Config) (*HiveNote, error) {
	return NewWithMerger(conf, crdt.NewDeltaSetMerger())
}

// NewWithMerger creates a new instance of HiveNote with the given merge
// primitive.
func NewWithMerger(conf *Config, merger crdt.Merger) (*HiveNote, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	metrics, err := prometheus.NewMetrics()
	if err != nil {
		return nil, err
	}

	be, err := backend.New(
		conf.Backend,
		conf.Mongo,
		conf.Housekeeping,
		merger,
		metrics,
	)
	if err != nil {
		return nil, err
	}

	var profilingServer *profiling.Server
	if conf.Profiling != nil {
		profilingServer = profiling.NewServer(conf.Profiling, metrics)
	}

	return &HiveNote{
		conf:            conf,
		backend:         be,
		wsServer:        ws.NewServer(conf.WS, be),
		profilingServer: profilingServer,
		shutdownCh:      make(chan struct{}),
	}, nil
}

// Start starts the server by starting the backend, the profiling server
// and the websocket server.
func (r *HiveNote) Start() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if err := r.RegisterHousekeepingTasks(r.backend); err != nil {
		return err
	}

	if err := r.backend.Start(); err != nil {
		return err
	}

	if r.profilingServer != nil {
		if err := r.profilingServer.Start(); err != nil {
			return err
		}
	}

	return r.wsServer.Start()
}

// Shutdown shuts down this HiveNote server.
func (r *HiveNote) Shutdown(graceful bool) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.shutdown {
		return nil
	}

	r.wsServer.Shutdown(graceful)
	if r.profilingServer != nil {
		r.profilingServer.Shutdown(graceful)
	}

	if err := r.backend.Shutdown(); err != nil {
		return err
	}

	close(r.shutdownCh)
	r.shutdown = true
	return nil
}

// ShutdownCh returns the shutdown channel.
func (r *HiveNote) ShutdownCh() <-chan struct{} {
	return r.shutdownCh
}

// WSAddr returns the address of the websocket server.
func (r *HiveNote) WSAddr() string {
	return r.conf.WSAddr()
}

// RegisterHousekeepingTasks registers housekeeping tasks.
func (r *HiveNote) RegisterHousekeepingTasks(be *backend.Backend) error {
	interval, err := be.Housekeeping.Config.ParseInterval()
	if err != nil {
		return err
	}

	floor := be.Housekeeping.Config.CompactionSweepFloor
	be.Housekeeping.RegisterTask(interval, func(ctx context.Context) error {
		return documents.CompactActiveDocuments(ctx, be, floor)
	})

	return nil
}
