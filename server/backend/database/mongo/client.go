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

// Package mongo implements the database interface using MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	gotime "time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/rohan-kumar-006/HiveNote/server/backend/database"
	"github.com/rohan-kumar-006/HiveNote/server/logging"
)

// ColDocuments is the name of the documents collection.
const ColDocuments = "documents"

// Client is a client that connects to MongoDB and reads or saves
// HiveNote document records.
type Client struct {
	config *Config
	client *mongo.Client
}

// Dial creates an instance of Client and dials the given MongoDB.
func Dial(conf *Config) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.ParseConnectionTimeout())
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(conf.ConnectionURI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, conf.ParsePingTimeout())
	defer pingCancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongo %s: %w", conf.ConnectionURI, err)
	}

	logging.DefaultLogger().Infof("MongoDB connected, URI: %s, DB: %s", conf.ConnectionURI, conf.HiveNoteDatabase)

	return &Client{
		config: conf,
		client: client,
	}, nil
}

// Close all resources of this client.
func (c *Client) Close() error {
	if err := c.client.Disconnect(context.Background()); err != nil {
		return fmt.Errorf("disconnect from mongo: %w", err)
	}

	return nil
}

func (c *Client) collection(name string) *mongo.Collection {
	return c.client.Database(c.config.HiveNoteDatabase).Collection(name)
}

// FindDocRecord returns the record of the given document.
func (c *Client) FindDocRecord(
	ctx context.Context,
	docID string,
) (*database.DocRecord, error) {
	result := c.collection(ColDocuments).FindOne(ctx, bson.M{
		"_id": docID,
	})
	if errors.Is(result.Err(), mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%s: %w", docID, database.ErrDocumentNotFound)
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("find document: %w", result.Err())
	}

	record := database.DocRecord{}
	if err := result.Decode(&record); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	return &record, nil
}

// EnsureDocRecord returns the record of the given document, creating an
// empty one if none exists.
func (c *Client) EnsureDocRecord(
	ctx context.Context,
	docID string,
) (*database.DocRecord, error) {
	now := gotime.Now()
	result := c.collection(ColDocuments).FindOneAndUpdate(
		ctx,
		bson.M{"_id": docID},
		bson.M{
			"$setOnInsert": bson.M{
				"updates":       bson.A{},
				"version":       int64(0),
				"last_saved_at": now,
				"created_at":    now,
			},
		},
		options.FindOneAndUpdate().
			SetUpsert(true).
			SetReturnDocument(options.After),
	)

	if result.Err() != nil && mongo.IsDuplicateKeyError(result.Err()) {
		// Another concurrent request created the record; read it back.
		result = c.collection(ColDocuments).FindOne(ctx, bson.M{"_id": docID})
	}

	record := &database.DocRecord{}
	if err := result.Decode(record); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	return record, nil
}

// CreateUpdate appends the given delta to the update log of the
// document, creating the record lazily if needed.
func (c *Client) CreateUpdate(
	ctx context.Context,
	docID string,
	delta []byte,
) (int64, int, error) {
	now := gotime.Now()
	result := c.collection(ColDocuments).FindOneAndUpdate(
		ctx,
		bson.M{"_id": docID},
		bson.M{
			"$push": bson.M{"updates": delta},
			"$inc":  bson.M{"version": int64(1)},
			"$set":  bson.M{"last_saved_at": now},
			"$setOnInsert": bson.M{
				"created_at": now,
			},
		},
		options.FindOneAndUpdate().
			SetUpsert(true).
			SetReturnDocument(options.After),
	)
	if result.Err() != nil {
		return 0, 0, fmt.Errorf("push update of %s: %w", docID, result.Err())
	}

	record := &database.DocRecord{}
	if err := result.Decode(record); err != nil {
		return 0, 0, fmt.Errorf("decode document: %w", err)
	}

	return record.Version, len(record.Updates), nil
}

// ReplaceWithSnapshot atomically replaces the update log of the document
// with the given snapshot.
func (c *Client) ReplaceWithSnapshot(
	ctx context.Context,
	docID string,
	snapshot []byte,
	expectedVersion int64,
) error {
	res, err := c.collection(ColDocuments).UpdateOne(ctx, bson.M{
		"_id":     docID,
		"version": expectedVersion,
	}, bson.M{
		"$set": bson.M{
			"snapshot":      snapshot,
			"updates":       bson.A{},
			"version":       expectedVersion + 1,
			"last_saved_at": gotime.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("replace with snapshot of %s: %w", docID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", docID, database.ErrConflictOnUpdate)
	}

	return nil
}
