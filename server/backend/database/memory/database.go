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

// Package memory implements the database interface using an in-memory
// database. It is used for tests and for running without MongoDB.
package memory

import (
	"context"
	"fmt"
	gotime "time"

	"github.com/hashicorp/go-memdb"

	"github.com/rohan-kumar-006/HiveNote/server/backend/database"
)

// DB is an in-memory database backed by go-memdb.
type DB struct {
	db *memdb.MemDB
}

// New returns a new in-memory database.
func New() (*DB, error) {
	memDB, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("new memdb: %w", err)
	}

	return &DB{
		db: memDB,
	}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return nil
}

// FindDocRecord returns the record of the given document.
func (d *DB) FindDocRecord(
	_ context.Context,
	docID string,
) (*database.DocRecord, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tblDocuments, "id", docID)
	if err != nil {
		return nil, fmt.Errorf("find document %s: %w", docID, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%s: %w", docID, database.ErrDocumentNotFound)
	}

	return raw.(*database.DocRecord).DeepCopy(), nil
}

// EnsureDocRecord returns the record of the given document, creating an
// empty one if none exists.
func (d *DB) EnsureDocRecord(
	_ context.Context,
	docID string,
) (*database.DocRecord, error) {
	txn := d.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblDocuments, "id", docID)
	if err != nil {
		return nil, fmt.Errorf("find document %s: %w", docID, err)
	}
	if raw != nil {
		return raw.(*database.DocRecord).DeepCopy(), nil
	}

	now := gotime.Now()
	record := &database.DocRecord{
		ID:          docID,
		Updates:     [][]byte{},
		Version:     0,
		LastSavedAt: now,
		CreatedAt:   now,
	}
	if err := txn.Insert(tblDocuments, record); err != nil {
		return nil, fmt.Errorf("insert document %s: %w", docID, err)
	}

	txn.Commit()
	return record.DeepCopy(), nil
}

// CreateUpdate appends the given delta to the update log of the
// document, creating the record lazily if needed.
func (d *DB) CreateUpdate(
	_ context.Context,
	docID string,
	delta []byte,
) (int64, int, error) {
	txn := d.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblDocuments, "id", docID)
	if err != nil {
		return 0, 0, fmt.Errorf("find document %s: %w", docID, err)
	}

	now := gotime.Now()
	var record *database.DocRecord
	if raw == nil {
		record = &database.DocRecord{
			ID:          docID,
			Updates:     [][]byte{append([]byte(nil), delta...)},
			Version:     1,
			LastSavedAt: now,
			CreatedAt:   now,
		}
	} else {
		record = raw.(*database.DocRecord).DeepCopy()
		record.Updates = append(record.Updates, append([]byte(nil), delta...))
		record.Version++
		record.LastSavedAt = now
	}

	if err := txn.Insert(tblDocuments, record); err != nil {
		return 0, 0, fmt.Errorf("insert document %s: %w", docID, err)
	}

	txn.Commit()
	return record.Version, len(record.Updates), nil
}

// ReplaceWithSnapshot atomically replaces the update log of the document
// with the given snapshot.
func (d *DB) ReplaceWithSnapshot(
	_ context.Context,
	docID string,
	snapshot []byte,
	expectedVersion int64,
) error {
	txn := d.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblDocuments, "id", docID)
	if err != nil {
		return fmt.Errorf("find document %s: %w", docID, err)
	}
	if raw == nil {
		return fmt.Errorf("%s: %w", docID, database.ErrDocumentNotFound)
	}

	record := raw.(*database.DocRecord).DeepCopy()
	if record.Version != expectedVersion {
		return fmt.Errorf("%s: %w", docID, database.ErrConflictOnUpdate)
	}

	record.Snapshot = append([]byte(nil), snapshot...)
	record.Updates = [][]byte{}
	record.Version++
	record.LastSavedAt = gotime.Now()

	if err := txn.Insert(tblDocuments, record); err != nil {
		return fmt.Errorf("insert document %s: %w", docID, err)
	}

	txn.Commit()
	return nil
}
