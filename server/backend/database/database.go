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

// Package database provides the update log store interface of the
// HiveNote backend. The store is the single source of truth: replicas
// are always derived from it and discarded after use.
package database

import (
	"context"
	"errors"
)

var (
	// ErrDocumentNotFound is returned when the document could not be found.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrConflictOnUpdate is returned when a conflict occurs during update.
	ErrConflictOnUpdate = errors.New("conflict on update")
)

// Database reads and saves document records. Implementations must keep
// ReplaceWithSnapshot atomic with respect to CreateUpdate for the same
// document; callers additionally serialize per document id so appends
// and compaction never interleave.
type Database interface {
	// Close closes all resources of this database.
	Close() error

	// FindDocRecord returns the record of the given document.
	// ErrDocumentNotFound is returned when no record exists.
	FindDocRecord(ctx context.Context, docID string) (*DocRecord, error)

	// EnsureDocRecord returns the record of the given document, creating
	// an empty one (no updates, no snapshot, version 0) if none exists.
	EnsureDocRecord(ctx context.Context, docID string) (*DocRecord, error)

	// CreateUpdate appends the given delta to the update log of the
	// document, bumping its version. If no record exists, one is created
	// lazily with the delta as its only update and version 1. It returns
	// the new version and the number of stored updates.
	CreateUpdate(ctx context.Context, docID string, delta []byte) (int64, int, error)

	// ReplaceWithSnapshot atomically clears the update log, sets the
	// snapshot and bumps the version of the document. It fails with
	// ErrConflictOnUpdate when the stored version no longer matches
	// expectedVersion, leaving the record untouched.
	ReplaceWithSnapshot(ctx context.Context, docID string, snapshot []byte, expectedVersion int64) error
}
