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

package database

import (
	"time"
)

// DocRecord is the durable record of a document. Replaying Snapshot (if
// present) followed by Updates in stored order through the merge
// primitive yields the same state as replaying the full original
// history; compaction preserves this while folding Updates into a new
// Snapshot.
type DocRecord struct {
	// ID is the identifier of the document, shared with the note metadata
	// entity owned outside this core.
	ID string `bson:"_id"`

	// Updates is the ordered append-only log of opaque deltas. Insertion
	// order is replay order.
	Updates [][]byte `bson:"updates"`

	// Snapshot is the full state as of some version. Nil means no
	// compaction has occurred yet.
	Snapshot []byte `bson:"snapshot"`

	// Version increases on every accepted delta and on every compaction.
	Version int64 `bson:"version"`

	// LastSavedAt is the time of the last successful persistence.
	LastSavedAt time.Time `bson:"last_saved_at"`

	// CreatedAt is the time the record was created.
	CreatedAt time.Time `bson:"created_at"`
}

// DeepCopy copies itself deeply. Storage implementations hand out copies
// so callers can not mutate stored state.
func (r *DocRecord) DeepCopy() *DocRecord {
	if r == nil {
		return nil
	}

	clone := *r
	clone.Updates = make([][]byte, len(r.Updates))
	for i, update := range r.Updates {
		clone.Updates[i] = append([]byte(nil), update...)
	}
	if r.Snapshot != nil {
		clone.Snapshot = append([]byte(nil), r.Snapshot...)
	}
	return &clone
}

// UpdateCount returns the number of stored updates.
func (r *DocRecord) UpdateCount() int {
	return len(r.Updates)
}
