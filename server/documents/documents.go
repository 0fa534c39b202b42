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

// Package documents provides the document operations of the server:
// persisting deltas, reconstructing replicas from durable storage and
// compacting the update log into snapshots.
package documents

import (
	"context"
	"fmt"

	"github.com/rohan-kumar-006/HiveNote/api/types"
	"github.com/rohan-kumar-006/HiveNote/pkg/crdt"
	"github.com/rohan-kumar-006/HiveNote/server/backend"
	"github.com/rohan-kumar-006/HiveNote/server/backend/database"
	"github.com/rohan-kumar-006/HiveNote/server/logging"
)

// docLockKey returns the name of the lock serializing appends and
// compaction of the given document.
func docLockKey(docID types.ID) string {
	return fmt.Sprintf("documents/%s", docID)
}

// PersistUpdate appends the given delta to the update log of the
// document, marks the document active and fans the delta out to the
// other members of the room. The fan-out happens before the document
// lock is released so broadcast order matches persistence order, and it
// only happens after the append succeeded; a delta that could not be
// durably stored is never broadcast, otherwise replicas would diverge
// from durable history.
//
// It returns the new version and the stored update count so the caller
// can evaluate the compaction threshold.
func PersistUpdate(
	ctx context.Context,
	be *backend.Backend,
	docID types.ID,
	delta []byte,
	publisher string,
) (int64, int, error) {
	key := docLockKey(docID)
	be.Lockers.Lock(key)
	defer func() {
		if err := be.Lockers.Unlock(key); err != nil {
			logging.From(ctx).Error(err)
		}
	}()

	version, count, err := be.DB.CreateUpdate(ctx, docID.String(), delta)
	if err != nil {
		return 0, 0, fmt.Errorf("persist update of %s: %w", docID, err)
	}

	be.ActiveDocs.Add(docID)
	be.PubSub.Publish(ctx, types.DocEvent{
		Type:      types.DocUpdatedEvent,
		DocID:     docID,
		Publisher: publisher,
		Payload:   delta,
	})

	return version, count, nil
}

// BuildDoc reconstructs an in-memory replica from the given record:
// empty state, then the snapshot if present, then every stored update in
// stored order. The snapshot must be applied first since it already
// encodes all deltas folded into it. A stored update that fails to apply
// is logged and skipped so one malformed delta can not take the whole
// document down.
//
// The caller owns the returned replica and must close it after use; it
// is never retained as a cache entry.
func BuildDoc(
	ctx context.Context,
	merger crdt.Merger,
	record *database.DocRecord,
) (crdt.Doc, error) {
	doc := merger.NewDoc()

	if record.Snapshot != nil {
		if err := doc.ApplyUpdate(record.Snapshot); err != nil {
			doc.Close()
			return nil, fmt.Errorf("apply snapshot of %s: %w", record.ID, err)
		}
	}

	for i, update := range record.Updates {
		if err := doc.ApplyUpdate(update); err != nil {
			logging.From(ctx).Warnf(
				"skip malformed update %d of %s: %v", i, record.ID, err,
			)
		}
	}

	return doc, nil
}

// DocState returns the encoded full state of the given document, lazily
// creating the durable record when none exists. A document with no
// history yields a nil state, which the protocol encodes as an explicit
// empty marker. A transient read failure also yields the empty state
// rather than blocking the connection.
func DocState(
	ctx context.Context,
	be *backend.Backend,
	docID types.ID,
) ([]byte, error) {
	record, err := be.DB.EnsureDocRecord(ctx, docID.String())
	if err != nil {
		logging.From(ctx).Warnf("load state of %s, fall back to empty: %v", docID, err)
		return nil, nil
	}

	if record.Snapshot == nil && record.UpdateCount() == 0 {
		return nil, nil
	}

	doc, err := BuildDoc(ctx, be.Merger, record)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	state, err := doc.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode state of %s: %w", docID, err)
	}

	return state, nil
}
