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

package documents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rohan-kumar-006/HiveNote/api/types"
	"github.com/rohan-kumar-006/HiveNote/server/backend"
	"github.com/rohan-kumar-006/HiveNote/server/backend/database"
	"github.com/rohan-kumar-006/HiveNote/server/logging"
)

// Compact folds the update log of the given document into a single
// snapshot. It reads the record, merges the snapshot and pending updates
// into one replica, encodes it and atomically replaces the log with the
// result. The replacement is guarded by the version read at the start,
// so a record that moved in the meantime is left untouched; the appends
// that raced the compaction stay in the log for the next pass.
func Compact(
	ctx context.Context,
	be *backend.Backend,
	docID types.ID,
) error {
	start := time.Now()

	key := docLockKey(docID)
	be.Lockers.Lock(key)
	defer func() {
		if err := be.Lockers.Unlock(key); err != nil {
			logging.From(ctx).Error(err)
		}
	}()

	record, err := be.DB.FindDocRecord(ctx, docID.String())
	if err != nil {
		if errors.Is(err, database.ErrDocumentNotFound) {
			return nil
		}
		return fmt.Errorf("compact %s: %w", docID, err)
	}

	if record.UpdateCount() == 0 {
		return nil
	}

	doc, err := BuildDoc(ctx, be.Merger, record)
	if err != nil {
		be.Metrics.AddCompactionResult("error")
		return fmt.Errorf("compact %s: %w", docID, err)
	}
	defer doc.Close()

	snapshot, err := doc.Encode()
	if err != nil {
		be.Metrics.AddCompactionResult("error")
		return fmt.Errorf("compact %s: %w", docID, err)
	}

	if err := be.DB.ReplaceWithSnapshot(
		ctx, docID.String(), snapshot, record.Version,
	); err != nil {
		if errors.Is(err, database.ErrConflictOnUpdate) {
			be.Metrics.AddCompactionResult("conflict")
			logging.From(ctx).Infof("COMP: %s moved, retry on next pass", docID)
			return nil
		}
		be.Metrics.AddCompactionResult("error")
		return fmt.Errorf("compact %s: %w", docID, err)
	}

	be.Metrics.AddCompactionResult("success")
	be.Metrics.ObserveCompactionDurationSeconds(time.Since(start).Seconds())
	logging.From(ctx).Infof(
		"COMP: %s folded %d updates in %s",
		docID, record.UpdateCount(), time.Since(start),
	)
	return nil
}

// CompactActiveDocuments walks every document that has seen an update
// since the server started and compacts those whose log exceeds the
// given floor. Documents that disappeared from storage are skipped; a
// failure on one document is logged and does not stop the sweep.
func CompactActiveDocuments(
	ctx context.Context,
	be *backend.Backend,
	floor int,
) error {
	for _, docID := range be.ActiveDocs.IDs() {
		record, err := be.DB.FindDocRecord(ctx, docID.String())
		if err != nil {
			if errors.Is(err, database.ErrDocumentNotFound) {
				continue
			}
			logging.From(ctx).Warnf("sweep %s: %v", docID, err)
			continue
		}

		if record.UpdateCount() <= floor {
			continue
		}

		if err := Compact(ctx, be, docID); err != nil {
			logging.From(ctx).Warnf("sweep %s: %v", docID, err)
		}
	}

	return nil
}
