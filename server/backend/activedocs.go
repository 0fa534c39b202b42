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

package backend

import (
	"github.com/rohan-kumar-006/HiveNote/api/types"
	"github.com/rohan-kumar-006/HiveNote/pkg/cmap"
)

// ActiveDocs is the registry of documents that have seen activity since
// process start. It scopes the periodic compaction sweep. Entries are
// added on first join or append and never removed; the set is bounded by
// a process restart.
type ActiveDocs struct {
	docs *cmap.Map[types.ID, struct{}]
}

// NewActiveDocs creates a new ActiveDocs registry.
func NewActiveDocs() *ActiveDocs {
	return &ActiveDocs{
		docs: cmap.New[types.ID, struct{}](),
	}
}

// Add marks the given document as active.
func (a *ActiveDocs) Add(docID types.ID) {
	a.docs.Set(docID, struct{}{})
}

// Has checks whether the given document is active.
func (a *ActiveDocs) Has(docID types.ID) bool {
	return a.docs.Has(docID)
}

// IDs returns the ids of the active documents.
func (a *ActiveDocs) IDs() []types.ID {
	return a.docs.Keys()
}

// Len returns the number of active documents.
func (a *ActiveDocs) Len() int {
	return a.docs.Len()
}
