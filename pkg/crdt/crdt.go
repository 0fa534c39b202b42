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

// Package crdt defines the merge primitive consumed by the sync engine.
//
// The engine does not implement conflict-free merge semantics itself. It
// treats deltas and snapshots as opaque bytes and hands them to a Merger.
// Any mature CRDT library can be plugged in by implementing Merger; the
// engine requires the primitive to be idempotent and tolerant of
// out-of-causal-order delta application, which is standard for the class
// of algorithm. Snapshot-then-log order is still respected by callers
// since a snapshot already encodes all deltas folded into it.
package crdt

// Doc is an in-memory replica handle. It is short-lived: callers build
// one from durable storage, use it to encode a response or snapshot, and
// close it. It is not safe for concurrent use.
type Doc interface {
	// ApplyUpdate merges the given delta or encoded state into the
	// replica.
	ApplyUpdate(delta []byte) error

	// Encode encodes the full current state as a single update that,
	// applied to an empty replica, reproduces this state.
	Encode() ([]byte, error)

	// Close releases the resources of the replica.
	Close()
}

// Merger creates replicas. It is injected into the backend so the merge
// algorithm can be swapped without touching transport or storage.
type Merger interface {
	// NewDoc returns a new empty replica.
	NewDoc() Doc
}
