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

// Package types provides the types shared between the server packages.
package types

// ID is the identifier of a document. It is shared with the note metadata
// entity that owns the document; this core only needs the opaque value.
type ID string

// String returns the string representation of the ID.
func (id ID) String() string {
	return string(id)
}

// DocEventType represents the type of the document event.
type DocEventType string

const (
	// DocUpdatedEvent is an event delivering a delta to the other members
	// of the document room.
	DocUpdatedEvent DocEventType = "yjs-update"

	// PresenceUpdatedEvent is an event relaying ephemeral awareness
	// payloads such as cursor positions. It is never persisted.
	PresenceUpdatedEvent DocEventType = "presenceUpdate"
)

// DocEvent is an event that occurred in a document room.
type DocEvent struct {
	Type DocEventType

	// DocID is the document the event belongs to.
	DocID ID

	// Publisher is the connection that produced the event. Receivers use
	// it to filter their own events even if they learn of them through a
	// separate path.
	Publisher string

	// Payload is the raw delta or awareness payload.
	Payload []byte
}
