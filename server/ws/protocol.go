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

package ws

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rohan-kumar-006/HiveNote/internal/validation"
)

// EventType represents the type of an envelope on the wire.
type EventType string

const (
	// JoinDocEvent is sent by a session to join a document room.
	JoinDocEvent EventType = "joinDoc"

	// DocUpdateEvent carries a delta. Inbound it holds the delta of the
	// sender, outbound the delta of another member with its origin.
	DocUpdateEvent EventType = "yjs-update"

	// RequestDocStateEvent asks for the full state of a document.
	RequestDocStateEvent EventType = "requestDocState"

	// DocStateEvent answers RequestDocStateEvent. A document with no
	// history yields a null payload.
	DocStateEvent EventType = "docState"

	// PresenceEvent carries ephemeral awareness data of the sender.
	PresenceEvent EventType = "presence"

	// PresenceUpdateEvent relays awareness data to the other members.
	PresenceUpdateEvent EventType = "presenceUpdate"
)

// ErrUnknownEvent occurs when an envelope carries an event this server
// does not handle.
var ErrUnknownEvent = errors.New("unknown event")

// Message is an inbound envelope. Update travels base64-encoded on the
// wire, which is exactly how encoding/json represents a byte slice.
type Message struct {
	Event     EventType       `json:"event" validate:"required"`
	DocID     string          `json:"docId" validate:"required,min=1,max=256,docid"`
	Update    []byte          `json:"updateBase64,omitempty"`
	Awareness json.RawMessage `json:"awareness,omitempty"`
}

// DecodeMessage parses and validates an inbound envelope.
func DecodeMessage(data []byte) (*Message, error) {
	msg := &Message{}
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}

	if err := validation.ValidateStruct(msg); err != nil {
		return nil, err
	}

	switch msg.Event {
	case JoinDocEvent, RequestDocStateEvent:
	case DocUpdateEvent:
		if len(msg.Update) == 0 {
			return nil, errors.New("yjs-update without updateBase64")
		}
	case PresenceEvent:
		if len(msg.Awareness) == 0 {
			return nil, errors.New("presence without awareness")
		}
	default:
		return nil, fmt.Errorf("%q: %w", msg.Event, ErrUnknownEvent)
	}

	return msg, nil
}

// updateMessage is the outbound envelope relaying a delta of another
// member of the room.
type updateMessage struct {
	Event  EventType `json:"event"`
	DocID  string    `json:"docId"`
	Update []byte    `json:"updateBase64"`
	From   string    `json:"from"`
}

// docStateMessage is the outbound envelope carrying the full state of a
// document. Update stays in place even when null so clients can tell an
// empty document from a missing field.
type docStateMessage struct {
	Event  EventType `json:"event"`
	DocID  string    `json:"docId"`
	Update []byte    `json:"updateBase64"`
}

// presenceUpdateMessage is the outbound envelope relaying awareness data
// of another member of the room.
type presenceUpdateMessage struct {
	Event     EventType       `json:"event"`
	DocID     string          `json:"docId"`
	Awareness json.RawMessage `json:"awareness"`
	From      string          `json:"from"`
}

func encodeUpdate(docID string, update []byte, from string) ([]byte, error) {
	data, err := json.Marshal(updateMessage{
		Event:  DocUpdateEvent,
		DocID:  docID,
		Update: update,
		From:   from,
	})
	if err != nil {
		return nil, fmt.Errorf("encode update message: %w", err)
	}
	return data, nil
}

func encodeDocState(docID string, state []byte) ([]byte, error) {
	data, err := json.Marshal(docStateMessage{
		Event:  DocStateEvent,
		DocID:  docID,
		Update: state,
	})
	if err != nil {
		return nil, fmt.Errorf("encode docState message: %w", err)
	}
	return data, nil
}

func encodePresenceUpdate(docID string, awareness json.RawMessage, from string) ([]byte, error) {
	data, err := json.Marshal(presenceUpdateMessage{
		Event:     PresenceUpdateEvent,
		DocID:     docID,
		Awareness: awareness,
		From:      from,
	})
	if err != nil {
		return nil, fmt.Errorf("encode presenceUpdate message: %w", err)
	}
	return data, nil
}
