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

// Package sync provides the session registry of the server: which
// connections are subscribed to which documents, and event fan-out to
// the members of a document room. It is an in-memory implementation for
// a single server process that owns all connections of a document.
package sync

import (
	"context"
	gosync "sync"
	gotime "time"

	"github.com/rs/xid"
	"go.uber.org/zap"

	"github.com/rohan-kumar-006/HiveNote/api/types"
	"github.com/rohan-kumar-006/HiveNote/pkg/cmap"
	"github.com/rohan-kumar-006/HiveNote/server/logging"
)

const (
	// publishTimeout bounds the delivery of one event to one subscriber
	// so a slow consumer can not block the publishing document.
	publishTimeout = 100 * gotime.Millisecond

	// eventBufferSize is the size of the event channel of a subscription.
	eventBufferSize = 64
)

// Subscription represents the membership of one connection in one
// document room.
type Subscription struct {
	id         string
	subscriber string
	docID      types.ID

	mu     gosync.Mutex
	closed bool
	events chan types.DocEvent
}

// NewSubscription creates a new instance of Subscription.
func NewSubscription(subscriber string, docID types.ID) *Subscription {
	return &Subscription{
		id:         xid.New().String(),
		subscriber: subscriber,
		docID:      docID,
		events:     make(chan types.DocEvent, eventBufferSize),
	}
}

// ID returns the id of this subscription.
func (s *Subscription) ID() string {
	return s.id
}

// Subscriber returns the connection id of this subscription.
func (s *Subscription) Subscriber() string {
	return s.subscriber
}

// DocID returns the document this subscription belongs to.
func (s *Subscription) DocID() types.ID {
	return s.docID
}

// Events returns the event channel of this subscription.
func (s *Subscription) Events() <-chan types.DocEvent {
	return s.events
}

// Close closes all resources of this subscription. It is safe to call
// redundantly.
func (s *Subscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.events)
	}
}

// publish delivers the given event to the subscriber. It reports whether
// the delivery succeeded within the publish timeout.
func (s *Subscription) publish(event types.DocEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	// NOTE: When a subscription is being closed by its subscriber, the
	// subscriber may not receive the event.
	select {
	case s.events <- event:
		return true
	case <-gotime.After(publishTimeout):
		return false
	}
}

// subscriptions is the set of subscriptions of one document room.
type subscriptions struct {
	docID       types.ID
	internalMap *cmap.Map[string, *Subscription]
}

func newSubscriptions(docID types.ID) *subscriptions {
	return &subscriptions{
		docID:       docID,
		internalMap: cmap.New[string, *Subscription](),
	}
}

func (s *subscriptions) Set(sub *Subscription) {
	s.internalMap.Set(sub.ID(), sub)
}

func (s *subscriptions) Values() []*Subscription {
	return s.internalMap.Values()
}

func (s *subscriptions) Delete(id string) {
	s.internalMap.Delete(id, func(sub *Subscription, exists bool) bool {
		if exists {
			sub.Close()
		}
		return exists
	})
}

func (s *subscriptions) Len() int {
	return s.internalMap.Len()
}

// PubSub is the in-memory session registry, used for a single server.
type PubSub struct {
	subscriptionsMap *cmap.Map[types.ID, *subscriptions]
}

// NewPubSub creates an instance of PubSub.
func NewPubSub() *PubSub {
	return &PubSub{
		subscriptionsMap: cmap.New[types.ID, *subscriptions](),
	}
}

// Subscribe subscribes the given connection to the given document room.
func (m *PubSub) Subscribe(
	ctx context.Context,
	subscriber string,
	docID types.ID,
) *Subscription {
	subs := m.subscriptionsMap.Upsert(docID, func(subs *subscriptions, exists bool) *subscriptions {
		if !exists {
			return newSubscriptions(docID)
		}
		return subs
	})

	sub := NewSubscription(subscriber, docID)
	subs.Set(sub)

	if logging.Enabled(zap.DebugLevel) {
		logging.From(ctx).Debugf("Subscribe(%s,%s)", docID, subscriber)
	}
	return sub
}

// Unsubscribe removes the given subscription from its document room.
// Leaving a room that was already left is a no-op.
func (m *PubSub) Unsubscribe(
	ctx context.Context,
	docID types.ID,
	sub *Subscription,
) {
	sub.Close()

	if subs, ok := m.subscriptionsMap.Get(docID); ok {
		subs.Delete(sub.ID())

		m.subscriptionsMap.Delete(docID, func(subs *subscriptions, exists bool) bool {
			return exists && subs.Len() == 0
		})
	}

	if logging.Enabled(zap.DebugLevel) {
		logging.From(ctx).Debugf("Unsubscribe(%s,%s)", docID, sub.Subscriber())
	}
}

// Publish delivers the given event to every member of the document room
// except the publisher. The event carries the publisher so receivers can
// filter it even if they learn of it through a separate path.
func (m *PubSub) Publish(ctx context.Context, event types.DocEvent) {
	subs, ok := m.subscriptionsMap.Get(event.DocID)
	if !ok {
		return
	}

	for _, sub := range subs.Values() {
		if sub.Subscriber() == event.Publisher {
			continue
		}

		if ok := sub.publish(event); !ok {
			logging.From(ctx).Warnf(
				"Publish(%s,%s) to %s timeout or closed",
				event.DocID,
				event.Publisher,
				sub.Subscriber(),
			)
		}
	}
}

// Members returns the connection ids of the given document room,
// excluding the given originator.
func (m *PubSub) Members(docID types.ID, excluding string) []string {
	subs, ok := m.subscriptionsMap.Get(docID)
	if !ok {
		return nil
	}

	var ids []string
	for _, sub := range subs.Values() {
		if sub.Subscriber() == excluding {
			continue
		}
		ids = append(ids, sub.Subscriber())
	}
	return ids
}
