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
	"context"
	gosync "sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/xid"

	"github.com/rohan-kumar-006/HiveNote/api/types"
	"github.com/rohan-kumar-006/HiveNote/server/backend"
	"github.com/rohan-kumar-006/HiveNote/server/backend/sync"
	"github.com/rohan-kumar-006/HiveNote/server/documents"
	"github.com/rohan-kumar-006/HiveNote/server/logging"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// pingPeriod is the interval of pings to the peer. Must be less than
	// pongWait.
	pingPeriod = 54 * time.Second

	// maxMessageSize bounds an inbound envelope. Deltas are small, but a
	// requested snapshot of a long-lived document can be large, so the
	// inbound bound stays generous.
	maxMessageSize = 4 << 20

	// sendBufferSize is the size of the outbound channel of a client.
	sendBufferSize = 256
)

// client is one websocket session. A session can join any number of
// document rooms; it has one reader and one writer goroutine, plus one
// forwarding goroutine per joined room.
type client struct {
	id      string
	userID  string
	conn    *websocket.Conn
	backend *backend.Backend
	logger  logging.Logger

	sendCh    chan []byte
	closeCh   chan struct{}
	closeOnce gosync.Once

	mu            gosync.Mutex
	subs          map[types.ID]*sync.Subscription
	pendingPushes map[types.ID]*time.Timer
}

func newClient(conn *websocket.Conn, userID string, be *backend.Backend) *client {
	id := xid.New().String()
	return &client{
		id:      id,
		userID:  userID,
		conn:    conn,
		backend: be,
		logger:  logging.New("ws").With("conn", id, "user", userID),

		sendCh:  make(chan []byte, sendBufferSize),
		closeCh: make(chan struct{}),

		subs:          make(map[types.ID]*sync.Subscription),
		pendingPushes: make(map[types.ID]*time.Timer),
	}
}

// run serves the session until the connection drops. It blocks in the
// read loop; the caller runs it in its own goroutine.
func (c *client) run() {
	c.backend.Metrics.AddConnection()
	defer c.backend.Metrics.RemoveConnection()

	go c.writePump()
	c.readPump()
	c.close()
}

// close tears the session down: pending initial-state pushes are
// cancelled and every joined room is left. Document state stays durable
// regardless of who is connected.
func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.closeCh)

		c.mu.Lock()
		subs := c.subs
		timers := c.pendingPushes
		c.subs = make(map[types.ID]*sync.Subscription)
		c.pendingPushes = make(map[types.ID]*time.Timer)
		c.mu.Unlock()

		for _, timer := range timers {
			timer.Stop()
		}

		ctx := logging.With(context.Background(), c.logger)
		for docID, sub := range subs {
			c.backend.PubSub.Unsubscribe(ctx, docID, sub)
		}

		if err := c.conn.Close(); err != nil {
			c.logger.Debugf("close connection: %v", err)
		}
	})
}

// send queues the given frame for the writer goroutine. A session whose
// outbound buffer is full is dropped rather than allowed to apply
// backpressure to a document room.
func (c *client) send(data []byte) {
	select {
	case c.sendCh <- data:
	case <-c.closeCh:
	default:
		c.logger.Warnf("outbound buffer full, dropping connection")
		c.close()
	}
}

func (c *client) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	ctx := logging.With(context.Background(), c.logger)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
			) {
				c.logger.Warnf("read: %v", err)
			}
			return
		}

		msg, err := DecodeMessage(data)
		if err != nil {
			// A malformed envelope costs the sender nothing but the
			// message itself.
			c.logger.Warnf("drop malformed message: %v", err)
			continue
		}

		c.handleMessage(ctx, msg)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case data := <-c.sendCh:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debugf("write: %v", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closeCh:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
			return
		}
	}
}

func (c *client) handleMessage(ctx context.Context, msg *Message) {
	docID := types.ID(msg.DocID)

	switch msg.Event {
	case JoinDocEvent:
		c.handleJoinDoc(ctx, docID)
	case DocUpdateEvent:
		c.handleDocUpdate(ctx, docID, msg.Update)
	case RequestDocStateEvent:
		c.handleRequestDocState(ctx, docID)
	case PresenceEvent:
		c.handlePresence(ctx, docID, msg.Awareness)
	}
}

// handleJoinDoc registers the session in the document room and schedules
// the initial-state push. Joining a room twice is a no-op.
func (c *client) handleJoinDoc(ctx context.Context, docID types.ID) {
	c.mu.Lock()
	if _, ok := c.subs[docID]; ok {
		c.mu.Unlock()
		return
	}

	sub := c.backend.PubSub.Subscribe(ctx, c.id, docID)
	c.subs[docID] = sub

	// A joined document is sweepable even if this session never appends,
	// so updates stored before a restart still get compacted.
	c.backend.ActiveDocs.Add(docID)

	// The push is delayed so a client that sends its own state right
	// after joining is not raced by a stale snapshot.
	c.pendingPushes[docID] = time.AfterFunc(c.backend.InitialStateDelay, func() {
		c.pushDocState(docID)
	})
	c.mu.Unlock()

	peers := c.backend.PubSub.Members(docID, c.id)
	c.logger.Debugf("JOIN: %s, %d peers", docID, len(peers))

	go c.forwardEvents(sub)
}

func (c *client) handleDocUpdate(ctx context.Context, docID types.ID, delta []byte) {
	c.backend.Metrics.AddReceivedUpdate()

	_, count, err := documents.PersistUpdate(ctx, c.backend, docID, delta, c.id)
	if err != nil {
		// The delta was not stored, so nothing was broadcast. The
		// connection and the other documents stay up.
		c.logger.Errorf("persist update of %s: %v", docID, err)
		return
	}

	if count >= c.backend.Config.CompactionThreshold {
		go func() {
			bgCtx := logging.With(context.Background(), c.logger)
			if err := documents.Compact(bgCtx, c.backend, docID); err != nil {
				c.logger.Warnf("compact %s: %v", docID, err)
			}
		}()
	}
}

func (c *client) handleRequestDocState(ctx context.Context, docID types.ID) {
	state, err := documents.DocState(ctx, c.backend, docID)
	if err != nil {
		c.logger.Errorf("state of %s: %v", docID, err)
		return
	}

	c.backend.Metrics.AddDocStateRequest()
	data, err := encodeDocState(docID.String(), state)
	if err != nil {
		c.logger.Errorf("%v", err)
		return
	}
	c.send(data)
}

func (c *client) handlePresence(ctx context.Context, docID types.ID, awareness []byte) {
	c.backend.PubSub.Publish(ctx, types.DocEvent{
		Type:      types.PresenceUpdatedEvent,
		DocID:     docID,
		Publisher: c.id,
		Payload:   awareness,
	})
}

// pushDocState delivers the stored state of the given document after the
// join delay. The push is skipped when the session already left the room
// or dropped in the meantime.
func (c *client) pushDocState(docID types.ID) {
	c.mu.Lock()
	_, joined := c.subs[docID]
	delete(c.pendingPushes, docID)
	c.mu.Unlock()

	select {
	case <-c.closeCh:
		return
	default:
	}
	if !joined {
		return
	}

	ctx := logging.With(context.Background(), c.logger)
	c.handleRequestDocState(ctx, docID)
}

// forwardEvents turns room events into outbound frames. It runs until
// the subscription is closed by Unsubscribe.
func (c *client) forwardEvents(sub *sync.Subscription) {
	for event := range sub.Events() {
		var (
			data []byte
			err  error
		)

		switch event.Type {
		case types.DocUpdatedEvent:
			data, err = encodeUpdate(event.DocID.String(), event.Payload, event.Publisher)
			if err == nil {
				c.backend.Metrics.AddBroadcastUpdates(1)
			}
		case types.PresenceUpdatedEvent:
			data, err = encodePresenceUpdate(event.DocID.String(), event.Payload, event.Publisher)
		default:
			continue
		}

		if err != nil {
			c.logger.Errorf("%v", err)
			continue
		}
		c.send(data)
	}
}
