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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohan-kumar-006/HiveNote/pkg/crdt"
	"github.com/rohan-kumar-006/HiveNote/server/backend"
	"github.com/rohan-kumar-006/HiveNote/server/backend/housekeeping"
	"github.com/rohan-kumar-006/HiveNote/server/profiling/prometheus"
)

// envelope mirrors every outbound frame for assertions.
type envelope struct {
	Event     EventType       `json:"event"`
	DocID     string          `json:"docId"`
	Update    []byte          `json:"updateBase64"`
	Awareness json.RawMessage `json:"awareness"`
	From      string          `json:"from"`
}

func setUpTestServer(t *testing.T, secretKey string) (*backend.Backend, *httptest.Server) {
	t.Helper()

	metrics, err := prometheus.NewMetrics()
	require.NoError(t, err)

	be, err := backend.New(
		&backend.Config{
			CompactionThreshold: 50,
			InitialStateDelay:   "10ms",
		},
		nil,
		&housekeeping.Config{
			Interval:             "5m",
			CompactionSweepFloor: 10,
		},
		crdt.NewDeltaSetMerger(),
		metrics,
	)
	require.NoError(t, err)

	server := NewServer(&Config{Port: 8080, SecretKey: secretKey}, be)
	testServer := httptest.NewServer(http.HandlerFunc(server.handleConnection))

	t.Cleanup(func() {
		testServer.Close()
		assert.NoError(t, be.Shutdown())
	})

	return be, testServer
}

func dialTestServer(t *testing.T, testServer *httptest.Server, query string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(testServer.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
	})

	return conn
}

func sendMessage(t *testing.T, conn *websocket.Conn, msg Message) {
	t.Helper()

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

// readEvent reads frames until one with the wanted event arrives.
func readEvent(t *testing.T, conn *websocket.Conn, event EventType) *envelope {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		env := &envelope{}
		require.NoError(t, json.Unmarshal(data, env))
		if env.Event == event {
			return env
		}
	}
}

// assertNoEvent asserts no frame with the given event arrives within the
// given window.
func assertNoEvent(t *testing.T, conn *websocket.Conn, event EventType, window time.Duration) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(window)))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		env := &envelope{}
		require.NoError(t, json.Unmarshal(data, env))
		assert.NotEqual(t, event, env.Event)
	}
}

func TestServer(t *testing.T) {
	t.Run("join and broadcast test", func(t *testing.T) {
		_, testServer := setUpTestServer(t, "")

		connA := dialTestServer(t, testServer, "")
		connB := dialTestServer(t, testServer, "")

		sendMessage(t, connA, Message{Event: JoinDocEvent, DocID: "doc-1"})
		sendMessage(t, connB, Message{Event: JoinDocEvent, DocID: "doc-1"})

		// Both sessions see the initial state of the empty document.
		assert.Nil(t, readEvent(t, connA, DocStateEvent).Update)
		assert.Nil(t, readEvent(t, connB, DocStateEvent).Update)

		sendMessage(t, connA, Message{
			Event:  DocUpdateEvent,
			DocID:  "doc-1",
			Update: []byte("d1"),
		})

		env := readEvent(t, connB, DocUpdateEvent)
		assert.Equal(t, "doc-1", env.DocID)
		assert.Equal(t, []byte("d1"), env.Update)
		assert.NotEmpty(t, env.From)

		assertNoEvent(t, connA, DocUpdateEvent, 200*time.Millisecond)
	})

	t.Run("request doc state test", func(t *testing.T) {
		be, testServer := setUpTestServer(t, "")

		connA := dialTestServer(t, testServer, "")
		sendMessage(t, connA, Message{Event: JoinDocEvent, DocID: "doc-1"})
		sendMessage(t, connA, Message{
			Event:  DocUpdateEvent,
			DocID:  "doc-1",
			Update: []byte("d1"),
		})

		connB := dialTestServer(t, testServer, "")
		// Appends are asynchronous to this connection, wait for it to land.
		assert.Eventually(t, func() bool {
			record, err := be.DB.FindDocRecord(context.Background(), "doc-1")
			return err == nil && record.UpdateCount() == 1
		}, time.Second, 10*time.Millisecond)

		sendMessage(t, connB, Message{Event: RequestDocStateEvent, DocID: "doc-1"})
		env := readEvent(t, connB, DocStateEvent)

		doc := be.Merger.NewDoc()
		defer doc.Close()
		require.NoError(t, doc.ApplyUpdate([]byte("d1")))
		want, err := doc.Encode()
		require.NoError(t, err)
		assert.Equal(t, want, env.Update)
	})

	t.Run("empty doc state test", func(t *testing.T) {
		_, testServer := setUpTestServer(t, "")

		conn := dialTestServer(t, testServer, "")
		sendMessage(t, conn, Message{Event: RequestDocStateEvent, DocID: "doc-9"})

		env := readEvent(t, conn, DocStateEvent)
		assert.Nil(t, env.Update)
	})

	t.Run("join marks doc active test", func(t *testing.T) {
		be, testServer := setUpTestServer(t, "")

		// A session that only reads must still make the document
		// sweepable, or updates from a previous run never get compacted.
		conn := dialTestServer(t, testServer, "")
		sendMessage(t, conn, Message{Event: JoinDocEvent, DocID: "doc-1"})
		readEvent(t, conn, DocStateEvent)

		assert.Eventually(t, func() bool {
			return be.ActiveDocs.Has("doc-1")
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("presence relay test", func(t *testing.T) {
		_, testServer := setUpTestServer(t, "")

		connA := dialTestServer(t, testServer, "")
		connB := dialTestServer(t, testServer, "")
		sendMessage(t, connA, Message{Event: JoinDocEvent, DocID: "doc-1"})
		sendMessage(t, connB, Message{Event: JoinDocEvent, DocID: "doc-1"})
		readEvent(t, connA, DocStateEvent)
		readEvent(t, connB, DocStateEvent)

		sendMessage(t, connA, Message{
			Event:     PresenceEvent,
			DocID:     "doc-1",
			Awareness: json.RawMessage(`{"cursor":[1,2]}`),
		})

		env := readEvent(t, connB, PresenceUpdateEvent)
		assert.JSONEq(t, `{"cursor":[1,2]}`, string(env.Awareness))
		assert.NotEmpty(t, env.From)

		assertNoEvent(t, connA, PresenceUpdateEvent, 200*time.Millisecond)
	})

	t.Run("malformed message keeps connection test", func(t *testing.T) {
		_, testServer := setUpTestServer(t, "")

		conn := dialTestServer(t, testServer, "")
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":`)))

		sendMessage(t, conn, Message{Event: RequestDocStateEvent, DocID: "doc-1"})
		env := readEvent(t, conn, DocStateEvent)
		assert.Equal(t, "doc-1", env.DocID)
	})

	t.Run("admission test", func(t *testing.T) {
		_, testServer := setUpTestServer(t, "secret")

		url := "ws" + strings.TrimPrefix(testServer.URL, "http") + "/ws"
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		assert.Error(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		conn := dialTestServer(t, testServer, "?token="+signToken(t, "secret", "user-1"))
		sendMessage(t, conn, Message{Event: RequestDocStateEvent, DocID: "doc-1"})
		readEvent(t, conn, DocStateEvent)
	})
}
