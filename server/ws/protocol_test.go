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
	"encoding/base64"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeMessage(t *testing.T) {
	t.Run("join doc test", func(t *testing.T) {
		msg, err := DecodeMessage([]byte(`{"event":"joinDoc","docId":"doc-1"}`))
		assert.NoError(t, err)
		assert.Equal(t, JoinDocEvent, msg.Event)
		assert.Equal(t, "doc-1", msg.DocID)
	})

	t.Run("update test", func(t *testing.T) {
		encoded := base64.StdEncoding.EncodeToString([]byte("d1"))
		raw := fmt.Sprintf(`{"event":"yjs-update","docId":"doc-1","updateBase64":%q}`, encoded)

		msg, err := DecodeMessage([]byte(raw))
		assert.NoError(t, err)
		assert.Equal(t, DocUpdateEvent, msg.Event)
		assert.Equal(t, []byte("d1"), msg.Update)
	})

	t.Run("presence test", func(t *testing.T) {
		raw := `{"event":"presence","docId":"doc-1","awareness":{"cursor":[1,2]}}`

		msg, err := DecodeMessage([]byte(raw))
		assert.NoError(t, err)
		assert.Equal(t, PresenceEvent, msg.Event)
		assert.JSONEq(t, `{"cursor":[1,2]}`, string(msg.Awareness))
	})

	t.Run("malformed test", func(t *testing.T) {
		cases := map[string]string{
			"invalid json":             `{"event":`,
			"unknown event":            `{"event":"unknown","docId":"doc-1"}`,
			"missing event":            `{"docId":"doc-1"}`,
			"missing doc id":           `{"event":"joinDoc"}`,
			"invalid doc id":           `{"event":"joinDoc","docId":"doc 1"}`,
			"update without payload":   `{"event":"yjs-update","docId":"doc-1"}`,
			"presence without payload": `{"event":"presence","docId":"doc-1"}`,
		}

		for name, raw := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := DecodeMessage([]byte(raw))
				assert.Error(t, err)
			})
		}
	})
}

func TestEncodeMessages(t *testing.T) {
	t.Run("update test", func(t *testing.T) {
		data, err := encodeUpdate("doc-1", []byte("d1"), "conn-a")
		assert.NoError(t, err)

		encoded := base64.StdEncoding.EncodeToString([]byte("d1"))
		assert.JSONEq(t, fmt.Sprintf(
			`{"event":"yjs-update","docId":"doc-1","updateBase64":%q,"from":"conn-a"}`,
			encoded,
		), string(data))
	})

	t.Run("doc state test", func(t *testing.T) {
		data, err := encodeDocState("doc-1", []byte("s1"))
		assert.NoError(t, err)

		encoded := base64.StdEncoding.EncodeToString([]byte("s1"))
		assert.JSONEq(t, fmt.Sprintf(
			`{"event":"docState","docId":"doc-1","updateBase64":%q}`,
			encoded,
		), string(data))
	})

	t.Run("empty doc state test", func(t *testing.T) {
		data, err := encodeDocState("doc-1", nil)
		assert.NoError(t, err)
		assert.JSONEq(t, `{"event":"docState","docId":"doc-1","updateBase64":null}`, string(data))
	})

	t.Run("presence update test", func(t *testing.T) {
		data, err := encodePresenceUpdate("doc-1", json.RawMessage(`{"cursor":[1,2]}`), "conn-a")
		assert.NoError(t, err)
		assert.JSONEq(t,
			`{"event":"presenceUpdate","docId":"doc-1","awareness":{"cursor":[1,2]},"from":"conn-a"}`,
			string(data),
		)
	})
}
