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

package crdt_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rohan-kumar-006/HiveNote/pkg/crdt"
)

func TestDeltaSet(t *testing.T) {
	merger := crdt.NewDeltaSetMerger()

	encode := func(t *testing.T, deltas ...[]byte) []byte {
		doc := merger.NewDoc()
		defer doc.Close()
		for _, delta := range deltas {
			assert.NoError(t, doc.ApplyUpdate(delta))
		}
		state, err := doc.Encode()
		assert.NoError(t, err)
		return state
	}

	t.Run("order tolerance test", func(t *testing.T) {
		a := encode(t, []byte("d1"), []byte("d2"), []byte("d3"))
		b := encode(t, []byte("d3"), []byte("d1"), []byte("d2"))
		assert.Equal(t, a, b)
	})

	t.Run("idempotent apply test", func(t *testing.T) {
		once := encode(t, []byte("d1"), []byte("d2"))
		twice := encode(t, []byte("d1"), []byte("d2"), []byte("d1"), []byte("d2"))
		assert.Equal(t, once, twice)
	})

	t.Run("state union test", func(t *testing.T) {
		a := encode(t, []byte("d1"), []byte("d2"))
		b := encode(t, []byte("d2"), []byte("d3"))

		merged := encode(t, a, b)
		all := encode(t, []byte("d1"), []byte("d2"), []byte("d3"))
		assert.Equal(t, all, merged)
	})

	t.Run("state and delta mix test", func(t *testing.T) {
		state := encode(t, []byte("d1"))

		doc := merger.NewDoc()
		defer doc.Close()
		assert.NoError(t, doc.ApplyUpdate([]byte("d2")))
		assert.NoError(t, doc.ApplyUpdate(state))

		got, err := doc.Encode()
		assert.NoError(t, err)
		assert.Equal(t, encode(t, []byte("d1"), []byte("d2")), got)
	})

	t.Run("empty delta test", func(t *testing.T) {
		doc := merger.NewDoc()
		defer doc.Close()
		assert.Error(t, doc.ApplyUpdate(nil))
	})

	t.Run("corrupted state test", func(t *testing.T) {
		state := encode(t, []byte("d1"), []byte("d2"))

		doc := merger.NewDoc()
		defer doc.Close()
		err := doc.ApplyUpdate(state[:len(state)-1])
		assert.ErrorIs(t, err, crdt.ErrCorruptedState)

		err = doc.ApplyUpdate(append(state, 0x00))
		assert.ErrorIs(t, err, crdt.ErrCorruptedState)
	})

	t.Run("oversized length test", func(t *testing.T) {
		// A forged state header must fail cleanly, not size allocations.
		var scratch [binary.MaxVarintLen64]byte
		magic := []byte{0xD5, 0xE7, 0x01}

		n := binary.PutUvarint(scratch[:], 1<<62)
		countForged := append(append([]byte{}, magic...), scratch[:n]...)

		n = binary.PutUvarint(scratch[:], 1)
		sizeForged := append(append([]byte{}, magic...), scratch[:n]...)
		n = binary.PutUvarint(scratch[:], 1<<62)
		sizeForged = append(sizeForged, scratch[:n]...)

		for _, forged := range [][]byte{countForged, sizeForged} {
			doc := merger.NewDoc()
			err := doc.ApplyUpdate(forged)
			assert.ErrorIs(t, err, crdt.ErrCorruptedState)
			doc.Close()
		}
	})

	t.Run("empty state test", func(t *testing.T) {
		state := encode(t)

		doc := merger.NewDoc()
		defer doc.Close()
		assert.NoError(t, doc.ApplyUpdate([]byte("d1")))
		assert.NoError(t, doc.ApplyUpdate(state))

		got, err := doc.Encode()
		assert.NoError(t, err)
		assert.Equal(t, encode(t, []byte("d1")), got)
	})
}
