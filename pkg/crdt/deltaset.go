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

package crdt

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
)

// stateMagic prefixes encoded full states so a replica can distinguish
// them from raw deltas.
var stateMagic = []byte{0xD5, 0xE7, 0x01}

// ErrCorruptedState is returned when an encoded state cannot be decoded.
var ErrCorruptedState = errors.New("corrupted encoded state")

// DeltaSetMerger is the built-in merge primitive. A replica is a
// grow-only set of deltas: applying a delta adds it to the set, applying
// an encoded state unions the sets. Application is therefore idempotent
// and commutative, and the encoded state is canonical (elements sorted),
// so two replicas that saw the same deltas in any order and any
// multiplicity encode byte-identical states.
//
// It carries no text semantics. Deployments that need real collaborative
// editing inject a Merger backed by a CRDT library instead; the sync,
// storage and compaction machinery is unaffected by the swap.
type DeltaSetMerger struct{}

// NewDeltaSetMerger creates a DeltaSetMerger.
func NewDeltaSetMerger() *DeltaSetMerger {
	return &DeltaSetMerger{}
}

// NewDoc returns a new empty replica.
func (m *DeltaSetMerger) NewDoc() Doc {
	return &deltaSetDoc{
		elements: make(map[string]struct{}),
	}
}

type deltaSetDoc struct {
	elements map[string]struct{}
}

// ApplyUpdate merges the given delta or encoded state into the replica.
func (d *deltaSetDoc) ApplyUpdate(delta []byte) error {
	if len(delta) == 0 {
		return errors.New("empty delta")
	}

	if bytes.HasPrefix(delta, stateMagic) {
		elements, err := decodeState(delta)
		if err != nil {
			return err
		}
		for _, el := range elements {
			d.elements[el] = struct{}{}
		}
		return nil
	}

	d.elements[string(delta)] = struct{}{}
	return nil
}

// Encode encodes the full state. The element order is canonical so the
// encoding is deterministic for a given set.
func (d *deltaSetDoc) Encode() ([]byte, error) {
	elements := make([]string, 0, len(d.elements))
	for el := range d.elements {
		elements = append(elements, el)
	}
	sort.Strings(elements)

	buf := bytes.NewBuffer(nil)
	buf.Write(stateMagic)

	var scratch [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(scratch[:], uint64(len(elements)))
	buf.Write(scratch[:n])

	for _, el := range elements {
		n := binary.PutUvarint(scratch[:], uint64(len(el)))
		buf.Write(scratch[:n])
		buf.WriteString(el)
	}

	return buf.Bytes(), nil
}

// Close releases the replica.
func (d *deltaSetDoc) Close() {
	d.elements = nil
}

func decodeState(encoded []byte) ([]string, error) {
	r := bytes.NewReader(encoded[len(stateMagic):])

	count, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("read element count: %w", ErrCorruptedState)
	}

	// Every element takes at least one size byte, so a count beyond the
	// remaining bytes cannot come from Encode. Checking before allocating
	// keeps a forged count from sizing the slice.
	if count > uint64(r.Len()) {
		return nil, fmt.Errorf("element count %d exceeds payload: %w", count, ErrCorruptedState)
	}

	elements := make([]string, 0, count)
	for i := uint64(0); i < count; i++ {
		size, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, fmt.Errorf("read element size: %w", ErrCorruptedState)
		}
		if size > uint64(r.Len()) {
			return nil, fmt.Errorf("element size %d exceeds payload: %w", size, ErrCorruptedState)
		}

		el := make([]byte, size)
		if _, err := io.ReadFull(r, el); err != nil {
			return nil, fmt.Errorf("read element: %w", ErrCorruptedState)
		}
		elements = append(elements, string(el))
	}

	if r.Len() != 0 {
		return nil, fmt.Errorf("trailing bytes: %w", ErrCorruptedState)
	}

	return elements, nil
}
