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
 *
 * This file was written with reference to moby/locker.
 *   https://github.com/moby/locker
 */

// Package locker provides named mutexes. The server uses one lock per
// document id so that appends and compaction of the same document are
// mutually exclusive without serializing unrelated documents.
//
// A lock is created lazily on first Lock of a name and removed again on
// Unlock when no other goroutine is waiting for it, so the map does not
// grow with the number of documents ever seen.
package locker

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrNoSuchLock is returned when the requested lock does not exist.
var ErrNoSuchLock = errors.New("no such lock")

// Locker provides a locking mechanism based on the passed in reference
// name.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*namedLock
}

type namedLock struct {
	mu sync.Mutex
	// waiters counts goroutines waiting to acquire the lock. It keeps the
	// entry from being removed while Lock and Unlock race.
	waiters int32
}

func (l *namedLock) inc() {
	atomic.AddInt32(&l.waiters, 1)
}

func (l *namedLock) dec() {
	atomic.AddInt32(&l.waiters, -1)
}

func (l *namedLock) count() int32 {
	return atomic.LoadInt32(&l.waiters)
}

// New creates a new Locker.
func New() *Locker {
	return &Locker{
		locks: make(map[string]*namedLock),
	}
}

func (l *Locker) acquireEntry(name string) *namedLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.locks[name]
	if !exists {
		entry = &namedLock{}
		l.locks[name] = entry
	}
	entry.inc()
	return entry
}

// Lock locks the mutex with the given name. If it doesn't exist, one is
// created.
func (l *Locker) Lock(name string) {
	entry := l.acquireEntry(name)

	// Lock outside the map mutex so other names are not blocked.
	entry.mu.Lock()
	entry.dec()
}

// TryLock locks the mutex with the given name if it is not already held.
// It reports whether the lock was acquired.
func (l *Locker) TryLock(name string) bool {
	entry := l.acquireEntry(name)

	ok := entry.mu.TryLock()
	entry.dec()
	return ok
}

// Unlock unlocks the mutex with the given name. If no other goroutine is
// waiting on the lock, the entry is removed.
func (l *Locker) Unlock(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.locks[name]
	if !exists {
		return ErrNoSuchLock
	}

	if entry.count() == 0 {
		delete(l.locks, name)
	}
	entry.mu.Unlock()

	return nil
}
