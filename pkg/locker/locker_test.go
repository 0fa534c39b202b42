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

package locker_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rohan-kumar-006/HiveNote/pkg/locker"
)

func TestLocker(t *testing.T) {
	t.Run("lock and unlock", func(t *testing.T) {
		l := locker.New()

		l.Lock("a")
		assert.NoError(t, l.Unlock("a"))
	})

	t.Run("unlock without lock", func(t *testing.T) {
		l := locker.New()

		assert.ErrorIs(t, l.Unlock("a"), locker.ErrNoSuchLock)
	})

	t.Run("try lock", func(t *testing.T) {
		l := locker.New()

		assert.True(t, l.TryLock("a"))
		assert.False(t, l.TryLock("a"))
		assert.NoError(t, l.Unlock("a"))

		assert.True(t, l.TryLock("a"))
		assert.NoError(t, l.Unlock("a"))
	})

	t.Run("mutual exclusion per name", func(t *testing.T) {
		l := locker.New()

		counters := []int{0, 0}
		names := []string{"a", "b"}

		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			for n := range names {
				wg.Add(1)
				go func(n int) {
					defer wg.Done()
					l.Lock(names[n])
					defer func() {
						assert.NoError(t, l.Unlock(names[n]))
					}()
					counters[n]++
				}(n)
			}
		}
		wg.Wait()

		assert.Equal(t, 100, counters[0])
		assert.Equal(t, 100, counters[1])
	})
}
