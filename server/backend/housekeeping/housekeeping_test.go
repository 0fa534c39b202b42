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

package housekeeping_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rohan-kumar-006/HiveNote/server/backend/housekeeping"
)

func TestHousekeeping(t *testing.T) {
	t.Run("invalid interval test", func(t *testing.T) {
		_, err := housekeeping.New(&housekeeping.Config{
			Interval:             "nope",
			CompactionSweepFloor: 10,
		})
		assert.Error(t, err)
	})

	t.Run("run and stop test", func(t *testing.T) {
		keeper, err := housekeeping.New(&housekeeping.Config{
			Interval:             "5m",
			CompactionSweepFloor: 10,
		})
		assert.NoError(t, err)

		var runs int64
		keeper.RegisterTask(10*time.Millisecond, func(ctx context.Context) error {
			atomic.AddInt64(&runs, 1)
			return nil
		})

		assert.NoError(t, keeper.Start())
		assert.Eventually(t, func() bool {
			return atomic.LoadInt64(&runs) >= 2
		}, time.Second, 10*time.Millisecond)

		assert.NoError(t, keeper.Stop())
		stopped := atomic.LoadInt64(&runs)
		time.Sleep(50 * time.Millisecond)
		assert.LessOrEqual(t, atomic.LoadInt64(&runs)-stopped, int64(1))
	})
}
