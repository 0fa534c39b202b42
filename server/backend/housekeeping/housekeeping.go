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

// Package housekeeping provides the housekeeping service. It periodically
// runs registered background tasks such as the compaction sweep over the
// active documents.
package housekeeping

import (
	"context"
	"time"

	"github.com/rohan-kumar-006/HiveNote/server/logging"
)

// Task is a housekeeping task. Returning an error only logs it; the task
// runs again on the next tick.
type Task func(ctx context.Context) error

type taskEntry struct {
	interval time.Duration
	task     Task
}

// Housekeeping runs registered tasks on their intervals.
type Housekeeping struct {
	Config *Config

	tasks []taskEntry

	ctx        context.Context
	cancelFunc context.CancelFunc
}

// New creates a new housekeeping instance.
func New(conf *Config) (*Housekeeping, error) {
	if _, err := conf.ParseInterval(); err != nil {
		return nil, err
	}

	ctx, cancelFunc := context.WithCancel(context.Background())

	return &Housekeeping{
		Config: conf,

		ctx:        ctx,
		cancelFunc: cancelFunc,
	}, nil
}

// RegisterTask registers a task to run every interval. It must be called
// before Start.
func (h *Housekeeping) RegisterTask(interval time.Duration, task Task) {
	h.tasks = append(h.tasks, taskEntry{interval: interval, task: task})
}

// Start starts the housekeeping service.
func (h *Housekeeping) Start() error {
	for _, entry := range h.tasks {
		go h.run(entry)
	}
	return nil
}

// Stop stops the housekeeping service.
func (h *Housekeeping) Stop() error {
	h.cancelFunc()
	return nil
}

func (h *Housekeeping) run(entry taskEntry) {
	for {
		select {
		case <-time.After(entry.interval):
		case <-h.ctx.Done():
			return
		}

		ctx := logging.With(context.Background(), logging.DefaultLogger())
		if err := entry.task(ctx); err != nil {
			logging.From(ctx).Error(err)
		}
	}
}
