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

package backend

import (
	"fmt"
	"time"
)

// Config is the configuration for creating a Backend instance.
type Config struct {
	// CompactionThreshold is the stored update count at which a document
	// is compacted immediately after an append.
	CompactionThreshold int `yaml:"CompactionThreshold"`

	// InitialStateDelay is the delay between a connection joining a
	// document and the server pushing the initial state to it. It avoids
	// a race where the join has not propagated before the state query
	// runs.
	InitialStateDelay string `yaml:"InitialStateDelay"`
}

// Validate validates this config.
func (c *Config) Validate() error {
	if c.CompactionThreshold <= 0 {
		return fmt.Errorf(
			`invalid argument %d for "--compaction-threshold" flag`,
			c.CompactionThreshold,
		)
	}

	if _, err := time.ParseDuration(c.InitialStateDelay); err != nil {
		return fmt.Errorf(
			`invalid argument "%s" for "--initial-state-delay" flag: %w`,
			c.InitialStateDelay,
			err,
		)
	}

	return nil
}

// ParseInitialStateDelay returns the initial state delay duration.
func (c *Config) ParseInitialStateDelay() (time.Duration, error) {
	delay, err := time.ParseDuration(c.InitialStateDelay)
	if err != nil {
		return 0, fmt.Errorf("parse initial state delay %s: %w", c.InitialStateDelay, err)
	}

	return delay, nil
}
