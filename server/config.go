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

package server

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rohan-kumar-006/HiveNote/server/backend"
	"github.com/rohan-kumar-006/HiveNote/server/backend/database/mongo"
	"github.com/rohan-kumar-006/HiveNote/server/backend/housekeeping"
	"github.com/rohan-kumar-006/HiveNote/server/profiling"
	"github.com/rohan-kumar-006/HiveNote/server/ws"
)

// Below are the values of the default values of HiveNote config.
const (
	DefaultWSPort        = 8080
	DefaultProfilingPort = 8081

	DefaultHousekeepingInterval       = 5 * time.Minute
	DefaultHousekeepingSweepFloor     = 10
	DefaultBackendCompactionThreshold = 50
	DefaultBackendInitialStateDelay   = 100 * time.Millisecond

	DefaultMongoConnectionURI     = "mongodb://localhost:27017"
	DefaultMongoConnectionTimeout = 5 * time.Second
	DefaultMongoPingTimeout       = 5 * time.Second
	DefaultMongoHiveNoteDatabase  = "hivenote"
)

// Config is the configuration for creating a HiveNote instance.
type Config struct {
	WS           *ws.Config           `yaml:"WS"`
	Profiling    *profiling.Config    `yaml:"Profiling"`
	Housekeeping *housekeeping.Config `yaml:"Housekeeping"`
	Backend      *backend.Config      `yaml:"Backend"`
	Mongo        *mongo.Config        `yaml:"Mongo"`
}

// NewConfig returns a Config struct that contains reasonable defaults
// for most of the configurations.
func NewConfig() *Config {
	conf := &Config{
		WS:           &ws.Config{},
		Profiling:    &profiling.Config{},
		Housekeeping: &housekeeping.Config{},
		Backend:      &backend.Config{},
	}
	conf.ensureDefaultValue()
	return conf
}

// NewConfigFromFile returns a Config struct for the given conf file.
func NewConfigFromFile(path string) (*Config, error) {
	conf := &Config{}
	bytes, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err = yaml.Unmarshal(bytes, conf); err != nil {
		return nil, fmt.Errorf("unmarshal config file: %w", err)
	}

	conf.ensureDefaultValue()
	return conf, nil
}

// WSAddr returns the websocket address.
func (c *Config) WSAddr() string {
	return fmt.Sprintf("localhost:%d", c.WS.Port)
}

// Validate returns an error if the provided Config is invalidated.
func (c *Config) Validate() error {
	if err := c.WS.Validate(); err != nil {
		return err
	}

	if err := c.Profiling.Validate(); err != nil {
		return err
	}

	if err := c.Housekeeping.Validate(); err != nil {
		return err
	}

	if err := c.Backend.Validate(); err != nil {
		return err
	}

	if c.Mongo != nil {
		if err := c.Mongo.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// ensureDefaultValue sets the value of the option to which the default value
// should be applied when the user does not input it.
func (c *Config) ensureDefaultValue() {
	if c.WS == nil {
		c.WS = &ws.Config{}
	}
	if c.WS.Port == 0 {
		c.WS.Port = DefaultWSPort
	}

	if c.Profiling == nil {
		c.Profiling = &profiling.Config{}
	}
	if c.Profiling.Port == 0 {
		c.Profiling.Port = DefaultProfilingPort
	}

	if c.Housekeeping == nil {
		c.Housekeeping = &housekeeping.Config{}
	}
	if c.Housekeeping.Interval == "" {
		c.Housekeeping.Interval = DefaultHousekeepingInterval.String()
	}
	if c.Housekeeping.CompactionSweepFloor == 0 {
		c.Housekeeping.CompactionSweepFloor = DefaultHousekeepingSweepFloor
	}

	if c.Backend == nil {
		c.Backend = &backend.Config{}
	}
	if c.Backend.CompactionThreshold == 0 {
		c.Backend.CompactionThreshold = DefaultBackendCompactionThreshold
	}
	if c.Backend.InitialStateDelay == "" {
		c.Backend.InitialStateDelay = DefaultBackendInitialStateDelay.String()
	}

	if c.Mongo != nil {
		if c.Mongo.ConnectionURI == "" {
			c.Mongo.ConnectionURI = DefaultMongoConnectionURI
		}
		if c.Mongo.ConnectionTimeout == "" {
			c.Mongo.ConnectionTimeout = DefaultMongoConnectionTimeout.String()
		}
		if c.Mongo.HiveNoteDatabase == "" {
			c.Mongo.HiveNoteDatabase = DefaultMongoHiveNoteDatabase
		}
		if c.Mongo.PingTimeout == "" {
			c.Mongo.PingTimeout = DefaultMongoPingTimeout.String()
		}
	}
}
