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

// Package ws provides the websocket entry point of the server. Sessions
// connect here, join document rooms and exchange deltas and presence.
package ws

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidWSPort occurs when the port in the config is invalid.
	ErrInvalidWSPort = errors.New("invalid port number for ws server")
)

// Config is the configuration for creating a Server.
type Config struct {
	// Port is the port to listen on for websocket connections.
	Port int `yaml:"Port"`

	// SecretKey is the HMAC key used to verify connection tokens. When
	// empty, every connection is admitted as anonymous.
	SecretKey string `yaml:"SecretKey"`
}

// Validate validates this config.
func (c *Config) Validate() error {
	if c.Port < 1 || 65535 < c.Port {
		return fmt.Errorf("must be between 1 and 65535, given %d: %w", c.Port, ErrInvalidWSPort)
	}

	return nil
}
