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
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/rohan-kumar-006/HiveNote/server/backend"
	"github.com/rohan-kumar-006/HiveNote/server/logging"
)

// Server is the websocket entry point of HiveNote. It admits
// connections, upgrades them and hands each one to a client session.
type Server struct {
	conf          *Config
	backend       *backend.Backend
	authenticator *Authenticator
	upgrader      websocket.Upgrader
	httpServer    *http.Server
}

// NewServer creates an instance of Server.
func NewServer(conf *Config, be *backend.Backend) *Server {
	server := &Server{
		conf:          conf,
		backend:       be,
		authenticator: NewAuthenticator(conf.SecretKey),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Admission is token-based, not origin-based.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	serveMux := http.NewServeMux()
	serveMux.HandleFunc("/ws", server.handleConnection)
	server.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", conf.Port),
		Handler: serveMux,
	}

	return server
}

// handleConnection admits, upgrades and serves one connection. A
// connection that fails admission is rejected before any event of it is
// processed.
func (s *Server) handleConnection(w http.ResponseWriter, r *http.Request) {
	userID, err := s.authenticator.Authenticate(r)
	if err != nil {
		logging.DefaultLogger().Warnf("reject connection from %s: %v", r.RemoteAddr, err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.DefaultLogger().Warnf("upgrade: %v", err)
		return
	}

	go newClient(conn, userID, s.backend).run()
}

// Start starts the server.
func (s *Server) Start() error {
	go func() {
		logging.DefaultLogger().Infof("serving ws on %d", s.conf.Port)
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logging.DefaultLogger().Errorf("HTTP server ListenAndServe: %v", err)
		}
	}()
	return nil
}

// Shutdown shuts down the server.
func (s *Server) Shutdown(graceful bool) {
	if graceful {
		if err := s.httpServer.Shutdown(context.Background()); err != nil {
			logging.DefaultLogger().Errorf("HTTP server Shutdown: %v", err)
		}
		return
	}

	if err := s.httpServer.Close(); err != nil {
		logging.DefaultLogger().Errorf("HTTP server close: %v", err)
	}
}
