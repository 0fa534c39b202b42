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

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rohan-kumar-006/HiveNote/server"
	"github.com/rohan-kumar-006/HiveNote/server/backend/database/mongo"
	"github.com/rohan-kumar-006/HiveNote/server/logging"
)

var (
	gracefulTimeout = 10 * time.Second
)

var (
	flagConfPath string
	flagLogLevel string

	housekeepingInterval time.Duration
	initialStateDelay    time.Duration

	mongoConnectionURI     string
	mongoConnectionTimeout time.Duration
	mongoHiveNoteDatabase  string
	mongoPingTimeout       time.Duration

	conf = server.NewConfig()
)

func newServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server [options]",
		Short: "Start HiveNote server",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf.Housekeeping.Interval = housekeepingInterval.String()
			conf.Backend.InitialStateDelay = initialStateDelay.String()

			if mongoConnectionURI != "" {
				conf.Mongo = &mongo.Config{
					ConnectionURI:     mongoConnectionURI,
					ConnectionTimeout: mongoConnectionTimeout.String(),
					HiveNoteDatabase:  mongoHiveNoteDatabase,
					PingTimeout:       mongoPingTimeout.String(),
				}
			}

			// If config file is given, command-line arguments will be overwritten.
			if flagConfPath != "" {
				parsed, err := server.NewConfigFromFile(flagConfPath)
				if err != nil {
					return err
				}
				conf = parsed
			}

			if err := logging.SetLogLevel(flagLogLevel); err != nil {
				return err
			}

			r, err := server.New(conf)
			if err != nil {
				return err
			}

			if err := r.Start(); err != nil {
				return err
			}

			if code := handleSignal(r); code != 0 {
				return fmt.Errorf("exit code: %d", code)
			}

			return nil
		},
	}
}

func handleSignal(r *server.HiveNote) int {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	var sig os.Signal
	select {
	case s := <-sigCh:
		sig = s
	case <-r.ShutdownCh():
		// server is already shutdown
		return 0
	}

	graceful := false
	if sig == syscall.SIGINT || sig == syscall.SIGTERM {
		graceful = true
	}

	gracefulCh := make(chan struct{})
	go func() {
		if err := r.Shutdown(graceful); err != nil {
			return
		}
		close(gracefulCh)
	}()

	select {
	case <-sigCh:
		return 1
	case <-time.After(gracefulTimeout):
		return 1
	case <-gracefulCh:
		return 0
	}
}

func init() {
	cmd := newServerCmd()
	cmd.Flags().StringVarP(
		&flagConfPath,
		"config",
		"c",
		"",
		"Config path",
	)
	cmd.Flags().StringVarP(
		&flagLogLevel,
		"log-level",
		"l",
		"info",
		"Log level: debug, info, warn, error, panic, fatal",
	)
	cmd.Flags().IntVar(
		&conf.WS.Port,
		"ws-port",
		server.DefaultWSPort,
		"Port to listen on for websocket connections",
	)
	cmd.Flags().StringVar(
		&conf.WS.SecretKey,
		"secret-key",
		"",
		"HMAC key for connection tokens. Empty disables admission",
	)
	cmd.Flags().IntVar(
		&conf.Profiling.Port,
		"profiling-port",
		server.DefaultProfilingPort,
		"Port of the profiling server",
	)
	cmd.Flags().BoolVar(
		&conf.Profiling.EnablePprof,
		"pprof-enabled",
		false,
		"Enable runtime profiling data via HTTP",
	)
	cmd.Flags().DurationVar(
		&housekeepingInterval,
		"housekeeping-interval",
		server.DefaultHousekeepingInterval,
		"Housekeeping interval between the compaction sweeps",
	)
	cmd.Flags().IntVar(
		&conf.Housekeeping.CompactionSweepFloor,
		"housekeeping-sweep-floor",
		server.DefaultHousekeepingSweepFloor,
		"Minimum update count above which the sweep compacts a document",
	)
	cmd.Flags().IntVar(
		&conf.Backend.CompactionThreshold,
		"compaction-threshold",
		server.DefaultBackendCompactionThreshold,
		"Update count at which an append triggers compaction",
	)
	cmd.Flags().DurationVar(
		&initialStateDelay,
		"initial-state-delay",
		server.DefaultBackendInitialStateDelay,
		"Delay before the stored state is pushed to a joining session",
	)
	cmd.Flags().StringVar(
		&mongoConnectionURI,
		"mongo-connection-uri",
		"",
		"MongoDB's connection URI",
	)
	cmd.Flags().DurationVar(
		&mongoConnectionTimeout,
		"mongo-connection-timeout",
		server.DefaultMongoConnectionTimeout,
		"Mongo DB's connection timeout",
	)
	cmd.Flags().StringVar(
		&mongoHiveNoteDatabase,
		"mongo-hivenote-database",
		server.DefaultMongoHiveNoteDatabase,
		"Mongo DB's database name for HiveNote",
	)
	cmd.Flags().DurationVar(
		&mongoPingTimeout,
		"mongo-ping-timeout",
		server.DefaultMongoPingTimeout,
		"Mongo DB's ping timeout",
	)

	rootCmd.AddCommand(cmd)
}
