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

package logging

import (
	"context"
)

// loggerContextKey keys the connection-scoped logger in a context.
// Handlers attach a logger enriched with connection and user fields so
// storage and compaction logs carry the same identity.
type loggerContextKey struct{}

// With returns a context carrying the given logger.
func With(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, logger)
}

// From returns the logger carried by the context. It falls back to the
// default logger so callers never need to nil-check.
func From(ctx context.Context) Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerContextKey{}).(Logger); ok {
			return logger
		}
	}
	return DefaultLogger()
}
