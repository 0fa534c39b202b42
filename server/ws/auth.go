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
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenMissing occurs when admission requires a token and the
	// request carries none.
	ErrTokenMissing = errors.New("token missing")

	// ErrTokenInvalid occurs when the token could not be verified.
	ErrTokenInvalid = errors.New("token invalid")
)

// Authenticator verifies connection tokens before the websocket upgrade.
// Admission happens once per connection; an admitted session is never
// re-checked on individual events.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator creates an Authenticator with the given HMAC key.
// An empty key disables admission and every connection is anonymous.
func NewAuthenticator(secretKey string) *Authenticator {
	if secretKey == "" {
		return &Authenticator{}
	}
	return &Authenticator{secret: []byte(secretKey)}
}

// Authenticate resolves the user id of the given request. The token is
// taken from the `token` query parameter or the Authorization header.
func (a *Authenticator) Authenticate(r *http.Request) (string, error) {
	if a.secret == nil {
		return "anonymous", nil
	}

	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		header := r.Header.Get("Authorization")
		tokenString = strings.TrimPrefix(header, "Bearer ")
	}
	if tokenString == "" {
		return "", ErrTokenMissing
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return a.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", err, ErrTokenInvalid)
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", fmt.Errorf("subject missing: %w", ErrTokenInvalid)
	}

	return subject, nil
}
