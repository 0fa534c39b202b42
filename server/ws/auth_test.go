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
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func signToken(t *testing.T, secret, subject string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: subject,
	})
	signed, err := token.SignedString([]byte(secret))
	assert.NoError(t, err)
	return signed
}

func TestAuthenticator(t *testing.T) {
	t.Run("open admission test", func(t *testing.T) {
		auth := NewAuthenticator("")

		req := httptest.NewRequest("GET", "/ws", nil)
		userID, err := auth.Authenticate(req)
		assert.NoError(t, err)
		assert.Equal(t, "anonymous", userID)
	})

	t.Run("token from query test", func(t *testing.T) {
		auth := NewAuthenticator("secret")

		req := httptest.NewRequest("GET", "/ws?token="+signToken(t, "secret", "user-1"), nil)
		userID, err := auth.Authenticate(req)
		assert.NoError(t, err)
		assert.Equal(t, "user-1", userID)
	})

	t.Run("token from header test", func(t *testing.T) {
		auth := NewAuthenticator("secret")

		req := httptest.NewRequest("GET", "/ws", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "secret", "user-1"))
		userID, err := auth.Authenticate(req)
		assert.NoError(t, err)
		assert.Equal(t, "user-1", userID)
	})

	t.Run("missing token test", func(t *testing.T) {
		auth := NewAuthenticator("secret")

		req := httptest.NewRequest("GET", "/ws", nil)
		_, err := auth.Authenticate(req)
		assert.ErrorIs(t, err, ErrTokenMissing)
	})

	t.Run("wrong key test", func(t *testing.T) {
		auth := NewAuthenticator("secret")

		req := httptest.NewRequest("GET", "/ws?token="+signToken(t, "other", "user-1"), nil)
		_, err := auth.Authenticate(req)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("missing subject test", func(t *testing.T) {
		auth := NewAuthenticator("secret")

		req := httptest.NewRequest("GET", "/ws?token="+signToken(t, "secret", ""), nil)
		_, err := auth.Authenticate(req)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}
