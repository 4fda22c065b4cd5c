// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultArgon2Params(t *testing.T) {
	t.Parallel()

	params := DefaultArgon2Params()

	assert.Equal(t, uint32(64*1024), params.Memory)
	assert.Equal(t, uint32(3), params.Iterations)
	assert.Equal(t, uint8(2), params.Parallelism)
	assert.Equal(t, uint32(16), params.SaltLength)
	assert.Equal(t, uint32(32), params.KeyLength)
}

func TestHashPassword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		secret string
	}{
		{name: "simple key", secret: "abc123"},
		{name: "empty secret", secret: ""},
		{name: "long secret", secret: strings.Repeat("a", 1000)},
		{name: "unicode secret", secret: "пароль密码🔐"},
		{name: "special characters", secret: "!@#$%^&*()_+-=[]{}|;':\",./<>?`~"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			hash, err := HashPassword(tt.secret)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(hash, "$argon2id$"))

			ok, err := VerifyPassword(tt.secret, hash)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestHashPassword_UniqueSaltPerCall(t *testing.T) {
	t.Parallel()

	h1, err := HashPassword("same-secret")
	require.NoError(t, err)
	h2, err := HashPassword("same-secret")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestVerifyPassword_WrongSecret(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("correct")
	require.NoError(t, err)

	ok, err := VerifyPassword("incorrect", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	t.Parallel()

	_, err := VerifyPassword("secret", "not-a-valid-hash")
	assert.Error(t, err)
}
