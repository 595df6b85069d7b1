// Package credstore hashes and verifies account credentials with
// bcrypt. bcrypt silently ignores input past 72 bytes, so both paths
// truncate explicitly to the same limit; otherwise a long password
// could hash under one prefix and verify under another.
// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package credstore

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the bcrypt algorithm input limit.
const MaxPasswordBytes = 72

// Hash derives a salted hash from plaintext, truncated to the
// algorithm limit.
func Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(truncate(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash credential: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches hash, applying the same
// truncation as Hash.
func Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), truncate(plaintext)) == nil
}

func truncate(plaintext string) []byte {
	b := []byte(plaintext)
	if len(b) > MaxPasswordBytes {
		b = b[:MaxPasswordBytes]
	}
	return b
}
