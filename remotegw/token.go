// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package remotegw

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource yields the bearer token attached to every request.
type TokenSource func(ctx context.Context) (string, error)

// StaticTokenSource returns the same token for every request.
func StaticTokenSource(token string) TokenSource {
	return func(context.Context) (string, error) { return token, nil }
}

// HS256TokenSource mints short-lived HS256 tokens for the catalog
// service and caches them until shortly before expiry.
func HS256TokenSource(secret, subject string, ttl time.Duration) TokenSource {
	var mu sync.Mutex
	var cached string
	var expires time.Time

	return func(ctx context.Context) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		now := time.Now()
		if cached != "" && now.Before(expires.Add(-30*time.Second)) {
			return cached, nil
		}
		claims := jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    "go-marketsync",
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString([]byte(secret))
		if err != nil {
			return "", fmt.Errorf("failed to sign token: %w", err)
		}
		cached = signed
		expires = now.Add(ttl)
		return signed, nil
	}
}
