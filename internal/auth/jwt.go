// AutoMedia - Social Media Aggregation and AI Content Platform
// Copyright 2026 Jonas Qin (jonasqin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jonasqin/automedia

// Package auth verifies the signed bearer tokens presented during the
// realtime channel handshake. Tokens carry the user id and email; an expired
// or malformed token is terminal for the channel, the caller may reconnect
// with a fresh token.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrAuthFailed is returned for any token that does not validate. The message
// is the exact string sent to rejected channels.
var ErrAuthFailed = errors.New("Authentication error")

// Identity is the authenticated principal extracted from a valid token.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Claims represents the JWT claims carried by a credential token.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenManager creates and validates HS256-signed credential tokens.
type TokenManager struct {
	secret  []byte
	timeout time.Duration
}

// NewTokenManager creates a token manager with the configured secret and
// token lifetime. The secret is required; length policy is enforced by
// config validation before this point.
func NewTokenManager(secret string, timeout time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required but was empty")
	}
	return &TokenManager{secret: []byte(secret), timeout: timeout}, nil
}

// GenerateToken creates a signed credential token for the given user.
// Used by operational tooling and tests; token issuance for real users
// happens in the account service outside this process.
func (m *TokenManager) GenerateToken(userID, email string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.timeout)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Authenticate validates a credential token and extracts the identity.
//
// Rejects tokens with an unexpected signing algorithm (algorithm confusion),
// expired or not-yet-valid tokens, and tokens missing a user id. All failure
// modes collapse to ErrAuthFailed so the channel-facing error string stays
// constant; the underlying cause is wrapped for logs.
func (m *TokenManager) Authenticate(tokenString string) (Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrAuthFailed, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("%w: invalid token claims", ErrAuthFailed)
	}
	if claims.UserID == "" {
		return Identity{}, fmt.Errorf("%w: token missing user id", ErrAuthFailed)
	}

	return Identity{ID: claims.UserID, Email: claims.Email}, nil
}
