package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Token represents an issued bearer token
type Token struct {
	Value     string    `json:"token"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// TokenManager issues and validates bearer tokens
type TokenManager struct {
	tokens   map[string]*Token
	mutex    sync.RWMutex
	duration time.Duration
}

// NewTokenManager creates a token manager with the given token lifetime
func NewTokenManager(duration time.Duration) *TokenManager {
	tm := &TokenManager{
		tokens:   make(map[string]*Token),
		duration: duration,
	}

	go tm.cleanupExpiredTokens()

	return tm
}

// IssueToken creates a new bearer token for the user
func (tm *TokenManager) IssueToken(username string) (*Token, error) {
	value, err := generateTokenValue()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	now := time.Now()
	token := &Token{
		Value:     value,
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(tm.duration),
	}

	tm.mutex.Lock()
	tm.tokens[value] = token
	tm.mutex.Unlock()

	return token, nil
}

// Validate looks up a token and rejects it if expired
func (tm *TokenManager) Validate(value string) (*Token, bool) {
	tm.mutex.RLock()
	token, exists := tm.tokens[value]
	tm.mutex.RUnlock()

	if !exists {
		return nil, false
	}
	if time.Now().After(token.ExpiresAt) {
		tm.Revoke(value)
		return nil, false
	}
	return token, true
}

// Revoke removes a token
func (tm *TokenManager) Revoke(value string) {
	tm.mutex.Lock()
	delete(tm.tokens, value)
	tm.mutex.Unlock()
}

// RevokeUserTokens removes every token issued to a user
func (tm *TokenManager) RevokeUserTokens(username string) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	for value, token := range tm.tokens {
		if token.Username == username {
			delete(tm.tokens, value)
		}
	}
}

// Refresh extends a token's expiration
func (tm *TokenManager) Refresh(value string) bool {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	token, exists := tm.tokens[value]
	if !exists {
		return false
	}
	if time.Now().After(token.ExpiresAt) {
		delete(tm.tokens, value)
		return false
	}

	token.ExpiresAt = time.Now().Add(tm.duration)
	return true
}

// FromRequest extracts and validates the bearer token from the
// Authorization header
func (tm *TokenManager) FromRequest(r *http.Request) (*Token, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, false
	}

	return tm.Validate(strings.TrimSpace(parts[1]))
}

// cleanupExpiredTokens periodically removes expired tokens
func (tm *TokenManager) cleanupExpiredTokens() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		tm.mutex.Lock()

		for value, token := range tm.tokens {
			if now.After(token.ExpiresAt) {
				delete(tm.tokens, value)
			}
		}

		tm.mutex.Unlock()
	}
}

// generateTokenValue generates a cryptographically secure token
func generateTokenValue() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
