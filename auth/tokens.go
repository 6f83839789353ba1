// Package auth manages credentials and the account endpoints of the
// storefront backend. TokenManager keeps the JWT pair and the cached
// user profile in core.Storage under fixed keys so a restarted client
// resumes its session; API speaks to the /auth/ endpoints and feeds
// successful logins back into the TokenManager.
package auth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/projectnexus/storefront/core"
)

// User is the profile object the backend returns alongside a token
// pair.
type User struct {
	ID         int    `json:"id"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	UserType   string `json:"user_type"`
	IsVerified bool   `json:"is_verified"`
}

// TokenManager stores the access/refresh token pair and the cached
// user profile. Read paths degrade: a storage failure logs and
// returns empty values so callers fall back to unauthenticated
// behavior instead of erroring out.
type TokenManager struct {
	storage core.Storage
	logger  core.Logger
}

// TokenManagerOption customizes a TokenManager.
type TokenManagerOption func(*TokenManager)

// WithTokenLogger configures the logger.
func WithTokenLogger(l core.Logger) TokenManagerOption {
	return func(tm *TokenManager) {
		if l != nil {
			tm.logger = l
		}
	}
}

// NewTokenManager creates a token manager over the given storage.
func NewTokenManager(storage core.Storage, opts ...TokenManagerOption) *TokenManager {
	tm := &TokenManager{
		storage: storage,
		logger:  &core.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm
}

// SetTokens persists the access/refresh pair.
func (tm *TokenManager) SetTokens(ctx context.Context, access, refresh string) error {
	if err := tm.storage.Set(ctx, core.StorageKeyAccessToken, access, 0); err != nil {
		return fmt.Errorf("storing access token: %w", err)
	}
	if err := tm.storage.Set(ctx, core.StorageKeyRefreshToken, refresh, 0); err != nil {
		return fmt.Errorf("storing refresh token: %w", err)
	}
	return nil
}

// AccessToken returns the stored access token, or "" when absent.
// Satisfies the catalog transport's token source.
func (tm *TokenManager) AccessToken(ctx context.Context) (string, error) {
	token, err := tm.storage.Get(ctx, core.StorageKeyAccessToken)
	if err != nil {
		tm.logger.Warn("Reading access token failed", map[string]interface{}{
			"error": err.Error(),
		})
		return "", nil
	}
	return token, nil
}

// RefreshToken returns the stored refresh token, or "" when absent.
func (tm *TokenManager) RefreshToken(ctx context.Context) string {
	token, err := tm.storage.Get(ctx, core.StorageKeyRefreshToken)
	if err != nil {
		tm.logger.Warn("Reading refresh token failed", map[string]interface{}{
			"error": err.Error(),
		})
		return ""
	}
	return token
}

// SetUser caches the user profile as a JSON blob.
func (tm *TokenManager) SetUser(ctx context.Context, user *User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encoding user: %w", err)
	}
	return tm.storage.Set(ctx, core.StorageKeyUserData, string(data), 0)
}

// User returns the cached profile, or nil when absent or unreadable.
func (tm *TokenManager) User(ctx context.Context) *User {
	raw, err := tm.storage.Get(ctx, core.StorageKeyUserData)
	if err != nil || raw == "" {
		if err != nil {
			tm.logger.Warn("Reading cached user failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return nil
	}
	var user User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		tm.logger.Warn("Cached user unreadable, discarding", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	return &user
}

// IsAuthenticated reports whether an access token is present.
func (tm *TokenManager) IsAuthenticated(ctx context.Context) bool {
	token, _ := tm.AccessToken(ctx)
	return token != ""
}

// ClearAll removes tokens and the cached profile.
func (tm *TokenManager) ClearAll(ctx context.Context) error {
	var firstErr error
	for _, key := range []string{
		core.StorageKeyAccessToken,
		core.StorageKeyRefreshToken,
		core.StorageKeyUserData,
	} {
		if err := tm.storage.Delete(ctx, key); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
