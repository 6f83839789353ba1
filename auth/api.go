package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/projectnexus/storefront/core"
)

// Credentials is the login request body. The backend authenticates by
// username, not email.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration is the signup request body.
type Registration struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	UserType  string `json:"user_type,omitempty"` // "consumer" (default) or "seller"
}

// Session is a token pair plus the authenticated user.
type Session struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    *User  `json:"user"`
}

// ProfileUpdate carries the mutable profile fields for PATCH. Nil
// fields are omitted from the request.
type ProfileUpdate struct {
	Email     *string `json:"email,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
}

// API talks to the backend's account endpoints. Successful logins and
// refreshes are written through to the TokenManager so the rest of the
// client picks up the new credentials on its next request.
type API struct {
	baseURL string
	client  *http.Client
	tokens  *TokenManager
	logger  core.Logger
}

// APIOption customizes the auth API client.
type APIOption func(*API)

// WithAPILogger configures the logger.
func WithAPILogger(l core.Logger) APIOption {
	return func(a *API) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAPI creates the auth API client.
func NewAPI(cfg *core.Config, tokens *TokenManager, opts ...APIOption) *API {
	a := &API{
		baseURL: cfg.BaseURL,
		tokens:  tokens,
		logger:  &core.NoOpLogger{},
		client: &http.Client{
			Timeout:   cfg.HTTP.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Login authenticates with username and password. The resulting token
// pair and user profile are persisted before the session is returned.
func (a *API) Login(ctx context.Context, creds Credentials) (*Session, error) {
	body, err := a.post(ctx, "/auth/login/", creds, false)
	if err != nil {
		return nil, err
	}

	session, err := decodeSession(body, creds.Username)
	if err != nil {
		return nil, err
	}

	if err := a.tokens.SetTokens(ctx, session.Access, session.Refresh); err != nil {
		return nil, fmt.Errorf("persisting session: %w", err)
	}
	if err := a.tokens.SetUser(ctx, session.User); err != nil {
		a.logger.Warn("Caching user profile failed", map[string]interface{}{
			"username": session.User.Username,
			"error":    err.Error(),
		})
	}

	a.logger.Info("Login succeeded", map[string]interface{}{
		"username": session.User.Username,
	})
	return session, nil
}

// Register creates an account. The backend does not log the new
// account in; callers follow up with Login.
func (a *API) Register(ctx context.Context, reg Registration) (*User, error) {
	if reg.UserType == "" {
		reg.UserType = "consumer"
	}
	body, err := a.post(ctx, "/auth/register/", reg, false)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		User *User `json:"user"`
		Data *struct {
			User *User `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.User != nil {
			return envelope.User, nil
		}
		if envelope.Data != nil && envelope.Data.User != nil {
			return envelope.Data.User, nil
		}
	}

	// Some deployments answer with the bare user object
	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, &core.ClientError{
			Op:   "auth.Register",
			Kind: "transport",
			Err:  fmt.Errorf("decoding response: %v: %w", err, core.ErrBadRecord),
		}
	}
	return &user, nil
}

// Refresh exchanges the stored refresh token for a new access token.
// A failed refresh clears the whole session: the pair is no longer
// trustworthy.
func (a *API) Refresh(ctx context.Context) (string, error) {
	refresh := a.tokens.RefreshToken(ctx)
	if refresh == "" {
		return "", core.NewClientError("auth.Refresh", "auth", core.ErrNotAuthenticated)
	}

	payload := map[string]string{"refresh": refresh}
	body, err := a.post(ctx, "/auth/token/refresh/", payload, false)
	if err != nil {
		if clearErr := a.tokens.ClearAll(ctx); clearErr != nil {
			a.logger.Warn("Clearing stale session failed", map[string]interface{}{
				"error": clearErr.Error(),
			})
		}
		return "", err
	}

	var resp struct {
		Access string `json:"access"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.Access == "" {
		return "", &core.ClientError{
			Op:   "auth.Refresh",
			Kind: "transport",
			Err:  fmt.Errorf("decoding response: %w", core.ErrBadRecord),
		}
	}

	if err := a.tokens.SetTokens(ctx, resp.Access, refresh); err != nil {
		return "", fmt.Errorf("persisting refreshed token: %w", err)
	}
	return resp.Access, nil
}

// Logout clears local credentials. The server-side revocation is best
// effort: a dead backend must never trap the user in a session.
func (a *API) Logout(ctx context.Context) error {
	if refresh := a.tokens.RefreshToken(ctx); refresh != "" {
		payload := map[string]string{"refresh": refresh}
		if _, err := a.post(ctx, "/auth/logout/", payload, true); err != nil {
			a.logger.Warn("Server-side logout failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	return a.tokens.ClearAll(ctx)
}

// Profile fetches the authenticated user's profile.
func (a *API) Profile(ctx context.Context) (*User, error) {
	body, err := a.do(ctx, http.MethodGet, "/auth/profile/", nil, true)
	if err != nil {
		return nil, err
	}
	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, &core.ClientError{
			Op:   "auth.Profile",
			Kind: "transport",
			Err:  fmt.Errorf("decoding response: %v: %w", err, core.ErrBadRecord),
		}
	}
	return &user, nil
}

// UpdateProfile applies a partial profile update and refreshes the
// cached user.
func (a *API) UpdateProfile(ctx context.Context, update ProfileUpdate) (*User, error) {
	body, err := a.do(ctx, http.MethodPatch, "/auth/profile/", update, true)
	if err != nil {
		return nil, err
	}
	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, &core.ClientError{
			Op:   "auth.UpdateProfile",
			Kind: "transport",
			Err:  fmt.Errorf("decoding response: %v: %w", err, core.ErrBadRecord),
		}
	}
	if err := a.tokens.SetUser(ctx, &user); err != nil {
		a.logger.Warn("Caching updated profile failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return &user, nil
}

// ChangePassword changes the account password.
func (a *API) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	payload := map[string]string{
		"old_password": oldPassword,
		"new_password": newPassword,
	}
	_, err := a.post(ctx, "/auth/change-password/", payload, true)
	return err
}

func (a *API) post(ctx context.Context, path string, payload interface{}, authenticated bool) ([]byte, error) {
	return a.do(ctx, http.MethodPost, path, payload, authenticated)
}

func (a *API) do(ctx context.Context, method, path string, payload interface{}, authenticated bool) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding request for %s: %w", path, err)
		}
		reqBody = bytes.NewReader(data)
	}

	requestID := uuid.NewString()

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if authenticated {
		token, _ := a.tokens.AccessToken(ctx)
		if token == "" {
			return nil, core.NewClientError("auth."+method+" "+path, "auth", core.ErrNotAuthenticated)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	a.logger.Debug("Auth request", map[string]interface{}{
		"request_id": requestID,
		"method":     method,
		"path":       path,
	})

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Error("Auth request failed", map[string]interface{}{
			"request_id": requestID,
			"path":       path,
			"error":      err.Error(),
		})
		return nil, fmt.Errorf("%s %s: %v: %w", method, path, err, core.ErrConnectivity)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response for %s: %v: %w", path, err, core.ErrConnectivity)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := core.DecodeAPIError(resp.StatusCode, body)
		a.logger.Warn("Auth request rejected", map[string]interface{}{
			"request_id": requestID,
			"path":       path,
			"status":     resp.StatusCode,
			"message":    apiErr.Message,
		})
		return nil, apiErr
	}

	return body, nil
}

// decodeSession tolerates the envelope shapes different backend
// deployments answer with: {access, refresh, user} or
// {data: {access, refresh, user}}. When the tokens arrive without a
// user object, a minimal profile is synthesized from the username so
// the UI has something to render.
func decodeSession(body []byte, username string) (*Session, error) {
	var flat Session
	if err := json.Unmarshal(body, &flat); err == nil && flat.Access != "" && flat.Refresh != "" {
		if flat.User == nil {
			flat.User = placeholderUser(username)
		}
		return &flat, nil
	}

	var wrapped struct {
		Data *Session `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil &&
		wrapped.Data != nil && wrapped.Data.Access != "" && wrapped.Data.Refresh != "" {
		if wrapped.Data.User == nil {
			wrapped.Data.User = placeholderUser(username)
		}
		return wrapped.Data, nil
	}

	return nil, &core.ClientError{
		Op:      "auth.Login",
		Kind:    "transport",
		Message: "unrecognized login response shape",
		Err:     core.ErrBadRecord,
	}
}

func placeholderUser(username string) *User {
	return &User{
		ID:       0,
		Username: username,
		Email:    username + "@example.com",
		UserType: "consumer",
	}
}
