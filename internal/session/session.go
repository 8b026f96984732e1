// Package session owns the authentication token lifecycle: it exchanges
// credentials for a bearer token at the API's login endpoint, hands the
// token to outbound callers, and re-authenticates when the token expires
// or is rejected. Authentication is serialized — a single in-flight
// attempt per agent instance.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/zenmon-app/agent/internal/config"
	"github.com/zenmon-app/agent/internal/models"
)

const (
	// defaultTokenTTL is assumed when the server's token carries no
	// readable expiry claim.
	defaultTokenTTL = 8 * time.Hour

	// refreshMargin re-authenticates this long before the known expiry,
	// so requests never go out with a token about to lapse mid-flight.
	refreshMargin = 5 * time.Minute
)

// AuthError reports a credential rejection (HTTP 401/403) from the login
// endpoint. It is never retried within a cycle.
type AuthError struct {
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication rejected (%d)", e.StatusCode)
}

// Manager holds the current session and serializes authentication.
// The token is exclusively owned here; callers read it through Token
// and never mutate it.
type Manager struct {
	baseURL  string
	login    string
	password string
	client   *http.Client
	logger   *zap.Logger

	mu         sync.Mutex
	token      string
	acquiredAt time.Time
	expiresAt  time.Time

	now func() time.Time
}

// NewManager creates a session manager for the configured API.
func NewManager(cfg *config.Config, logger *zap.Logger) *Manager {
	return &Manager{
		baseURL:  cfg.BaseURL(),
		login:    cfg.API.Login,
		password: cfg.API.Password,
		client:   &http.Client{Timeout: cfg.API.Timeout.Duration},
		logger:   logger,
		now:      time.Now,
	}
}

// Token returns the current bearer token, authenticating first when the
// session is missing, expired, or inside the refresh margin.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.validLocked() {
		return m.token, nil
	}
	if err := m.authenticateLocked(ctx); err != nil {
		return "", err
	}
	return m.token, nil
}

// Authenticate forces a fresh credential exchange regardless of the
// current session state.
func (m *Manager) Authenticate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authenticateLocked(ctx)
}

// Invalidate clears the session. Called when any API response indicates
// the token is no longer valid; the next Token call re-authenticates.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token != "" {
		m.logger.Info("Session invalidated")
	}
	m.token = ""
	m.expiresAt = time.Time{}
}

// Authenticated reports whether a usable session currently exists.
func (m *Manager) Authenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.validLocked()
}

func (m *Manager) validLocked() bool {
	if m.token == "" {
		return false
	}
	return m.now().Before(m.expiresAt.Add(-refreshMargin))
}

// authenticateLocked performs the credential exchange. Caller holds mu.
func (m *Manager) authenticateLocked(ctx context.Context) error {
	body, err := json.Marshal(models.LoginRequest{
		Login:    m.login,
		Password: m.password,
	})
	if err != nil {
		return fmt.Errorf("marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/login", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		io.Copy(io.Discard, resp.Body)
		m.token = ""
		m.expiresAt = time.Time{}
		return &AuthError{StatusCode: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("login returned %d", resp.StatusCode)
	}

	var login models.LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}
	if login.Token == "" {
		return fmt.Errorf("login response missing token")
	}

	m.token = login.Token
	m.acquiredAt = m.now()
	m.expiresAt = m.tokenExpiry(login.Token)

	m.logger.Info("Authentication successful",
		zap.String("login", m.login),
		zap.Time("token_expires", m.expiresAt))
	return nil
}

// tokenExpiry reads the expiry claim from the bearer token when it is a
// JWT. The signature is the server's concern; the agent only needs the
// timestamp. Opaque tokens fall back to a fixed TTL.
func (m *Manager) tokenExpiry(token string) time.Time {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err == nil {
		if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	return m.now().Add(defaultTokenTTL)
}
