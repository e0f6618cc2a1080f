// Package maptoken keeps a short-lived map rendering token alive while at least
// one distance form is open.
package maptoken

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"distance-request-service/internal/platform/obs"

	"github.com/rs/zerolog/log"
)

const (
	refreshLead     = time.Minute
	retryDelay      = 30 * time.Second
	minRefreshDelay = 5 * time.Second
)

var ErrNoTokenURL = errors.New("map token url is not configured")

type tokenResponse struct {
	Token      string    `json:"token"`
	Expiration time.Time `json:"expiration"`
}

// Manager is a reference counted map token. The first Init fetches a token and
// schedules its refresh one minute before expiry; the last Stop drops it.
type Manager struct {
	url    string
	client *http.Client

	minDelay time.Duration

	mu      sync.Mutex
	refs    int
	token   string
	expires time.Time
	timer   *time.Timer
}

func NewManager(url string, client *http.Client) *Manager {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Manager{url: url, client: client, minDelay: minRefreshDelay}
}

// Init takes a reference and makes sure a token is held.
// The reference is kept even when the fetch fails, so every Init pairs with a Stop.
func (m *Manager) Init(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.refs++
	if m.token != "" {
		return nil
	}
	return m.fetchLocked(ctx)
}

func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.refs == 0 {
		return
	}
	m.refs--
	if m.refs > 0 {
		return
	}

	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.token = ""
	m.expires = time.Time{}
}

// Token returns the current token and its expiry, or "" when none is held.
func (m *Manager) Token() (string, time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.expires
}

func (m *Manager) Refs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refs
}

func (m *Manager) fetchLocked(ctx context.Context) (err error) {
	defer obs.Time(ctx, "maptoken.fetch")(&err)

	if m.url == "" {
		return ErrNoTokenURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
	if err != nil {
		return fmt.Errorf("fetch map token: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch map token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch map token: unexpected status: %d", resp.StatusCode)
	}

	var decoded tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("fetch map token: decode response: %w", err)
	}
	if decoded.Token == "" {
		return errors.New("fetch map token: empty token")
	}

	m.token, m.expires = decoded.Token, decoded.Expiration
	m.scheduleLocked(time.Until(decoded.Expiration) - refreshLead)
	return nil
}

func (m *Manager) scheduleLocked(delay time.Duration) {
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(max(delay, m.minDelay), m.refresh)
}

func (m *Manager) refresh() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.refs == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := m.fetchLocked(ctx); err != nil {
		log.Warn().Err(err).Msg("map token refresh failed")
		m.scheduleLocked(retryDelay)
	}
}
