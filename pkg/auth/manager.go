package auth

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/flanksource/commons/logger"
	"github.com/cyber-syntax/my-unicorn/pkg/types"
)

// Manager applies stored credentials to outgoing requests and maintains
// the process-wide RateLimitState observed from response headers (spec
// 4.2, 5 — the rate-limit state is one of the two pieces of deliberate
// process-wide mutable state, the other being the advisory file lock).
type Manager struct {
	store *TokenStore

	mu    sync.RWMutex
	state types.RateLimitState
}

func NewManager(store *TokenStore) *Manager {
	return &Manager{store: store}
}

// ApplyHeaders sets Authorization (if a token is available), Accept, and
// User-Agent on an outgoing request, per spec 6's wire protocol.
func (m *Manager) ApplyHeaders(req *http.Request, userAgent string) {
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", userAgent)
	if token, ok := m.store.Get(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// ObserveResponse parses X-RateLimit-{Remaining,Limit,Reset} from a
// response's headers, updates the tracked state, and emits a warning
// when the remaining budget drops below 10.
func (m *Manager) ObserveResponse(headers http.Header) types.RateLimitState {
	remaining, rOK := parseInt(headers.Get("X-RateLimit-Remaining"))
	limit, lOK := parseInt(headers.Get("X-RateLimit-Limit"))
	resetUnix, tOK := parseInt(headers.Get("X-RateLimit-Reset"))

	m.mu.Lock()
	defer m.mu.Unlock()

	if rOK {
		m.state.Remaining = remaining
	}
	if lOK {
		m.state.Limit = limit
	}
	if tOK {
		m.state.ResetAt = time.Unix(int64(resetUnix), 0).UTC()
	}
	m.state.LastUpdated = time.Now().UTC()

	if rOK && remaining < 10 {
		logger.Warnf("GitHub API rate limit low: %d/%d remaining, resets at %s", remaining, limit, m.state.ResetAt.Format(time.RFC3339))
	}
	return m.state
}

// State returns the most recently observed rate-limit snapshot.
func (m *Manager) State() types.RateLimitState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func parseInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
