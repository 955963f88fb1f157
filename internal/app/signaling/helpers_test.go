package signaling

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type wireFrame struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data"`
	From  string          `json:"from"`
}

type fakePeer struct {
	id string

	mu     sync.Mutex
	frames [][]byte
	closed bool
	full   bool
}

func newFakePeer(id string) *fakePeer {
	return &fakePeer{id: id}
}

func (p *fakePeer) ID() string { return p.id }

func (p *fakePeer) Deliver(frame []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.full || p.closed {
		return false
	}
	p.frames = append(p.frames, frame)
	return true
}

func (p *fakePeer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *fakePeer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// drain returns and clears the frames received so far.
func (p *fakePeer) drain(t *testing.T) []wireFrame {
	t.Helper()

	p.mu.Lock()
	raw := p.frames
	p.frames = nil
	p.mu.Unlock()

	out := make([]wireFrame, 0, len(raw))
	for _, b := range raw {
		var f wireFrame
		require.NoError(t, json.Unmarshal(b, &f))
		out = append(out, f)
	}
	return out
}

func presenceOf(t *testing.T, f wireFrame) PresencePayload {
	t.Helper()

	var p PresencePayload
	require.NoError(t, json.Unmarshal(f.Data, &p))
	return p
}

func errorOf(t *testing.T, f wireFrame) ErrorPayload {
	t.Helper()

	var p ErrorPayload
	require.NoError(t, json.Unmarshal(f.Data, &p))
	return p
}

func scrapeMetrics(t *testing.T, m *Manager) string {
	t.Helper()

	rec := httptest.NewRecorder()
	m.metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func newTestManager(implicitLeave bool) *Manager {
	return NewManager(Options{ImplicitLeaveOnDisconnect: implicitLeave, MaxUsernameLength: 64}, nil)
}
