package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtcsignal/internal/app/signaling"
	"rtcsignal/internal/configs"
	"rtcsignal/internal/pkg/metrics"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func testConfig(t *testing.T, vars map[string]string) *configs.AppConfig {
	t.Helper()

	cfg, err := configs.FromEnv(func(key string) string { return vars[key] })
	require.NoError(t, err)
	return cfg
}

func newTestDeps(t *testing.T, cfg *configs.AppConfig) *AppDeps {
	t.Helper()

	m := metrics.New(prometheus.NewRegistry())
	manager := signaling.NewManager(signaling.Options{
		ImplicitLeaveOnDisconnect: cfg.ImplicitLeaveOnDisconnect,
		MaxUsernameLength:         cfg.MaxUsernameLength,
		ICEServers:                cfg.ICEServers,
	}, m)
	t.Cleanup(manager.Shutdown)

	return &AppDeps{Manager: manager, Config: cfg, Metrics: m}
}

func newTestRouter(t *testing.T) (http.Handler, *AppDeps) {
	t.Helper()

	deps := newTestDeps(t, testConfig(t, nil))
	limiters := NewLimiters()
	t.Cleanup(limiters.Stop)

	return Router(deps, limiters), deps
}

func serve(h http.Handler, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestRouter_Health(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := serve(h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec)
	assert.Zero(t, env.Code)
	assert.JSONEq(t, `{"status":"ok","service":"rtcsignal","rooms":0,"connections":0}`, string(env.Data))
}

func TestRouter_CreateRoomAPI(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := serve(h, http.MethodPost, "/api/rooms", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		RoomID string `json:"roomId"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &data))
	assert.Len(t, data.RoomID, 11)
}

func TestRouter_CreateRoomIsRateLimited(t *testing.T) {
	h, _ := newTestRouter(t)

	for i := 0; i < CreateBurst; i++ {
		require.Equal(t, http.StatusOK, serve(h, http.MethodPost, "/api/rooms", nil).Code, "request %d", i)
	}

	rec := serve(h, http.MethodPost, "/api/rooms", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 1007, decodeEnvelope(t, rec).Code)
}

func TestRouter_GetRoom(t *testing.T) {
	h, deps := newTestRouter(t)

	rec := serve(h, http.MethodGet, "/api/rooms/r1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 2103, decodeEnvelope(t, rec).Code)

	_, err := deps.Manager.Join(&stubPeer{id: "c1"}, signaling.JoinEvent{RoomID: "r1", Username: "alice"})
	require.NoError(t, err)

	rec = serve(h, http.MethodGet, "/api/rooms/r1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"roomId":"r1","members":["alice"],"userCount":1,"connections":1}`,
		string(decodeEnvelope(t, rec).Data))
}

func TestRouter_ICEServers(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := serve(h, http.MethodGet, "/api/ice-servers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var data struct {
		ICEServers []struct {
			URLs []string `json:"urls"`
		} `json:"iceServers"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &data))
	require.Len(t, data.ICEServers, 1)
	assert.Equal(t, []string{"stun:stun.l.google.com:19302"}, data.ICEServers[0].URLs)
}

func TestRouter_CORSPreflight(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := serve(h, http.MethodOptions, "/api/rooms", http.Header{
		"Origin":                        {"https://app.example"},
		"Access-Control-Request-Method": {"POST"},
	})

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_Metrics(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := serve(h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rtcsignal_active_rooms")
}

func TestRouter_Pages(t *testing.T) {
	h, _ := newTestRouter(t)

	t.Run("index", func(t *testing.T) {
		rec := serve(h, http.MethodGet, "/", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		assert.NotContains(t, rec.Body.String(), `id="room-id"`)
	})

	t.Run("index prefills room", func(t *testing.T) {
		rec := serve(h, http.MethodGet, "/?room_id=abc_123", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `value="abc_123"`)
	})

	t.Run("index ignores unsafe room", func(t *testing.T) {
		rec := serve(h, http.MethodGet, "/?room_id=%3Cscript%3E", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), `id="room-id"`)
	})

	t.Run("create room redirects", func(t *testing.T) {
		rec := serve(h, http.MethodGet, "/create-room?name=alice", nil)
		require.Equal(t, http.StatusFound, rec.Code)

		location := rec.Header().Get("Location")
		assert.True(t, strings.HasPrefix(location, "/room/"), location)
		assert.True(t, strings.HasSuffix(location, "?name=alice"), location)
	})

	t.Run("room without name", func(t *testing.T) {
		rec := serve(h, http.MethodGet, "/room/abc", nil)
		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/?room_id=abc", rec.Header().Get("Location"))
	})

	t.Run("room with name", func(t *testing.T) {
		rec := serve(h, http.MethodGet, "/room/abc?name=bob", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Room abc")
		assert.Contains(t, rec.Body.String(), "bob")
	})

	t.Run("room with unsafe id", func(t *testing.T) {
		rec := serve(h, http.MethodGet, "/room/a.b", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

type stubPeer struct {
	id string
}

func (p *stubPeer) ID() string            { return p.id }
func (p *stubPeer) Deliver(_ []byte) bool { return true }
func (p *stubPeer) Close()                {}
