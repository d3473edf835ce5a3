package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vtouchpad/internal/config"
	"vtouchpad/internal/input"
	"vtouchpad/internal/input/inputtest"
	"vtouchpad/internal/protocol"
)

func newTestServer(t *testing.T, rec *inputtest.Recorder) (*Server, *httptest.Server) {
	t.Helper()
	mgr, err := config.NewManager(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	s := NewServer(mgr, &input.Resolved{Name: "fake", Driver: rec}, "test")
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Shutdown(context.Background())
	})
	return s, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/controller"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readReport(t *testing.T, conn *websocket.Conn) map[string]json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var report map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(msg, &report))
	return report
}

func reason(t *testing.T, report map[string]json.RawMessage) protocol.Reason {
	t.Helper()
	var r protocol.Reason
	require.NoError(t, json.Unmarshal(report["reason"], &r))
	return r
}

func send(t *testing.T, conn *websocket.Conn, msg string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, &inputtest.Recorder{})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestControllerDispatches(t *testing.T) {
	rec := &inputtest.Recorder{}
	_, ts := newTestServer(t, rec)
	conn := dial(t, ts)

	send(t, conn, `{"command": "mouse.down", "data": {"button": 1}}`)
	send(t, conn, `{"command": "mouse.up", "data": {"button": 1}}`)
	// Commands run in order, so the report for this one arrives after the
	// two above were executed.
	send(t, conn, `{"command": "nope.go", "data": {}}`)

	report := readReport(t, conn)
	assert.Equal(t, protocol.ReasonInvalidCommand, reason(t, report))
	assert.Equal(t, []inputtest.Event{
		{Op: "MouseButtonDown", Button: 1},
		{Op: "MouseButtonUp", Button: 1},
	}, rec.Events())
}

func TestControllerInvalidDataKeepsConnection(t *testing.T) {
	rec := &inputtest.Recorder{}
	_, ts := newTestServer(t, rec)
	conn := dial(t, ts)

	send(t, conn, `{"command": "mouse.down"`)
	report := readReport(t, conn)
	assert.Equal(t, protocol.ReasonInvalidData, reason(t, report))
	assert.JSONEq(t, `"SyntaxError"`, string(report["exception"]))
	assert.Contains(t, report, "tb")

	send(t, conn, `{"command": "mouse.move", "data": {"dx": 1, "dy": 2}}`)
	send(t, conn, `{"command": "key.down", "data": {}}`)
	report = readReport(t, conn)
	assert.Equal(t, protocol.ReasonInvalidCommand, reason(t, report))
	assert.Equal(t, []inputtest.Event{{Op: "MouseMove", DX: 1, DY: 2}}, rec.Events())
}

func TestControllerInternalError(t *testing.T) {
	rec := &inputtest.Recorder{Fail: func(e inputtest.Event) error {
		if e.Op == "MouseWheel" {
			return &input.ButtonError{Button: e.Button}
		}
		return nil
	}}
	_, ts := newTestServer(t, rec)
	conn := dial(t, ts)

	send(t, conn, `{"command": "mouse.scroll", "data": {"dy": 25}}`)
	report := readReport(t, conn)
	assert.Equal(t, protocol.ReasonInternalError, reason(t, report))
	assert.JSONEq(t, `"ButtonError"`, string(report["exception"]))

	send(t, conn, `{"command": "mouse.down"}`)
	send(t, conn, `{"command": "nope"}`)
	readReport(t, conn)
	assert.Equal(t, []inputtest.Event{{Op: "MouseButtonDown", Button: 1}}, rec.Events())
}

func TestSessionsPerConnection(t *testing.T) {
	rec := &inputtest.Recorder{}
	s, ts := newTestServer(t, rec)
	a := dial(t, ts)
	b := dial(t, ts)

	require.Eventually(t, func() bool { return s.Sessions() == 2 }, 5*time.Second, 10*time.Millisecond)

	send(t, a, `{"command": "key.down", "data": {"name": "~", "keysym": 65107, "symbol": "dead_tilde"}}`)
	send(t, a, `{"command": "nope"}`)
	readReport(t, a)

	send(t, b, `{"command": "key.down", "data": {"name": "n", "keysym": 110, "symbol": "n"}}`)
	send(t, b, `{"command": "nope"}`)
	readReport(t, b)

	// The dead key pending on a does not compose with b's key.
	assert.Equal(t, []inputtest.Event{inputtest.KeyDown(110, "n")}, rec.Events())

	a.Close()
	require.Eventually(t, func() bool { return s.Sessions() == 1 }, 5*time.Second, 10*time.Millisecond)
}

func TestStatusHidesPrivateValuesFromRemoteClients(t *testing.T) {
	s, _ := newTestServer(t, &inputtest.Recorder{})

	get := func(remote string) Status {
		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		req.RemoteAddr = remote
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var status Status
		require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
		return status
	}

	local := get("127.0.0.1:40000")
	assert.Equal(t, "fake", local.Driver)
	assert.Equal(t, "test", local.Version)
	assert.Equal(t, config.DefaultPort, local.Port)
	assert.NotEmpty(t, local.ConfigPath)
	assert.NotEmpty(t, local.URL)
	assert.Contains(t, local.Commands, "mouse.scroll")

	remote := get("192.168.1.50:40000")
	assert.Equal(t, "fake", remote.Driver)
	assert.Empty(t, remote.ConfigPath)
	assert.Empty(t, remote.URL)
	assert.Empty(t, remote.Host)
}

func TestStatusMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t, &inputtest.Recorder{})
	req := httptest.NewRequest(http.MethodPost, "/status", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestQRCodeOnlyForLocalClients(t *testing.T) {
	s, _ := newTestServer(t, &inputtest.Recorder{})

	get := func(remoteAddr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, QRPath, nil)
		req.RemoteAddr = remoteAddr
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		return w
	}

	local := get("127.0.0.1:40000")
	require.Equal(t, http.StatusOK, local.Code)
	assert.Equal(t, "image/png", local.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(local.Body.Bytes(), []byte("\x89PNG\r\n\x1a\n")))

	remote := get("192.168.1.50:40000")
	assert.Equal(t, http.StatusForbidden, remote.Code)
	assert.False(t, bytes.HasPrefix(remote.Body.Bytes(), []byte("\x89PNG")))
}
