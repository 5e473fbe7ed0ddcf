package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mt5-bridge/internal/gateway"
	"mt5-bridge/internal/session"
	"mt5-bridge/internal/stream"
	"mt5-bridge/internal/terminal"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sim := terminal.NewSim()
	require.NoError(t, sim.Initialize(""))

	store := session.NewMemoryStore(time.Hour)
	t.Cleanup(func() { _ = store.Close() })

	pol := gateway.DefaultPolicy()
	pol.Order.RetryDelay = time.Millisecond

	gw := gateway.New(store, sim, pol, zap.NewNop())
	return NewServer(gw, stream.NewHub(), zap.NewNop(), SystemMeta{
		Service:     "mt5-bridge",
		Version:     "test",
		SimTerminal: true,
	}, Options{})
}

func doJSON(t *testing.T, s *Server, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed), w.Body.String())
	return w, parsed
}

func connectSession(t *testing.T, s *Server, login int64, server string) string {
	t.Helper()
	_, resp := doJSON(t, s, http.MethodPost, "/mt5/connect", gin.H{
		"login":    login,
		"password": "secret",
		"server":   server,
	})
	require.Equal(t, true, resp["success"], resp)
	id, _ := resp["session_id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	w, resp := doJSON(t, s, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "mt5-bridge", resp["service"])
	assert.Equal(t, "running", resp["status"])
	assert.EqualValues(t, 0, resp["active_sessions"])
}

func TestConnectFlow(t *testing.T) {
	s := newTestServer(t)

	_, resp := doJSON(t, s, http.MethodPost, "/mt5/connect", gin.H{
		"login":    int64(12345),
		"password": "secret",
		"server":   "Broker-Live",
	})
	require.Equal(t, true, resp["success"], resp)
	sessionID := resp["session_id"].(string)
	assert.Contains(t, sessionID, "_12345")

	acct := resp["account_info"].(map[string]any)
	assert.Equal(t, "LIVE", acct["mode"])
	assert.EqualValues(t, 12345, acct["login"])

	_, resp = doJSON(t, s, http.MethodPost, "/mt5/account_info", gin.H{"session_id": sessionID})
	assert.Equal(t, true, resp["success"], resp)

	_, resp = doJSON(t, s, http.MethodGet, "/mt5/sessions", nil)
	assert.EqualValues(t, 1, resp["active_sessions"])
}

func TestUnknownSessionIsEnvelopeFailureNotTransportFault(t *testing.T) {
	s := newTestServer(t)
	w, resp := doJSON(t, s, http.MethodPost, "/mt5/account_info", gin.H{"session_id": "mt5_0_999"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "Invalid session ID", resp["error"])
}

func TestConnectValidation(t *testing.T) {
	s := newTestServer(t)
	w, resp := doJSON(t, s, http.MethodPost, "/mt5/connect", gin.H{"login": int64(12345)})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, resp["success"])
	assert.Contains(t, resp["error"], "Invalid request:")
}

func TestPlaceAndClosePosition(t *testing.T) {
	s := newTestServer(t)
	sessionID := connectSession(t, s, 5001, "Demo-Server")

	_, resp := doJSON(t, s, http.MethodPost, "/mt5/place_order", gin.H{
		"session_id": sessionID,
		"symbol":     "EURUSD",
		"type":       0,
		"volume":     0.10,
	})
	require.Equal(t, true, resp["success"], resp)
	data := resp["data"].(map[string]any)
	ticket := int64(data["ticket"].(float64))
	require.Greater(t, ticket, int64(100000))

	_, resp = doJSON(t, s, http.MethodPost, "/mt5/positions", gin.H{"session_id": sessionID})
	require.Equal(t, true, resp["success"], resp)
	positions := resp["data"].([]any)
	require.Len(t, positions, 1)

	_, resp = doJSON(t, s, http.MethodPost, "/mt5/close_position", gin.H{
		"session_id": sessionID,
		"ticket":     ticket,
	})
	assert.Equal(t, true, resp["success"], resp)
}

func TestClosePartialRequiresVolume(t *testing.T) {
	s := newTestServer(t)
	sessionID := connectSession(t, s, 5002, "Demo-Server")

	_, resp := doJSON(t, s, http.MethodPost, "/mt5/close_partial", gin.H{
		"session_id": sessionID,
		"ticket":     int64(1),
	})
	assert.Equal(t, false, resp["success"])
	assert.Contains(t, resp["error"], "Invalid request:")
}

func TestPlaceOrderTypeBinding(t *testing.T) {
	s := newTestServer(t)
	sessionID := connectSession(t, s, 5003, "Demo-Server")

	// type omitted entirely must fail binding
	_, resp := doJSON(t, s, http.MethodPost, "/mt5/place_order", gin.H{
		"session_id": sessionID,
		"symbol":     "EURUSD",
		"volume":     0.10,
	})
	assert.Equal(t, false, resp["success"])
	assert.Contains(t, resp["error"], "Invalid request:")

	// explicit type 1 (sell) is accepted
	_, resp = doJSON(t, s, http.MethodPost, "/mt5/place_order", gin.H{
		"session_id": sessionID,
		"symbol":     "EURUSD",
		"type":       1,
		"volume":     0.10,
	})
	assert.Equal(t, true, resp["success"], resp)
}

func TestPriceEndpoint(t *testing.T) {
	s := newTestServer(t)

	// price is auth exempt by default
	_, resp := doJSON(t, s, http.MethodGet, "/mt5/price?symbol=EURUSD", nil)
	require.Equal(t, true, resp["success"], resp)
	data := resp["data"].(map[string]any)
	assert.Equal(t, "EURUSD", data["symbol"])
	assert.Greater(t, data["ask"].(float64), data["bid"].(float64))

	_, resp = doJSON(t, s, http.MethodGet, "/mt5/price", nil)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "Missing symbol parameter", resp["error"])

	_, resp = doJSON(t, s, http.MethodGet, "/mt5/price?symbol=NOPEUSD", nil)
	assert.Equal(t, false, resp["success"])
}

func TestSymbolsEndpoint(t *testing.T) {
	s := newTestServer(t)
	_, resp := doJSON(t, s, http.MethodGet, "/mt5/symbols", nil)
	require.Equal(t, true, resp["success"], resp)
	data := resp["data"].(map[string]any)
	assert.EqualValues(t, 12, data["count"])
	assert.Len(t, data["symbols"].([]any), 12)

	_, resp = doJSON(t, s, http.MethodGet, "/mt5/symbols?mask=*JPY*", nil)
	require.Equal(t, true, resp["success"], resp)
	for _, sym := range resp["data"].(map[string]any)["symbols"].([]any) {
		assert.Contains(t, sym.(string), "JPY")
	}
}

func TestHistoricalDataEndpoint(t *testing.T) {
	s := newTestServer(t)
	sessionID := connectSession(t, s, 5004, "Demo-Server")

	_, resp := doJSON(t, s, http.MethodPost, "/mt5/historical_data", gin.H{
		"session_id": sessionID,
		"symbol":     "EURUSD",
		"timeframe":  "M1",
		"count":      20,
	})
	require.Equal(t, true, resp["success"], resp)
	data := resp["data"].(map[string]any)
	assert.EqualValues(t, 20, data["count"])
	assert.Equal(t, "M1", data["timeframe"])
	assert.Len(t, data["bars"].([]any), 20)

	// the /history alias serves the same handler
	_, resp = doJSON(t, s, http.MethodPost, "/mt5/history", gin.H{
		"session_id": sessionID,
		"symbol":     "EURUSD",
		"timeframe":  "M5",
		"count":      5,
	})
	assert.Equal(t, true, resp["success"], resp)
}

func TestDisconnectEndsSession(t *testing.T) {
	s := newTestServer(t)
	sessionID := connectSession(t, s, 5005, "Demo-Server")

	_, resp := doJSON(t, s, http.MethodPost, "/mt5/disconnect", gin.H{"session_id": sessionID})
	require.Equal(t, true, resp["success"], resp)

	_, resp = doJSON(t, s, http.MethodPost, "/mt5/account_info", gin.H{"session_id": sessionID})
	assert.Equal(t, "Invalid session ID", resp["error"])
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t)
	w, _ := doJSON(t, s, http.MethodGet, "/status", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
