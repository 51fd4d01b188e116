package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stockwatch/internal/tracker/store"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *store.SnapshotStore {
	t.Helper()
	st := store.New([]string{"AAPL", "MSFT"}, 60, nil)
	now := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)
	st.ApplyQuote("AAPL", store.Quote{Price: 150, ChangePercent: 1.5}, now)
	st.ApplyHistory("AAPL", []store.PricePoint{
		{Price: 148, Timestamp: now.Add(-time.Hour)},
		{Price: 151, Timestamp: now.Add(-30 * time.Minute)},
	})
	st.SetLastUpdate(now)
	return st
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(":0", newTestStore(t), 10*time.Millisecond, nil)
	ts := httptest.NewServer(s.srv.Handler)
	t.Cleanup(ts.Close)
	return s, ts
}

func TestHandleSnapshot(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/snapshot")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var view SnapshotView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	require.Len(t, view.Symbols, 2)
	require.False(t, view.LastUpdate.IsZero())

	aapl := view.Symbols["AAPL"]
	require.Equal(t, 150.0, aapl.CurrentPrice)
	require.Equal(t, []float64{150}, aapl.RecentPrices)
	require.Len(t, aapl.History, 2)
	require.NotNil(t, aapl.RecentMin)
	require.Equal(t, 148.0, *aapl.HistoryMin)

	// MSFT never got a quote: extrema are omitted, not infinite.
	msft := view.Symbols["MSFT"]
	require.Zero(t, msft.CurrentPrice)
	require.Nil(t, msft.RecentMin)
	require.Nil(t, msft.HistoryMax)
}

func TestHandleSymbol(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/snapshot/AAPL")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view SymbolView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	require.Equal(t, "AAPL", view.Symbol)
	require.Equal(t, 1.5, view.ChangePercent)
}

func TestHandleSymbol_Unknown(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/snapshot/ZZZZ")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleSnapshot_MethodNotAllowed(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/snapshot", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHandleHealth(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "ok", body["status"])
}

func TestHandleWS_PushesSnapshots(t *testing.T) {
	_, ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	defer conn.Close()

	// The immediate push plus at least one ticker push.
	for i := 0; i < 2; i++ {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		var view SnapshotView
		require.NoError(t, conn.ReadJSON(&view))
		require.Contains(t, view.Symbols, "AAPL")
		require.Equal(t, 150.0, view.Symbols["AAPL"].CurrentPrice)
	}
}
