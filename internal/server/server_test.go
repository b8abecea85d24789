package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/verte-zerg/tuimeteor/internal/logging"
	"github.com/verte-zerg/tuimeteor/internal/model"
	"github.com/verte-zerg/tuimeteor/internal/records"
	"github.com/verte-zerg/tuimeteor/internal/store"
)

func newTestServer(t *testing.T, token string) (*Server, *httptest.Server) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "tuimeteor.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	srv := New(records.NewService(st, token), logging.Discard())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Hub().Close()
		ts.Close()
	})
	return srv, ts
}

func doJSON(t *testing.T, method, url string, body any, headers map[string]string) (int, Envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp.StatusCode, env
}

func TestPlayerFlow(t *testing.T) {
	_, ts := newTestServer(t, "")

	status, env := doJSON(t, http.MethodPost, ts.URL+"/api/players", PlayerRequest{ID: "12345", Name: "Mei"}, nil)
	if status != http.StatusOK || !env.OK {
		t.Fatalf("upsert failed: %d %+v", status, env)
	}

	for _, score := range []int{12, 30, 18} {
		status, env = doJSON(t, http.MethodPost, ts.URL+"/api/players/12345/best", BestRequest{Score: score}, nil)
		if status != http.StatusOK {
			t.Fatalf("raise %d failed: %d %+v", score, status, env)
		}
	}

	status, env = doJSON(t, http.MethodGet, ts.URL+"/api/players/12345", nil, nil)
	if status != http.StatusOK {
		t.Fatalf("get failed: %d", status)
	}
	var p model.Player
	if err := json.Unmarshal(env.Data, &p); err != nil {
		t.Fatalf("decode player: %v", err)
	}
	if p.BestScore != 30 || p.Name != "Mei" {
		t.Fatalf("unexpected player %+v", p)
	}

	status, env = doJSON(t, http.MethodGet, ts.URL+"/api/leaderboard?limit=5&group=123", nil, nil)
	if status != http.StatusOK {
		t.Fatalf("leaderboard failed: %d", status)
	}
	var players []model.Player
	if err := json.Unmarshal(env.Data, &players); err != nil {
		t.Fatalf("decode leaderboard: %v", err)
	}
	if len(players) != 1 || players[0].ID != "12345" {
		t.Fatalf("unexpected leaderboard %+v", players)
	}
}

func TestValidationIsClientError(t *testing.T) {
	_, ts := newTestServer(t, "")

	cases := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodPost, "/api/players", PlayerRequest{ID: "12a45"}},
		{http.MethodGet, "/api/players/123", nil},
		{http.MethodPost, "/api/players/12345/best", BestRequest{Score: -4}},
		{http.MethodGet, "/api/leaderboard?group=12", nil},
		{http.MethodGet, "/api/leaderboard?limit=abc", nil},
	}
	for _, tc := range cases {
		status, env := doJSON(t, tc.method, ts.URL+tc.path, tc.body, nil)
		if status != http.StatusBadRequest || env.OK || env.Error != CodeInvalid {
			t.Fatalf("%s %s: expected 400 invalid_request, got %d %+v", tc.method, tc.path, status, env)
		}
	}

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/players", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", resp.StatusCode)
	}
}

func TestAdminRoutes(t *testing.T) {
	_, ts := newTestServer(t, "secret")

	for _, id := range []string{"10101", "10102", "20201"} {
		if status, env := doJSON(t, http.MethodPost, ts.URL+"/api/players/"+id+"/best", BestRequest{Score: 10}, nil); status != http.StatusOK {
			t.Fatalf("seed %s: %d %+v", id, status, env)
		}
	}

	status, env := doJSON(t, http.MethodPost, ts.URL+"/api/admin/clear-group", ClearRequest{Group: "101", Mode: "reset"}, nil)
	if status != http.StatusUnauthorized || env.Error != CodeUnauthorized {
		t.Fatalf("expected 401 without token, got %d %+v", status, env)
	}

	headers := map[string]string{AdminTokenHeader: "secret"}
	status, env = doJSON(t, http.MethodPost, ts.URL+"/api/admin/clear-group", ClearRequest{Group: "101", Mode: "delete"}, headers)
	if status != http.StatusOK {
		t.Fatalf("clear group failed: %d %+v", status, env)
	}
	var cleared ClearResponse
	if err := json.Unmarshal(env.Data, &cleared); err != nil {
		t.Fatalf("decode clear: %v", err)
	}
	if cleared.Affected != 2 {
		t.Fatalf("expected 2 affected, got %d", cleared.Affected)
	}

	status, env = doJSON(t, http.MethodGet, ts.URL+"/api/groups", nil, nil)
	if status != http.StatusOK {
		t.Fatalf("groups failed: %d", status)
	}
	var groups []model.GroupSummary
	if err := json.Unmarshal(env.Data, &groups); err != nil {
		t.Fatalf("decode groups: %v", err)
	}
	if len(groups) != 1 || groups[0].Group != "202" {
		t.Fatalf("unexpected groups %+v", groups)
	}
}

func TestAdminDisabled(t *testing.T) {
	_, ts := newTestServer(t, "")
	status, env := doJSON(t, http.MethodPost, ts.URL+"/api/admin/clear-all", ClearRequest{Mode: "reset"}, map[string]string{AdminTokenHeader: "x"})
	if status != http.StatusForbidden || env.Error != CodeAdminDisabled {
		t.Fatalf("expected 403 admin_disabled, got %d %+v", status, env)
	}
}

func TestLiveFeedBroadcastsBest(t *testing.T) {
	srv, ts := newTestServer(t, "")

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/live"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial live feed: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
		if resp != nil {
			_ = resp.Body.Close()
		}
	})

	deadline := time.Now().Add(2 * time.Second)
	for srv.Hub().Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("watcher never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if status, env := doJSON(t, http.MethodPost, ts.URL+"/api/players/12345/best", BestRequest{Score: 7}, nil); status != http.StatusOK {
		t.Fatalf("raise failed: %d %+v", status, env)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	var ev model.LiveEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if ev.Type != model.EventBest || ev.PlayerID != "12345" || ev.BestScore != 7 {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t, "")
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}
