package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/pairs/internal/config"
	"github.com/robalobadob/pairs/internal/game"
	"github.com/robalobadob/pairs/internal/store"
	"github.com/robalobadob/pairs/internal/symbols"
)

// testConfig yields a single-pair board, so clicking 0 then 1 always wins.
func testConfig() config.Config {
	return config.Config{
		UniqueCount:    1,
		Pool:           []string{"🐶"},
		TickInterval:   100 * time.Millisecond,
		MismatchDelay:  500 * time.Millisecond,
		FaceUp:         true,
		ClientOrigin:   "http://localhost:5173",
		SessionSecret:  "test-secret",
		SessionTTL:     time.Hour,
		RateLimitRPS:   100,
		RateLimitBurst: 100,
	}
}

func newTestServer(t *testing.T, cfg config.Config) (*Server, store.Store) {
	t.Helper()
	st := store.NewMemoryStore()
	srv := New(cfg, st)
	t.Cleanup(srv.Close)
	return srv, st
}

func do(t *testing.T, srv *Server, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func createSession(t *testing.T, srv *Server) (*http.Cookie, string) {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/session", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res newSessionRes
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	require.NotEmpty(t, res.SessionID)

	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName {
			return c, res.SessionID
		}
	}
	t.Fatal("session cookie not set")
	return nil, ""
}

func decodeSnapshot(t *testing.T, rec *httptest.ResponseRecorder) game.Snapshot {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var snap game.Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	return snap
}

func TestHealthAndIndex(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := do(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"service":"pairs"`)

	rec = do(t, srv, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	rec := do(t, srv, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pairs_active_sessions")
}

func TestPlayFullRound(t *testing.T) {
	srv, st := newTestServer(t, testConfig())
	cookie, id := createSession(t, srv)
	assert.Equal(t, 1, st.Len())

	snap := decodeSnapshot(t, do(t, srv, http.MethodGet, "/session/state", "", cookie))
	assert.Equal(t, game.PhaseIdle, snap.Phase)
	assert.Empty(t, snap.Tiles)

	snap = decodeSnapshot(t, do(t, srv, http.MethodPost, "/session/play", "", cookie))
	assert.Equal(t, game.PhaseFirstPick, snap.Phase)
	assert.Equal(t, uint64(1), snap.Round)
	require.Len(t, snap.Tiles, 2)
	assert.True(t, snap.Running)

	snap = decodeSnapshot(t, do(t, srv, http.MethodPost, "/session/click", `{"index":0}`, cookie))
	assert.Equal(t, game.PhaseSecondPick, snap.Phase)
	require.NotNil(t, snap.Pending)
	assert.Equal(t, 0, *snap.Pending)

	snap = decodeSnapshot(t, do(t, srv, http.MethodPost, "/session/click", `{"index":1}`, cookie))
	assert.Equal(t, game.PhaseEnded, snap.Phase)
	assert.Equal(t, 1, snap.Matches)
	assert.False(t, snap.Running)
	for _, tile := range snap.Tiles {
		assert.Equal(t, symbols.SolvedMark, tile.Display)
	}

	sess, err := st.Get(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, id, sess.ID)
}

func TestClickOutOfRangeIsIgnored(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	cookie, _ := createSession(t, srv)
	decodeSnapshot(t, do(t, srv, http.MethodPost, "/session/play", "", cookie))

	snap := decodeSnapshot(t, do(t, srv, http.MethodPost, "/session/click", `{"index":99}`, cookie))
	assert.Equal(t, game.PhaseFirstPick, snap.Phase)
	assert.Nil(t, snap.Pending)
}

func TestClickBadBody(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	cookie, _ := createSession(t, srv)

	for _, body := range []string{`not json`, `{}`, `{"index":"x"}`} {
		rec := do(t, srv, http.MethodPost, "/session/click", body, cookie)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestSessionAuth(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := do(t, srv, http.MethodGet, "/session/state", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, srv, http.MethodGet, "/session/state", "", &http.Cookie{Name: cookieName, Value: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Token signed with another secret.
	other := New(func() config.Config { c := testConfig(); c.SessionSecret = "other"; return c }(), store.NewMemoryStore())
	defer other.Close()
	tok, _, err := other.signSession("whatever")
	require.NoError(t, err)
	rec = do(t, srv, http.MethodGet, "/session/state", "", &http.Cookie{Name: cookieName, Value: tok})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid token for a session this server never created.
	tok, _, err = srv.signSession("unknown")
	require.NoError(t, err)
	rec = do(t, srv, http.MethodGet, "/session/state", "", &http.Cookie{Name: cookieName, Value: tok})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBearerToken(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	cookie, _ := createSession(t, srv)

	req := httptest.NewRequest(http.MethodGet, "/session/state", nil)
	req.Header.Set("Authorization", "Bearer "+cookie.Value)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEndSession(t *testing.T) {
	srv, st := newTestServer(t, testConfig())
	cookie, _ := createSession(t, srv)

	rec := do(t, srv, http.MethodDelete, "/session", "", cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, st.Len())

	rec = do(t, srv, http.MethodPost, "/session/play", "", cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitRPS = 1
	cfg.RateLimitBurst = 2
	srv, _ := newTestServer(t, cfg)
	cookie, _ := createSession(t, srv)

	codes := make([]int, 0, 3)
	for range 3 {
		codes = append(codes, do(t, srv, http.MethodPost, "/session/play", "", cookie).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// State reads are not limited.
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/session/state", "", cookie).Code)
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	rec := do(t, srv, http.MethodOptions, "/session/play", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func readEffect(t *testing.T, conn *websocket.Conn) game.Effect {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var e game.Effect
	require.NoError(t, conn.ReadJSON(&e))
	return e
}

// waitEffect reads until an effect of type typ arrives, skipping others.
func waitEffect(t *testing.T, conn *websocket.Conn, typ game.EffectType) game.Effect {
	t.Helper()
	for {
		if e := readEffect(t, conn); e.Type == typ {
			return e
		}
	}
}

func TestWebSocketStreamsEffects(t *testing.T) {
	srv, st := newTestServer(t, testConfig())
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	res, err := http.Post(ts.URL+"/session", "application/json", bytes.NewReader(nil))
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusCreated, res.StatusCode)
	var created newSessionRes
	require.NoError(t, json.NewDecoder(res.Body).Decode(&created))

	var cookie *http.Cookie
	for _, c := range res.Cookies() {
		if c.Name == cookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	header := http.Header{}
	header.Set("Cookie", cookieName+"="+cookie.Value)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/session/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer conn.Close()

	// Initial state.
	first := readEffect(t, conn)
	assert.Equal(t, game.EffectRenderBoard, first.Type)
	assert.Empty(t, first.Tiles)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "play"}))
	waitEffect(t, conn, game.EffectShowRoundActive)
	board := waitEffect(t, conn, game.EffectRenderBoard)
	assert.Len(t, board.Tiles, 2)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "click", "index": 0}))
	hl := waitEffect(t, conn, game.EffectHighlightTile)
	assert.Equal(t, 0, hl.Index)
	assert.Equal(t, "🐶", hl.Display)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "click", "index": 1}))
	end := waitEffect(t, conn, game.EffectShowRoundEnd)
	assert.Equal(t, uint64(1), end.Round)

	// Ending the session closes the stream.
	require.NoError(t, st.Delete(t.Context(), created.SessionID))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), err.Error())
			break
		}
	}
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	cookie, _ := createSession(t, srv)
	header := http.Header{}
	header.Set("Cookie", cookieName+"="+cookie.Value)
	header.Set("Origin", "http://evil.example")
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/session/ws"
	_, res, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestHubDropsForSlowClient(t *testing.T) {
	h := newHub()
	c := h.register()
	for range clientBuffer + 10 {
		h.Emit(game.Effect{Type: game.EffectUpdateElapsed, Seconds: 1})
	}
	assert.Len(t, c.send, clientBuffer)
	h.unregister(c)
	assert.Equal(t, 0, h.Len())
}

func createDaily(t *testing.T, srv *Server) (*http.Cookie, newSessionRes) {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/session", `{"daily":true}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res newSessionRes
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName {
			return c, res
		}
	}
	t.Fatal("session cookie not set")
	return nil, res
}

func TestDailySessionsShareBoard(t *testing.T) {
	cfg := testConfig()
	cfg.Pool = []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	cfg.UniqueCount = 4
	srv, _ := newTestServer(t, cfg)

	c1, r1 := createDaily(t, srv)
	c2, r2 := createDaily(t, srv)
	assert.NotEqual(t, r1.SessionID, r2.SessionID)
	assert.Equal(t, r1.Daily, r2.Daily)

	b1 := decodeSnapshot(t, do(t, srv, http.MethodPost, "/session/play", "", c1))
	b2 := decodeSnapshot(t, do(t, srv, http.MethodPost, "/session/play", "", c2))
	assert.Equal(t, b1.Tiles, b2.Tiles)
}

func TestDailyLeaderboardRecordsFirstWin(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	cookie, res := createDaily(t, srv)
	require.NotEmpty(t, res.Daily)

	decodeSnapshot(t, do(t, srv, http.MethodPost, "/session/play", "", cookie))
	decodeSnapshot(t, do(t, srv, http.MethodPost, "/session/click", `{"index":0}`, cookie))
	snap := decodeSnapshot(t, do(t, srv, http.MethodPost, "/session/click", `{"index":1}`, cookie))
	require.Equal(t, game.PhaseEnded, snap.Phase)

	// A second round in the same session is not recorded.
	decodeSnapshot(t, do(t, srv, http.MethodPost, "/session/play", "", cookie))
	decodeSnapshot(t, do(t, srv, http.MethodPost, "/session/click", `{"index":0}`, cookie))
	decodeSnapshot(t, do(t, srv, http.MethodPost, "/session/click", `{"index":1}`, cookie))

	rec := do(t, srv, http.MethodGet, "/daily?date="+res.Daily, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var lb dailyRes
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&lb))
	assert.Equal(t, res.Daily, lb.Date)
	require.Len(t, lb.Results, 1)
	assert.Equal(t, res.SessionID, lb.Results[0].SessionID)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/daily?limit=0", "", nil).Code)
}

func TestRegularSessionSkipsLeaderboard(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	cookie, _ := createSession(t, srv)
	decodeSnapshot(t, do(t, srv, http.MethodPost, "/session/play", "", cookie))
	decodeSnapshot(t, do(t, srv, http.MethodPost, "/session/click", `{"index":0}`, cookie))
	decodeSnapshot(t, do(t, srv, http.MethodPost, "/session/click", `{"index":1}`, cookie))

	rec := do(t, srv, http.MethodGet, "/daily", "", nil)
	var lb dailyRes
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&lb))
	assert.Empty(t, lb.Results)
}
