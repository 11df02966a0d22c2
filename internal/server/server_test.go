package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kappines/FourInARow/internal/game"
	"github.com/kappines/FourInARow/internal/grid"
	"github.com/kappines/FourInARow/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	mu   sync.Mutex
	data map[string]game.Decision
}

func (m *memoryCache) Get(_ context.Context, key string) (game.Decision, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[key]
	return d, ok, nil
}

func (m *memoryCache) Set(_ context.Context, key string, d game.Decision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = d
	return nil
}

type memoryStore struct {
	mu        sync.Mutex
	games     []storage.CompletedGame
	decisions []storage.DecisionRecord
}

func (m *memoryStore) SaveGame(_ context.Context, g storage.CompletedGame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games = append(m.games, g)
	return nil
}

func (m *memoryStore) SaveDecision(_ context.Context, d storage.DecisionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = append(m.decisions, d)
	return nil
}

func (m *memoryStore) GetLeaderboard(_ context.Context, limit int) ([]storage.LeaderboardRow, error) {
	return []storage.LeaderboardRow{{Username: "alice", Wins: 4}, {Username: game.BotName, Wins: 3}}, nil
}

func (m *memoryStore) decisionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.decisions)
}

func newTestServer() (*Server, *memoryStore, *memoryCache) {
	store := &memoryStore{}
	c := &memoryCache{data: make(map[string]game.Decision)}
	s := New(Config{
		ReconnectWindow: time.Minute,
		Columns:         7,
		Rows:            6,
		Store:           store,
		Cache:           c,
	})
	return s, store, c
}

func postMove(t *testing.T, h http.Handler, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/move", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec.Code, out
}

const winningField = "0,0,0,0,0,0,0;0,0,0,0,0,0,0;0,0,0,0,0,0,0;" +
	"1,0,0,0,0,0,2;1,0,0,0,0,0,2;1,0,0,0,0,0,2"

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMoveEndpoint(t *testing.T) {
	s, store, _ := newTestServer()
	body := `{"columns":7,"rows":6,"botId":2,"field":"` + winningField + `"}`

	code, out := postMove(t, s.Handler(), body)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(6), out["column"])
	assert.Equal(t, "win", out["tier"])
	assert.Equal(t, false, out["cached"])

	code, out = postMove(t, s.Handler(), body)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(6), out["column"])
	assert.Equal(t, true, out["cached"])

	assert.Equal(t, 2, store.decisionCount())
}

func TestMoveEndpointErrors(t *testing.T) {
	s, _, _ := newTestServer()

	cases := []struct {
		name string
		body string
		code int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"bad bot id", `{"columns":7,"rows":6,"botId":3,"field":"` + winningField + `"}`, http.StatusBadRequest},
		{"bad field", `{"columns":7,"rows":6,"botId":1,"field":"0,0"}`, http.StatusBadRequest},
		{"full field", `{"columns":2,"rows":1,"botId":1,"field":"1,2"}`, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, out := postMove(t, s.Handler(), tc.body)
			assert.Equal(t, tc.code, code)
			assert.NotEmpty(t, out["error"])
		})
	}
}

func TestLeaderboardUsesStore(t *testing.T) {
	s, _, _ := newTestServer()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leaderboard", nil))
	assert.JSONEq(t, `[{"username":"alice","wins":4}]`, rec.Body.String())
}

func TestInMemoryLeaderboardSkipsEngine(t *testing.T) {
	s := New(Config{ReconnectWindow: time.Minute, Columns: 7, Rows: 6})
	now := time.Now()
	for _, winner := range []string{"alice", game.BotName, "bob", "alice", ""} {
		s.onFinish(&game.GameState{
			ID:        winner,
			Grid:      grid.New(7, 6),
			Status:    game.StatusFinished,
			Winner:    winner,
			StartedAt: now,
			EndedAt:   now,
		})
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leaderboard", nil))
	assert.JSONEq(t, `[{"username":"alice","wins":2},{"username":"bob","wins":1}]`, rec.Body.String())
}

func TestUnknownGame(t *testing.T) {
	s, _, _ := newTestServer()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/games/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocketGameAgainstEngine(t *testing.T) {
	s, store, _ := newTestServer()
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?username=alice"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	hello := readMessage(t, conn)
	assert.Equal(t, "init", hello["type"])
	assert.Equal(t, float64(1), hello["slot"])
	assert.Equal(t, game.BotName, hello["opponent"])
	gameID, _ := hello["gameId"].(string)
	require.NotEmpty(t, gameID)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "move", "column": 3}))
	mine := readMessage(t, conn)
	assert.Equal(t, "state", mine["type"])
	assert.Equal(t, float64(2), mine["turn"])

	reply := readMessage(t, conn)
	assert.Equal(t, "state", reply["type"])
	assert.Equal(t, float64(1), reply["turn"])
	assert.Eventually(t, func() bool { return store.decisionCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "move", "column": 42}))
	errMsg := readMessage(t, conn)
	assert.Equal(t, "error", errMsg["type"])

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/games/"+gameID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"active"`)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/alice/game", nil))
	assert.JSONEq(t, `{"gameId":"`+gameID+`"}`, rec.Body.String())

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "leave"}))
	left := readMessage(t, conn)
	assert.Equal(t, "left", left["type"])

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "move", "column": 0}))
	afterLeave := readMessage(t, conn)
	assert.Equal(t, "error", afterLeave["type"])
	assert.Equal(t, errNotInGame.Error(), afterLeave["message"])
	s.manager.View(gameID, func(g *game.GameState) {
		assert.Equal(t, 2, countDiscs(g.Grid))
	})

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/alice/game", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func countDiscs(g *grid.Grid) int {
	n := 0
	for c := 0; c < g.Columns(); c++ {
		for r := 0; r < g.Rows(); r++ {
			if g.At(c, r) != grid.Empty {
				n++
			}
		}
	}
	return n
}

func TestWebSocketRequiresUsername(t *testing.T) {
	s, _, _ := newTestServer()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
