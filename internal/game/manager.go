package game

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kappines/FourInARow/internal/grid"
	"github.com/kappines/FourInARow/internal/threat"
	log "github.com/sirupsen/logrus"
)

const (
	StatusActive   = "active"
	StatusFinished = "finished"
)

// BotName is the username the engine plays under.
const BotName = "bot"

var (
	ErrInvalidTurn  = errors.New("not your turn")
	ErrGameFinished = errors.New("game already finished")
	ErrUnknownGame  = errors.New("unknown game")
)

type GameState struct {
	ID         string
	Grid       *grid.Grid
	Status     string
	Winner     string
	StartedAt  time.Time
	EndedAt    time.Time
	Turn       grid.Disc
	LastMoveAt time.Time
	Players    map[string]*Player
	Bot        *Bot
}

type Player struct {
	Username string
	Slot     grid.Disc
	IsBot    bool
}

type Move struct {
	Username string
	GameID   string
	Column   int
}

type MoveResult struct {
	Board  [][]grid.Disc
	Column int
	Row    int
	Winner grid.Disc
	IsDraw bool
}

// Manager keeps the games between humans and the engine.
type Manager struct {
	mu             sync.RWMutex
	games          map[string]*GameState
	userToGame     map[string]string
	columns        int
	rows           int
	reconnectAfter time.Duration
	onFinish       func(*GameState)
}

func NewManager(columns, rows int, reconnectWindow time.Duration, onFinish func(*GameState)) *Manager {
	return &Manager{
		games:          make(map[string]*GameState),
		userToGame:     make(map[string]string),
		columns:        columns,
		rows:           rows,
		reconnectAfter: reconnectWindow,
		onFinish:       onFinish,
	}
}

// StartBotGame returns the unfinished game of human, or opens a new one
// against the engine. P1 always moves first.
func (m *Manager) StartBotGame(human string, humanFirst bool) *GameState {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gid, ok := m.userToGame[human]; ok {
		if g, exists := m.games[gid]; exists && g.Status != StatusFinished {
			return g
		}
	}

	humanSlot, botSlot := grid.P1, grid.P2
	if !humanFirst {
		humanSlot, botSlot = grid.P2, grid.P1
	}
	now := time.Now()
	game := &GameState{
		ID:         uuid.NewString(),
		Grid:       grid.New(m.columns, m.rows),
		Status:     StatusActive,
		Turn:       grid.P1,
		StartedAt:  now,
		LastMoveAt: now,
		Players: map[string]*Player{
			human:   {Username: human, Slot: humanSlot},
			BotName: {Username: BotName, Slot: botSlot, IsBot: true},
		},
		Bot: NewBot(botSlot),
	}
	m.games[game.ID] = game
	m.userToGame[human] = game.ID
	return game
}

func (m *Manager) HandleMove(move Move) (MoveResult, *GameState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	game, ok := m.games[move.GameID]
	if !ok {
		return MoveResult{}, nil, ErrUnknownGame
	}
	return m.apply(game, move.Username, move.Column)
}

// PlayBotTurn lets the engine move if it is its turn.
func (m *Manager) PlayBotTurn(gameID string) (Decision, MoveResult, *GameState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	game, ok := m.games[gameID]
	if !ok {
		return Decision{}, MoveResult{}, nil, ErrUnknownGame
	}
	if game.Bot == nil || game.Status == StatusFinished {
		return Decision{}, MoveResult{}, game, ErrGameFinished
	}
	if game.Turn != game.Bot.Player {
		return Decision{}, MoveResult{}, game, ErrInvalidTurn
	}
	decision, err := game.Bot.ChooseMove(game.Grid)
	if err != nil {
		return Decision{}, MoveResult{}, game, err
	}
	res, game, err := m.apply(game, BotName, decision.Column)
	return decision, res, game, err
}

// apply expects m.mu to be held.
func (m *Manager) apply(game *GameState, username string, column int) (MoveResult, *GameState, error) {
	if game.Status == StatusFinished {
		return MoveResult{}, game, ErrGameFinished
	}
	player, ok := game.Players[username]
	if !ok || game.Turn != player.Slot {
		return MoveResult{}, game, ErrInvalidTurn
	}
	row, err := game.Grid.Place(column, player.Slot)
	if err != nil {
		return MoveResult{}, game, err
	}
	now := time.Now()
	game.LastMoveAt = now
	res := MoveResult{Board: Snapshot(game.Grid), Column: column, Row: row}

	switch {
	case threat.HasWin(game.Grid, column, row, player.Slot):
		res.Winner = player.Slot
		game.Status = StatusFinished
		game.Winner = username
		game.EndedAt = now
		m.finish(game)
	case game.Grid.IsFull():
		res.IsDraw = true
		game.Status = StatusFinished
		game.EndedAt = now
		m.finish(game)
	default:
		game.Turn = game.Turn.Opponent()
	}
	return res, game, nil
}

func (m *Manager) finish(game *GameState) {
	if m.onFinish != nil {
		go m.onFinish(game)
	}
}

// View calls fn with the game under the read lock. It reports whether the
// game exists.
func (m *Manager) View(gameID string, fn func(*GameState)) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[gameID]
	if ok {
		fn(g)
	}
	return ok
}

// GameForUser returns active game id for a username or fallback.
func (m *Manager) GameForUser(username, fallback string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.userToGame[username]; ok {
		return id
	}
	return fallback
}

func (m *Manager) Abandon(username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.userToGame, username)
}

// MarkDisconnected updates last seen time so sweeper can forfeit
// after the reconnect window.
func (m *Manager) MarkDisconnected(username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.userToGame[username]; ok {
		if g, exists := m.games[id]; exists {
			g.LastMoveAt = time.Now()
		}
	}
}

// SweepDisconnects forfeits games idle past the reconnect window to the engine.
func (m *Manager) SweepDisconnects() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for id, g := range m.games {
		if g.Status != StatusFinished && now.Sub(g.LastMoveAt) > m.reconnectAfter {
			g.Status = StatusFinished
			g.Winner = BotName
			g.EndedAt = now
			m.finish(g)
			log.WithField("game_id", id).Info("game forfeited due to timeout")
		}
	}
}

// Snapshot copies g into rows, top row first.
func Snapshot(g *grid.Grid) [][]grid.Disc {
	board := make([][]grid.Disc, g.Rows())
	for r := range board {
		board[r] = make([]grid.Disc, g.Columns())
		for c := range board[r] {
			board[r][c] = g.At(c, r)
		}
	}
	return board
}

// Opponent returns the username facing username in g.
func (g *GameState) Opponent(username string) string {
	for name := range g.Players {
		if name != username {
			return name
		}
	}
	return ""
}
