package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kappines/FourInARow/internal/game"
	"github.com/kappines/FourInARow/internal/grid"
	log "github.com/sirupsen/logrus"
)

var errNotInGame = errors.New("not in a game")

type wsClient struct {
	username string
	conn     *websocket.Conn
	send     chan []byte
	server   *Server
	gameID   string
}

type clientMessage struct {
	Type   string `json:"type"`
	Column *int   `json:"column"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleWS opens (or resumes) a game against the engine. ?first=bot lets
// the engine open.
func (s *Server) handleWS(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username required"})
		return
	}
	if username == game.BotName {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username reserved"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	g := s.manager.StartBotGame(username, c.Query("first") != "bot")
	client := &wsClient{
		username: username,
		conn:     conn,
		send:     make(chan []byte, 16),
		server:   s,
		gameID:   g.ID,
	}
	s.register(client)

	go client.writePump()
	go client.readPump()
}

func (s *Server) register(c *wsClient) {
	s.connMu.Lock()
	if old, ok := s.connections[c.username]; ok {
		close(old.send)
	}
	s.connections[c.username] = c
	s.connMu.Unlock()
}

func (s *Server) unregister(c *wsClient) {
	s.connMu.Lock()
	if s.connections[c.username] == c {
		delete(s.connections, c.username)
		close(c.send)
	}
	s.connMu.Unlock()
	c.conn.Close()
}

func (c *wsClient) writePump() {
	for msg := range c.send {
		_ = c.conn.WriteMessage(websocket.TextMessage, msg)
	}
}

func (c *wsClient) readPump() {
	defer c.server.unregister(c)
	s := c.server

	s.pushInit(c.gameID, c.username)
	s.maybeScheduleBot(c.gameID)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			s.manager.MarkDisconnected(c.username)
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == "leave" {
			// the game stays on record until the sweeper forfeits it
			s.manager.Abandon(c.username)
			c.sendJSON(map[string]any{"type": "left", "gameId": c.gameID})
			c.gameID = ""
			continue
		}
		if msg.Type != "move" || msg.Column == nil {
			continue
		}
		if c.gameID == "" {
			c.sendJSON(map[string]any{"type": "error", "message": errNotInGame.Error()})
			continue
		}
		res, _, err := s.manager.HandleMove(game.Move{
			Username: c.username,
			GameID:   c.gameID,
			Column:   *msg.Column,
		})
		if err != nil {
			c.sendJSON(map[string]any{"type": "error", "message": err.Error()})
			continue
		}
		s.broadcastState(c.gameID, res)
		s.maybeScheduleBot(c.gameID)
	}
}

func (s *Server) maybeScheduleBot(gameID string) {
	botTurn := false
	s.manager.View(gameID, func(g *game.GameState) {
		botTurn = g.Status == game.StatusActive && g.Bot != nil && g.Turn == g.Bot.Player
	})
	if botTurn {
		time.AfterFunc(s.botDelay, func() { s.playBotTurn(gameID) })
	}
}

func (s *Server) playBotTurn(gameID string) {
	var before *grid.Grid
	var self grid.Disc
	s.manager.View(gameID, func(g *game.GameState) {
		before = g.Grid.Clone()
		if g.Bot != nil {
			self = g.Bot.Player
		}
	})
	decision, res, _, err := s.manager.PlayBotTurn(gameID)
	if err != nil {
		log.WithError(err).WithField("game_id", gameID).Warn("bot move skipped")
		return
	}
	s.recordDecision(context.Background(), gameID, before, self, decision)
	s.broadcastState(gameID, res)
}

func (s *Server) pushInit(gameID, username string) {
	s.manager.View(gameID, func(g *game.GameState) {
		var slot grid.Disc
		if p, ok := g.Players[username]; ok {
			slot = p.Slot
		}
		s.sendToUser(username, map[string]any{
			"type":      "init",
			"gameId":    g.ID,
			"board":     game.Snapshot(g.Grid),
			"columns":   g.Grid.Columns(),
			"rows":      g.Grid.Rows(),
			"turn":      g.Turn,
			"you":       username,
			"slot":      slot,
			"opponent":  g.Opponent(username),
			"status":    g.Status,
			"winner":    g.Winner,
			"timestamp": time.Now().UTC(),
		})
	})
}

func (s *Server) broadcastState(gameID string, res game.MoveResult) {
	s.manager.View(gameID, func(g *game.GameState) {
		payload := map[string]any{
			"type":     "state",
			"board":    res.Board,
			"lastMove": map[string]int{"column": res.Column, "row": res.Row},
			"turn":     g.Turn,
			"status":   g.Status,
			"winner":   g.Winner,
		}
		for uname, p := range g.Players {
			if p.IsBot {
				continue
			}
			s.sendToUser(uname, payload)
		}
	})
}

func (s *Server) sendToUser(username string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.WithError(err).Error("encode ws payload")
		return
	}
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	client, ok := s.connections[username]
	if !ok {
		return
	}
	select {
	case client.send <- data:
	default:
	}
}

func (c *wsClient) sendJSON(v any) {
	data, _ := json.Marshal(v)
	c.server.connMu.RLock()
	defer c.server.connMu.RUnlock()
	if c.server.connections[c.username] != c {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
