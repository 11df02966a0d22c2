package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kappines/FourInARow/internal/analytics"
	"github.com/kappines/FourInARow/internal/cache"
	"github.com/kappines/FourInARow/internal/game"
	"github.com/kappines/FourInARow/internal/grid"
	"github.com/kappines/FourInARow/internal/storage"
	log "github.com/sirupsen/logrus"
)

type moveRequest struct {
	Columns int    `json:"columns" binding:"required,min=1,max=64"`
	Rows    int    `json:"rows" binding:"required,min=1,max=64"`
	Field   string `json:"field" binding:"required"`
	BotID   int    `json:"botId" binding:"required,oneof=1 2"`
}

type moveResponse struct {
	Column    int    `json:"column"`
	Tier      string `json:"tier"`
	Primary   int    `json:"primary"`
	Secondary int    `json:"secondary"`
	Cached    bool   `json:"cached"`
}

func (s *Server) handleMove(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	g := grid.New(req.Columns, req.Rows)
	if err := g.Load(req.Field); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	self := grid.Disc(req.BotID)

	d, cached, err := s.decide(c.Request.Context(), g, self)
	switch {
	case errors.Is(err, game.ErrNoMoves):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.recordDecision(c.Request.Context(), "", g, self, d)
	c.JSON(http.StatusOK, moveResponse{
		Column:    d.Column,
		Tier:      d.Tier.String(),
		Primary:   d.Primary,
		Secondary: d.Secondary,
		Cached:    cached,
	})
}

// decide answers from the cache when it can and fills it otherwise.
// Cache failures only cost the lookup.
func (s *Server) decide(ctx context.Context, g *grid.Grid, self grid.Disc) (game.Decision, bool, error) {
	key := cache.Key(g, self)
	if s.cache != nil {
		d, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			log.WithError(err).Warn("decision cache read failed")
		} else if ok {
			return d, true, nil
		}
	}
	d, err := game.Decide(g, self, self.Opponent())
	if err != nil {
		return game.Decision{}, false, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, d); err != nil {
			log.WithError(err).Warn("decision cache write failed")
		}
	}
	return d, false, nil
}

// recordDecision stores and publishes a decision. g is the field before the move.
func (s *Server) recordDecision(ctx context.Context, gameID string, g *grid.Grid, self grid.Disc, d game.Decision) {
	rec := storage.DecisionRecord{
		ID:        uuid.NewString(),
		GameID:    gameID,
		Field:     g.String(),
		Player:    int(self),
		Column:    d.Column,
		Tier:      d.Tier.String(),
		Primary:   d.Primary,
		Secondary: d.Secondary,
		CreatedAt: time.Now().UTC(),
	}
	if s.store != nil {
		_ = s.store.SaveDecision(ctx, rec)
	}
	key := gameID
	if key == "" {
		key = rec.ID
	}
	s.analytics.Publish(ctx, analytics.EventMoveSelected, key, map[string]any{
		"decisionId": rec.ID,
		"gameId":     gameID,
		"column":     d.Column,
		"tier":       rec.Tier,
		"primary":    d.Primary,
		"secondary":  d.Secondary,
	})
	log.WithFields(log.Fields{
		"game_id": gameID,
		"column":  d.Column,
		"tier":    rec.Tier,
	}).Debug("move selected")
}

func (s *Server) handleGame(c *gin.Context) {
	found := s.manager.View(c.Param("id"), func(g *game.GameState) {
		c.JSON(http.StatusOK, gin.H{
			"gameId": g.ID,
			"board":  game.Snapshot(g.Grid),
			"field":  g.Grid.String(),
			"turn":   g.Turn,
			"status": g.Status,
			"winner": g.Winner,
		})
	})
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": game.ErrUnknownGame.Error()})
	}
}

func (s *Server) handleUserGame(c *gin.Context) {
	id := s.manager.GameForUser(c.Param("username"), "")
	if id == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": game.ErrUnknownGame.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"gameId": id})
}
