package server

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kappines/FourInARow/internal/analytics"
	"github.com/kappines/FourInARow/internal/cache"
	"github.com/kappines/FourInARow/internal/game"
	"github.com/kappines/FourInARow/internal/grid"
	"github.com/kappines/FourInARow/internal/storage"
	log "github.com/sirupsen/logrus"
)

type Server struct {
	router       *gin.Engine
	manager      *game.Manager
	store        storage.Store
	analytics    *analytics.Producer
	cache        cache.DecisionCache
	inMemoryWins map[string]int
	winMu        sync.Mutex
	connections  map[string]*wsClient
	connMu       sync.RWMutex
	botDelay     time.Duration
}

type Config struct {
	BotMoveDelay    time.Duration
	ReconnectWindow time.Duration
	Columns         int
	Rows            int
	Store           storage.Store
	Analytics       *analytics.Producer
	Cache           cache.DecisionCache
}

func New(cfg Config) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	s := &Server{
		router:       router,
		store:        cfg.Store,
		analytics:    cfg.Analytics,
		cache:        cfg.Cache,
		inMemoryWins: make(map[string]int),
		connections:  make(map[string]*wsClient),
		botDelay:     cfg.BotMoveDelay,
	}
	s.manager = game.NewManager(cfg.Columns, cfg.Rows, cfg.ReconnectWindow, s.onFinish)

	router.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.GET("/leaderboard", s.handleLeaderboard)
	router.POST("/api/move", s.handleMove)
	router.GET("/api/games/:id", s.handleGame)
	router.GET("/api/users/:username/game", s.handleUserGame)
	router.GET("/ws", s.handleWS)

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(ctx context.Context, addr string) error {
	go s.sweeper(ctx)
	srv := &http.Server{Addr: addr, Handler: s.router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) sweeper(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.manager.SweepDisconnects()
		}
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
		}).Debug("request")
	}
}

func (s *Server) handleLeaderboard(c *gin.Context) {
	ctx := c.Request.Context()
	if s.store != nil {
		// one extra row in case the engine is among them
		rows, err := s.store.GetLeaderboard(ctx, leaderboardSize+1)
		if err == nil {
			c.JSON(http.StatusOK, humanRows(rows))
			return
		}
		log.WithError(err).Warn("leaderboard db error")
	}
	// fallback in-memory
	res := []storage.LeaderboardRow{}
	s.winMu.Lock()
	for k, v := range s.inMemoryWins {
		res = append(res, storage.LeaderboardRow{Username: k, Wins: v})
	}
	s.winMu.Unlock()
	sort.Slice(res, func(i, j int) bool {
		if res[i].Wins != res[j].Wins {
			return res[i].Wins > res[j].Wins
		}
		return res[i].Username < res[j].Username
	})
	c.JSON(http.StatusOK, humanRows(res))
}

const leaderboardSize = 10

// humanRows drops the engine and trims to leaderboardSize. The leaderboard
// ranks people only.
func humanRows(rows []storage.LeaderboardRow) []storage.LeaderboardRow {
	res := []storage.LeaderboardRow{}
	for _, row := range rows {
		if row.Username == game.BotName {
			continue
		}
		res = append(res, row)
		if len(res) == leaderboardSize {
			break
		}
	}
	return res
}

func (s *Server) onFinish(g *game.GameState) {
	if g.Winner != "" && g.Winner != game.BotName {
		s.winMu.Lock()
		s.inMemoryWins[g.Winner]++
		s.winMu.Unlock()
	}
	moves := 0
	for c := 0; c < g.Grid.Columns(); c++ {
		for r := 0; r < g.Grid.Rows(); r++ {
			if g.Grid.At(c, r) != grid.Empty {
				moves++
			}
		}
	}
	if s.store != nil {
		_ = s.store.SaveGame(context.Background(), storage.CompletedGame{
			ID:        g.ID,
			Winner:    g.Winner,
			Status:    g.Status,
			Columns:   g.Grid.Columns(),
			Rows:      g.Grid.Rows(),
			Moves:     moves,
			StartedAt: g.StartedAt,
			EndedAt:   g.EndedAt,
		})
	}
	players := make([]string, 0, len(g.Players))
	for uname := range g.Players {
		players = append(players, uname)
	}
	s.analytics.Publish(context.Background(), analytics.EventGameFinished, g.ID, map[string]any{
		"gameId":    g.ID,
		"winner":    g.Winner,
		"status":    g.Status,
		"players":   players,
		"moves":     moves,
		"duration":  g.EndedAt.Sub(g.StartedAt).Seconds(),
		"startedAt": g.StartedAt,
		"endedAt":   g.EndedAt,
	})
	log.WithFields(log.Fields{"game_id": g.ID, "winner": g.Winner, "moves": moves}).Info("game finished")
}
