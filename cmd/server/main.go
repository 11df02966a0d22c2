package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kappines/FourInARow/internal/analytics"
	"github.com/kappines/FourInARow/internal/cache"
	"github.com/kappines/FourInARow/internal/config"
	"github.com/kappines/FourInARow/internal/server"
	"github.com/kappines/FourInARow/internal/storage"
	log "github.com/sirupsen/logrus"
)

func main() {
	config.LoadDotEnv()
	cfg := config.LoadConfig()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stdout)
	log.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store storage.Store
	if cfg.PostgresURL != "" {
		pg, err := storage.NewPostgresStore(ctx, cfg.PostgresURL)
		if err != nil {
			log.WithError(err).Warn("postgres disabled")
		} else {
			defer pg.Close()
			if err := pg.EnsureTables(ctx); err != nil {
				log.WithError(err).Warn("postgres ensure tables failed")
			}
			store = pg
		}
	}

	var decisions cache.DecisionCache
	if cfg.RedisURL != "" {
		client, err := cache.Connect(ctx, cfg.RedisURL, cfg.RedisPassword)
		if err != nil {
			log.WithError(err).Warn("redis disabled")
		} else {
			rc := cache.NewRedisCache(client, cfg.DecisionCacheTTL)
			defer rc.Close()
			decisions = rc
		}
	}

	producer := analytics.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()

	srv := server.New(server.Config{
		BotMoveDelay:    cfg.BotMoveDelay,
		ReconnectWindow: cfg.ReconnectWindow,
		Columns:         cfg.GridColumns,
		Rows:            cfg.GridRows,
		Store:           store,
		Analytics:       producer,
		Cache:           decisions,
	})

	log.WithFields(log.Fields{
		"addr":     cfg.Addr,
		"postgres": store != nil,
		"redis":    decisions != nil,
		"kafka":    producer != nil,
	}).Info("server listening")
	if err := srv.Run(ctx, cfg.Addr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
