package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kappines/FourInARow/internal/analytics"
	"github.com/kappines/FourInARow/internal/config"
	"github.com/kappines/FourInARow/internal/game"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

func main() {
	config.LoadDotEnv()
	log.SetLevel(config.LogLevel(config.GetEnv("LOG_LEVEL", "info")))

	brokers := strings.Split(config.GetEnv("KAFKA_BROKERS", "localhost:9092"), ",")
	topic := config.GetEnv("KAFKA_TOPIC", "game-events")
	every := config.GetEnvAsDuration("ANALYTICS_SUMMARY_EVERY", 30*time.Second)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: "analytics-consumer",
	})
	defer reader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{"brokers": brokers, "topic": topic}).Info("analytics consumer listening")

	metrics := analytics.NewMetrics()
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				metrics.Summary(game.BotName).Log()
			}
		}
	}()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				metrics.Summary(game.BotName).Log()
				return
			}
			log.WithError(err).Fatal("read error")
		}
		e, err := analytics.Decode(msg.Value)
		if err != nil {
			log.WithError(err).Warn("failed to unmarshal event")
			continue
		}
		metrics.Record(e)
		log.WithFields(log.Fields{
			"event":   e.Event,
			"game_id": e.Payload["gameId"],
			"column":  e.Payload["column"],
			"tier":    e.Payload["tier"],
		}).Debug("event consumed")
	}
}
