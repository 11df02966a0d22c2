package main

import (
	"os"

	"github.com/kappines/FourInARow/internal/config"
	"github.com/kappines/FourInARow/internal/protocol"
	log "github.com/sirupsen/logrus"
)

// The engine talks on stdin/stdout, so every diagnostic goes to stderr.
func main() {
	logger := log.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(config.LogLevel(config.GetEnv("LOG_LEVEL", "info")))

	if err := protocol.NewParser(logger).Run(os.Stdin, os.Stdout); err != nil {
		logger.WithError(err).Fatal("protocol loop stopped")
	}
}
