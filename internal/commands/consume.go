package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/farellandr/lanzalife/config"
	"github.com/farellandr/lanzalife/internal/queue"
)

// RunConsume logs schedule notifications until interrupted.
func RunConsume(_ []string, logger zerolog.Logger) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("queue", queue.ScheduledQueueName).Msg("Consuming schedule notifications")
	err = queue.Consume(ctx, cfg.RabbitMQURL, logger, queue.LogHandler(logger))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
