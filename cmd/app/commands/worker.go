package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/allisson/integration-events/internal/app"
	"github.com/allisson/integration-events/internal/config"
)

// RunWorker starts the background processing side of the service: the inbound
// event consumer, the outbox dispatcher with its retention sweep, and the
// periodic subscriber policy sync. Blocks until receiving SIGINT/SIGTERM or
// until one of the loops fails.
func RunWorker(ctx context.Context, version string) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)

	logger := container.Logger()
	logger.Info("starting worker", slog.String("version", version))

	defer closeContainer(container, logger)

	consumer, err := container.Consumer()
	if err != nil {
		return fmt.Errorf("failed to initialize consumer: %w", err)
	}

	dispatcher, err := container.Dispatcher()
	if err != nil {
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}

	subscriberSync, err := container.SubscriberSync()
	if err != nil {
		return fmt.Errorf("failed to initialize subscriber sync: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return consumer.Run(groupCtx)
	})
	group.Go(func() error {
		return dispatcher.Start(groupCtx)
	})
	group.Go(func() error {
		return dispatcher.StartRetention(groupCtx)
	})
	group.Go(func() error {
		return subscriberSync.Start(groupCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("worker error: %w", err)
	}

	logger.Info("worker stopped")
	return nil
}
