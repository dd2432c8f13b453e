package commands

import (
	"context"
	"fmt"

	"github.com/allisson/integration-events/internal/app"
	"github.com/allisson/integration-events/internal/config"
)

// RunSyncSubscribers performs a single subscriber filter policy reconciliation
// pass and exits. Useful for bootstrapping policies before the worker runs.
func RunSyncSubscribers(ctx context.Context) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()

	defer closeContainer(container, logger)

	subscriberSync, err := container.SubscriberSync()
	if err != nil {
		return fmt.Errorf("failed to initialize subscriber sync: %w", err)
	}

	if err := subscriberSync.Sync(ctx); err != nil {
		return fmt.Errorf("subscriber sync failed: %w", err)
	}

	logger.Info("subscriber sync completed")
	return nil
}
