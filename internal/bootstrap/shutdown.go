package bootstrap

import (
	"context"

	"go-threatguard/internal/logging"
)

func Shutdown(ctx context.Context, c *Components) error {
	logging.Info("Starting graceful shutdown...")

	logging.Info("Closing gateway session...")
	if err := c.Session.Close(); err != nil {
		logging.Warn("Gateway close failed: %v", err)
	}

	logging.Info("Draining event pipeline...")
	c.Pipeline.Close()
	drained := make(chan struct{})
	go func() {
		c.Pipeline.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		logging.Warn("Pipeline drain interrupted: %v", ctx.Err())
	}

	if c.cancel != nil {
		c.cancel()
		<-c.done
	}

	// Pending auto-unlocks resume from the store on next start.
	c.Lockdown.Close()

	if c.Exporter != nil {
		if err := c.Exporter.Shutdown(ctx); err != nil {
			logging.Warn("Metrics exporter shutdown failed: %v", err)
		}
	}

	if c.ForensicLog != nil {
		logging.Info("Closing forensic logger...")
		c.ForensicLog.Close()
	}

	if err := c.Store.Close(); err != nil {
		logging.Error("Store close failed: %v", err)
	}

	logging.Info("Graceful shutdown complete")
	return nil
}
