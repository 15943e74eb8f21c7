package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown stops the loops, resolves resting maker orders and releases
// every component.
func (a *App) Shutdown() {
	a.logger.Info("application-shutting-down")
	a.healthChecker.SetReady(false)

	if a.opts.Mode == ModeLiquidity {
		a.drainMakerOrders()
	}

	a.cancel()

	if a.executor != nil {
		a.executor.Wait()
	}
	if a.tracker != nil {
		if err := a.tracker.Close(); err != nil {
			a.logger.Error("tracker-close-error", zap.Error(err))
		}
	}
	if a.realtime != nil {
		if err := a.realtime.Close(); err != nil {
			a.logger.Error("realtime-close-error", zap.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("storage-close-error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	a.wg.Wait()
	a.logger.Info("application-shutdown-complete")
}

// drainMakerOrders cancels active quotes and keeps the tracker polling
// until every order resolves or the wait timeout elapses. Runs on a
// fresh context so a cancelled run context does not cut the cleanup
// short.
func (a *App) drainMakerOrders() {
	drainCtx, cancel := context.WithTimeout(context.Background(), a.cfg.LiquidityWaitTimeout)
	defer cancel()

	a.provider.CancelAll(drainCtx)
	a.provider.WaitForOrders(drainCtx, a.cfg.LiquidityWaitTimeout)
}
