package app

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Run starts the background components, drives the selected loop and
// blocks until shutdown. A balance fail-stop surfaces as a non-nil
// error.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("mode", string(a.opts.Mode)),
		zap.Int("matches", len(a.matches)),
		zap.Bool("once", a.opts.Once))

	a.startBackground()
	a.healthChecker.SetReady(true)

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort))

	switch a.opts.Mode {
	case ModePro:
		a.runProLoop()
	case ModeLiquidity:
		a.runLiquidityLoop()
	}

	a.Shutdown()

	select {
	case err := <-a.fatal:
		a.logger.Error("application-fail-stop", zap.Error(err))
		return err
	default:
		return nil
	}
}

func (a *App) startBackground() {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.httpServer.Start(); err != nil {
			a.logger.Error("http-server-error", zap.Error(err))
		}
	}()

	if a.realtime != nil {
		a.realtime.Start(a.ctx)
	}
	if a.breaker != nil {
		a.breaker.Start(a.ctx)
	}
	if a.walletMonitor != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			_ = a.walletMonitor.Run(a.ctx)
		}()
	}

	a.wg.Add(1)
	go a.watchSignals()
}

func (a *App) watchSignals() {
	defer a.wg.Done()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
		a.cancel()
	case <-a.ctx.Done():
	}
}

// runProLoop scans for taker opportunities every ProLoopInterval and
// waits for in-flight executions before the next cycle.
func (a *App) runProLoop() {
	for {
		a.scanTakerCycle()
		a.executor.Wait()

		if a.opts.Once {
			return
		}

		select {
		case <-a.ctx.Done():
			return
		case <-time.After(a.cfg.ProLoopInterval):
		}
	}
}

func (a *App) scanTakerCycle() {
	start := time.Now()
	cycle := a.fetcher.FetchCycle(a.ctx, a.matches)

	detected := 0
	executed := 0
	for i := range a.matches {
		if a.ctx.Err() != nil {
			return
		}
		match := &a.matches[i]

		opps := a.detector.TakerOpportunities(match, cycle[match.YesTokenA], cycle[match.YesTokenB])
		detected += len(opps)

		for _, opp := range opps {
			if err := a.store.StoreOpportunity(a.ctx, opp); err != nil {
				a.logger.Error("store-opportunity-failed",
					zap.String("opportunity-id", opp.ID),
					zap.Error(err))
			}

			if a.breaker != nil && !a.breaker.IsEnabled() {
				a.logger.Warn("execution-halted-by-breaker",
					zap.String("opportunity-id", opp.ID))
				continue
			}
			if a.executor.Execute(a.ctx, opp) {
				executed++
			}
		}
	}

	a.logger.Info("taker-cycle-complete",
		zap.Int("matches", len(a.matches)),
		zap.Int("detected", detected),
		zap.Int("executed", executed),
		zap.Duration("duration", time.Since(start)))
}

// runLiquidityLoop reconciles maker quotes every LiquidityLoopInterval
// while the tracker polls fills in the background.
func (a *App) runLiquidityLoop() {
	a.tracker.Start(a.ctx)

	for {
		if a.breaker != nil && !a.breaker.IsEnabled() {
			a.logger.Warn("maker-cycle-halted-by-breaker")
		} else {
			a.provider.RunCycle(a.ctx)
		}
		a.stats.LogSummary(a.logger)

		if a.opts.Once {
			return
		}

		select {
		case <-a.ctx.Done():
			return
		case <-time.After(a.cfg.LiquidityLoopInterval):
		}
	}
}
