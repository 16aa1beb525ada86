package app

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/microarena/duelcore/pkg/types"
	"go.uber.org/zap"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("store-mode", a.cfg.StoreMode),
		zap.String("events-mode", a.cfg.EventsMode),
		zap.Bool("bets-allow-waiting", a.cfg.BetsAllowWaiting),
		zap.String("log-level", a.cfg.LogLevel))

	a.wg.Add(1)
	go a.runHTTPServer()

	if a.cfg.DuelStartTimeout > 0 {
		a.wg.Add(1)
		go a.runStartWatchdog()
	}

	a.healthChecker.SetReady(true)

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort))

	return a.waitForShutdown()
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()

	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

// runStartWatchdog cancels waiting duels that were never started within the
// configured window. It is an ordinary caller issuing Cancel, not a second
// write path into the engine.
func (a *App) runStartWatchdog() {
	defer a.wg.Done()

	interval := a.cfg.DuelStartTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			a.cancelStaleDuels()
		}
	}
}

func (a *App) cancelStaleDuels() {
	waiting, err := a.registry.ListByStatus(a.ctx, types.DuelStatusWaiting, 0)
	if err != nil {
		a.logger.Warn("watchdog-list-failed", zap.Error(err))
		return
	}

	cutoff := time.Now().Add(-a.cfg.DuelStartTimeout)
	for _, d := range waiting {
		if d.CreatedAt.After(cutoff) {
			continue
		}
		err = a.registry.Cancel(a.ctx, d.ID, "start-timeout")
		if err != nil {
			// A concurrent start or cancel may have won; that is fine.
			a.logger.Debug("watchdog-cancel-skipped",
				zap.String("duel-id", d.ID), zap.Error(err))
		}
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
