package app

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/phasebot/internal/ctxlog"
)

// Run executes the main application lifecycle: check mode validates and
// returns; otherwise the driver loop ticks the bot program at the configured
// interval until it finishes or the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.CheckOnly {
		return a.Check(ctx)
	}

	defer func() {
		if a.bridge != nil {
			a.bridge.Close()
		}
	}()

	prog := a.orch.Program()
	a.logger.Info("🚀 Starting bot program.",
		"bot", a.profile.Name, "steps", prog.Len(), "tick", a.config.TickInterval.String())

	ticker := time.NewTicker(a.config.TickInterval)
	defer ticker.Stop()

	for !prog.Done() {
		select {
		case <-ctx.Done():
			a.logger.Info("Run cancelled.", "pc", prog.PC())
			return ctx.Err()
		case <-ticker.C:
		}

		// Boundary events first, so recovery reacts before this tick's step.
		if a.bridge != nil {
			for _, e := range a.bridge.Drain() {
				a.bus.Emit(ctx, e)
			}
		}

		if err := prog.Tick(ctx); err != nil {
			return fmt.Errorf("bot program failed: %w", err)
		}
	}

	a.logger.Info("🏁 Bot program finished.")
	return nil
}
