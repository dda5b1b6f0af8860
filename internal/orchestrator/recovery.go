package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/vk/phasebot/internal/ctxlog"
	"github.com/vk/phasebot/internal/program"
	"github.com/vk/phasebot/internal/task"
)

// RecoveryHandler is a custom recovery target. The coordinator hands it the
// bot and does nothing further; the handler owns its own pause/resume.
type RecoveryHandler func(ctx context.Context, b *Bot)

// RecoveryTarget is either a phase name or a custom handler. The zero value
// means no recovery is wired for that event.
type RecoveryTarget struct {
	phase   string
	handler RecoveryHandler
}

// PhaseTarget makes a target that jumps to the named phase after recovery.
func PhaseTarget(name string) RecoveryTarget { return RecoveryTarget{phase: name} }

// HandlerTarget makes a target that delegates to custom recovery logic.
func HandlerTarget(h RecoveryHandler) RecoveryTarget { return RecoveryTarget{handler: h} }

// IsZero reports whether no target was configured.
func (t RecoveryTarget) IsZero() bool { return t.phase == "" && t.handler == nil }

type recoveryState int

const (
	recoveryArmed recoveryState = iota
	recoveryRecovering
)

// RecoveryCoordinator pauses the program on a domain event, monitors for
// the actor to come back, then jumps to the recorded phase header and
// resumes. The program is never left paused: resume is the monitor's
// unconditional last act, whatever happened to the jump.
type RecoveryCoordinator struct {
	prog      *program.Program
	status    Status
	bot       *Bot
	headerFor func(phase string) (string, bool)
	state     recoveryState

	// Poll cadence and settle delays, overridable in tests.
	PollInterval time.Duration
	SettleDelay  time.Duration
	GraceDelay   time.Duration
}

func newRecoveryCoordinator(prog *program.Program, status Status, bot *Bot, headerFor func(string) (string, bool)) *RecoveryCoordinator {
	return &RecoveryCoordinator{
		prog:         prog,
		status:       status,
		bot:          bot,
		headerFor:    headerFor,
		PollInterval: time.Second,
		SettleDelay:  time.Second,
		GraceDelay:   3 * time.Second,
	}
}

// Trigger handles one domain event against its configured target.
func (rc *RecoveryCoordinator) Trigger(ctx context.Context, target RecoveryTarget, reason string) {
	logger := ctxlog.FromContext(ctx).With("reason", reason)

	if target.handler != nil {
		// Custom handler owns the whole recovery, including pause/resume.
		logger.Info("Dispatching recovery to custom handler.")
		target.handler(ctx, rc.bot)
		return
	}

	if rc.state == recoveryRecovering {
		logger.Debug("Recovery already in progress, ignoring event.")
		return
	}

	header, ok := rc.headerFor(target.phase)
	if !ok {
		logger.Warn("Recovery target phase not found, recovery skipped.",
			"target", target.phase, "headers", rc.prog.HeaderNames())
		return
	}

	logger.Info("Recovery started.", "target", target.phase, "header", header)
	rc.state = recoveryRecovering
	rc.prog.Pause()

	taskName := "recovery_" + strings.ReplaceAll(reason, " ", "_")
	rc.prog.AddManagedTask(taskName, func() task.Task {
		return &recoveryMonitor{rc: rc, header: header, reason: reason}
	})
}

// recoveryMonitor polls liveness until the actor is alive again or the
// environment reports an invalid state, waits a settle interval, then
// jumps and resumes.
type recoveryMonitor struct {
	rc     *RecoveryCoordinator
	header string
	reason string

	nextPoll   time.Time
	concludeAt time.Time
	concluded  bool
}

func (m *recoveryMonitor) Poll(ctx context.Context) (bool, error) {
	logger := ctxlog.FromContext(ctx).With("reason", m.reason)
	now := time.Now()

	if !m.concluded {
		if now.Before(m.nextPoll) {
			return false, nil
		}
		m.nextPoll = now.Add(m.rc.PollInterval)

		switch {
		case m.rc.status.PlayerAlive():
			logger.Info("Actor recovered, settling before jump.", "target", m.header)
			m.concluded = true
			m.concludeAt = now.Add(m.rc.SettleDelay)
		case !m.rc.status.WorldValid():
			logger.Info("Environment reset, waiting grace interval before restart.")
			m.concluded = true
			m.concludeAt = now.Add(m.rc.GraceDelay)
		}
		return false, nil
	}

	if now.Before(m.concludeAt) {
		return false, nil
	}

	// Resume must never be skipped, whatever the jump does.
	defer m.rc.prog.Resume()
	m.rc.state = recoveryArmed

	if err := m.rc.prog.JumpToHeader(m.header); err != nil {
		logger.Warn("Recovery header no longer resolves, restarting from step 0.",
			"header", m.header, "error", err)
		m.rc.prog.JumpToIndex(0)
	}
	logger.Info("Recovery finished, program resumed.")
	return true, nil
}
