// Package orchestrator compiles an ordered list of Phases into the main
// state program, wires loop-back and event-driven recovery, and attaches
// named background tasks. It is the ModularBot equivalent: all the
// boilerplate every bot repeats, done once.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/vk/phasebot/internal/catalog"
	"github.com/vk/phasebot/internal/ctxlog"
	"github.com/vk/phasebot/internal/events"
	"github.com/vk/phasebot/internal/program"
	"github.com/vk/phasebot/internal/scenario"
	"github.com/vk/phasebot/internal/settings"
)

// ErrNoPhases is returned when a bot is constructed without any phases.
var ErrNoPhases = errors.New("bot needs at least one phase")

// Options configures an Orchestrator.
type Options struct {
	// Name is the bot's display name.
	Name string

	// Phases is the ordered phase list compiled into the program.
	Phases []*Phase

	// Loop appends a jump back to LoopTo (default: the first phase) after
	// the last phase completes.
	Loop   bool
	LoopTo string

	// Template is the initial template, applied once at build time.
	// Defaults to DefaultTemplate.
	Template string

	// Recovery targets for the domain events. Zero targets leave the
	// event unwired.
	OnPartyWipe RecoveryTarget
	OnDeath     RecoveryTarget
	OnStuck     RecoveryTarget

	// Background tasks attached at program start, keyed by name.
	Background map[string]program.Factory
}

// Deps are the collaborators an Orchestrator is built against.
type Deps struct {
	Catalog  *catalog.Catalog
	Registry *scenario.Registry
	Settings *settings.Store
	Events   *events.Bus
	Status   Status
}

// Orchestrator owns the compiled program and its recovery coordinator.
type Orchestrator struct {
	name     string
	opts     Options
	bot      *Bot
	prog     *program.Program
	headers  map[string]string
	recovery *RecoveryCoordinator
}

// New builds the whole program up front: headers and bodies for every
// phase, guard steps for conditional ones, the loop jump, background tasks
// and recovery wiring. Structural problems (unknown template, unknown
// capability) abort construction; an unresolvable loop target only logs.
func New(ctx context.Context, opts Options, deps Deps) (*Orchestrator, error) {
	if len(opts.Phases) == 0 {
		return nil, ErrNoPhases
	}
	if opts.Template == "" {
		opts.Template = DefaultTemplate
	}

	logger := ctxlog.FromContext(ctx).With("bot", sanitizeName(opts.Name))
	prog := program.New()
	scenarios := newScenarios(prog, deps.Registry, scenario.NewExecutor(deps.Catalog), logger)

	bot := &Bot{
		name:      opts.Name,
		prog:      prog,
		catalog:   deps.Catalog,
		settings:  deps.Settings,
		events:    deps.Events,
		status:    deps.Status,
		scenarios: scenarios,
	}

	o := &Orchestrator{
		name:    opts.Name,
		opts:    opts,
		bot:     bot,
		prog:    prog,
		headers: make(map[string]string),
	}
	o.recovery = newRecoveryCoordinator(prog, deps.Status, bot, o.PhaseHeader)

	if err := o.build(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

// Bot returns the runtime surface, mainly for custom recovery handlers and
// tests.
func (o *Orchestrator) Bot() *Bot { return o.bot }

// Program returns the compiled state program for the driver to tick.
func (o *Orchestrator) Program() *program.Program { return o.prog }

// Recovery returns the recovery coordinator.
func (o *Orchestrator) Recovery() *RecoveryCoordinator { return o.recovery }

// PhaseHeader resolves a phase name to its program header name.
func (o *Orchestrator) PhaseHeader(phase string) (string, bool) {
	h, ok := o.headers[phase]
	return h, ok
}

func (o *Orchestrator) build(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	// 1. Initial template.
	if err := applyTemplate(ctx, o.bot.catalog, o.opts.Template); err != nil {
		return err
	}

	// 2. Event-driven recovery.
	o.wireRecovery(events.PartyWipe, o.opts.OnPartyWipe, "party wipe")
	o.wireRecovery(events.PlayerDeath, o.opts.OnDeath, "player death")
	o.wireRecovery(events.PlayerStuck, o.opts.OnStuck, "player stuck")

	// 3. Phases, in order.
	for _, phase := range o.opts.Phases {
		if err := o.registerPhase(ctx, phase); err != nil {
			return err
		}
	}

	// 4. Loop-back.
	if o.opts.Loop {
		target := o.opts.LoopTo
		if target == "" {
			target = o.opts.Phases[0].Name
		}
		if header, ok := o.headers[target]; ok {
			o.prog.AddFunc("Loop to "+target, func(ctx context.Context) error {
				ctxlog.FromContext(ctx).Info("Looping.", "target", target)
				return o.prog.JumpToHeader(header)
			})
		} else {
			logger.Warn("Loop target phase not found, looping disabled.",
				"target", target, "phases", o.phaseNames())
		}
	}

	// 5. Background tasks, attached from program start. Sorted for a
	// deterministic attach order; tasks have no ordering guarantee anyway.
	names := make([]string, 0, len(o.opts.Background))
	for name := range o.opts.Background {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		o.prog.AddManagedTask(name, o.opts.Background[name])
	}

	logger.Info("Bot program built.",
		"phases", len(o.opts.Phases), "steps", o.prog.Len(), "background", len(names))
	return nil
}

func (o *Orchestrator) wireRecovery(event events.Event, target RecoveryTarget, reason string) {
	if target.IsZero() {
		return
	}
	o.bot.events.On(event, func(ctx context.Context) {
		o.recovery.Trigger(ctx, target, reason)
	})
}

// registerPhase appends one phase to the program: header first (with its
// name predicted before the shared counter moves), then the optional
// template switch, then the body or its guard.
func (o *Orchestrator) registerPhase(ctx context.Context, phase *Phase) error {
	if _, exists := o.headers[phase.Name]; exists {
		return fmt.Errorf("duplicate phase name %q", phase.Name)
	}

	predicted := o.prog.PeekHeaderName(phase.Name)
	o.prog.AddHeader(phase.Name)
	o.headers[phase.Name] = predicted

	if phase.Template != "" {
		// Validate the name at build time; the switch itself runs when the
		// program reaches this step.
		if _, err := resolveTemplate(o.bot.catalog, phase.Template); err != nil {
			return fmt.Errorf("phase %q: %w", phase.Name, err)
		}
		tmpl := phase.Template
		o.prog.AddFunc("Set "+tmpl, func(ctx context.Context) error {
			return applyTemplate(ctx, o.bot.catalog, tmpl)
		})
	}

	if phase.Condition != nil {
		// Defer registration to runtime: the guard step evaluates the
		// predicate and, only if true, lets the body expand the program at
		// this position. Conditional phases belong after unconditional
		// ones, since expansion appends past the highest index.
		o.prog.AddFunc("[Check] "+phase.Name, func(ctx context.Context) error {
			if phase.Condition() {
				ctxlog.FromContext(ctx).Info("Conditional phase enabled.", "phase", phase.Name)
				phase.Body(o.bot)
			} else {
				ctxlog.FromContext(ctx).Info("Conditional phase skipped.", "phase", phase.Name)
			}
			return nil
		})
		return nil
	}

	phase.Body(o.bot)
	return nil
}

func (o *Orchestrator) phaseNames() []string {
	names := make([]string, 0, len(o.opts.Phases))
	for _, p := range o.opts.Phases {
		names = append(names, p.Name)
	}
	return names
}
