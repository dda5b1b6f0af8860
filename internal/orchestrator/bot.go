package orchestrator

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/vk/phasebot/internal/catalog"
	"github.com/vk/phasebot/internal/events"
	"github.com/vk/phasebot/internal/program"
	"github.com/vk/phasebot/internal/settings"
	"github.com/vk/phasebot/internal/task"
)

// Status answers the liveness and environment-validity queries used by the
// recovery monitor. The client bridge implements it in live runs; the
// simulated world implements it everywhere else.
type Status interface {
	PlayerAlive() bool
	WorldValid() bool
}

// Bot is the runtime surface handed to phase bodies and custom recovery
// handlers: the program being built, the capability catalog, the settings
// store, and the scenario facade.
type Bot struct {
	name      string
	prog      *program.Program
	catalog   *catalog.Catalog
	settings  *settings.Store
	events    *events.Bus
	status    Status
	scenarios *Scenarios
}

// Name returns the bot's display name.
func (b *Bot) Name() string { return b.name }

// Program exposes the underlying state program.
func (b *Bot) Program() *program.Program { return b.prog }

// Catalog exposes the capability catalog.
func (b *Bot) Catalog() *catalog.Catalog { return b.catalog }

// Settings exposes the mutable settings store.
func (b *Bot) Settings() *settings.Store { return b.settings }

// Events exposes the domain event bus.
func (b *Bot) Events() *events.Bus { return b.events }

// Status exposes the liveness/validity queries.
func (b *Bot) Status() Status { return b.status }

// Scenarios exposes the scenario facade.
func (b *Bot) Scenarios() *Scenarios { return b.scenarios }

// AddStep appends a suspending step to the program.
func (b *Bot) AddStep(name string, factory program.Factory) {
	b.prog.AddStep(name, factory)
}

// AddFunc appends a one-shot step to the program.
func (b *Bot) AddFunc(name string, fn func(ctx context.Context) error) {
	b.prog.AddFunc(name, fn)
}

// AddAction appends a step invoking a catalog action by name. The name is
// resolved immediately, so a body referencing a missing capability fails at
// build time rather than mid-run.
func (b *Bot) AddAction(name string, args []any, kwargs map[string]any) {
	iv, err := b.catalog.Resolve(name)
	if err != nil {
		panic(fmt.Sprintf("phase body for bot %q: %v", b.name, err))
	}
	stepName := fmt.Sprintf("%s.%s", iv.Component, iv.Method)
	if iv.Suspending() {
		b.prog.AddStep(stepName, func() task.Task { return iv.Task(args, kwargs) })
		return
	}
	b.prog.AddFunc(stepName, func(ctx context.Context) error {
		_, err := iv.Call(ctx, args, kwargs)
		return err
	})
}

var unsafeNameChars = regexp.MustCompile(`[<>:"/\\|?*]+`)

// sanitizeName returns a filesystem-safe bot name, used wherever the name
// feeds paths or task identifiers.
func sanitizeName(name string) string {
	safe := strings.Trim(unsafeNameChars.ReplaceAllString(name, "_"), " .")
	if safe == "" {
		return "Bot"
	}
	return safe
}
