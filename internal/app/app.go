package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/phasebot/internal/catalog"
	"github.com/vk/phasebot/internal/ctxlog"
	"github.com/vk/phasebot/internal/events"
	"github.com/vk/phasebot/internal/orchestrator"
	"github.com/vk/phasebot/internal/profile"
	"github.com/vk/phasebot/internal/scenario"
	"github.com/vk/phasebot/internal/settings"
	"github.com/vk/phasebot/modules/clientbridge"
	"github.com/vk/phasebot/modules/simulate"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config

	profile  *profile.Profile
	catalog  *catalog.Catalog
	registry *scenario.Registry
	settings *settings.Store
	bus      *events.Bus
	world    *simulate.World
	bridge   *clientbridge.Bridge
	orch     *orchestrator.Orchestrator
}

// NewApp is the constructor for the main application. It loads the profile,
// registers every capability module, validates the catalog, and compiles the
// bot program. Startup failures are fatal and panic; the entrypoint recovers
// them into a clean exit message.
func NewApp(outW io.Writer, config *Config, modules ...catalog.Module) *App {
	logger := newLogger(config.LogLevel, config.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	prof, err := profile.Load(config.ProfilePath)
	if err != nil {
		panic(fmt.Errorf("failed to load bot profile: %w", err))
	}
	logger.Debug("Bot profile loaded.", "bot", prof.Name, "phases", len(prof.Phases))

	world := simulate.NewWorld(logger)
	cat := catalog.New()
	if len(modules) == 0 {
		modules = coreModules(world)
	}
	for _, mod := range modules {
		mod.Register(cat)
	}
	logger.Debug("All capability modules registered.", "components", cat.ComponentNames())

	if err := cat.Validate(); err != nil {
		// A mismatch between components is a programmer error.
		panic(err)
	}
	logger.Debug("Catalog validation passed.")

	a := &App{
		outW:     outW,
		logger:   logger,
		config:   config,
		profile:  prof,
		catalog:  cat,
		registry: scenario.NewRegistry(config.ScenariosPath),
		settings: settings.New(prof.Settings),
		bus:      events.NewBus(),
		world:    world,
	}

	if config.CheckOnly {
		// Check mode validates without building the program; the catalog
		// and registry above are all it needs.
		return a
	}

	var status orchestrator.Status = world
	if config.BridgeURL != "" {
		bridge, err := clientbridge.Dial(ctx, clientbridge.Options{URL: config.BridgeURL})
		if err != nil {
			panic(fmt.Errorf("failed to connect client bridge: %w", err))
		}
		a.bridge = bridge
		status = bridge
	}

	opts, err := profile.Compile(ctx, prof, a.settings)
	if err != nil {
		panic(fmt.Errorf("failed to compile bot profile: %w", err))
	}

	orch, err := orchestrator.New(ctx, opts, orchestrator.Deps{
		Catalog:  cat,
		Registry: a.registry,
		Settings: a.settings,
		Events:   a.bus,
		Status:   status,
	})
	if err != nil {
		panic(fmt.Errorf("failed to build bot program: %w", err))
	}
	a.orch = orch

	return a
}

// Orchestrator returns the compiled orchestrator. Primarily for testing.
func (a *App) Orchestrator() *orchestrator.Orchestrator { return a.orch }

// Catalog returns the application's capability catalog. Primarily for testing.
func (a *App) Catalog() *catalog.Catalog { return a.catalog }

// Settings returns the live settings store. Primarily for testing.
func (a *App) Settings() *settings.Store { return a.settings }

// World returns the simulated world. Primarily for testing.
func (a *App) World() *simulate.World { return a.world }

// Events returns the domain event bus. Primarily for testing.
func (a *App) Events() *events.Bus { return a.bus }
