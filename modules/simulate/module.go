// Package simulate provides an in-process world implementation. It backs
// offline runs and the test suite: every capability mutates plain state on
// the World instead of talking to a live client, and suspending actions
// take a deterministic number of ticks.
package simulate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vk/phasebot/internal/catalog"
	"github.com/vk/phasebot/internal/task"
)

// travelTicks is how many polls a simulated map travel takes.
const travelTicks = 2

// World is the simulated environment state. It implements the status
// queries the recovery monitor relies on.
type World struct {
	logger *slog.Logger

	alive    bool
	valid    bool
	mapID    int
	position [2]float64
	template string
	hardMode bool
	party    []string
	dialogs  []int
	resigned bool
}

// NewWorld returns a live, valid world with the player alive.
func NewWorld(logger *slog.Logger) *World {
	if logger == nil {
		logger = slog.Default()
	}
	return &World{logger: logger, alive: true, valid: true}
}

// PlayerAlive implements the status query.
func (w *World) PlayerAlive() bool { return w.alive }

// WorldValid implements the status query.
func (w *World) WorldValid() bool { return w.valid }

// MapID reports the current map.
func (w *World) MapID() int { return w.mapID }

// Template reports the active template.
func (w *World) Template() string { return w.template }

// HardMode reports the difficulty toggle.
func (w *World) HardMode() bool { return w.hardMode }

// Party lists the current party members.
func (w *World) Party() []string { return append([]string(nil), w.party...) }

// Position reports the player's coordinates.
func (w *World) Position() (x, y float64) { return w.position[0], w.position[1] }

// Dialogs lists the dialog ids taken so far.
func (w *World) Dialogs() []int { return append([]int(nil), w.dialogs...) }

// Resigned reports whether the party has resigned.
func (w *World) Resigned() bool { return w.resigned }

// Kill marks the player dead. Tests and the stuck detector use it.
func (w *World) Kill() { w.alive = false }

// Revive marks the player alive again.
func (w *World) Revive() { w.alive = true }

// Invalidate marks the environment invalid, as after a disconnect.
func (w *World) Invalidate() { w.valid = false }

// Restore marks the environment valid.
func (w *World) Restore() { w.valid = true }

// Module registers the simulated capability components.
type Module struct {
	World *World
}

// Register wires every simulated component into the catalog.
func (m *Module) Register(c *catalog.Catalog) {
	w := m.World

	mapComp := c.Component("map")
	mapComp.Register("TravelTo", catalog.Action{
		Start: func(args []any, kwargs map[string]any) task.Task {
			return &travelTask{w: w, target: intArg(args, 0, w.mapID)}
		},
	})
	mapComp.Register("IsExplorable", catalog.Action{
		Run: func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
			return w.valid, nil
		},
	})

	move := c.Component("move")
	move.Register("XY", catalog.Action{
		Start: func(args []any, kwargs map[string]any) task.Task {
			x := floatArg(args, 0, w.position[0])
			y := floatArg(args, 1, w.position[1])
			return task.WithValue(task.Func(func(ctx context.Context) error {
				w.position = [2]float64{x, y}
				w.logger.Debug("Moved.", "x", x, "y", y)
				return nil
			}), func() any { return true })
		},
	})

	wait := c.Component("wait")
	wait.Register("Ticks", catalog.Action{
		Start: func(args []any, kwargs map[string]any) task.Task {
			return &tickWait{remaining: intArg(args, 0, 1)}
		},
	})
	wait.Register("ForMapLoad", catalog.Action{
		Start: func(args []any, kwargs map[string]any) task.Task {
			return task.Until(func() bool { return w.valid }, 0)
		},
	})

	dialogs := c.Component("dialogs")
	dialogs.Register("Take", catalog.Action{
		Run: func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
			id := intArg(args, 0, 0)
			if !w.alive {
				return false, fmt.Errorf("cannot take dialog %d while dead", id)
			}
			w.dialogs = append(w.dialogs, id)
			return true, nil
		},
	})

	party := c.Component("party")
	party.Register("AddHenchman", catalog.Action{
		Run: func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
			name := strArg(args, 0, "")
			if name == "" {
				return false, fmt.Errorf("henchman name is required")
			}
			w.party = append(w.party, name)
			return true, nil
		},
	})
	party.Register("SetHardMode", catalog.Action{
		Run: func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
			w.hardMode = boolArg(args, 0, true)
			return true, nil
		},
	})
	party.Register("Resign", catalog.Action{
		Run: func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
			w.resigned = true
			return true, nil
		},
	})

	templates := c.Component("templates")
	setTemplate := func(name string) catalog.Action {
		return catalog.Action{
			Run: func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
				w.template = name
				w.logger.Debug("Template switched.", "template", name)
				return nil, nil
			},
		}
	}
	templates.Register("Aggressive", setTemplate("aggressive"))
	templates.Register("Pacifist", setTemplate("pacifist"))
	templates.Register("MultiboxAggressive", setTemplate("multibox_aggressive"))
}

// travelTask moves the player to a map over a fixed number of ticks. The
// world is briefly invalid mid-travel, like a real map load.
type travelTask struct {
	w      *World
	target int
	ticks  int
}

func (t *travelTask) Poll(ctx context.Context) (bool, error) {
	t.ticks++
	if t.ticks == 1 {
		t.w.valid = false
	}
	if t.ticks < travelTicks {
		return false, nil
	}
	t.w.mapID = t.target
	t.w.valid = true
	t.w.logger.Debug("Arrived.", "map", t.target)
	return true, nil
}

// Value lets scenario runs treat travel as a boolean-returning action.
func (t *travelTask) Value() any { return true }

// tickWait suspends for a fixed number of polls, independent of wall time.
type tickWait struct {
	remaining int
}

func (t *tickWait) Poll(ctx context.Context) (bool, error) {
	t.remaining--
	return t.remaining <= 0, nil
}
