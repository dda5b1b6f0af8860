// Package program implements the main state program: an append-only ordered
// sequence of named steps advanced by a single-threaded driver, with named
// header checkpoints, a jumpable program counter, pause/resume, and managed
// background tasks ticked alongside the main program.
package program

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/phasebot/internal/ctxlog"
	"github.com/vk/phasebot/internal/task"
)

// ErrUnknownHeader is returned by JumpToHeader when the named header was
// never registered.
var ErrUnknownHeader = errors.New("unknown program header")

// Factory produces a fresh Task for a step. Steps are re-entered on jumps
// (loop-back, recovery), so the program instantiates a new Task each time a
// step begins rather than re-polling a finished one.
type Factory func() task.Task

// step is one record in the program. Records are append-only: once added,
// a step's index and contents never change.
type step struct {
	name string
	new  Factory
}

// managed is a named background task ticked alongside the main program.
type managed struct {
	name    string
	factory Factory
	live    task.Task
}

// Program is the ordered step sequence plus its execution state.
type Program struct {
	steps    []step
	pc       int
	current  task.Task
	jumped   bool
	paused   bool
	headers  map[string]int
	ordered  []string // header names in registration order, for diagnostics
	counters *Counters
	tasks    []*managed
}

// New returns an empty program.
func New() *Program {
	return &Program{
		headers:  make(map[string]int),
		counters: NewCounters(),
	}
}

// Counters exposes the program's shared counter set.
func (p *Program) Counters() *Counters { return p.counters }

// Len reports the number of registered steps.
func (p *Program) Len() int { return len(p.steps) }

// PC reports the index of the step currently executing.
func (p *Program) PC() int { return p.pc }

// StepName returns the name of the step at the given index.
func (p *Program) StepName(i int) string { return p.steps[i].name }

// Done reports whether the program counter has advanced past the last step.
func (p *Program) Done() bool { return p.pc >= len(p.steps) }

// AddStep appends a step whose task is created by factory each time the
// step is entered. Appending is legal at any time, including while the
// program is executing: new records always land after the highest index so
// far and earlier records are never touched.
func (p *Program) AddStep(name string, factory Factory) {
	p.steps = append(p.steps, step{name: name, new: factory})
}

// AddFunc appends a one-shot step that completes within a single tick.
func (p *Program) AddFunc(name string, fn func(ctx context.Context) error) {
	p.AddStep(name, func() task.Task { return task.Func(fn) })
}

// PeekHeaderName predicts the header name the next AddHeader call will
// produce for the given display name, without consuming the shared counter.
func (p *Program) PeekHeaderName(display string) string {
	return headerName(display, p.counters.Peek(HeaderCounter)+1)
}

// AddHeader appends a named checkpoint step and records its index. The
// returned name is unique per run because the header counter only moves
// forward. The name→index map is append-only.
func (p *Program) AddHeader(display string) string {
	name := headerName(display, p.counters.Next(HeaderCounter))
	p.headers[name] = len(p.steps)
	p.ordered = append(p.ordered, name)
	p.AddFunc(name, func(ctx context.Context) error {
		ctxlog.FromContext(ctx).Debug("Entering header.", "header", name)
		return nil
	})
	return name
}

// HeaderIndex resolves a header name to its step index.
func (p *Program) HeaderIndex(name string) (int, bool) {
	i, ok := p.headers[name]
	return i, ok
}

// HeaderNames lists registered header names in registration order.
func (p *Program) HeaderNames() []string {
	out := make([]string, len(p.ordered))
	copy(out, p.ordered)
	return out
}

// JumpToHeader moves the program counter to the named header. The step in
// flight, if any, is abandoned. When called from inside a running step the
// jump takes effect as soon as that step's current poll returns.
func (p *Program) JumpToHeader(name string) error {
	i, ok := p.headers[name]
	if !ok {
		return fmt.Errorf("%w: %q (known: %v)", ErrUnknownHeader, name, p.ordered)
	}
	p.jumpTo(i)
	return nil
}

// JumpToIndex moves the program counter to an explicit step index.
func (p *Program) JumpToIndex(i int) {
	p.jumpTo(i)
}

func (p *Program) jumpTo(i int) {
	p.pc = i
	p.current = nil
	p.jumped = true
}

// Pause freezes the main program's advancement. Managed tasks keep ticking;
// the recovery monitor depends on that to ever observe recovery conditions.
func (p *Program) Pause() { p.paused = true }

// Resume unfreezes the main program.
func (p *Program) Resume() { p.paused = false }

// Paused reports whether the main program is frozen.
func (p *Program) Paused() bool { return p.paused }

// AddManagedTask registers a named background task that is ticked once per
// driver cycle, interleaved with the main program, from the next tick on.
// Registering an existing name replaces the old task.
func (p *Program) AddManagedTask(name string, factory Factory) {
	for _, m := range p.tasks {
		if m.name == name {
			m.factory = factory
			m.live = nil
			return
		}
	}
	p.tasks = append(p.tasks, &managed{name: name, factory: factory})
}

// RemoveManagedTask cancels a named background task. Removal takes effect
// before the task's next scheduled tick.
func (p *Program) RemoveManagedTask(name string) {
	for i, m := range p.tasks {
		if m.name == name {
			p.tasks = append(p.tasks[:i], p.tasks[i+1:]...)
			return
		}
	}
}

// ManagedTaskNames lists the currently registered background tasks.
func (p *Program) ManagedTaskNames() []string {
	names := make([]string, 0, len(p.tasks))
	for _, m := range p.tasks {
		names = append(names, m.name)
	}
	return names
}

// Tick advances the system by one driver cycle: at most one poll of the
// current main-program step (unless paused), then exactly one poll of every
// live managed task. An error escaping a main-program step is returned to
// the driver and is fatal to the run; managed-task errors are logged and
// retire the task.
func (p *Program) Tick(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	if !p.paused && !p.Done() {
		if p.current == nil {
			p.current = p.steps[p.pc].new()
			logger.Debug("Starting step.", "index", p.pc, "step", p.steps[p.pc].name)
		}
		// A jump recorded outside this poll (a managed task, or a caller
		// between ticks) has already retargeted pc and cleared the task;
		// only a jump made during the poll below may suppress advancement.
		p.jumped = false
		done, err := p.current.Poll(ctx)
		if err != nil {
			return fmt.Errorf("step %d (%s) failed: %w", p.pc, p.steps[p.pc].name, err)
		}
		if done {
			p.current = nil
			if p.jumped {
				// The step redirected the counter; do not advance past the target.
				p.jumped = false
			} else {
				p.pc++
			}
		}
	}

	p.tickManaged(ctx)
	return nil
}

func (p *Program) tickManaged(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)

	// Snapshot so tasks that add or remove tasks don't disturb this cycle.
	live := make([]*managed, len(p.tasks))
	copy(live, p.tasks)

	for _, m := range live {
		if !p.stillRegistered(m) {
			continue
		}
		if m.live == nil {
			m.live = m.factory()
		}
		done, err := m.live.Poll(ctx)
		if err != nil {
			logger.Error("Managed task failed.", "task", m.name, "error", err)
			p.RemoveManagedTask(m.name)
			continue
		}
		if done {
			logger.Debug("Managed task finished.", "task", m.name)
			p.RemoveManagedTask(m.name)
		}
	}
}

func (p *Program) stillRegistered(m *managed) bool {
	for _, cur := range p.tasks {
		if cur == m {
			return true
		}
	}
	return false
}

func headerName(display string, n int) string {
	return fmt.Sprintf("[H]%s_%d", display, n)
}
