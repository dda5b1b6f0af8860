package scenario

import (
	"context"
	"fmt"

	"github.com/vk/phasebot/internal/catalog"
	"github.com/vk/phasebot/internal/ctxlog"
	"github.com/vk/phasebot/internal/task"
)

// Executor runs scenario definitions against a capability catalog.
type Executor struct {
	catalog *catalog.Catalog
}

// NewExecutor returns an executor bound to the given catalog.
func NewExecutor(c *catalog.Catalog) *Executor {
	return &Executor{catalog: c}
}

// Execute returns the suspending run for a definition. Synchronous actions
// chain within a single tick; a suspending action yields control back to
// the driver until it completes. The produced Result is available once the
// run reports done.
func (e *Executor) Execute(def *Definition, params Params) *Run {
	if params == nil {
		params = Params{}
	}
	return &Run{exec: e, def: def, params: params}
}

// Run is one in-flight execution of a scenario definition.
type Run struct {
	exec   *Executor
	def    *Definition
	params Params

	index    int
	inflight task.Task
	result   *Result
}

// Result returns the terminal record. It is nil until Poll reports done.
func (r *Run) Result() *Result { return r.result }

// Poll implements task.Task. Errors never escape: every per-action failure
// is captured into the Result under the optional/fatal policy.
func (r *Run) Poll(ctx context.Context) (bool, error) {
	if r.result != nil {
		return true, nil
	}
	logger := ctxlog.FromContext(ctx).With("scenario", r.def.ID)

	for r.index < len(r.def.Actions) {
		action := &r.def.Actions[r.index]

		if r.inflight != nil {
			done, err := r.inflight.Poll(ctx)
			if err != nil {
				r.inflight = nil
				r.finishAction(ctx, action, false, err.Error())
				continue
			}
			if !done {
				return false, nil
			}
			success := interpret(taskValue(r.inflight))
			r.inflight = nil
			r.finishAction(ctx, action, success, "Action returned False")
			continue
		}

		iv, err := r.exec.catalog.Resolve(action.Name)
		if err != nil {
			r.finishAction(ctx, action, false, err.Error())
			continue
		}

		args, kwargs := resolveAction(*action, r.params)
		logger.Debug("Invoking action.",
			"index", r.index, "action", action.Name,
			"resolved", iv.Component+"."+iv.Method, "suspending", iv.Suspending())

		if iv.Suspending() {
			r.inflight = iv.Task(args, kwargs)
			// First poll happens this tick; a task that completes
			// immediately never yields to the driver.
			continue
		}

		value, err := iv.Call(ctx, args, kwargs)
		if err != nil {
			r.finishAction(ctx, action, false, err.Error())
			continue
		}
		r.finishAction(ctx, action, interpret(value), "Action returned False")
	}

	if r.result == nil {
		r.result = &Result{
			OK:                true,
			ScenarioID:        r.def.ID,
			Kind:              r.def.Kind,
			FailedActionIndex: -1,
		}
	}
	return true, nil
}

// finishAction applies the optional/fatal policy for a completed action and
// advances to the next one unless the run just failed.
func (r *Run) finishAction(ctx context.Context, action *Action, success bool, reason string) {
	if success || action.Optional {
		if !success {
			ctxlog.FromContext(ctx).Warn("Optional action failed, continuing.",
				"scenario", r.def.ID, "index", r.index, "action", action.Name, "reason", reason)
		}
		r.index++
		return
	}
	r.result = &Result{
		OK:                false,
		ScenarioID:        r.def.ID,
		Kind:              r.def.Kind,
		FailedActionIndex: r.index,
		FailedActionName:  action.Name,
		Reason:            reason,
	}
	// Park the index past the end so the poll loop exits.
	r.index = len(r.def.Actions)
}

// interpret maps an action's return value onto the success policy: a
// boolean is taken literally, anything else (including nil) is success.
func interpret(value any) bool {
	if b, ok := value.(bool); ok {
		return b
	}
	return true
}

func taskValue(t task.Task) any {
	if vt, ok := t.(task.ValueTask); ok {
		return vt.Value()
	}
	return nil
}

// String describes a run for diagnostics.
func (r *Run) String() string {
	return fmt.Sprintf("scenario run %s (%d/%d)", r.def.ID, r.index, len(r.def.Actions))
}
