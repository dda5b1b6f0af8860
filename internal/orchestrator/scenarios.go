package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vk/phasebot/internal/ctxlog"
	"github.com/vk/phasebot/internal/program"
	"github.com/vk/phasebot/internal/scenario"
	"github.com/vk/phasebot/internal/task"
)

// Scenarios is the bot-facing facade over the scenario engine: it loads
// definitions through the manifest registry and enqueues suspending program
// steps that execute them, keeping track of the most recent result so later
// steps can gate on it.
type Scenarios struct {
	prog     *program.Program
	registry *scenario.Registry
	exec     *scenario.Executor
	logger   *slog.Logger
	last     scenario.Result
}

func newScenarios(prog *program.Program, registry *scenario.Registry, exec *scenario.Executor, logger *slog.Logger) *Scenarios {
	return &Scenarios{
		prog:     prog,
		registry: registry,
		exec:     exec,
		logger:   logger,
		last:     scenario.Result{OK: false, FailedActionIndex: -1, Reason: "no scenario executed yet"},
	}
}

// LastResult returns the most recent execution result.
func (s *Scenarios) LastResult() scenario.Result { return s.last }

// LastSuccess reports whether the most recent execution succeeded.
func (s *Scenarios) LastSuccess() bool { return s.last.OK }

// Quest enqueues a quest scenario by manifest key.
func (s *Scenarios) Quest(id any, params scenario.Params) bool {
	return s.QueueNamed(scenario.KindQuest, id, "", params)
}

// Mission enqueues a mission scenario by manifest key.
func (s *Scenarios) Mission(id any, params scenario.Params) bool {
	return s.QueueNamed(scenario.KindMission, id, "", params)
}

// Run enqueues a run scenario by manifest key.
func (s *Scenarios) Run(id any, params scenario.Params) bool {
	return s.QueueNamed(scenario.KindRun, id, "", params)
}

// Vanquish enqueues a vanquish scenario by manifest key.
func (s *Scenarios) Vanquish(id any, params scenario.Params) bool {
	return s.QueueNamed(scenario.KindVanquish, id, "", params)
}

// QueueNamed loads a scenario by (kind, identifier) and appends a step
// executing it. A load failure is recorded as a failed last-result and
// reported through the return value instead of raising: queueing happens
// inside phase bodies, where there is no useful place for an error to go.
func (s *Scenarios) QueueNamed(kind scenario.Kind, id any, stepName string, params scenario.Params) bool {
	def, err := s.registry.LoadByKind(string(kind), id)
	if err != nil {
		s.logger.Error("Failed to load scenario.", "kind", string(kind), "identifier", scenario.IdentifierKey(id), "error", err)
		s.last = scenario.Result{
			OK:                false,
			ScenarioID:        scenario.IdentifierKey(id),
			Kind:              kind,
			FailedActionIndex: -1,
			Reason:            err.Error(),
		}
		return false
	}

	if stepName == "" {
		stepName = fmt.Sprintf("Scenario_%s_%d", kind, s.prog.Counters().Next(program.CustomStepCounter))
	}
	s.prog.AddStep(stepName, func() task.Task {
		return &scenarioStep{scenarios: s, run: s.exec.Execute(def, params)}
	})
	return true
}

// scenarioStep wraps an executor run so its terminal result lands in the
// facade when the step completes.
type scenarioStep struct {
	scenarios *Scenarios
	run       *scenario.Run
}

func (st *scenarioStep) Poll(ctx context.Context) (bool, error) {
	done, err := st.run.Poll(ctx)
	if err != nil {
		return true, err
	}
	if !done {
		return false, nil
	}
	result := *st.run.Result()
	st.scenarios.last = result
	logger := ctxlog.FromContext(ctx)
	if result.OK {
		logger.Info("Scenario finished.", "scenario", result.ScenarioID, "kind", string(result.Kind))
	} else {
		logger.Warn("Scenario failed.",
			"scenario", result.ScenarioID, "kind", string(result.Kind),
			"failed_index", result.FailedActionIndex, "failed_action", result.FailedActionName,
			"reason", result.Reason)
	}
	return true, nil
}
