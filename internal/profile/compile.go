package profile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/phasebot/internal/ctxlog"
	"github.com/vk/phasebot/internal/orchestrator"
	"github.com/vk/phasebot/internal/scenario"
	"github.com/vk/phasebot/internal/settings"
)

// Compile lowers a parsed profile into orchestrator options. Phase bodies
// and condition closures capture the settings store by reference: a value
// changed mid-run is observed by the next guard evaluation and the next
// params resolution.
func Compile(ctx context.Context, p *Profile, store *settings.Store) (orchestrator.Options, error) {
	logger := ctxlog.FromContext(ctx)

	opts := orchestrator.Options{
		Name:     p.Name,
		Template: p.Template,
		Loop:     p.Loop,
		LoopTo:   p.LoopTo,
	}
	if p.OnPartyWipe != "" {
		opts.OnPartyWipe = orchestrator.PhaseTarget(p.OnPartyWipe)
	}
	if p.OnDeath != "" {
		opts.OnDeath = orchestrator.PhaseTarget(p.OnDeath)
	}
	if p.OnStuck != "" {
		opts.OnStuck = orchestrator.PhaseTarget(p.OnStuck)
	}

	for _, spec := range p.Phases {
		phase, err := compilePhase(spec, store, logger)
		if err != nil {
			return orchestrator.Options{}, err
		}
		opts.Phases = append(opts.Phases, phase)
	}
	return opts, nil
}

func compilePhase(spec *PhaseSpec, store *settings.Store, logger *slog.Logger) (*orchestrator.Phase, error) {
	var kind, key string
	if spec.Scenario != "" {
		var err error
		kind, key, err = splitScenarioRef(spec.Scenario)
		if err != nil {
			return nil, fmt.Errorf("phase %q: %w", spec.Name, err)
		}
		if _, err := scenario.ParseKind(kind); err != nil {
			return nil, fmt.Errorf("phase %q: %w", spec.Name, err)
		}
	}

	body := func(b *orchestrator.Bot) {
		for _, a := range spec.Actions {
			args, kwargs, err := evalActionInputs(a, store)
			if err != nil {
				// Bodies cannot return errors; surface loudly, like any
				// other build-time reference problem.
				panic(fmt.Sprintf("phase %q action %q: %v", spec.Name, a.Name, err))
			}
			b.AddAction(a.Name, args, kwargs)
		}
		if kind != "" {
			params, err := evalParams(spec.Params, store)
			if err != nil {
				panic(fmt.Sprintf("phase %q: params: %v", spec.Name, err))
			}
			k, _ := scenario.ParseKind(kind)
			b.Scenarios().QueueNamed(k, key, "", params)
		}
	}

	phase := &orchestrator.Phase{
		Name:     spec.Name,
		Template: spec.Template,
		Body:     body,
	}
	if spec.Condition != nil {
		cond := spec.Condition
		name := spec.Name
		phase.Condition = func() bool {
			v, diags := cond.Value(evalContext(store))
			if diags.HasErrors() {
				logger.Warn("Phase condition failed to evaluate, treating as false.",
					"phase", name, "error", diags.Error())
				return false
			}
			return isTrue(v)
		}
	}
	return phase, nil
}

// evalContext exposes the settings store as the "settings" object. Rebuilt
// on every evaluation so condition expressions always see current values.
func evalContext(store *settings.Store) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"settings": store.Object(),
		},
	}
}

func evalParams(expr hcl.Expression, store *settings.Store) (scenario.Params, error) {
	if expr == nil {
		return nil, nil
	}
	v, diags := expr.Value(evalContext(store))
	if diags.HasErrors() {
		return nil, fmt.Errorf("%s", diags.Error())
	}
	goVal := ctyToGo(v)
	m, ok := goVal.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("params must be an object, got %s", v.Type().FriendlyName())
	}
	return scenario.Params(m), nil
}

func evalActionInputs(a *ActionSpec, store *settings.Store) ([]any, map[string]any, error) {
	var args []any
	if a.Args != nil {
		v, diags := a.Args.Value(evalContext(store))
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("args: %s", diags.Error())
		}
		list, ok := ctyToGo(v).([]any)
		if !ok {
			return nil, nil, fmt.Errorf("args must be a list, got %s", v.Type().FriendlyName())
		}
		args = list
	}

	var kwargs map[string]any
	if a.Kwargs != nil {
		v, diags := a.Kwargs.Value(evalContext(store))
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("kwargs: %s", diags.Error())
		}
		m, ok := ctyToGo(v).(map[string]any)
		if !ok {
			return nil, nil, fmt.Errorf("kwargs must be an object, got %s", v.Type().FriendlyName())
		}
		kwargs = m
	}
	return args, kwargs, nil
}
