// Package profile loads declarative bot profiles from HCL. A profile names
// the bot, its template and loop policy, recovery targets, default settings,
// and the ordered phases; Compile turns it into orchestrator options whose
// condition expressions re-read the live settings store on every evaluation.
package profile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// ErrInvalidProfile marks a structurally invalid profile file.
var ErrInvalidProfile = errors.New("invalid bot profile")

// fileRoot decodes the top-level blocks of a profile file.
type fileRoot struct {
	Bots   []*botBlock `hcl:"bot,block"`
	Remain hcl.Body    `hcl:",remain"`
}

type botBlock struct {
	Name        string         `hcl:"name,label"`
	Template    *string        `hcl:"template,optional"`
	Loop        *bool          `hcl:"loop,optional"`
	LoopTo      *string        `hcl:"loop_to,optional"`
	OnPartyWipe *string        `hcl:"on_party_wipe,optional"`
	OnDeath     *string        `hcl:"on_death,optional"`
	OnStuck     *string        `hcl:"on_stuck,optional"`
	Settings    *settingsBlock `hcl:"settings,block"`
	Phases      []*phaseBlock  `hcl:"phase,block"`
}

// settingsBlock carries free-form attributes; the schema is the bot
// author's, not ours.
type settingsBlock struct {
	Body hcl.Body `hcl:",remain"`
}

type phaseBlock struct {
	Name      string         `hcl:"name,label"`
	Template  *string        `hcl:"template,optional"`
	Condition hcl.Expression `hcl:"condition,optional"`
	Scenario  *string        `hcl:"scenario,optional"`
	Params    hcl.Expression `hcl:"params,optional"`
	Actions   []*actionBlock `hcl:"action,block"`
}

type actionBlock struct {
	Name   string         `hcl:"name,label"`
	Args   hcl.Expression `hcl:"args,optional"`
	Kwargs hcl.Expression `hcl:"kwargs,optional"`
}

// Profile is a parsed bot profile.
type Profile struct {
	Name        string
	Template    string
	Loop        bool
	LoopTo      string
	OnPartyWipe string
	OnDeath     string
	OnStuck     string
	Settings    map[string]cty.Value
	Phases      []*PhaseSpec
}

// PhaseSpec is one phase entry. Condition and Params stay as unevaluated
// expressions: conditions are re-evaluated against the live settings store
// at guard time, params when the phase body runs.
type PhaseSpec struct {
	Name      string
	Template  string
	Condition hcl.Expression
	Scenario  string
	Params    hcl.Expression
	Actions   []*ActionSpec
}

// ActionSpec is one direct capability invocation inside a phase.
type ActionSpec struct {
	Name   string
	Args   hcl.Expression
	Kwargs hcl.Expression
}

// Load reads and parses a profile file. Exactly one bot block is expected.
func Load(path string) (*Profile, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s: %s", ErrInvalidProfile, path, diags.Error())
	}
	return decode(file.Body, path)
}

// Parse decodes profile HCL from memory. The filename only feeds diagnostics.
func Parse(data []byte, filename string) (*Profile, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s: %s", ErrInvalidProfile, filename, diags.Error())
	}
	return decode(file.Body, filename)
}

func decode(body hcl.Body, source string) (*Profile, error) {
	var root fileRoot
	if diags := gohcl.DecodeBody(body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s: %s", ErrInvalidProfile, source, diags.Error())
	}
	if len(root.Bots) == 0 {
		return nil, fmt.Errorf("%w: %s: no bot block", ErrInvalidProfile, source)
	}
	if len(root.Bots) > 1 {
		return nil, fmt.Errorf("%w: %s: multiple bot blocks, only one is allowed", ErrInvalidProfile, source)
	}

	b := root.Bots[0]
	p := &Profile{
		Name:        b.Name,
		Template:    strDeref(b.Template),
		Loop:        boolDeref(b.Loop),
		LoopTo:      strDeref(b.LoopTo),
		OnPartyWipe: strDeref(b.OnPartyWipe),
		OnDeath:     strDeref(b.OnDeath),
		OnStuck:     strDeref(b.OnStuck),
		Settings:    map[string]cty.Value{},
	}

	if b.Settings != nil {
		attrs, diags := b.Settings.Body.JustAttributes()
		if diags.HasErrors() {
			return nil, fmt.Errorf("%w: %s: settings block: %s", ErrInvalidProfile, source, diags.Error())
		}
		for name, attr := range attrs {
			// Settings are literals; they form the evaluation context for
			// everything else and cannot reference themselves.
			v, diags := attr.Expr.Value(nil)
			if diags.HasErrors() {
				return nil, fmt.Errorf("%w: %s: setting %q: %s", ErrInvalidProfile, source, name, diags.Error())
			}
			p.Settings[name] = v
		}
	}

	seen := map[string]struct{}{}
	for _, ph := range b.Phases {
		if _, dup := seen[ph.Name]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate phase %q", ErrInvalidProfile, source, ph.Name)
		}
		seen[ph.Name] = struct{}{}

		spec := &PhaseSpec{
			Name:      ph.Name,
			Template:  strDeref(ph.Template),
			Condition: normalizeExpr(ph.Condition),
			Scenario:  strDeref(ph.Scenario),
			Params:    normalizeExpr(ph.Params),
		}
		if spec.Scenario != "" {
			if _, _, err := splitScenarioRef(spec.Scenario); err != nil {
				return nil, fmt.Errorf("%w: %s: phase %q: %v", ErrInvalidProfile, source, ph.Name, err)
			}
		}
		for _, a := range ph.Actions {
			spec.Actions = append(spec.Actions, &ActionSpec{
				Name:   a.Name,
				Args:   normalizeExpr(a.Args),
				Kwargs: normalizeExpr(a.Kwargs),
			})
		}
		if spec.Scenario == "" && len(spec.Actions) == 0 {
			return nil, fmt.Errorf("%w: %s: phase %q has neither a scenario nor actions", ErrInvalidProfile, source, ph.Name)
		}
		p.Phases = append(p.Phases, spec)
	}

	if len(p.Phases) == 0 {
		return nil, fmt.Errorf("%w: %s: bot %q declares no phases", ErrInvalidProfile, source, b.Name)
	}
	return p, nil
}

// splitScenarioRef parses a "kind:key" scenario reference.
func splitScenarioRef(ref string) (kind, key string, err error) {
	kind, key, ok := strings.Cut(ref, ":")
	kind = strings.TrimSpace(kind)
	key = strings.TrimSpace(key)
	if !ok || kind == "" || key == "" {
		return "", "", fmt.Errorf("scenario reference %q must be kind:key", ref)
	}
	return kind, key, nil
}

// normalizeExpr maps gohcl's absent-attribute placeholder to nil so callers
// can test presence with a plain nil check.
func normalizeExpr(expr hcl.Expression) hcl.Expression {
	if expr == nil {
		return nil
	}
	if v, diags := expr.Value(nil); !diags.HasErrors() && v.IsNull() {
		return nil
	}
	return expr
}

func strDeref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func boolDeref(b *bool) bool {
	return b != nil && *b
}
