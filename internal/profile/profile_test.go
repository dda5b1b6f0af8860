package profile

import (
	"context"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/phasebot/internal/settings"
)

const sampleProfile = `
bot "Vanquisher" {
  template      = "aggressive"
  loop          = true
  loop_to       = "Travel"
  on_party_wipe = "Travel"
  on_death      = "Travel"

  settings {
    hard_mode = false
    hero_count = 3
  }

  phase "Travel" {
    action "map.TravelTo" {
      args = [123]
    }
  }

  phase "Quest" {
    scenario = "quest:kill_the_boss"
    params = {
      boss_id = settings.hero_count
    }
  }

  phase "Bonus" {
    condition = settings.hard_mode
    template  = "pacifist"
    scenario  = "vanquish:bonus_area"
  }
}
`

func TestParse_FullProfile(t *testing.T) {
	p, err := Parse([]byte(sampleProfile), "sample.hcl")
	require.NoError(t, err)

	assert.Equal(t, "Vanquisher", p.Name)
	assert.Equal(t, "aggressive", p.Template)
	assert.True(t, p.Loop)
	assert.Equal(t, "Travel", p.LoopTo)
	assert.Equal(t, "Travel", p.OnPartyWipe)
	assert.Equal(t, "Travel", p.OnDeath)
	assert.Empty(t, p.OnStuck)

	require.Len(t, p.Settings, 2)
	assert.Equal(t, cty.False, p.Settings["hard_mode"])
	assert.True(t, p.Settings["hero_count"].RawEquals(cty.NumberIntVal(3)))

	require.Len(t, p.Phases, 3)

	travel := p.Phases[0]
	assert.Equal(t, "Travel", travel.Name)
	assert.Nil(t, travel.Condition)
	require.Len(t, travel.Actions, 1)
	assert.Equal(t, "map.TravelTo", travel.Actions[0].Name)

	quest := p.Phases[1]
	assert.Equal(t, "quest:kill_the_boss", quest.Scenario)
	assert.NotNil(t, quest.Params)

	bonus := p.Phases[2]
	assert.NotNil(t, bonus.Condition)
	assert.Equal(t, "pacifist", bonus.Template)
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "no bot block",
			src:  ``,
			want: "no bot block",
		},
		{
			name: "multiple bots",
			src: `
bot "A" {
  phase "P" { scenario = "quest:x" }
}
bot "B" {
  phase "P" { scenario = "quest:x" }
}`,
			want: "multiple bot blocks",
		},
		{
			name: "duplicate phase",
			src: `
bot "A" {
  phase "P" { scenario = "quest:x" }
  phase "P" { scenario = "quest:y" }
}`,
			want: `duplicate phase "P"`,
		},
		{
			name: "bad scenario ref",
			src: `
bot "A" {
  phase "P" { scenario = "kill_the_boss" }
}`,
			want: "must be kind:key",
		},
		{
			name: "empty phase",
			src: `
bot "A" {
  phase "P" { }
}`,
			want: "neither a scenario nor actions",
		},
		{
			name: "no phases",
			src:  `bot "A" { }`,
			want: "declares no phases",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.src), tc.name+".hcl")
			require.ErrorIs(t, err, ErrInvalidProfile)
			assert.ErrorContains(t, err, tc.want)
		})
	}
}

func TestCompile_ConditionTracksLiveSettings(t *testing.T) {
	p, err := Parse([]byte(sampleProfile), "sample.hcl")
	require.NoError(t, err)

	store := settings.New(p.Settings)
	opts, err := Compile(context.Background(), p, store)
	require.NoError(t, err)

	require.Len(t, opts.Phases, 3)
	cond := opts.Phases[2].Condition
	require.NotNil(t, cond)

	assert.False(t, cond(), "hard_mode defaults to false")
	store.Set("hard_mode", cty.True)
	assert.True(t, cond(), "flipping the setting must be visible to the guard")
	store.Set("hard_mode", cty.False)
	assert.False(t, cond())
}

func TestCompile_RecoveryAndLoopWiring(t *testing.T) {
	p, err := Parse([]byte(sampleProfile), "sample.hcl")
	require.NoError(t, err)

	opts, err := Compile(context.Background(), p, settings.New(p.Settings))
	require.NoError(t, err)

	assert.Equal(t, "Vanquisher", opts.Name)
	assert.True(t, opts.Loop)
	assert.Equal(t, "Travel", opts.LoopTo)
	assert.False(t, opts.OnPartyWipe.IsZero())
	assert.False(t, opts.OnDeath.IsZero())
	assert.True(t, opts.OnStuck.IsZero())
}

func TestCompile_RejectsUnknownScenarioKind(t *testing.T) {
	src := `
bot "A" {
  phase "P" { scenario = "raid:x" }
}`
	p, err := Parse([]byte(src), "bad.hcl")
	require.NoError(t, err)

	_, err = Compile(context.Background(), p, settings.New(nil))
	require.ErrorContains(t, err, "unknown scenario kind")
}

func parseExpr(t *testing.T, src string) hcl.Expression {
	t.Helper()
	expr, diags := hclsyntax.ParseExpression([]byte(src), "expr.hcl", hcl.InitialPos)
	require.False(t, diags.HasErrors(), diags.Error())
	return expr
}

func TestEvalParams_ResolvesAgainstSettings(t *testing.T) {
	store := settings.New(map[string]cty.Value{
		"hero_count": cty.NumberIntVal(3),
		"region":     cty.StringVal("kryta"),
	})

	params, err := evalParams(parseExpr(t, `{
		count  = settings.hero_count
		region = settings.region
		ratio  = 1.5
	}`), store)
	require.NoError(t, err)

	assert.Equal(t, 3, params["count"])
	assert.Equal(t, "kryta", params["region"])
	assert.Equal(t, 1.5, params["ratio"])
}

func TestEvalParams_RejectsNonObject(t *testing.T) {
	_, err := evalParams(parseExpr(t, `[1, 2]`), settings.New(nil))
	require.ErrorContains(t, err, "params must be an object")
}

func TestCtyToGo(t *testing.T) {
	v := cty.ObjectVal(map[string]cty.Value{
		"b":    cty.True,
		"s":    cty.StringVal("x"),
		"i":    cty.NumberIntVal(42),
		"f":    cty.NumberFloatVal(2.5),
		"list": cty.TupleVal([]cty.Value{cty.NumberIntVal(1), cty.StringVal("two")}),
		"null": cty.NullVal(cty.String),
	})

	got := ctyToGo(v)
	want := map[string]any{
		"b":    true,
		"s":    "x",
		"i":    42,
		"f":    2.5,
		"list": []any{1, "two"},
		"null": nil,
	}
	assert.Equal(t, want, got)
}
