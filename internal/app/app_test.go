package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

const integrationProfile = `
bot "Integration" {
  template = "aggressive"

  settings {
    bonus = false
  }

  phase "Travel" {
    action "map.TravelTo" {
      args = [100]
    }
  }

  phase "Quest" {
    scenario = "quest:gather"
    params = {
      spot = 7
    }
  }

  phase "Bonus" {
    condition = settings.bonus
    action "party.Resign" {}
  }
}
`

const gatherScenario = `{
  "id": "gather",
  "kind": "quest",
  "actions": [
    {"action": "move.XY", "args": ["${spot}", 20]},
    {"action": "wait.Ticks", "args": [2]},
    {"action": "dialogs.Take", "args": ["0x84"]}
  ]
}`

// writeFixture lays out a profile plus a scenarios directory and returns a
// validated config pointing at them.
func writeFixture(t *testing.T, profileSrc string) *Config {
	t.Helper()
	dir := t.TempDir()

	profilePath := filepath.Join(dir, "bot.hcl")
	require.NoError(t, os.WriteFile(profilePath, []byte(profileSrc), 0o644))

	scenariosDir := filepath.Join(dir, "scenarios")
	require.NoError(t, os.Mkdir(scenariosDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(scenariosDir, "manifest.json"),
		[]byte(`{"quests": {"gather": "gather.json"}}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(scenariosDir, "gather.json"),
		[]byte(gatherScenario), 0o644))

	config, err := NewConfig(Config{
		ProfilePath:   profilePath,
		ScenariosPath: scenariosDir,
		TickInterval:  time.Millisecond,
		LogFormat:     "text",
	})
	require.NoError(t, err)
	return config
}

func TestApp_RunsProfileEndToEnd(t *testing.T) {
	config := writeFixture(t, integrationProfile)
	a, logs := SetupAppTest(t, config)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, a.Run(ctx))

	world := a.World()
	assert.Equal(t, 100, world.MapID(), "travel phase should have moved the map")
	assert.Equal(t, "aggressive", world.Template())

	x, y := world.Position()
	assert.Equal(t, 7.0, x, "scenario param must substitute into move args")
	assert.Equal(t, 20.0, y)

	assert.Equal(t, []int{132}, world.Dialogs(), "hex literal 0x84 must coerce to 132")

	assert.True(t, a.Orchestrator().Bot().Scenarios().LastSuccess())
	assert.False(t, world.Resigned(), "bonus phase is disabled by settings")
	assert.Contains(t, logs.String(), "Bot program finished")
}

func TestApp_ConditionalPhaseFollowsSettings(t *testing.T) {
	config := writeFixture(t, integrationProfile)
	a, _ := SetupAppTest(t, config)

	// Flip the toggle before the program runs: the guard reads the live store.
	a.Settings().Set("bonus", cty.True)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, a.Run(ctx))

	assert.True(t, a.World().Resigned(), "bonus phase should run once the setting is flipped")
}

func TestApp_CheckModePassesOnValidFixture(t *testing.T) {
	config := writeFixture(t, integrationProfile)
	config.CheckOnly = true
	a, _ := SetupAppTest(t, config)

	out := &SafeBuffer{}
	a.outW = out
	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, out.String(), "check: ok")
}

func TestApp_CheckModeReportsBrokenScenarios(t *testing.T) {
	config := writeFixture(t, integrationProfile)
	config.CheckOnly = true

	require.NoError(t, os.WriteFile(filepath.Join(config.ScenariosPath, "bad.json"),
		[]byte(`{"id": "bad", "kind": "quest", "actions": [{"action": "no.SuchThing"}]}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(config.ScenariosPath, "garbage.json"),
		[]byte(`{not json`), 0o644))

	a, _ := SetupAppTest(t, config)
	out := &SafeBuffer{}
	a.outW = out

	err := a.Run(context.Background())
	require.ErrorContains(t, err, "check found problems")
	assert.Contains(t, out.String(), "unknown capability component")
	assert.Contains(t, out.String(), "invalid scenario file")
}

func TestNewConfig_Validation(t *testing.T) {
	_, err := NewConfig(Config{})
	require.Error(t, err)

	cfg, err := NewConfig(Config{ProfilePath: "bot.hcl"})
	require.NoError(t, err)
	assert.Equal(t, "scenarios", cfg.ScenariosPath)
	assert.Equal(t, 100*time.Millisecond, cfg.TickInterval)
}
