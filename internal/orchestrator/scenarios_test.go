package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/phasebot/internal/events"
	"github.com/vk/phasebot/internal/scenario"
	"github.com/vk/phasebot/internal/settings"
)

// newScenarioFixture builds a bot over a real scenario directory containing
// one quest ("kill") and one mission declared under the wrong section.
func newScenarioFixture(t *testing.T, body Body) (*Orchestrator, *[]string) {
	t.Helper()
	dir := t.TempDir()

	writeFile := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	writeFile("manifest.json", `{
		"quests": {
			"kill": "kill.json",
			"impostor": "impostor.json",
			"broken": "broken.json"
		}
	}`)
	writeFile("kill.json", `{
		"id": "kill",
		"kind": "quest",
		"actions": [
			{"action": "player.Travel"},
			{"action": "player.Travel"}
		]
	}`)
	writeFile("impostor.json", `{
		"id": "impostor",
		"kind": "mission",
		"actions": []
	}`)
	writeFile("broken.json", `{
		"id": "broken",
		"kind": "quest",
		"actions": [
			{"action": "player.Travel"},
			{"action": "player.DoesNotExist"}
		]
	}`)

	c, calls := newTestCatalog(t)
	deps := Deps{
		Catalog:  c,
		Registry: scenario.NewRegistry(dir),
		Settings: settings.New(nil),
		Events:   events.NewBus(),
		Status:   &fakeStatus{alive: true, valid: true},
	}
	o, err := New(context.Background(), Options{
		Name:   "Runner",
		Phases: []*Phase{{Name: "Questing", Body: body}},
	}, deps)
	require.NoError(t, err)
	return o, calls
}

func TestScenarios_InitialLastResultIsFailed(t *testing.T) {
	o, _ := newScenarioFixture(t, func(b *Bot) {})
	last := o.Bot().Scenarios().LastResult()
	assert.False(t, last.OK)
	assert.Equal(t, -1, last.FailedActionIndex)
	assert.False(t, o.Bot().Scenarios().LastSuccess())
}

func TestScenarios_QuestRunsAndRecordsSuccess(t *testing.T) {
	o, calls := newScenarioFixture(t, func(b *Bot) {
		queued := b.Scenarios().Quest("kill", nil)
		assert.True(t, queued)
	})

	runToCompletion(t, o.Program(), 20)

	last := o.Bot().Scenarios().LastResult()
	assert.True(t, last.OK)
	assert.Equal(t, "kill", last.ScenarioID)
	assert.Equal(t, scenario.KindQuest, last.Kind)
	assert.Equal(t, -1, last.FailedActionIndex)
	assert.True(t, o.Bot().Scenarios().LastSuccess())

	travels := 0
	for _, c := range *calls {
		if c == "player.Travel" {
			travels++
		}
	}
	assert.Equal(t, 2, travels)
}

func TestScenarios_AutoStepNamesAreSequential(t *testing.T) {
	o, _ := newScenarioFixture(t, func(b *Bot) {
		require.True(t, b.Scenarios().Quest("kill", nil))
		require.True(t, b.Scenarios().Quest("kill", nil))
	})

	p := o.Program()
	var names []string
	for i := 0; i < p.Len(); i++ {
		names = append(names, p.StepName(i))
	}
	assert.Contains(t, names, "Scenario_quest_1")
	assert.Contains(t, names, "Scenario_quest_2")
}

func TestScenarios_UnknownIdentifierRecordsFailure(t *testing.T) {
	o, _ := newScenarioFixture(t, func(b *Bot) {
		queued := b.Scenarios().Quest("does-not-exist", nil)
		assert.False(t, queued)
	})

	last := o.Bot().Scenarios().LastResult()
	assert.False(t, last.OK)
	assert.Equal(t, "does-not-exist", last.ScenarioID)
	assert.Equal(t, scenario.KindQuest, last.Kind)
	assert.Equal(t, -1, last.FailedActionIndex)
	assert.Contains(t, last.Reason, "not registered")
}

func TestScenarios_KindMismatchRecordsFailure(t *testing.T) {
	o, _ := newScenarioFixture(t, func(b *Bot) {
		// Registered under quests but the file declares kind mission.
		queued := b.Scenarios().Quest("impostor", nil)
		assert.False(t, queued)
	})

	last := o.Bot().Scenarios().LastResult()
	assert.False(t, last.OK)
	assert.Contains(t, last.Reason, "kind mismatch")
}

func TestScenarios_FailedActionRecordsIndexAndName(t *testing.T) {
	o, calls := newScenarioFixture(t, func(b *Bot) {
		require.True(t, b.Scenarios().Quest("broken", nil))
	})

	runToCompletion(t, o.Program(), 20)

	last := o.Bot().Scenarios().LastResult()
	assert.False(t, last.OK)
	assert.Equal(t, "broken", last.ScenarioID)
	assert.Equal(t, 1, last.FailedActionIndex)
	assert.Equal(t, "player.DoesNotExist", last.FailedActionName)
	assert.False(t, o.Bot().Scenarios().LastSuccess())

	// The first action still ran before the failure.
	assert.Contains(t, *calls, "player.Travel")
}
