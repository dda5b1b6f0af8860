package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/phasebot/internal/task"
)

func noop(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
	return nil, nil
}

func TestCamelToSnake(t *testing.T) {
	cases := map[string]string{
		"FollowPath":       "follow_path",
		"TravelGH":         "travel_gh",
		"FollowXYPath":     "follow_xy_path",
		"Resign":           "resign",
		"already_snake":    "already_snake",
		"SendDialog2Async": "send_dialog2_async",
	}
	for in, want := range cases {
		assert.Equal(t, want, camelToSnake(in), "input %q", in)
	}
}

func TestNormalizeToken(t *testing.T) {
	cases := map[string]string{
		"Move.FollowPath":    "move.followpath",
		"move follow-path":   "move.follow.path",
		"MOVE_follow/path":   "move.follow.path",
		"  move.follow_path": "move.follow.path",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeToken(in), "input %q", in)
	}
}

func TestResolveByIndexedForms(t *testing.T) {
	c := New()
	c.Component("move").Register("FollowPath", Action{Run: noop})
	require.NoError(t, c.Validate())

	// Every separator spelling resolves to the same action.
	for _, name := range []string{
		"move.followpath",
		"move.follow_path",
		"move_follow_path",
		"Move Follow Path",
		"FollowPath",
		"follow_path",
		"follow-path",
	} {
		iv, err := c.Resolve(name)
		require.NoError(t, err, "name %q", name)
		assert.Equal(t, "move", iv.Component)
		assert.Equal(t, "FollowPath", iv.Method)
	}
}

func TestDottedFormBypassesIndex(t *testing.T) {
	c := New()
	c.Component("dialogs").Register("SendDialog", Action{Run: noop})

	iv, err := c.Resolve("dialogs.SendDialog")
	require.NoError(t, err)
	assert.Equal(t, "dialogs", iv.Component)

	// Snake spelling of the method still addresses the same registration.
	iv, err = c.Resolve("dialogs.send_dialog")
	require.NoError(t, err)
	assert.Equal(t, "SendDialog", iv.Method)

	_, err = c.Resolve("nosuch.SendDialog")
	assert.ErrorIs(t, err, ErrUnknownComponent)

	_, err = c.Resolve("dialogs.NoSuch")
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestUnknownActionName(t *testing.T) {
	c := New()
	c.Component("move").Register("FollowPath", Action{Run: noop})

	_, err := c.Resolve("teleport")
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestSuspendingVariantTakesPrecedence(t *testing.T) {
	c := New()
	c.Component("wait").Register("ForTime", Action{
		Run:   noop,
		Start: func(args []any, kwargs map[string]any) task.Task { return task.Func(func(ctx context.Context) error { return nil }) },
	})
	c.Component("party").Register("Resign", Action{Run: noop})

	iv, err := c.Resolve("wait.ForTime")
	require.NoError(t, err)
	assert.True(t, iv.Suspending())

	iv, err = c.Resolve("party.Resign")
	require.NoError(t, err)
	assert.False(t, iv.Suspending())
}

func TestDuplicateBareNameFailsValidation(t *testing.T) {
	c := New()
	c.Component("quest").Register("Accept", Action{Run: noop})
	c.Component("dialogs").Register("Accept", Action{Run: noop})

	err := c.Validate()
	require.ErrorIs(t, err, ErrAmbiguousAction)
	assert.Contains(t, err.Error(), "quest.Accept")
	assert.Contains(t, err.Error(), "dialogs.Accept")

	// Bare resolution reports the ambiguity; qualified forms still work.
	_, err = c.Resolve("accept")
	assert.ErrorIs(t, err, ErrAmbiguousAction)

	iv, err := c.Resolve("quest.accept")
	require.NoError(t, err)
	assert.Equal(t, "quest", iv.Component)

	iv, err = c.Resolve("dialogs_accept")
	require.NoError(t, err)
	assert.Equal(t, "dialogs", iv.Component)
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	c := New()
	c.Component("move").Register("FollowPath", Action{Run: noop})
	assert.Panics(t, func() {
		c.Component("move").Register("FollowPath", Action{Run: noop})
	})
}

func TestRegisterWithoutCallablePanics(t *testing.T) {
	c := New()
	assert.Panics(t, func() {
		c.Component("move").Register("FollowPath", Action{})
	})
}

func TestComponentNamesKeepRegistrationOrder(t *testing.T) {
	c := New()
	c.Component("map")
	c.Component("move")
	c.Component("wait")
	assert.Equal(t, []string{"map", "move", "wait"}, c.ComponentNames())
}
