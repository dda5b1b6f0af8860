package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_DefaultsAndPositionalPath(t *testing.T) {
	out := &bytes.Buffer{}
	config, shouldExit, err := Parse([]string{"bots/runner.hcl"}, out)
	require.NoError(t, err)
	require.False(t, shouldExit)

	assert.Equal(t, "bots/runner.hcl", config.ProfilePath)
	assert.Equal(t, "scenarios", config.ScenariosPath)
	assert.Empty(t, config.BridgeURL)
	assert.Equal(t, 100*time.Millisecond, config.TickInterval)
	assert.Equal(t, "json", config.LogFormat)
	assert.Equal(t, "info", config.LogLevel)
	assert.False(t, config.CheckOnly)
}

func TestParse_FlagsOverrideDefaults(t *testing.T) {
	out := &bytes.Buffer{}
	config, shouldExit, err := Parse([]string{
		"--profile", "bot.hcl",
		"--scenarios", "data/scenarios",
		"--bridge-url", "ws://localhost:9000/client",
		"--tick", "50ms",
		"--log-format", "text",
		"--log-level", "debug",
		"--check",
	}, out)
	require.NoError(t, err)
	require.False(t, shouldExit)

	assert.Equal(t, "bot.hcl", config.ProfilePath)
	assert.Equal(t, "data/scenarios", config.ScenariosPath)
	assert.Equal(t, "ws://localhost:9000/client", config.BridgeURL)
	assert.Equal(t, 50*time.Millisecond, config.TickInterval)
	assert.Equal(t, "text", config.LogFormat)
	assert.Equal(t, "debug", config.LogLevel)
	assert.True(t, config.CheckOnly)
}

func TestParse_NoPathPrintsUsage(t *testing.T) {
	out := &bytes.Buffer{}
	config, shouldExit, err := Parse(nil, out)
	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Nil(t, config)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParse_InvalidValues(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "bad log format",
			args: []string{"--log-format", "yaml", "bot.hcl"},
			want: "invalid log-format",
		},
		{
			name: "bad log level",
			args: []string{"--log-level", "verbose", "bot.hcl"},
			want: "invalid log-level",
		},
		{
			name: "unknown flag",
			args: []string{"--nope"},
			want: "flag provided but not defined",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			_, _, err := Parse(tc.args, out)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.want)
		})
	}
}
