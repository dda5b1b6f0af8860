package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun_PanicRecovery(t *testing.T) {
	t.Parallel()

	// A profile with a syntax error panics inside app.NewApp; run must
	// recover it into a plain error.
	invalidHCL := `
		bot "Broken" {
			phase "P" {
	`
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "bot.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(invalidHCL), 0o600))

	out := &bytes.Buffer{}
	err := run(out, []string{filePath})

	require.Error(t, err)
	require.Contains(t, err.Error(), "application startup panicked")
	require.Contains(t, err.Error(), "invalid bot profile")
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(out, []string{"-h"})

	require.NoError(t, err, "help must exit cleanly")
	require.Contains(t, out.String(), "Usage:")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(out, []string{"--this-is-not-a-valid-flag"})

	require.Error(t, err)
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}
