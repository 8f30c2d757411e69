package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("WEATHERINSIGHTS_LOG_LEVEL", "error")

	root := rootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--config-dir", t.TempDir()))
	err := root.Execute()
	return out.String(), err
}

func TestSeedCommand(t *testing.T) {
	out, err := runCLI(t, "seed", "--days", "2", "--step", "6", "--location", "Recife")
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 8 readings for Recife over 2 day(s), every 6h")
}

func TestSeedCommand_DefaultSite(t *testing.T) {
	out, err := runCLI(t, "seed", "--days", "1", "--step", "12")
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 2 readings for Brasília")
}

func TestSeedCommand_InvalidStep(t *testing.T) {
	_, err := runCLI(t, "seed", "--step", "0")
	assert.ErrorContains(t, err, "step")
}
