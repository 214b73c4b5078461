package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/hexcast/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "hexcast version "))
}

func TestCastCommand_ManualJSON(t *testing.T) {
	out, err := run(t, "cast", "--tosses", "TTH,THH,HTT,HHH,THT,HHT", "--json")
	require.NoError(t, err)

	var state domain.SessionState
	require.NoError(t, json.Unmarshal([]byte(out), &state))
	assert.Equal(t, domain.PhaseCastingComplete, state.Phase)
	assert.Equal(t, domain.ModeManual, state.Mode)
	require.NotNil(t, state.Reading)
	assert.Equal(t, 49, state.Reading.Hexagram.Number)
	require.NotNil(t, state.Reading.Resulting)
	assert.Equal(t, 63, state.Reading.Resulting.Number)
}

func TestCastCommand_RejectsBadTosses(t *testing.T) {
	_, err := run(t, "cast", "--tosses", "TTX")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestShowCommand(t *testing.T) {
	out, err := run(t, "show", "1", "--line", "1", "--lang", "en")
	require.NoError(t, err)
	assert.Contains(t, out, "1. The Creative, line 1")

	_, err = run(t, "show", "sixty-five")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGraphCommand(t *testing.T) {
	out, err := run(t, "graph")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "graph TD\n"))
	assert.Contains(t, out, `idle -- "start" --> casting`)
}

func TestValidateCommand(t *testing.T) {
	out, err := run(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Content is valid!")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "en.yaml"), []byte("locale: en\nhexagrams: {}\n"), 0o644))
	_, err = run(t, "validate", dir)
	assert.ErrorContains(t, err, "validation failed")
}

func TestHistoryCommand_NeedsUser(t *testing.T) {
	_, err := run(t, "history")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}
