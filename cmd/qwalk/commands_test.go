package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epoch-iith/qmashup/internal/modules/mashup"
	"github.com/epoch-iith/qmashup/internal/modules/operator"
)

const squareGraph = `{
  "name": "square",
  "adjacency": [[0,1,0,1],[1,0,1,0],[0,1,0,1],[1,0,1,0]],
  "segments": [
    {"id": "a0", "parent_group": "a", "audio_ref": "a0.wav"},
    {"id": "a1", "parent_group": "a", "audio_ref": "a1.wav"},
    {"id": "b0", "parent_group": "b", "audio_ref": "b0.wav"},
    {"id": "b1", "parent_group": "b", "audio_ref": "b1.wav"}
  ]
}`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func setupDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("QMASHUP_DATA_DIR", dir)
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("EXPORT_BUCKET", "")
	return dir
}

func importSquare(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "square.json")
	require.NoError(t, os.WriteFile(path, []byte(squareGraph), 0o644))

	out, err := execute(t, "import", path)
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	require.NotEmpty(t, id)
	return id
}

func TestImportAndSpectrum(t *testing.T) {
	dir := setupDataDir(t)
	id := importSquare(t, dir)

	out, err := execute(t, "spectrum", id)
	require.NoError(t, err)

	var spectrum operator.Spectrum
	require.NoError(t, json.Unmarshal([]byte(out), &spectrum))
	require.Len(t, spectrum.Eigenvalues, 4)
	assert.InDelta(t, 0.0, spectrum.Min, 1e-9)
	assert.InDelta(t, 4.0, spectrum.Max, 1e-9)
	// The 4-cycle Laplacian has eigenvalues 0, 2, 2, 4
	assert.Equal(t, 1, spectrum.Degeneracies)
}

func TestRun(t *testing.T) {
	dir := setupDataDir(t)
	id := importSquare(t, dir)

	out, err := execute(t, "run", "--graph", id, "--steps", "40", "--length", "5", "--memory", "2")
	require.NoError(t, err)

	var run mashup.Run
	require.NoError(t, json.Unmarshal([]byte(out), &run))
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, id, run.Params.GraphID)
	assert.Len(t, run.Path.Nodes, 5)
	assert.Len(t, run.Stitch.Segments, 5)
}

func TestCommandErrors(t *testing.T) {
	dir := setupDataDir(t)

	tests := []struct {
		name string
		args []string
	}{
		{"missing file", []string{"import", filepath.Join(dir, "nope.json")}},
		{"run without graph", []string{"run"}},
		{"unknown graph", []string{"run", "--graph", "missing"}},
		{"bad noise", []string{"run", "--graph", "missing", "--noise", "1.5"}},
		{"spectrum unknown graph", []string{"spectrum", "missing"}},
		{"spectrum bad mode", []string{"spectrum", "missing", "--mode", "hyperbolic"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			assert.Error(t, err)
		})
	}
}
