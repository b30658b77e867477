package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadNetwork(t *testing.T) {
	n, err := LoadNetwork("testdata/pipeline")
	require.NoError(t, err)

	assert.Equal(t, "pipeline", n.Name)
	assert.Len(t, n.Reactors, 4)
	assert.Len(t, n.Connections, 4)
	assert.Equal(t, 2, n.Options.Workers)
}

func TestLoadNetworkMergesFiles(t *testing.T) {
	n, err := LoadNetwork("testdata/split")
	require.NoError(t, err)

	assert.Equal(t, "split", n.Name, "unnamed networks take the directory name")
	require.Len(t, n.Reactors, 2)
	assert.Equal(t, "recorder", n.Reactors[1].Kind)
	assert.Equal(t, 2, n.Reactors[1].Bank)
	assert.Len(t, n.Connections, 2)
}

func TestLoadNetworkErrors(t *testing.T) {
	tests := []struct {
		name     string
		dir      string
		wantCode string
	}{
		{"missing directory", "testdata/nope", ErrCodeNotFound},
		{"file instead of directory", "testdata/pipeline/pipeline.cue", ErrCodeNotFound},
		{"no CUE files", "testdata/empty", ErrCodeNoFiles},
		{"float parameter", "testdata/float", ErrCodeInvalidType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadNetwork(tt.dir)
			require.Error(t, err)

			var le *LoadError
			require.ErrorAs(t, err, &le)
			assert.Equal(t, tt.wantCode, le.Code)
		})
	}
}

func TestLoadNetworkFloatErrorHasPosition(t *testing.T) {
	_, err := LoadNetwork("testdata/float")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "float.cue:4:")
	assert.Contains(t, err.Error(), ErrCodeInvalidType)
}

func TestLoadNetworkSyntaxError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.cue"), []byte("package network\n\nreactors: {\n"), 0o644))

	_, err := LoadNetwork(dir)
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeLoadFailed, le.Code)
}

func TestLoadNetworkConflict(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.cue"), []byte("package network\n\nreactors: x: {kind: \"relay\"}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.cue"), []byte("package network\n\nreactors: x: {kind: \"scale\"}\n"), 0o644))

	_, err := LoadNetwork(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflicting values")
}

func TestFindCUEFiles(t *testing.T) {
	files, err := FindCUEFiles("testdata/split")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join("testdata/split", "connections.cue"),
		filepath.Join("testdata/split", "reactors.cue"),
	}, files)
}

func TestMapFieldToErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeReactors, MapFieldToErrorCode("reactors"))
	assert.Equal(t, ErrCodeConnection, MapFieldToErrorCode("connections"))
	assert.Equal(t, ErrCodeInvalidType, MapFieldToErrorCode("type"))
	assert.Equal(t, ErrCodeGeneric, MapFieldToErrorCode("cue"))
}
