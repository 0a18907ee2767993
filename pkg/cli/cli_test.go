package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gravityyaml/pkg/gravityfile"
	"gravityyaml/pkg/store"
)

const sampleConfig = `
groups:
  - name: Family
adlists:
  - url: https://big.oisd.nl/
    groups: [Default, Family, Ghost]
`

type run struct {
	dir    string
	config string
	log    string
}

func newRun(t *testing.T, content string) run {
	t.Helper()
	dir := t.TempDir()
	r := run{
		dir:    dir,
		config: filepath.Join(dir, "gravity.yaml"),
		log:    filepath.Join(dir, "gravityyaml.log"),
	}
	require.NoError(t, os.WriteFile(r.config, []byte(content), 0o600))
	return r
}

func (r run) execute(extra ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	args := append([]string{"-c", r.config, "-d", filepath.Join(r.dir, "pihole"), "--log-file", r.log}, extra...)
	code := Execute(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestExecuteImport(t *testing.T) {
	r := newRun(t, sampleConfig)

	code, stdout, _ := r.execute()
	require.Equal(t, ExitOK, code, stdout)
	assert.FileExists(t, filepath.Join(r.dir, "pihole", store.FileName))

	logContent, err := os.ReadFile(r.log)
	require.NoError(t, err)
	assert.Contains(t, string(logContent), "group referenced by adlist does not exist")
	assert.Contains(t, string(logContent), "import complete")
}

func TestExecuteValidate(t *testing.T) {
	r := newRun(t, sampleConfig)

	code, stdout, _ := r.execute("validate")
	require.Equal(t, ExitOK, code, stdout)
	assert.Contains(t, stdout, "1 groups, 1 adlists, 0 issues")
	assert.NoDirExists(t, filepath.Join(r.dir, "pihole"))
}

func TestExecuteVersion(t *testing.T) {
	r := newRun(t, sampleConfig)

	code, stdout, _ := r.execute("version")
	assert.Equal(t, ExitOK, code)
	assert.Contains(t, stdout, "gravityyaml version")
}

func TestExecuteFailures(t *testing.T) {
	t.Run("missing config", func(t *testing.T) {
		r := newRun(t, sampleConfig)
		require.NoError(t, os.Remove(r.config))
		code, stdout, stderr := r.execute()
		assert.Equal(t, ExitFileNotFound, code)
		assert.Contains(t, stdout, "FATAL - config file not found")
		assert.Empty(t, stderr)
	})

	t.Run("empty adlists", func(t *testing.T) {
		r := newRun(t, "adlists: []\n")
		code, stdout, _ := r.execute()
		assert.Equal(t, ExitConfigFile, code)
		assert.Contains(t, stdout, "no ad lists specified")
		assert.NoDirExists(t, filepath.Join(r.dir, "pihole"))
	})

	t.Run("declared Default group", func(t *testing.T) {
		r := newRun(t, "groups:\n  - name: Default\nadlists:\n  - url: http://a\n    groups: [Default]\n")
		code, stdout, _ := r.execute()
		assert.Equal(t, ExitConfigFile, code)
		assert.Contains(t, stdout, "reserved name Default")
		assert.NoDirExists(t, filepath.Join(r.dir, "pihole"))
	})

	t.Run("missing schema", func(t *testing.T) {
		r := newRun(t, sampleConfig)
		code, _, _ := r.execute("--schema", filepath.Join(r.dir, "missing.sql"))
		assert.Equal(t, ExitFileNotFound, code)
	})

	t.Run("broken schema", func(t *testing.T) {
		r := newRun(t, sampleConfig)
		schema := filepath.Join(r.dir, "broken.sql")
		require.NoError(t, os.WriteFile(schema, []byte("CREATE TABLE ("), 0o600))
		code, _, _ := r.execute("--schema", schema)
		assert.Equal(t, ExitDatabase, code)
	})

	t.Run("invalid log level", func(t *testing.T) {
		r := newRun(t, sampleConfig)
		code, _, _ := r.execute("--log-level", "trace")
		assert.Equal(t, ExitDefault, code)
	})
}

func TestExecuteDebugPanics(t *testing.T) {
	r := newRun(t, "adlists: []\n")
	assert.Panics(t, func() {
		r.execute("--debug")
	})
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{errors.New("boom"), ExitDefault},
		{fmt.Errorf("wrapped: %w", gravityfile.ErrNotFound), ExitFileNotFound},
		{store.ErrSchemaNotFound, ExitFileNotFound},
		{gravityfile.ErrParse, ExitConfigFile},
		{gravityfile.ErrValidation, ExitConfigFile},
		{store.ErrInit, ExitDatabase},
		{fmt.Errorf("%w: commit", store.ErrWrite), ExitDatabase},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExitCode(tt.err), "ExitCode(%v)", tt.err)
	}
}
