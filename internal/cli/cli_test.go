package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noema/hlr/core/model"
	hlrErrors "github.com/noema/hlr/pkg/errors"
)

// run executes the command tree against a config whose store lives in dir.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cfgPath := filepath.Join(dir, "hlr.yaml")
	if _, err := os.Stat(cfgPath); err != nil {
		yaml := "log:\n  level: error\nstore:\n  path: " + filepath.Join(dir, "store") + "\n"
		require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o600))
	}

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Equal(t, "hlr dev (commit: unknown, built: unknown)\n", out)
	assert.Equal(t, "dev (unknown)", VersionString())
}

func TestCheckpointLifecycle(t *testing.T) {
	dir := t.TempDir()

	cp := model.NewCheckpoint("user-1", model.Hyperparameters{
		LearningRate: 0.001, HalfLifeWeight: 0.01, L2Weight: 0.1, Sigma: 1,
	}, map[string]float64{"bias": 0.5}, map[string]int{"bias": 2})
	cp.Observations = 2
	file := filepath.Join(dir, "user-1.json")
	require.NoError(t, model.SaveFile(cp, file))

	out, err := run(t, dir, "checkpoint", "import", file)
	require.NoError(t, err)
	assert.Equal(t, "imported user-1 (1 features)\n", out)

	_, err = run(t, dir, "checkpoint", "import", file, "--scope", "user-2")
	require.NoError(t, err)

	out, err = run(t, dir, "checkpoint", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "user-1\tfeatures=1\tobservations=2")
	assert.Contains(t, out, "user-2\tfeatures=1\tobservations=2")

	out, err = run(t, dir, "checkpoint", "show", "user-2")
	require.NoError(t, err)
	shown, err := model.Unmarshal([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, "user-2", shown.Scope)
	assert.Equal(t, cp.Hash(), shown.Hash())

	exported := filepath.Join(dir, "export.json")
	_, err = run(t, dir, "checkpoint", "show", "user-1", "--out", exported)
	require.NoError(t, err)
	loaded, err := model.LoadFile(exported)
	require.NoError(t, err)
	assert.Equal(t, 0.5, loaded.Weights["bias"])

	out, err = run(t, dir, "checkpoint", "delete", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "deleted user-1\n", out)

	_, err = run(t, dir, "checkpoint", "show", "user-1")
	assert.True(t, errors.Is(err, hlrErrors.ErrNotFound))
}

func TestCheckpointImportRejectsBadFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"model_type":"HalfLifeRegression","format_version":"9"}`), 0o600))

	_, err := run(t, dir, "checkpoint", "import", file)
	assert.True(t, errors.Is(err, hlrErrors.ErrUnsupportedFormat))
}

func TestLoadConfigLogLevelOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hlr.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  in_memory: true\n"), 0o600))

	root := NewRootCmd()
	require.NoError(t, root.ParseFlags([]string{"--config", path, "--log-level", "debug"}))

	cfg, err := loadConfig(root)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Store.InMemory)
}
