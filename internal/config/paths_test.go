package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePaths_HomeOverride(t *testing.T) {
	base := t.TempDir()
	t.Setenv("LOOM_HOME", base)

	p, err := ResolvePaths()
	require.NoError(t, err)
	assert.Equal(t, base, p.Base)
	assert.Equal(t, filepath.Join(base, "config.yaml"), p.Config)
	assert.Equal(t, filepath.Join(base, "instances"), p.Instances)
	assert.Equal(t, filepath.Join(base, "workflows"), p.Workflows)
	assert.Equal(t, filepath.Join(base, "data", "loom.db"), p.Database())
}

func TestEnsureDirs(t *testing.T) {
	base := filepath.Join(t.TempDir(), "loomhome")
	t.Setenv("LOOM_HOME", base)

	p, err := ResolvePaths()
	require.NoError(t, err)
	require.NoError(t, p.EnsureDirs())

	for _, d := range []string{p.Base, p.Instances, p.Workflows, p.Logs, p.Data} {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestParseConfigPath(t *testing.T) {
	parts, err := ParseConfigPath("server.auth.mode")
	require.NoError(t, err)
	assert.Equal(t, []string{"server", "auth", "mode"}, parts)
}

func TestParseConfigPath_Invalid(t *testing.T) {
	for _, raw := range []string{"", "server..port", "__proto__.x"} {
		_, err := ParseConfigPath(raw)
		assert.Error(t, err, "path %q should be rejected", raw)
	}
}

func TestGetSetUnsetValueAtPath(t *testing.T) {
	root := map[string]any{}

	SetValueAtPath(root, []string{"server", "port"}, 9100)
	val, ok := GetValueAtPath(root, []string{"server", "port"})
	require.True(t, ok)
	assert.Equal(t, 9100, val)

	assert.True(t, UnsetValueAtPath(root, []string{"server", "port"}))
	_, ok = GetValueAtPath(root, []string{"server", "port"})
	assert.False(t, ok)

	assert.False(t, UnsetValueAtPath(root, []string{"server", "missing"}))
}
