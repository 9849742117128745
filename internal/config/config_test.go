package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "server: oracle.ctf.example\n")

	config, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "oracle.ctf.example", config.Server)
	assert.Equal(t, 1600, config.Port)
	assert.Equal(t, "Valid Padding", config.ValidMarker)
	assert.Equal(t, "Invalid Padding", config.InvalidMarker)
	assert.Equal(t, 3, config.RetryAttempts)
	assert.Equal(t, 10000, config.QueryTimeoutMs)
}

func TestLoadArgsOverride(t *testing.T) {
	path := writeConfig(t, "server: a\nport: 1\n")

	config, err := Load(path, []string{"b", "4242"})
	require.NoError(t, err)
	assert.Equal(t, "b", config.Server)
	assert.Equal(t, 4242, config.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadBadYAML(t *testing.T) {
	path := writeConfig(t, "server: [unclosed\n")
	_, err := Load(path, nil)
	assert.Error(t, err)
}
