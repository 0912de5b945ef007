package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]string{"-jwtsecret", "s3cr3t"})
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", cfg.Host)
	require.Equal(t, 8080, cfg.Port)
	require.NotEmpty(t, cfg.DBPath)
	require.Equal(t, "s3cr3t", cfg.JWTSecret)
}

func TestParseRequiresJWTSecret(t *testing.T) {
	_, err := Parse([]string{})
	require.Error(t, err)
}

func TestParseOverridesFlags(t *testing.T) {
	cfg, err := Parse([]string{
		"-jwtsecret", "s3cr3t",
		"-host", "0.0.0.0",
		"-port", "9090",
		"-ratelimit", "20",
	})
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9090", cfg.Addr())
	require.Equal(t, 20, cfg.RateLimitPerSecond)
}

func TestEnsureDataDirCreatesLogsSubdir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	require.NoError(t, EnsureDataDir(dir))

	info, err := os.Stat(filepath.Join(dir, "logs"))
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestEnsureDataDirEmptyIsNoop(t *testing.T) {
	require.NoError(t, EnsureDataDir(""))
}
