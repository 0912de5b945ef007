package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewBackendRejectsUnknownLevel(t *testing.T) {
	_, err := NewBackend(Config{Level: "bogus"})
	require.Error(t, err)
}

func TestLoggerWritesToConfiguredFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pokercore.log")

	b, err := NewBackend(Config{Level: "debug", LogFile: path})
	require.NoError(t, err)

	log := b.Logger("TABLE")
	log.Info("hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "hello")
}

func TestRotateReopensLogFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pokercore.log")

	b, err := NewBackend(Config{Level: "info", LogFile: path})
	require.NoError(t, err)
	require.NoError(t, b.Rotate())

	log := b.Logger("RNG")
	log.Info("after rotate")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "after rotate")
}
