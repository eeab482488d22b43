package auth

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"forgedeck/internal/config"
	"forgedeck/internal/forge"
)

func isolateConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return dir
}

func TestTokenFromEnv(t *testing.T) {
	isolateConfigDir(t)
	t.Setenv("TEST_FORGE_TOKEN", "  env-token\n")

	tok, err := Token(config.ForgeEntry{Name: "github", TokenEnv: "TEST_FORGE_TOKEN"})
	require.NoError(t, err)
	require.Equal(t, "env-token", tok, "env tokens are trimmed")
}

func TestTokenFromStoredFile(t *testing.T) {
	dir := isolateConfigDir(t)
	path := filepath.Join(dir, config.AppDir, "token-github")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte("stored-token\n"), 0o600))

	tok, err := Token(config.ForgeEntry{Name: "github", TokenEnv: "UNSET_VAR_FOR_TEST"})
	require.NoError(t, err)
	require.Equal(t, "stored-token", tok)
}

func TestTokenFromCommandIsStored(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses echo")
	}
	dir := isolateConfigDir(t)

	tok, err := Token(config.ForgeEntry{Name: "gitea", TokenCommand: "echo cmd-token"})
	require.NoError(t, err)
	require.Equal(t, "cmd-token", tok)

	stored, err := os.ReadFile(filepath.Join(dir, config.AppDir, "token-gitea"))
	require.NoError(t, err)
	require.Equal(t, "cmd-token\n", string(stored), "command tokens are persisted for the next launch")
}

func TestTokenExhaustedSourcesFailAsAuthError(t *testing.T) {
	isolateConfigDir(t)

	_, err := Token(config.ForgeEntry{Name: "github", TokenEnv: "UNSET_VAR_FOR_TEST"})
	require.Error(t, err)
	require.Equal(t, forge.ErrAuth, forge.KindOf(err))
	require.Contains(t, err.Error(), "UNSET_VAR_FOR_TEST")
}
