// Package auth resolves API tokens for configured forges. Sources are
// tried cheapest-first: environment variable, stored token file, then the
// configured token command (a subprocess, typically `gh auth token`).
// A token obtained from the command is stored so the next launch skips
// the subprocess.
package auth

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"forgedeck/internal/config"
	"forgedeck/internal/forge"
)

// Token resolves the token for one forge entry.
func Token(entry config.ForgeEntry) (string, error) {
	if entry.TokenEnv != "" {
		if tok := strings.TrimSpace(os.Getenv(entry.TokenEnv)); tok != "" {
			return tok, nil
		}
	}
	if tok, ok := storedToken(entry.Name); ok {
		return tok, nil
	}
	if entry.TokenCommand != "" {
		tok, err := commandToken(entry.TokenCommand)
		if err == nil && tok != "" {
			// Best-effort store; resolution already succeeded.
			_ = storeToken(entry.Name, tok)
			return tok, nil
		}
	}
	return "", forge.Errorf(forge.ErrAuth,
		"no token for %s: set %s or configure token_command", entry.Name, envHint(entry))
}

func envHint(entry config.ForgeEntry) string {
	if entry.TokenEnv != "" {
		return entry.TokenEnv
	}
	return "a token_env variable"
}

func storedToken(name string) (string, bool) {
	path, err := config.TokenPath(name)
	if err != nil {
		return "", false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	tok := strings.TrimSpace(string(data))
	return tok, tok != ""
}

func storeToken(name, token string) error {
	path, err := config.TokenPath(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(token+"\n"), 0o600)
}

func commandToken(command string) (string, error) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return "", fmt.Errorf("auth: empty token command")
	}
	out, err := exec.Command(parts[0], parts[1:]...).Output()
	if err != nil {
		return "", fmt.Errorf("auth: token command %q: %w", command, err)
	}
	return strings.TrimSpace(string(out)), nil
}
