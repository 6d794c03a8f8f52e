package node

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lojol469-cmd/Topocoin-api/config"
	"github.com/lojol469-cmd/Topocoin-api/internal/recovery"
)

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// recoveryConfig translates the recovery settings into the lifecycle
// manager's configuration, loading a custom wordlist when one is set.
func recoveryConfig(rc config.RecoveryConfig) (recovery.Config, error) {
	cfg := recovery.DefaultConfig()
	cfg.PhraseLength = rc.Words
	cfg.MaxAttempts = rc.MaxAttempts
	cfg.PendingTTL = rc.PendingTTL
	cfg.Digest.Memory = rc.ArgonMemory
	cfg.Digest.Iterations = rc.ArgonIterations

	if rc.Wordlist != "" {
		words, err := recovery.LoadWordlist(expandHome(rc.Wordlist))
		if err != nil {
			return recovery.Config{}, fmt.Errorf("load wordlist %s: %w", rc.Wordlist, err)
		}
		cfg.Wordlist = words
	}
	return cfg, nil
}
