package config

import (
	"fmt"
	"net/url"
)

// Limits enforced by Validate.
const (
	minArgonMemory = 8 // KiB
	maxPhraseWords = 2048
)

// Validate checks config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Devnet && cfg.Network != Mainnet {
		return fmt.Errorf("network must be %q or %q", Devnet, Mainnet)
	}
	if cfg.RPC.Port < 0 || cfg.RPC.Port > 65535 {
		return fmt.Errorf("rpc.port must be in range [0, 65535]")
	}

	if cfg.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.tokenttl must be positive")
	}
	if cfg.Auth.BcryptCost != 0 && (cfg.Auth.BcryptCost < 4 || cfg.Auth.BcryptCost > 31) {
		return fmt.Errorf("auth.bcryptcost must be in range [4, 31]")
	}

	r := cfg.Recovery
	if r.Words < 1 || r.Words > maxPhraseWords {
		return fmt.Errorf("recovery.words must be in range [1, %d]", maxPhraseWords)
	}
	if r.MaxAttempts < 1 {
		return fmt.Errorf("recovery.maxattempts must be at least 1")
	}
	if r.PendingTTL < 0 {
		return fmt.Errorf("recovery.pendingttl must not be negative")
	}
	if r.PendingTTL > 0 && r.PurgeInterval <= 0 {
		return fmt.Errorf("recovery.purgeinterval must be positive when recovery.pendingttl is set")
	}
	if r.ArgonMemory < minArgonMemory {
		return fmt.Errorf("recovery.argon.memory must be at least %d KiB", minArgonMemory)
	}
	if r.ArgonIterations < 1 {
		return fmt.Errorf("recovery.argon.iterations must be at least 1")
	}

	endpoints := cfg.Solana.Endpoints()
	if _, ok := endpoints[string(cfg.Network)]; !ok {
		return fmt.Errorf("solana.%s must be set for network %s", cfg.Network, cfg.Network)
	}
	for name, raw := range endpoints {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("solana.%s must be an http(s) URL", name)
		}
	}
	if cfg.Solana.Mint == "" {
		return fmt.Errorf("solana.mint is required")
	}
	if cfg.Solana.Timeout <= 0 {
		return fmt.Errorf("solana.timeout must be positive")
	}

	return nil
}
