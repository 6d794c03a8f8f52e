package config

import (
	"time"
)

// Default endpoints and token mint.
const (
	DefaultDevnetURL  = "https://api.devnet.solana.com"
	DefaultMainnetURL = "https://api.mainnet-beta.solana.com"
	DefaultMint       = "6zhMkoDvNg7cw8ojTH6BBdkYkDwery4GTRxZKVAPv2EW"
)

// DefaultMainnet returns the default configuration with mainnet as the
// default cluster.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		RPC: RPCConfig{
			Enabled:    true,
			Addr:       "127.0.0.1",
			Port:       8545,
			AllowedIPs: []string{"127.0.0.1"},
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Auth: AuthConfig{
			SecretFile: "jwt.secret",
			TokenTTL:   15 * time.Minute,
			BcryptCost: 12,
		},
		Recovery: RecoveryConfig{
			Words:           12,
			MaxAttempts:     3,
			PendingTTL:      30 * time.Minute,
			PurgeInterval:   time.Minute,
			ArgonMemory:     19 * 1024,
			ArgonIterations: 2,
		},
		Solana: SolanaConfig{
			DevnetURL:  DefaultDevnetURL,
			MainnetURL: DefaultMainnetURL,
			Mint:       DefaultMint,
			Timeout:    10 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultDevnet returns the default configuration with devnet as the
// default cluster.
func DefaultDevnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Devnet
	cfg.RPC.Port = 8645
	return cfg
}

// Default returns the default configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Devnet:
		return DefaultDevnet()
	default:
		return DefaultMainnet()
	}
}
