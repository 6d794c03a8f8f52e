// Package config handles topocoind configuration.
//
// Settings are layered: built-in defaults, then the key = value config file
// in the data directory, then command-line flags. The result is checked by
// Validate before the node starts.
package config

import (
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"
)

// Version is reported by --version.
const Version = "0.1.0"

// NetworkType names the default Solana cluster.
type NetworkType string

const (
	Devnet  NetworkType = "devnet"
	Mainnet NetworkType = "mainnet"
)

// Config holds topocoind runtime configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// JSON-RPC server
	RPC RPCConfig

	// Prometheus endpoint
	Metrics MetricsConfig

	// Passwords and access tokens
	Auth AuthConfig

	// Recovery-phrase activation
	Recovery RecoveryConfig

	// Upstream clusters
	Solana SolanaConfig

	// Logging
	Log LogConfig
}

// RPCConfig holds RPC server settings.
type RPCConfig struct {
	Enabled     bool     `conf:"rpc.enabled"`
	Addr        string   `conf:"rpc.addr"`
	Port        int      `conf:"rpc.port"`
	AllowedIPs  []string `conf:"rpc.allowed"`
	CORSOrigins []string `conf:"rpc.cors"` // Allowed CORS origins ("*" = all).
}

// MetricsConfig controls the /metrics endpoint on the RPC listener.
type MetricsConfig struct {
	Enabled bool `conf:"metrics.enabled"`
}

// AuthConfig holds password hashing and token settings.
type AuthConfig struct {
	SecretFile string        `conf:"auth.secretfile"` // Relative paths are under DataDir.
	TokenTTL   time.Duration `conf:"auth.tokenttl"`
	BcryptCost int           `conf:"auth.bcryptcost"`
}

// RecoveryConfig holds the recovery-phrase lifecycle settings. A zero
// PendingTTL means registrations never expire; an empty Wordlist selects
// BIP-39 English. ArgonMemory is in KiB.
type RecoveryConfig struct {
	Words           int           `conf:"recovery.words"`
	MaxAttempts     int           `conf:"recovery.maxattempts"`
	PendingTTL      time.Duration `conf:"recovery.pendingttl"`
	PurgeInterval   time.Duration `conf:"recovery.purgeinterval"`
	Wordlist        string        `conf:"recovery.wordlist"`
	ArgonMemory     uint32        `conf:"recovery.argon.memory"`
	ArgonIterations uint32        `conf:"recovery.argon.iterations"`
}

// SolanaConfig holds the cluster endpoints the relay talks to.
type SolanaConfig struct {
	DevnetURL  string        `conf:"solana.devnet"`
	MainnetURL string        `conf:"solana.mainnet"`
	Mint       string        `conf:"solana.mint"`
	Timeout    time.Duration `conf:"solana.timeout"`
}

// Endpoints returns the configured cluster URLs by network name.
func (s SolanaConfig) Endpoints() map[string]string {
	out := make(map[string]string, 2)
	if s.DevnetURL != "" {
		out[string(Devnet)] = s.DevnetURL
	}
	if s.MainnetURL != "" {
		out[string(Mainnet)] = s.MainnetURL
	}
	return out
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.topocoin
//	macOS:   ~/Library/Application Support/Topocoin
//	Windows: %APPDATA%\Topocoin
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".topocoin"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Topocoin")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Topocoin")
		}
		return filepath.Join(home, "AppData", "Roaming", "Topocoin")
	default:
		return filepath.Join(home, ".topocoin")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// DBDir returns the Badger database directory.
func (c *Config) DBDir() string {
	return filepath.Join(c.NetworkDataDir(), "db")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "topocoin.conf")
}

// SecretPath returns the token signing key path.
func (c *Config) SecretPath() string {
	if c.Auth.SecretFile == "" {
		return filepath.Join(c.DataDir, "jwt.secret")
	}
	if filepath.IsAbs(c.Auth.SecretFile) {
		return c.Auth.SecretFile
	}
	return filepath.Join(c.DataDir, c.Auth.SecretFile)
}

// RPCListenAddr returns the host:port the RPC server binds.
func (c *Config) RPCListenAddr() string {
	return net.JoinHostPort(c.RPC.Addr, strconv.Itoa(c.RPC.Port))
}
