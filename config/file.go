package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFile loads configuration from a .conf file.
// Format: key = value (one per line, # for comments). A missing file yields
// no values.
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}
		key = strings.TrimSpace(key)
		values[key] = unquote(strings.TrimSpace(value))
	}

	return values, scanner.Err()
}

func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a config value by key. Unknown keys are ignored.
func setConfigValue(cfg *Config, key, value string) error {
	var err error
	switch key {
	// Core
	case "network":
		cfg.Network = NetworkType(strings.ToLower(value))
	case "datadir":
		cfg.DataDir = value

	// RPC
	case "rpc.enabled", "rpc":
		cfg.RPC.Enabled = parseBool(value)
	case "rpc.addr":
		cfg.RPC.Addr = value
	case "rpc.port":
		cfg.RPC.Port, err = strconv.Atoi(value)
	case "rpc.allowed":
		cfg.RPC.AllowedIPs = parseStringList(value)
	case "rpc.cors":
		cfg.RPC.CORSOrigins = parseStringList(value)

	// Metrics
	case "metrics.enabled", "metrics":
		cfg.Metrics.Enabled = parseBool(value)

	// Auth
	case "auth.secretfile":
		cfg.Auth.SecretFile = value
	case "auth.tokenttl":
		cfg.Auth.TokenTTL, err = time.ParseDuration(value)
	case "auth.bcryptcost":
		cfg.Auth.BcryptCost, err = strconv.Atoi(value)

	// Recovery
	case "recovery.words":
		cfg.Recovery.Words, err = strconv.Atoi(value)
	case "recovery.maxattempts":
		cfg.Recovery.MaxAttempts, err = strconv.Atoi(value)
	case "recovery.pendingttl":
		cfg.Recovery.PendingTTL, err = time.ParseDuration(value)
	case "recovery.purgeinterval":
		cfg.Recovery.PurgeInterval, err = time.ParseDuration(value)
	case "recovery.wordlist":
		cfg.Recovery.Wordlist = value
	case "recovery.argon.memory":
		cfg.Recovery.ArgonMemory, err = parseUint32(value)
	case "recovery.argon.iterations":
		cfg.Recovery.ArgonIterations, err = parseUint32(value)

	// Solana
	case "solana.devnet":
		cfg.Solana.DevnetURL = value
	case "solana.mainnet":
		cfg.Solana.MainnetURL = value
	case "solana.mint":
		cfg.Solana.Mint = value
	case "solana.timeout":
		cfg.Solana.Timeout, err = time.ParseDuration(value)

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)
	}
	return err
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

func parseUint32(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	return uint32(n), err
}

// parseStringList parses a comma-separated list.
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// WriteDefaultConfig writes a default configuration file.
func WriteDefaultConfig(path string, network NetworkType) error {
	def := Default(network)
	content := `# Topocoin wallet API configuration

# Default Solana cluster: devnet or mainnet
network = ` + string(network) + `

# Data directory (default: ~/.topocoin)
# datadir = ~/.topocoin

# ============================================================================
# RPC Server
# ============================================================================

rpc.enabled = true
rpc.addr = 127.0.0.1
rpc.port = ` + strconv.Itoa(def.RPC.Port) + `
rpc.allowed = 127.0.0.1
# CORS allowed origins ("*" for all)
# rpc.cors = http://localhost:3000

# Serve Prometheus metrics at /metrics
metrics.enabled = true

# ============================================================================
# Authentication
# ============================================================================

# Token signing key, generated on first start
auth.secretfile = jwt.secret
auth.tokenttl = 15m
auth.bcryptcost = 12

# ============================================================================
# Recovery phrase
# ============================================================================

recovery.words = 12
recovery.maxattempts = 3
# Abandoned registrations expire after this long (0 = never)
recovery.pendingttl = 30m
recovery.purgeinterval = 1m
# Custom wordlist, one word per line (default: BIP-39 English)
# recovery.wordlist =
recovery.argon.memory = 19456
recovery.argon.iterations = 2

# ============================================================================
# Solana
# ============================================================================

solana.devnet = ` + DefaultDevnetURL + `
solana.mainnet = ` + DefaultMainnetURL + `
solana.mint = ` + DefaultMint + `
solana.timeout = 10s

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}
