package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
)

// Flags holds parsed command-line flags.
type Flags struct {
	// Commands
	Help    bool
	Version bool

	// Core
	Network string
	DataDir string
	Config  string

	// RPC
	RPC        bool
	RPCAddr    string
	RPCPort    int
	RPCAllowed string
	RPCCORS    string

	// Metrics
	Metrics bool

	// Recovery
	PhraseWords int
	MaxAttempts int
	PendingTTL  time.Duration
	Wordlist    string

	// Solana
	SolanaDevnet  string
	SolanaMainnet string
	Mint          string

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Remaining args
	Args []string

	// Explicitly-set flags (for true/false and zero overrides).
	SetRPC        bool
	SetMetrics    bool
	SetPendingTTL bool
	SetLogJSON    bool
}

// ParseFlagsFrom parses args (without the program name).
func ParseFlagsFrom(args []string) (*Flags, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("topocoind", flag.ContinueOnError)
	fs.Usage = printUsage

	// Commands
	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")
	fs.BoolVar(&f.Version, "v", false, "Show version (shorthand)")

	// Core
	fs.StringVar(&f.Network, "network", "", "Default cluster (devnet or mainnet)")
	devnet := fs.Bool("devnet", false, "Shorthand for --network=devnet")
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")

	// RPC
	fs.BoolVar(&f.RPC, "rpc", true, "Enable RPC server")
	fs.StringVar(&f.RPCAddr, "rpc-addr", "", "RPC listen address")
	fs.IntVar(&f.RPCPort, "rpc-port", 0, "RPC listen port")
	fs.StringVar(&f.RPCAllowed, "rpc-allowed", "", "Allowed IPs for RPC")
	fs.StringVar(&f.RPCCORS, "rpc-cors", "", "Allowed CORS origins for RPC (comma-separated)")
	fs.BoolVar(&f.Metrics, "metrics", true, "Serve Prometheus metrics at /metrics")

	// Recovery
	fs.IntVar(&f.PhraseWords, "phrase-words", 0, "Words per recovery phrase")
	fs.IntVar(&f.MaxAttempts, "max-attempts", 0, "Verification attempts before lockout")
	fs.DurationVar(&f.PendingTTL, "pending-ttl", 0, "Expiry of unverified registrations (0 = never)")
	fs.StringVar(&f.Wordlist, "wordlist", "", "Custom wordlist file")

	// Solana
	fs.StringVar(&f.SolanaDevnet, "solana-devnet", "", "Devnet JSON-RPC endpoint")
	fs.StringVar(&f.SolanaMainnet, "solana-mainnet", "", "Mainnet JSON-RPC endpoint")
	fs.StringVar(&f.Mint, "mint", "", "TPC token mint address")

	// Logging
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *devnet {
		f.Network = string(Devnet)
	}
	f.SetRPC = isFlagSet(fs, "rpc")
	f.SetMetrics = isFlagSet(fs, "metrics")
	f.SetPendingTTL = isFlagSet(fs, "pending-ttl")
	f.SetLogJSON = isFlagSet(fs, "log-json")
	f.Args = fs.Args()

	for _, arg := range f.Args {
		if strings.HasPrefix(arg, "-") {
			return nil, fmt.Errorf("flag %q was not parsed (positional argument stopped parsing)", arg)
		}
	}
	return f, nil
}

// ParseFlags parses os.Args, exiting on error.
func ParseFlags() *Flags {
	f, err := ParseFlagsFrom(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return f
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) {
	// Core
	if f.Network != "" {
		cfg.Network = NetworkType(strings.ToLower(f.Network))
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}

	// RPC
	if f.SetRPC {
		cfg.RPC.Enabled = f.RPC
	}
	if f.RPCAddr != "" {
		cfg.RPC.Addr = f.RPCAddr
	}
	if f.RPCPort != 0 {
		cfg.RPC.Port = f.RPCPort
	}
	if f.RPCAllowed != "" {
		cfg.RPC.AllowedIPs = parseStringList(f.RPCAllowed)
	}
	if f.RPCCORS != "" {
		cfg.RPC.CORSOrigins = parseStringList(f.RPCCORS)
	}
	if f.SetMetrics {
		cfg.Metrics.Enabled = f.Metrics
	}

	// Recovery
	if f.PhraseWords != 0 {
		cfg.Recovery.Words = f.PhraseWords
	}
	if f.MaxAttempts != 0 {
		cfg.Recovery.MaxAttempts = f.MaxAttempts
	}
	if f.SetPendingTTL {
		cfg.Recovery.PendingTTL = f.PendingTTL
	}
	if f.Wordlist != "" {
		cfg.Recovery.Wordlist = f.Wordlist
	}

	// Solana
	if f.SolanaDevnet != "" {
		cfg.Solana.DevnetURL = f.SolanaDevnet
	}
	if f.SolanaMainnet != "" {
		cfg.Solana.MainnetURL = f.SolanaMainnet
	}
	if f.Mint != "" {
		cfg.Solana.Mint = f.Mint
	}

	// Logging
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func printUsage() {
	usage := `Topocoin wallet API - Solana relay with recovery-phrase account activation

Usage:
  topocoind [options]
  topocoind --help

Commands:
  --help, -h      Show this help message
  --version, -v   Show version information

Core Options:
  --network       Default cluster: mainnet (default) or devnet
  --devnet        Shorthand for --network=devnet
  --datadir       Data directory (default: ~/.topocoin)
  --config, -c    Config file path (default: <datadir>/topocoin.conf)

RPC Options:
  --rpc           Enable RPC server (default: true)
  --rpc-addr      RPC listen address (default: 127.0.0.1)
  --rpc-port      RPC port (mainnet: 8545, devnet: 8645)
  --rpc-allowed   Allowed IPs for RPC (comma-separated)
  --rpc-cors      Allowed CORS origins for RPC (comma-separated)
  --metrics       Serve Prometheus metrics at /metrics (default: true)

Recovery Options:
  --phrase-words  Words per recovery phrase (default: 12)
  --max-attempts  Verification attempts before lockout (default: 3)
  --pending-ttl   Expiry of unverified registrations (default: 30m, 0 = never)
  --wordlist      Custom wordlist file, one word per line

Solana Options:
  --solana-devnet   Devnet JSON-RPC endpoint
  --solana-mainnet  Mainnet JSON-RPC endpoint
  --mint            TPC token mint address

Logging Options:
  --log-level     Log level: debug, info, warn, error (default: info)
  --log-file      Log file path (default: stdout)
  --log-json      Output logs as JSON

Examples:
  # Start against devnet
  topocoind --devnet

  # Use a private RPC provider for mainnet
  topocoind --solana-mainnet=https://rpc.example.com

Data directories and a default config file are created on first start.
`
	fmt.Print(usage)
}

// Load loads configuration with the following precedence:
// 1. Default values
// 2. Auto-create data dirs + default config (idempotent)
// 3. Config file
// 4. Command-line flags
func Load() (*Config, *Flags, error) {
	flags := ParseFlags()

	if flags.Help {
		printUsage()
		os.Exit(0)
	}
	if flags.Version {
		fmt.Println("topocoind version " + Version)
		os.Exit(0)
	}

	cfg, err := LoadWithFlags(flags)
	if err != nil {
		return nil, nil, err
	}
	return cfg, flags, nil
}

// LoadWithFlags runs the layering for already-parsed flags.
func LoadWithFlags(flags *Flags) (*Config, error) {
	network := Mainnet
	if strings.EqualFold(flags.Network, string(Devnet)) {
		network = Devnet
	}

	cfg := Default(network)
	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}

	if err := EnsureDataDirs(cfg); err != nil {
		return nil, fmt.Errorf("ensuring data dirs: %w", err)
	}

	configPath := flags.Config
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}
	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, fmt.Errorf("applying config file: %w", err)
	}

	ApplyFlags(cfg, flags)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// EnsureDataDirs creates the data directory structure and a default config
// file if they don't already exist. It is safe to call on every startup.
func EnsureDataDirs(cfg *Config) error {
	dirs := []string{
		cfg.DataDir,
		cfg.NetworkDataDir(),
		cfg.DBDir(),
		cfg.LogsDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath, cfg.Network); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}
	return nil
}

// LoadFromFile builds the config for network rooted at dataDir without
// parsing command-line flags. The data directories and a default config
// file are created if missing.
func LoadFromFile(dataDir string, network NetworkType) (*Config, error) {
	return LoadWithFlags(&Flags{Network: string(network), DataDir: dataDir})
}
