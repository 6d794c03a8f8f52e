// Package node wires the wallet API service together so it can be embedded
// in any binary (daemon, tests).
package node

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lojol469-cmd/Topocoin-api/config"
	"github.com/lojol469-cmd/Topocoin-api/internal/account"
	klog "github.com/lojol469-cmd/Topocoin-api/internal/log"
	"github.com/lojol469-cmd/Topocoin-api/internal/metrics"
	"github.com/lojol469-cmd/Topocoin-api/internal/recovery"
	"github.com/lojol469-cmd/Topocoin-api/internal/rpc"
	"github.com/lojol469-cmd/Topocoin-api/internal/security"
	"github.com/lojol469-cmd/Topocoin-api/internal/solana"
	"github.com/lojol469-cmd/Topocoin-api/internal/storage"
	"github.com/rs/zerolog"
)

// prefixActivation namespaces activation records inside the shared
// database. The account store claims "usr/" itself.
var prefixActivation = []byte("act/")

// Node is a fully-initialized wallet API service.
type Node struct {
	cfg    *config.Config
	logger zerolog.Logger

	// Core
	db       storage.DB
	metrics  *metrics.Metrics
	recovery *recovery.Manager
	accounts *account.Service
	networks *solana.Networks

	// RPC
	rpcServer *rpc.Server

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates and initializes a new Node. It performs all setup steps
// (logger, storage, recovery, accounts, Solana clients, RPC) but does NOT
// start background goroutines (expiry janitor). Call Start() for that.
func New(cfg *config.Config) (*Node, error) {
	// ── 1. Init logger ──────────────────────────────────────────────
	logFile := cfg.Log.File
	if logFile == "" {
		logsDir := cfg.LogsDir()
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		logFile = filepath.Join(logsDir, "topocoind.log")
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger := klog.WithComponent("node")

	logger.Info().
		Str("version", config.Version).
		Str("network", string(cfg.Network)).
		Int("phrase_words", cfg.Recovery.Words).
		Int("max_attempts", cfg.Recovery.MaxAttempts).
		Dur("pending_ttl", cfg.Recovery.PendingTTL).
		Msg("Starting Topocoin wallet API")

	// ── 2. Recovery settings (fail before touching storage) ─────────
	recCfg, err := recoveryConfig(cfg.Recovery)
	if err != nil {
		return nil, err
	}
	mint, err := solana.ParsePublicKey(cfg.Solana.Mint)
	if err != nil {
		return nil, fmt.Errorf("solana.mint: %w", err)
	}

	// ── 3. Open storage ─────────────────────────────────────────────
	db, err := storage.NewBadger(cfg.DBDir())
	if err != nil {
		return nil, fmt.Errorf("open database at %s: %w", cfg.DBDir(), err)
	}
	logger.Info().Str("path", cfg.DBDir()).Msg("Database opened")

	// ── 4. Recovery-phrase lifecycle ────────────────────────────────
	m := metrics.New()
	mgr, err := recovery.NewManager(recCfg, storage.NewPrefixDB(db, prefixActivation))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create recovery manager: %w", err)
	}

	// ── 5. Credentials ──────────────────────────────────────────────
	secret, err := security.LoadOrCreateSecret(cfg.SecretPath())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("token secret: %w", err)
	}
	tokens, err := security.NewTokenProvider(secret, "topocoind", "topocoin-api", cfg.Auth.TokenTTL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("token provider: %w", err)
	}
	accounts := account.NewService(
		account.NewStore(db),
		mgr,
		security.NewHasher(cfg.Auth.BcryptCost),
		tokens,
		m,
	)

	// ── 6. Solana clusters ──────────────────────────────────────────
	networks, err := solana.NewNetworks(cfg.Solana.Endpoints(), string(cfg.Network), cfg.Solana.Timeout, m.Upstream)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("solana networks: %w", err)
	}
	for _, name := range networks.Names() {
		c, _ := networks.Get(name)
		logger.Info().Str("network", name).Str("endpoint", c.Endpoint()).Msg("Solana cluster configured")
	}

	// ── 7. RPC server ───────────────────────────────────────────────
	var rpcServer *rpc.Server
	if cfg.RPC.Enabled {
		rpcServer = rpc.New(cfg.RPCListenAddr(), accounts, networks, mint, cfg.RPC)
		rpcServer.SetMetrics(m, cfg.Metrics.Enabled)
		if err := rpcServer.Start(); err != nil {
			db.Close()
			return nil, fmt.Errorf("start rpc: %w", err)
		}
		logger.Info().
			Str("addr", rpcServer.Addr()).
			Bool("metrics", cfg.Metrics.Enabled).
			Msg("RPC server started")
	} else {
		logger.Warn().Msg("RPC disabled by config")
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Node{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		metrics:   m,
		recovery:  mgr,
		accounts:  accounts,
		networks:  networks,
		rpcServer: rpcServer,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Start launches background goroutines: the expiry janitor.
func (n *Node) Start() error {
	if n.cfg.Recovery.PendingTTL > 0 {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			n.runJanitor(n.cfg.Recovery.PurgeInterval)
		}()
	}

	n.logger.Info().
		Str("rpc", n.RPCAddr()).
		Strs("networks", n.networks.Names()).
		Msg("Node started successfully")
	return nil
}

// Stop performs graceful shutdown in reverse order.
func (n *Node) Stop() {
	n.cancel()
	n.wg.Wait()

	if n.rpcServer != nil {
		n.rpcServer.Stop()
	}
	if n.db != nil {
		n.db.Close()
	}

	n.logger.Info().Msg("Goodbye!")
}

// RPCAddr returns the address the RPC server is listening on.
func (n *Node) RPCAddr() string {
	if n.rpcServer == nil {
		return ""
	}
	return n.rpcServer.Addr()
}

// Accounts returns the account service.
func (n *Node) Accounts() *account.Service {
	return n.accounts
}

// ── Janitor ─────────────────────────────────────────────────────────

// runJanitor purges abandoned registrations every interval until Stop.
func (n *Node) runJanitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-n.ctx.Done():
			return
		case <-ticker.C:
			n.purgeExpired()
		}
	}
}

func (n *Node) purgeExpired() int {
	purged, err := n.accounts.PurgeExpired(n.ctx, time.Now())
	if err != nil && n.ctx.Err() == nil {
		n.logger.Warn().Err(err).Msg("Expiry purge failed")
	}
	return purged
}
