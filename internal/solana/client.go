package solana

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	klog "github.com/lojol469-cmd/Topocoin-api/internal/log"
	"github.com/lojol469-cmd/Topocoin-api/internal/rpcclient"
	"github.com/rs/zerolog"
)

// MaxTransactionSize is the largest serialized transaction a cluster
// accepts (IPv6 MTU minus headers).
const MaxTransactionSize = 1232

// DefaultTokenDecimals is used when the mint cannot be queried.
const DefaultTokenDecimals = 6

// ErrInvalidTransaction is returned for payloads that are not base64 or are
// outside the accepted size.
var ErrInvalidTransaction = errors.New("invalid transaction payload")

// Observer is notified after every upstream call.
type Observer func(network, method string, err error)

// Client talks to one cluster.
type Client struct {
	network string
	rpc     *rpcclient.Client
	observe Observer
	logger  zerolog.Logger
}

// NewClient creates a client for the named network at endpoint.
func NewClient(network, endpoint string, timeout time.Duration, observe Observer) *Client {
	return &Client{
		network: network,
		rpc:     rpcclient.NewWithTimeout(endpoint, timeout),
		observe: observe,
		logger:  klog.WithComponent("solana").With().Str("network", network).Logger(),
	}
}

// Network returns the network name.
func (c *Client) Network() string { return c.network }

// Endpoint returns the cluster URL.
func (c *Client) Endpoint() string { return c.rpc.Endpoint() }

func (c *Client) call(ctx context.Context, method string, params, result interface{}) error {
	start := time.Now()
	err := c.rpc.CallContext(ctx, method, params, result)
	if c.observe != nil {
		c.observe(c.network, method, err)
	}
	ev := c.logger.Debug()
	if err != nil {
		ev = c.logger.Warn().Err(err)
	}
	ev.Str("method", method).Dur("elapsed", time.Since(start)).Msg("Upstream call")
	if err != nil {
		return fmt.Errorf("%s %s: %w", c.network, method, err)
	}
	return nil
}

type commitment struct {
	Commitment string `json:"commitment"`
}

// GetBalance returns the native balance of owner in lamports.
func (c *Client) GetBalance(ctx context.Context, owner PublicKey) (uint64, error) {
	var out struct {
		Value uint64 `json:"value"`
	}
	if err := c.call(ctx, "getBalance", []interface{}{owner.String(), commitment{"confirmed"}}, &out); err != nil {
		return 0, err
	}
	return out.Value, nil
}

// TokenBalance is the sum of an owner's token accounts for one mint.
type TokenBalance struct {
	Mint     PublicKey `json:"mint"`
	Amount   uint64    `json:"amount"`
	Decimals uint8     `json:"decimals"`
	Accounts int       `json:"accounts"`
}

// UIAmount formats the balance with its decimals.
func (b *TokenBalance) UIAmount() string {
	return FormatAmount(b.Amount, b.Decimals)
}

type tokenAmount struct {
	Amount   string `json:"amount"`
	Decimals uint8  `json:"decimals"`
}

// GetTokenBalance sums every token account owned by owner for mint.
// An owner without token accounts has a zero balance.
func (c *Client) GetTokenBalance(ctx context.Context, owner, mint PublicKey) (*TokenBalance, error) {
	var out struct {
		Value []struct {
			Pubkey  string `json:"pubkey"`
			Account struct {
				Data struct {
					Parsed struct {
						Info struct {
							TokenAmount tokenAmount `json:"tokenAmount"`
						} `json:"info"`
					} `json:"parsed"`
				} `json:"data"`
			} `json:"account"`
		} `json:"value"`
	}
	params := []interface{}{
		owner.String(),
		map[string]string{"mint": mint.String()},
		map[string]string{"encoding": "jsonParsed", "commitment": "confirmed"},
	}
	if err := c.call(ctx, "getTokenAccountsByOwner", params, &out); err != nil {
		return nil, err
	}

	bal := &TokenBalance{Mint: mint, Accounts: len(out.Value)}
	if len(out.Value) == 0 {
		bal.Decimals = c.mintDecimals(ctx, mint)
		return bal, nil
	}
	for _, acct := range out.Value {
		ta := acct.Account.Data.Parsed.Info.TokenAmount
		n, err := strconv.ParseUint(ta.Amount, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("token account %s: bad amount %q", acct.Pubkey, ta.Amount)
		}
		if bal.Amount > math.MaxUint64-n {
			return nil, fmt.Errorf("token balance overflows uint64")
		}
		bal.Amount += n
		bal.Decimals = ta.Decimals
	}
	return bal, nil
}

// mintDecimals asks the cluster for the mint's precision, falling back to
// DefaultTokenDecimals.
func (c *Client) mintDecimals(ctx context.Context, mint PublicKey) uint8 {
	var out struct {
		Value tokenAmount `json:"value"`
	}
	if err := c.call(ctx, "getTokenSupply", []interface{}{mint.String()}, &out); err != nil {
		return DefaultTokenDecimals
	}
	return out.Value.Decimals
}

// Blockhash is a recent blockhash for client-side signing.
type Blockhash struct {
	Blockhash            string `json:"blockhash"`
	LastValidBlockHeight uint64 `json:"last_valid_block_height"`
}

// GetLatestBlockhash returns the latest finalized blockhash.
func (c *Client) GetLatestBlockhash(ctx context.Context) (*Blockhash, error) {
	var out struct {
		Value struct {
			Blockhash            string `json:"blockhash"`
			LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getLatestBlockhash", []interface{}{commitment{"finalized"}}, &out); err != nil {
		return nil, err
	}
	return &Blockhash{
		Blockhash:            out.Value.Blockhash,
		LastValidBlockHeight: out.Value.LastValidBlockHeight,
	}, nil
}

// ValidateTransaction checks that tx is base64 and decodes to an accepted
// size.
func ValidateTransaction(tx string) error {
	raw, err := base64.StdEncoding.DecodeString(tx)
	if err != nil {
		return fmt.Errorf("%w: not base64", ErrInvalidTransaction)
	}
	if len(raw) == 0 || len(raw) > MaxTransactionSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrInvalidTransaction, len(raw), MaxTransactionSize)
	}
	return nil
}

// SendTransaction submits a signed, base64 encoded transaction and returns
// its signature.
func (c *Client) SendTransaction(ctx context.Context, tx string) (string, error) {
	if err := ValidateTransaction(tx); err != nil {
		return "", err
	}
	opts := map[string]string{"encoding": "base64", "preflightCommitment": "confirmed"}
	var sig string
	if err := c.call(ctx, "sendTransaction", []interface{}{tx, opts}, &sig); err != nil {
		return "", err
	}
	return sig, nil
}
