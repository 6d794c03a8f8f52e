package rpc

import (
	"time"

	"github.com/lojol469-cmd/Topocoin-api/internal/account"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32000
	CodeUnauthorized   = -32001
	CodeConflict       = -32002
	CodeInvalidState   = -32003 // activation resolved, expired or account inactive
	CodeUpstream       = -32004
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ── Param types ─────────────────────────────────────────────────────────

// RegisterParam is used by account_register.
type RegisterParam struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	WalletAddress string `json:"wallet_address,omitempty"`
}

// VerifyParam is used by account_verify.
type VerifyParam struct {
	Username string   `json:"username"`
	Words    []string `json:"words"`
}

// UsernameParam is used by account_getChallenge and account_getStatus.
type UsernameParam struct {
	Username string `json:"username"`
}

// LoginParam is used by account_login.
type LoginParam struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// NetworkParam selects a cluster. Empty means the default network.
type NetworkParam struct {
	Network string `json:"network,omitempty"`
}

// BalanceParam is used by wallet_getBalance. Address defaults to the
// caller's registered wallet.
type BalanceParam struct {
	Address string `json:"address,omitempty"`
	Network string `json:"network,omitempty"`
}

// SendTransactionParam is used by wallet_sendTransaction.
type SendTransactionParam struct {
	Transaction string `json:"transaction"` // base64, already signed
	Network     string `json:"network,omitempty"`
}

// ── Result types ────────────────────────────────────────────────────────

// RegisterResult is returned by account_register. Phrase is shown once.
type RegisterResult = account.Registration

// VerifyResult is returned by account_verify.
type VerifyResult = account.VerifyResult

// ChallengeResult is returned by account_getChallenge.
type ChallengeResult = account.ChallengeInfo

// StatusResult is returned by account_getStatus.
type StatusResult = account.StatusInfo

// LoginResult is returned by account_login.
type LoginResult struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NetworksResult is returned by wallet_getNetworks.
type NetworksResult struct {
	Default  string   `json:"default"`
	Networks []string `json:"networks"`
	Mint     string   `json:"mint"`
}

// TokenBalanceResult is the TPC part of a balance.
type TokenBalanceResult struct {
	Mint     string `json:"mint"`
	Amount   uint64 `json:"amount"`
	Decimals uint8  `json:"decimals"`
	UIAmount string `json:"ui_amount"`
	Accounts int    `json:"accounts"`
}

// BalanceResult is returned by wallet_getBalance.
type BalanceResult struct {
	Network  string              `json:"network"`
	Address  string              `json:"address"`
	Lamports uint64              `json:"lamports"`
	SOL      string              `json:"sol"`
	Token    *TokenBalanceResult `json:"token,omitempty"`
}

// BlockhashResult is returned by wallet_getLatestBlockhash.
type BlockhashResult struct {
	Network              string `json:"network"`
	Blockhash            string `json:"blockhash"`
	LastValidBlockHeight uint64 `json:"last_valid_block_height"`
}

// SendTransactionResult is returned by wallet_sendTransaction.
type SendTransactionResult struct {
	Network   string `json:"network"`
	Signature string `json:"signature"`
}
