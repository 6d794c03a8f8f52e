package rpc

import (
	"errors"
	"net/http"

	"github.com/lojol469-cmd/Topocoin-api/internal/account"
	"github.com/lojol469-cmd/Topocoin-api/internal/security"
	"github.com/lojol469-cmd/Topocoin-api/internal/solana"
)

// ── Wallet relay handlers ───────────────────────────────────────────────

// authenticate resolves the bearer token of r to an active user.
func (s *Server) authenticate(r *http.Request) (*account.User, *Error) {
	token, ok := security.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		return nil, &Error{Code: CodeUnauthorized, Message: "bearer token required"}
	}
	u, err := s.accounts.Authenticate(r.Context(), token)
	if err != nil {
		if errors.Is(err, account.ErrNotActive) {
			return nil, &Error{Code: CodeUnauthorized, Message: err.Error()}
		}
		return nil, internalError(err)
	}
	return u, nil
}

func (s *Server) handleWalletGetNetworks(_ *http.Request, _ *Request) (interface{}, *Error) {
	return &NetworksResult{
		Default:  s.networks.Default(),
		Networks: s.networks.Names(),
		Mint:     s.mint.String(),
	}, nil
}

func (s *Server) handleWalletGetBalance(r *http.Request, req *Request) (interface{}, *Error) {
	u, rpcErr := s.authenticate(r)
	if rpcErr != nil {
		return nil, rpcErr
	}
	var p BalanceParam
	if err := parseOptionalParams(req, &p); err != nil {
		return nil, err
	}

	addr := p.Address
	if addr == "" {
		addr = u.WalletAddress
	}
	if addr == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "address required: no wallet registered for this account"}
	}
	owner, err := solana.ParsePublicKey(addr)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: err.Error()}
	}
	client, err := s.networks.Get(p.Network)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: err.Error()}
	}

	ctx := r.Context()
	lamports, err := client.GetBalance(ctx, owner)
	if err != nil {
		return nil, upstreamError(err)
	}
	result := &BalanceResult{
		Network:  client.Network(),
		Address:  owner.String(),
		Lamports: lamports,
		SOL:      solana.FormatAmount(lamports, solana.SOLDecimals),
	}

	// The TPC balance is best effort; the SOL balance stands on its own.
	tb, err := client.GetTokenBalance(ctx, owner, s.mint)
	if err != nil {
		s.logger.Warn().Err(err).Str("network", client.Network()).Msg("Token balance unavailable")
		return result, nil
	}
	result.Token = &TokenBalanceResult{
		Mint:     tb.Mint.String(),
		Amount:   tb.Amount,
		Decimals: tb.Decimals,
		UIAmount: tb.UIAmount(),
		Accounts: tb.Accounts,
	}
	return result, nil
}

func (s *Server) handleWalletGetLatestBlockhash(r *http.Request, req *Request) (interface{}, *Error) {
	var p NetworkParam
	if err := parseOptionalParams(req, &p); err != nil {
		return nil, err
	}
	client, err := s.networks.Get(p.Network)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: err.Error()}
	}

	bh, err := client.GetLatestBlockhash(r.Context())
	if err != nil {
		return nil, upstreamError(err)
	}
	return &BlockhashResult{
		Network:              client.Network(),
		Blockhash:            bh.Blockhash,
		LastValidBlockHeight: bh.LastValidBlockHeight,
	}, nil
}

func (s *Server) handleWalletSendTransaction(r *http.Request, req *Request) (interface{}, *Error) {
	u, rpcErr := s.authenticate(r)
	if rpcErr != nil {
		return nil, rpcErr
	}
	var p SendTransactionParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	if err := solana.ValidateTransaction(p.Transaction); err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: err.Error()}
	}
	client, err := s.networks.Get(p.Network)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: err.Error()}
	}

	sig, err := client.SendTransaction(r.Context(), p.Transaction)
	if err != nil {
		return nil, upstreamError(err)
	}
	s.logger.Info().
		Str("account_id", u.ID).
		Str("network", client.Network()).
		Str("signature", sig).
		Msg("Transaction relayed")
	return &SendTransactionResult{Network: client.Network(), Signature: sig}, nil
}
