package rpc

import (
	"errors"

	"github.com/lojol469-cmd/Topocoin-api/internal/account"
	"github.com/lojol469-cmd/Topocoin-api/internal/recovery"
	"github.com/lojol469-cmd/Topocoin-api/internal/security"
	"github.com/lojol469-cmd/Topocoin-api/internal/solana"
)

// toRPCError maps a service error to a JSON-RPC error. Errors without a
// domain meaning become fallback.
func toRPCError(err error, fallback int) *Error {
	code := fallback
	switch {
	case errors.Is(err, account.ErrInvalidUsername),
		errors.Is(err, security.ErrWeakPassword),
		errors.Is(err, solana.ErrInvalidAddress),
		errors.Is(err, solana.ErrInvalidTransaction),
		errors.Is(err, solana.ErrUnknownNetwork):
		code = CodeInvalidParams
	case errors.Is(err, account.ErrUserNotFound),
		errors.Is(err, recovery.ErrNotFound):
		code = CodeNotFound
	case errors.Is(err, account.ErrInvalidCredentials),
		errors.Is(err, security.ErrInvalidToken):
		code = CodeUnauthorized
	case errors.Is(err, account.ErrUsernameTaken),
		errors.Is(err, recovery.ErrExists):
		code = CodeConflict
	case errors.Is(err, recovery.ErrInvalidState),
		errors.Is(err, recovery.ErrExpired),
		errors.Is(err, account.ErrNotActive):
		code = CodeInvalidState
	}
	return &Error{Code: code, Message: err.Error()}
}

// internalError maps err with CodeInternalError as the fallback.
func internalError(err error) *Error {
	return toRPCError(err, CodeInternalError)
}

// upstreamError maps err with CodeUpstream as the fallback.
func upstreamError(err error) *Error {
	return toRPCError(err, CodeUpstream)
}
