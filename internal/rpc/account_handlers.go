package rpc

import (
	"net/http"

	"github.com/lojol469-cmd/Topocoin-api/internal/account"
)

// ── Account handlers ────────────────────────────────────────────────────

func (s *Server) handleAccountRegister(r *http.Request, req *Request) (interface{}, *Error) {
	var p RegisterParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	if p.Username == "" || p.Password == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "username and password are required"}
	}

	reg, err := s.accounts.Register(r.Context(), account.RegisterRequest{
		Username:      p.Username,
		Password:      p.Password,
		WalletAddress: p.WalletAddress,
	})
	if err != nil {
		return nil, internalError(err)
	}
	return reg, nil
}

func (s *Server) handleAccountVerify(r *http.Request, req *Request) (interface{}, *Error) {
	var p VerifyParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	if p.Username == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "username is required"}
	}
	if len(p.Words) == 0 {
		return nil, &Error{Code: CodeInvalidParams, Message: "words are required"}
	}

	res, err := s.accounts.Verify(r.Context(), p.Username, p.Words)
	if err != nil {
		return nil, internalError(err)
	}
	return res, nil
}

func (s *Server) handleAccountGetChallenge(r *http.Request, req *Request) (interface{}, *Error) {
	var p UsernameParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	if p.Username == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "username is required"}
	}

	info, err := s.accounts.Challenge(r.Context(), p.Username)
	if err != nil {
		return nil, internalError(err)
	}
	return info, nil
}

func (s *Server) handleAccountGetStatus(r *http.Request, req *Request) (interface{}, *Error) {
	var p UsernameParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	if p.Username == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "username is required"}
	}

	info, err := s.accounts.Status(r.Context(), p.Username)
	if err != nil {
		return nil, internalError(err)
	}
	return info, nil
}

func (s *Server) handleAccountLogin(r *http.Request, req *Request) (interface{}, *Error) {
	var p LoginParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	if p.Username == "" || p.Password == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "username and password are required"}
	}

	tok, err := s.accounts.Login(r.Context(), p.Username, p.Password)
	if err != nil {
		return nil, internalError(err)
	}
	return &LoginResult{
		Token:     tok.Value,
		TokenType: "Bearer",
		ExpiresAt: tok.ExpiresAt,
	}, nil
}
