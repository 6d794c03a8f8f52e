package rpc

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lojol469-cmd/Topocoin-api/config"
	"github.com/lojol469-cmd/Topocoin-api/internal/account"
	klog "github.com/lojol469-cmd/Topocoin-api/internal/log"
	"github.com/lojol469-cmd/Topocoin-api/internal/metrics"
	"github.com/lojol469-cmd/Topocoin-api/internal/recovery"
	"github.com/lojol469-cmd/Topocoin-api/internal/security"
	"github.com/lojol469-cmd/Topocoin-api/internal/solana"
	"github.com/lojol469-cmd/Topocoin-api/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

const (
	testPassword = "correct-horse-battery"
	testWallet   = "So11111111111111111111111111111111111111112"
)

// cluster is a canned Solana JSON-RPC endpoint.
type cluster struct {
	mu      sync.Mutex
	methods []string
	results map[string]interface{}
	errors  map[string]interface{}
}

func newCluster(t *testing.T) (*cluster, *httptest.Server) {
	t.Helper()
	c := &cluster{
		results: map[string]interface{}{
			"getBalance": map[string]interface{}{"value": 1_250_000_000},
			"getTokenAccountsByOwner": map[string]interface{}{"value": []interface{}{
				map[string]interface{}{"account": map[string]interface{}{"data": map[string]interface{}{
					"parsed": map[string]interface{}{"info": map[string]interface{}{
						"tokenAmount": map[string]interface{}{"amount": "42000000", "decimals": 6},
					}},
				}}},
			}},
			"getLatestBlockhash": map[string]interface{}{"value": map[string]interface{}{
				"blockhash": "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N", "lastValidBlockHeight": 150,
			}},
			"sendTransaction": "2id3YC2jK9G5Wo2phDx4gJVAew8DcY5NAojnVuao8rkxwPYPe8cSwE5GzhEgJA2y8fVjDEo6iR6ykBvDxrTQrtpb",
		},
		errors: map[string]interface{}{},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			ID     uint64 `json:"id"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		c.mu.Lock()
		c.methods = append(c.methods, req.Method)
		result, ok := c.results[req.Method]
		rpcErr := c.errors[req.Method]
		c.mu.Unlock()

		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		switch {
		case rpcErr != nil:
			resp["error"] = rpcErr
		case ok:
			resp["result"] = result
		default:
			resp["error"] = map[string]interface{}{"code": -32601, "message": "Method not found"}
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return c, srv
}

func (c *cluster) called(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.methods {
		if m == method {
			n++
		}
	}
	return n
}

// testEnv holds all components for an RPC test.
type testEnv struct {
	server   *Server
	accounts *account.Service
	metrics  *metrics.Metrics
	cluster  *cluster
	url      string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return setupTestEnvWithConfig(t, config.RPCConfig{})
}

func setupTestEnvWithConfig(t *testing.T, rpcCfg config.RPCConfig) *testEnv {
	t.Helper()
	klog.Init("error", false, "")

	db := storage.NewMemory()
	cfg := recovery.DefaultConfig()
	cfg.Digest = recovery.DigestParams{Memory: 64, Iterations: 1, Parallelism: 1}
	mgr, err := recovery.NewManager(cfg, storage.NewPrefixDB(db, []byte("act/")))
	if err != nil {
		t.Fatalf("create recovery manager: %v", err)
	}
	tokens, err := security.NewTokenProvider([]byte("0123456789abcdef0123456789abcdef"), "topocoind", "topocoin-api", time.Hour)
	if err != nil {
		t.Fatalf("create token provider: %v", err)
	}
	m := metrics.New()
	accounts := account.NewService(account.NewStore(db), mgr, security.NewHasher(bcrypt.MinCost), tokens, m)

	cl, clSrv := newCluster(t)
	networks, err := solana.NewNetworks(map[string]string{"devnet": clSrv.URL}, "devnet", 5*time.Second, m.Upstream)
	if err != nil {
		t.Fatalf("create networks: %v", err)
	}

	// Create and start RPC server on random port.
	srv := New("127.0.0.1:0", accounts, networks, solana.MustPublicKey(solana.TopocoinMint), rpcCfg)
	srv.SetMetrics(m, true)
	if err := srv.Start(); err != nil {
		t.Fatalf("start rpc: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })

	return &testEnv{
		server:   srv,
		accounts: accounts,
		metrics:  m,
		cluster:  cl,
		url:      fmt.Sprintf("http://%s/", srv.Addr()),
	}
}

func rpcCall(t *testing.T, url, method string, params interface{}) Response {
	t.Helper()
	return rpcCallAuth(t, url, "", method, params)
}

func rpcCallAuth(t *testing.T, url, token, method string, params interface{}) Response {
	t.Helper()
	req := Request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	httpReq, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		t.Fatalf("post %s: %v", method, err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return rpcResp
}

// decodeResult re-decodes a generic result into out.
func decodeResult(t *testing.T, resp Response, out interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	data, _ := json.Marshal(resp.Result)
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("decode result: %v", err)
	}
}

func expectCode(t *testing.T, resp Response, code int) {
	t.Helper()
	if resp.Error == nil {
		t.Fatalf("expected error code %d, got result %v", code, resp.Result)
	}
	if resp.Error.Code != code {
		t.Errorf("error code = %d, want %d (%s)", resp.Error.Code, code, resp.Error.Message)
	}
}

func (e *testEnv) register(t *testing.T, username, wallet string) RegisterResult {
	t.Helper()
	resp := rpcCall(t, e.url, "account_register", RegisterParam{
		Username:      username,
		Password:      testPassword,
		WalletAddress: wallet,
	})
	var reg RegisterResult
	decodeResult(t, resp, &reg)
	return reg
}

// activate registers, verifies and logs in a user, returning its token.
func (e *testEnv) activate(t *testing.T, username, wallet string) string {
	t.Helper()
	reg := e.register(t, username, wallet)
	var vr VerifyResult
	decodeResult(t, rpcCall(t, e.url, "account_verify", VerifyParam{Username: username, Words: reg.Phrase}), &vr)
	if vr.State != "verified" {
		t.Fatalf("verify state = %s, want verified", vr.State)
	}
	var lr LoginResult
	decodeResult(t, rpcCall(t, e.url, "account_login", LoginParam{Username: username, Password: testPassword}), &lr)
	return lr.Token
}

func swapFirstTwo(words []string) []string {
	out := append([]string(nil), words...)
	out[0], out[1] = out[1], out[0]
	return out
}

// ── Tests ───────────────────────────────────────────────────────────────

func TestRPC_MethodNotFound(t *testing.T) {
	env := setupTestEnv(t)

	resp := rpcCall(t, env.url, "chain_getInfo", nil)
	expectCode(t, resp, CodeMethodNotFound)
}

func TestRPC_InvalidParams(t *testing.T) {
	env := setupTestEnv(t)

	expectCode(t, rpcCall(t, env.url, "account_register", nil), CodeInvalidParams)
	expectCode(t, rpcCall(t, env.url, "account_register", "alice"), CodeInvalidParams)
	expectCode(t, rpcCall(t, env.url, "account_register", RegisterParam{Username: "alice"}), CodeInvalidParams)
	expectCode(t, rpcCall(t, env.url, "account_verify", VerifyParam{Username: "alice"}), CodeInvalidParams)
}

func TestRPC_InvalidJSON(t *testing.T) {
	env := setupTestEnv(t)

	resp, err := http.Post(env.url, "application/json", bytes.NewReader([]byte("not json")))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	json.NewDecoder(resp.Body).Decode(&rpcResp)
	expectCode(t, rpcResp, CodeParseError)
}

func TestRPC_WrongVersion(t *testing.T) {
	env := setupTestEnv(t)

	body := []byte(`{"jsonrpc":"1.0","method":"wallet_getNetworks","id":7}`)
	resp, err := http.Post(env.url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	json.NewDecoder(resp.Body).Decode(&rpcResp)
	expectCode(t, rpcResp, CodeInvalidRequest)
}

func TestRPC_GetMethodNotAllowed(t *testing.T) {
	env := setupTestEnv(t)

	resp, err := http.Get(env.url)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	json.NewDecoder(resp.Body).Decode(&rpcResp)
	expectCode(t, rpcResp, CodeInvalidRequest)
}

func TestRPC_BodyTooLarge(t *testing.T) {
	env := setupTestEnv(t)

	body := bytes.Repeat([]byte("x"), maxBodySize+10)
	resp, err := http.Post(env.url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	json.NewDecoder(resp.Body).Decode(&rpcResp)
	expectCode(t, rpcResp, CodeInvalidRequest)
}

// --- Accounts ---

func TestRPC_AccountRegister(t *testing.T) {
	env := setupTestEnv(t)

	reg := env.register(t, "Alice", testWallet)
	if reg.Username != "alice" || reg.AccountID == "" {
		t.Errorf("registration = %+v", reg)
	}
	if len(reg.Phrase) != recovery.DefaultPhraseLength || len(reg.Challenge) != len(reg.Phrase) {
		t.Errorf("phrase/challenge lengths = %d/%d", len(reg.Phrase), len(reg.Challenge))
	}
	if reg.MaxAttempts != recovery.DefaultMaxAttempts {
		t.Errorf("max attempts = %d", reg.MaxAttempts)
	}

	// The username is claimed.
	resp := rpcCall(t, env.url, "account_register", RegisterParam{Username: "alice", Password: testPassword})
	expectCode(t, resp, CodeConflict)
}

func TestRPC_AccountRegister_Rejects(t *testing.T) {
	env := setupTestEnv(t)

	tests := []RegisterParam{
		{Username: "a!", Password: testPassword},
		{Username: "bob", Password: "short"},
		{Username: "carol", Password: testPassword, WalletAddress: "not-base58-0OIl"},
	}
	for _, p := range tests {
		expectCode(t, rpcCall(t, env.url, "account_register", p), CodeInvalidParams)
	}
}

func TestRPC_AccountVerify_FullFlow(t *testing.T) {
	env := setupTestEnv(t)
	reg := env.register(t, "dave", testWallet)

	// Login is refused until the phrase is confirmed.
	expectCode(t, rpcCall(t, env.url, "account_login", LoginParam{Username: "dave", Password: testPassword}), CodeInvalidState)

	var vr VerifyResult
	decodeResult(t, rpcCall(t, env.url, "account_verify", VerifyParam{Username: "dave", Words: reg.Phrase}), &vr)
	if vr.Outcome != "correct" || vr.State != "verified" || vr.Status != account.StatusActive {
		t.Fatalf("verify = %+v", vr)
	}

	// Terminal records cannot be graded again.
	expectCode(t, rpcCall(t, env.url, "account_verify", VerifyParam{Username: "dave", Words: reg.Phrase}), CodeInvalidState)

	var lr LoginResult
	decodeResult(t, rpcCall(t, env.url, "account_login", LoginParam{Username: "dave", Password: testPassword}), &lr)
	if lr.Token == "" || lr.TokenType != "Bearer" {
		t.Errorf("login = %+v", lr)
	}

	expectCode(t, rpcCall(t, env.url, "account_login", LoginParam{Username: "dave", Password: "wrong-password"}), CodeUnauthorized)
	expectCode(t, rpcCall(t, env.url, "account_login", LoginParam{Username: "nobody", Password: testPassword}), CodeUnauthorized)
}

func TestRPC_AccountVerify_Lockout(t *testing.T) {
	env := setupTestEnv(t)
	reg := env.register(t, "erin", "")

	wrong := swapFirstTwo(reg.Phrase)
	states := []string{"pending", "pending", "locked_out"}
	for i, want := range states {
		var vr VerifyResult
		decodeResult(t, rpcCall(t, env.url, "account_verify", VerifyParam{Username: "erin", Words: wrong}), &vr)
		if vr.Outcome != "incorrect" || vr.State != want {
			t.Fatalf("attempt %d: outcome=%s state=%s, want incorrect/%s", i+1, vr.Outcome, vr.State, want)
		}
		if vr.AttemptsUsed != i+1 {
			t.Errorf("attempt %d: attempts used = %d", i+1, vr.AttemptsUsed)
		}
		if want == "pending" && len(vr.Challenge) != len(reg.Phrase) {
			t.Errorf("attempt %d: expected a fresh challenge", i+1)
		}
	}

	// Even the right phrase is refused now.
	expectCode(t, rpcCall(t, env.url, "account_verify", VerifyParam{Username: "erin", Words: reg.Phrase}), CodeInvalidState)
	expectCode(t, rpcCall(t, env.url, "account_getChallenge", UsernameParam{Username: "erin"}), CodeInvalidState)

	var st StatusResult
	decodeResult(t, rpcCall(t, env.url, "account_getStatus", UsernameParam{Username: "erin"}), &st)
	if st.Status != account.StatusDisabled || st.Activation != "locked_out" {
		t.Errorf("status = %+v", st)
	}
}

func TestRPC_AccountGetChallenge(t *testing.T) {
	env := setupTestEnv(t)
	reg := env.register(t, "frank", "")

	var ch ChallengeResult
	decodeResult(t, rpcCall(t, env.url, "account_getChallenge", UsernameParam{Username: "frank"}), &ch)
	if strings.Join(ch.Words, " ") != strings.Join(reg.Challenge, " ") {
		t.Error("challenge should be stable until the next attempt")
	}
	if ch.AttemptsRemaining != recovery.DefaultMaxAttempts {
		t.Errorf("attempts remaining = %d", ch.AttemptsRemaining)
	}
}

func TestRPC_AccountGetStatus_NotFound(t *testing.T) {
	env := setupTestEnv(t)

	expectCode(t, rpcCall(t, env.url, "account_getStatus", UsernameParam{Username: "ghost"}), CodeNotFound)
	expectCode(t, rpcCall(t, env.url, "account_verify", VerifyParam{Username: "ghost", Words: []string{"a"}}), CodeNotFound)
}

// --- Wallet relay ---

func TestRPC_WalletGetNetworks(t *testing.T) {
	env := setupTestEnv(t)

	var nr NetworksResult
	decodeResult(t, rpcCall(t, env.url, "wallet_getNetworks", nil), &nr)
	if nr.Default != "devnet" || len(nr.Networks) != 1 || nr.Mint != solana.TopocoinMint {
		t.Errorf("networks = %+v", nr)
	}
}

func TestRPC_WalletGetBalance(t *testing.T) {
	env := setupTestEnv(t)
	token := env.activate(t, "grace", testWallet)

	var br BalanceResult
	decodeResult(t, rpcCallAuth(t, env.url, token, "wallet_getBalance", nil), &br)
	if br.Address != testWallet || br.Lamports != 1_250_000_000 || br.SOL != "1.25" {
		t.Errorf("balance = %+v", br)
	}
	if br.Token == nil || br.Token.Amount != 42_000_000 || br.Token.UIAmount != "42" {
		t.Errorf("token balance = %+v", br.Token)
	}
	if env.cluster.called("getBalance") != 1 {
		t.Error("getBalance was not relayed")
	}
}

func TestRPC_WalletGetBalance_TokenUnavailable(t *testing.T) {
	env := setupTestEnv(t)
	token := env.activate(t, "heidi", testWallet)
	env.cluster.mu.Lock()
	env.cluster.errors["getTokenAccountsByOwner"] = map[string]interface{}{"code": -32602, "message": "Invalid param"}
	env.cluster.mu.Unlock()

	var br BalanceResult
	decodeResult(t, rpcCallAuth(t, env.url, token, "wallet_getBalance", BalanceParam{Network: "devnet"}), &br)
	if br.Lamports != 1_250_000_000 || br.Token != nil {
		t.Errorf("balance = %+v, want SOL only", br)
	}
}

func TestRPC_WalletGetBalance_Auth(t *testing.T) {
	env := setupTestEnv(t)

	expectCode(t, rpcCall(t, env.url, "wallet_getBalance", nil), CodeUnauthorized)
	expectCode(t, rpcCallAuth(t, env.url, "garbage", "wallet_getBalance", nil), CodeUnauthorized)

	// No registered wallet and no explicit address.
	token := env.activate(t, "ivan", "")
	expectCode(t, rpcCallAuth(t, env.url, token, "wallet_getBalance", nil), CodeInvalidParams)
	expectCode(t, rpcCallAuth(t, env.url, token, "wallet_getBalance", BalanceParam{Address: testWallet, Network: "testnet"}), CodeInvalidParams)

	var br BalanceResult
	decodeResult(t, rpcCallAuth(t, env.url, token, "wallet_getBalance", BalanceParam{Address: testWallet}), &br)
	if br.Address != testWallet {
		t.Errorf("address = %s", br.Address)
	}
}

func TestRPC_WalletGetLatestBlockhash(t *testing.T) {
	env := setupTestEnv(t)

	var bh BlockhashResult
	decodeResult(t, rpcCall(t, env.url, "wallet_getLatestBlockhash", nil), &bh)
	if bh.Network != "devnet" || bh.Blockhash == "" || bh.LastValidBlockHeight != 150 {
		t.Errorf("blockhash = %+v", bh)
	}
}

func TestRPC_WalletSendTransaction(t *testing.T) {
	env := setupTestEnv(t)
	tx := base64.StdEncoding.EncodeToString(make([]byte, 300))

	expectCode(t, rpcCall(t, env.url, "wallet_sendTransaction", SendTransactionParam{Transaction: tx}), CodeUnauthorized)

	token := env.activate(t, "judy", testWallet)
	var sr SendTransactionResult
	decodeResult(t, rpcCallAuth(t, env.url, token, "wallet_sendTransaction", SendTransactionParam{Transaction: tx}), &sr)
	if !strings.HasPrefix(sr.Signature, "2id3YC") {
		t.Errorf("signature = %q", sr.Signature)
	}

	expectCode(t, rpcCallAuth(t, env.url, token, "wallet_sendTransaction", SendTransactionParam{Transaction: "%%%"}), CodeInvalidParams)
	if env.cluster.called("sendTransaction") != 1 {
		t.Error("invalid payload must not be relayed")
	}
}

func TestRPC_WalletSendTransaction_Upstream(t *testing.T) {
	env := setupTestEnv(t)
	token := env.activate(t, "mallory", testWallet)
	env.cluster.mu.Lock()
	env.cluster.errors["sendTransaction"] = map[string]interface{}{"code": -32002, "message": "Blockhash not found"}
	env.cluster.mu.Unlock()

	tx := base64.StdEncoding.EncodeToString(make([]byte, 100))
	resp := rpcCallAuth(t, env.url, token, "wallet_sendTransaction", SendTransactionParam{Transaction: tx})
	expectCode(t, resp, CodeUpstream)
	if !strings.Contains(resp.Error.Message, "Blockhash not found") {
		t.Errorf("message = %q", resp.Error.Message)
	}
}

// --- Metrics ---

func TestRPC_Metrics(t *testing.T) {
	env := setupTestEnv(t)
	rpcCall(t, env.url, "wallet_getNetworks", nil)
	rpcCall(t, env.url, "no_such_method", nil)

	resp, err := http.Get(env.url + "metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		`topocoin_rpc_requests_total{code="ok",method="wallet_getNetworks"} 1`,
		`topocoin_rpc_requests_total{code="-32601",method="unknown"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}

// --- IP Filtering ---

func TestRPC_IPFilter_Allowed(t *testing.T) {
	env := setupTestEnvWithConfig(t, config.RPCConfig{
		AllowedIPs: []string{"127.0.0.1"},
	})

	resp := rpcCall(t, env.url, "wallet_getNetworks", nil)
	if resp.Error != nil {
		t.Errorf("expected success for 127.0.0.1, got error: %s", resp.Error.Message)
	}
}

func TestRPC_IPFilter_Blocked(t *testing.T) {
	env := setupTestEnvWithConfig(t, config.RPCConfig{
		AllowedIPs: []string{"10.0.0.0/8"}, // Only allow 10.x.x.x.
	})

	// Request comes from 127.0.0.1 → should be blocked.
	req := Request{JSONRPC: "2.0", Method: "wallet_getNetworks", ID: 1}
	body, _ := json.Marshal(req)
	resp, err := http.Post(env.url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %d", resp.StatusCode)
	}

	mresp, err := http.Get(env.url + "metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer mresp.Body.Close()
	if mresp.StatusCode != http.StatusForbidden {
		t.Errorf("metrics: expected 403, got %d", mresp.StatusCode)
	}
}

func TestRPC_IPFilter_Empty_AllowsAll(t *testing.T) {
	env := setupTestEnvWithConfig(t, config.RPCConfig{
		AllowedIPs: nil, // Empty = allow all.
	})

	resp := rpcCall(t, env.url, "wallet_getNetworks", nil)
	if resp.Error != nil {
		t.Errorf("empty AllowedIPs should allow all: %s", resp.Error.Message)
	}
}

func TestParseAllowedIPs(t *testing.T) {
	nets := parseAllowedIPs([]string{"127.0.0.1", "10.0.0.0/8", "::1", "bogus"})
	if len(nets) != 3 {
		t.Fatalf("got %d nets, want 3", len(nets))
	}
	if ones, bits := nets[0].Mask.Size(); ones != 32 || bits != 32 {
		t.Errorf("single IPv4 mask = /%d of %d", ones, bits)
	}
	if ones, bits := nets[2].Mask.Size(); ones != 128 || bits != 128 {
		t.Errorf("single IPv6 mask = /%d of %d", ones, bits)
	}
}

// --- CORS ---

func corsRequest(t *testing.T, url, origin string) *http.Response {
	t.Helper()
	req := Request{JSONRPC: "2.0", Method: "wallet_getNetworks", ID: 1}
	body, _ := json.Marshal(req)
	httpReq, _ := http.NewRequest("POST", url, bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Origin", origin)

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRPC_CORS_WildcardOrigin(t *testing.T) {
	env := setupTestEnvWithConfig(t, config.RPCConfig{
		CORSOrigins: []string{"*"},
	})

	resp := corsRequest(t, env.url, "http://example.com")
	if origin := resp.Header.Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("CORS origin = %q, want %q", origin, "*")
	}
	if h := resp.Header.Get("Access-Control-Allow-Headers"); !strings.Contains(h, "Authorization") {
		t.Errorf("Allow-Headers = %q, want Authorization listed", h)
	}
}

func TestRPC_CORS_SpecificOrigin(t *testing.T) {
	env := setupTestEnvWithConfig(t, config.RPCConfig{
		CORSOrigins: []string{"http://myapp.com"},
	})

	resp := corsRequest(t, env.url, "http://myapp.com")
	if origin := resp.Header.Get("Access-Control-Allow-Origin"); origin != "http://myapp.com" {
		t.Errorf("CORS origin = %q, want %q", origin, "http://myapp.com")
	}

	resp2 := corsRequest(t, env.url, "http://evil.com")
	if origin := resp2.Header.Get("Access-Control-Allow-Origin"); origin != "" {
		t.Errorf("non-matching origin should have no CORS header, got %q", origin)
	}
}

func TestRPC_CORS_Preflight(t *testing.T) {
	env := setupTestEnvWithConfig(t, config.RPCConfig{
		CORSOrigins: []string{"*"},
	})

	httpReq, _ := http.NewRequest("OPTIONS", env.url, nil)
	httpReq.Header.Set("Origin", "http://example.com")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Methods") == "" {
		t.Error("preflight should have Allow-Methods header")
	}
}

func TestRPC_CORS_Disabled(t *testing.T) {
	env := setupTestEnvWithConfig(t, config.RPCConfig{
		CORSOrigins: nil, // Disabled.
	})

	resp := corsRequest(t, env.url, "http://example.com")
	if origin := resp.Header.Get("Access-Control-Allow-Origin"); origin != "" {
		t.Errorf("disabled CORS should have no origin header, got %q", origin)
	}
}
