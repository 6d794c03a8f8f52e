// topocoin-cli is a command-line client for a topocoind wallet API.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/lojol469-cmd/Topocoin-api/config"
	"github.com/lojol469-cmd/Topocoin-api/internal/rpc"
	"github.com/lojol469-cmd/Topocoin-api/internal/rpcclient"
	"golang.org/x/term"
)

// tokenFile is where login stores the access token, under the data dir.
const tokenFile = "cli.token"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// Parse global flags that appear before the subcommand.
	rpcURL := "http://127.0.0.1:8545"
	dataDir := config.DefaultDataDir()

	// Scan for --rpc and --datadir before the subcommand.
	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--rpc" && len(args) > 1:
			rpcURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--rpc="):
			rpcURL = args[0][len("--rpc="):]
			args = args[1:]
		case args[0] == "--datadir" && len(args) > 1:
			dataDir = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--datadir="):
			dataDir = args[0][len("--datadir="):]
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	client := rpcclient.New(rpcURL)
	tokenPath := filepath.Join(dataDir, tokenFile)
	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "register":
		cmdRegister(client, cmdArgs)
	case "verify":
		cmdVerify(client, cmdArgs)
	case "challenge":
		cmdChallenge(client, cmdArgs)
	case "status":
		cmdStatus(client, cmdArgs)
	case "login":
		cmdLogin(client, cmdArgs, tokenPath)
	case "networks":
		cmdNetworks(client)
	case "balance":
		cmdBalance(authed(client, tokenPath), cmdArgs)
	case "blockhash":
		cmdBlockhash(client, cmdArgs)
	case "send-raw":
		cmdSendRaw(authed(client, tokenPath), cmdArgs)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: topocoin-cli [global flags] <command> [flags]

Global flags:
  --rpc <url>         RPC endpoint (default: http://127.0.0.1:8545)
  --datadir <path>    Data directory for the saved login (default: ~/.topocoin)

Account commands:
  register --user <name> [--wallet <address>]
                                  Register, show the recovery phrase once,
                                  then confirm it interactively
  verify --user <name> [word ...] Confirm the recovery phrase (prompts if
                                  no words are given)
  challenge --user <name>         Show the current shuffled words
  status --user <name>            Show account and activation status
  login --user <name>             Log in and save an access token

Wallet commands:
  networks                        List Solana networks and the TPC mint
  balance [--address <addr>] [--network <net>]
                                  Show SOL and TPC balance (requires login)
  blockhash [--network <net>]     Show the latest blockhash
  send-raw --tx <base64> [--network <net>]
                                  Relay a signed transaction (requires login)
`)
}

// ── register / verify ───────────────────────────────────────────────────

func cmdRegister(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	user := fs.String("user", "", "Username")
	wallet := fs.String("wallet", "", "Solana wallet address (optional)")
	fs.Parse(args)

	if *user == "" {
		fatal("Usage: topocoin-cli register --user <name> [--wallet <address>]")
	}

	// Prompt for password (twice).
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}

	var reg rpc.RegisterResult
	if err := client.Call("account_register", rpc.RegisterParam{
		Username:      *user,
		Password:      string(password),
		WalletAddress: *wallet,
	}, &reg); err != nil {
		fatal("account_register: %v", err)
	}

	fmt.Println("Recovery phrase (write this down, it will not be shown again!):")
	fmt.Printf("  %s\n\n", numbered(reg.Phrase))
	fmt.Printf("Account %s created for %s.\n", reg.AccountID, reg.Username)
	if !reg.ExpiresAt.IsZero() {
		fmt.Printf("Confirm the phrase before %s.\n", reg.ExpiresAt.Local().Format("15:04:05"))
	}
	fmt.Println()

	challenge := reg.Challenge
	in := bufio.NewReader(os.Stdin)
	for {
		words, err := promptWords(in, challenge)
		if err != nil {
			fatal("read phrase: %v", err)
		}
		var res rpc.VerifyResult
		if err := client.Call("account_verify", rpc.VerifyParam{Username: reg.Username, Words: words}, &res); err != nil {
			fatal("account_verify: %v", err)
		}
		printVerify(&res)
		if res.State != "pending" {
			return
		}
		challenge = res.Challenge
	}
}

func cmdVerify(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	user := fs.String("user", "", "Username")
	fs.Parse(args)

	if *user == "" {
		fatal("Usage: topocoin-cli verify --user <name> [word ...]")
	}

	words := parseWords(strings.Join(fs.Args(), " "))
	if len(words) == 0 {
		var ch rpc.ChallengeResult
		if err := client.Call("account_getChallenge", rpc.UsernameParam{Username: *user}, &ch); err != nil {
			fatal("account_getChallenge: %v", err)
		}
		var err error
		words, err = promptWords(bufio.NewReader(os.Stdin), ch.Words)
		if err != nil {
			fatal("read phrase: %v", err)
		}
	}

	var res rpc.VerifyResult
	if err := client.Call("account_verify", rpc.VerifyParam{Username: *user, Words: words}, &res); err != nil {
		fatal("account_verify: %v", err)
	}
	printVerify(&res)
}

func printVerify(res *rpc.VerifyResult) {
	switch res.State {
	case "verified":
		fmt.Println("Phrase confirmed. The account is active; log in with `topocoin-cli login`.")
	case "locked_out":
		fmt.Println("Incorrect. No attempts left: the account is locked.")
	default:
		fmt.Printf("Incorrect. %d attempt(s) remaining.\n\n", res.AttemptsRemaining)
	}
}

// promptWords shows the shuffled words and reads the user's ordering.
func promptWords(in *bufio.Reader, challenge []string) ([]string, error) {
	fmt.Println("Put these words back in their original order:")
	fmt.Printf("  %s\n", strings.Join(challenge, " "))
	fmt.Print("> ")
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return nil, err
	}
	words := parseWords(line)
	if len(words) == 0 {
		return nil, errors.New("no words entered")
	}
	return words, nil
}

// parseWords splits a phrase on whitespace and commas.
func parseWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
}

// numbered renders words as "1.alpha 2.bravo ...".
func numbered(words []string) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = fmt.Sprintf("%d.%s", i+1, w)
	}
	return strings.Join(parts, " ")
}

// ── challenge / status ──────────────────────────────────────────────────

func cmdChallenge(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("challenge", flag.ExitOnError)
	user := fs.String("user", "", "Username")
	fs.Parse(args)

	if *user == "" {
		fatal("Usage: topocoin-cli challenge --user <name>")
	}

	var ch rpc.ChallengeResult
	if err := client.Call("account_getChallenge", rpc.UsernameParam{Username: *user}, &ch); err != nil {
		fatal("account_getChallenge: %v", err)
	}
	fmt.Printf("Words:     %s\n", strings.Join(ch.Words, " "))
	fmt.Printf("Attempts:  %d used, %d remaining\n", ch.AttemptsUsed, ch.AttemptsRemaining)
	if !ch.ExpiresAt.IsZero() {
		fmt.Printf("Expires:   %s\n", ch.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
	}
}

func cmdStatus(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	user := fs.String("user", "", "Username")
	fs.Parse(args)

	if *user == "" {
		fatal("Usage: topocoin-cli status --user <name>")
	}

	var st rpc.StatusResult
	if err := client.Call("account_getStatus", rpc.UsernameParam{Username: *user}, &st); err != nil {
		fatal("account_getStatus: %v", err)
	}
	fmt.Printf("Account:   %s\n", st.AccountID)
	fmt.Printf("Username:  %s\n", st.Username)
	fmt.Printf("Status:    %s\n", st.Status)
	if st.WalletAddress != "" {
		fmt.Printf("Wallet:    %s\n", st.WalletAddress)
	}
	if st.Activation != "" {
		fmt.Printf("Phrase:    %s (%d used, %d remaining)\n", st.Activation, st.AttemptsUsed, st.AttemptsRemaining)
	}
	if st.ExpiresAt != nil && st.Activation == "pending" {
		fmt.Printf("Expires:   %s\n", st.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
	}
}

// ── login ───────────────────────────────────────────────────────────────

func cmdLogin(client *rpcclient.Client, args []string, tokenPath string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	user := fs.String("user", "", "Username")
	fs.Parse(args)

	if *user == "" {
		fatal("Usage: topocoin-cli login --user <name>")
	}
	password, err := readPassword("Password: ")
	if err != nil {
		fatal("read password: %v", err)
	}

	var res rpc.LoginResult
	if err := client.Call("account_login", rpc.LoginParam{Username: *user, Password: string(password)}, &res); err != nil {
		fatal("account_login: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(tokenPath), 0700); err != nil {
		fatal("create data dir: %v", err)
	}
	if err := os.WriteFile(tokenPath, []byte(res.Token+"\n"), 0600); err != nil {
		fatal("save token: %v", err)
	}
	fmt.Printf("Logged in until %s.\n", res.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
}

// authed returns client carrying the saved access token.
func authed(client *rpcclient.Client, tokenPath string) *rpcclient.Client {
	data, err := os.ReadFile(tokenPath)
	if err != nil {
		fatal("not logged in (run `topocoin-cli login`): %v", err)
	}
	return client.WithBearer(strings.TrimSpace(string(data)))
}

// ── wallet relay ────────────────────────────────────────────────────────

func cmdNetworks(client *rpcclient.Client) {
	var res rpc.NetworksResult
	if err := client.Call("wallet_getNetworks", nil, &res); err != nil {
		fatal("wallet_getNetworks: %v", err)
	}
	for _, name := range res.Networks {
		marker := " "
		if name == res.Default {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, name)
	}
	fmt.Printf("TPC mint: %s\n", res.Mint)
}

func cmdBalance(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	address := fs.String("address", "", "Solana address (default: registered wallet)")
	network := fs.String("network", "", "Network (default: server default)")
	fs.Parse(args)

	var res rpc.BalanceResult
	if err := client.Call("wallet_getBalance", rpc.BalanceParam{Address: *address, Network: *network}, &res); err != nil {
		fatal("wallet_getBalance: %v", err)
	}
	fmt.Printf("Network:  %s\n", res.Network)
	fmt.Printf("Address:  %s\n", res.Address)
	fmt.Printf("SOL:      %s\n", res.SOL)
	if res.Token != nil {
		fmt.Printf("TPC:      %s\n", res.Token.UIAmount)
	} else {
		fmt.Println("TPC:      unavailable")
	}
}

func cmdBlockhash(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("blockhash", flag.ExitOnError)
	network := fs.String("network", "", "Network (default: server default)")
	fs.Parse(args)

	var res rpc.BlockhashResult
	if err := client.Call("wallet_getLatestBlockhash", rpc.NetworkParam{Network: *network}, &res); err != nil {
		fatal("wallet_getLatestBlockhash: %v", err)
	}
	fmt.Printf("Network:               %s\n", res.Network)
	fmt.Printf("Blockhash:             %s\n", res.Blockhash)
	fmt.Printf("Last valid height:     %d\n", res.LastValidBlockHeight)
}

func cmdSendRaw(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("send-raw", flag.ExitOnError)
	tx := fs.String("tx", "", "Signed transaction, base64")
	network := fs.String("network", "", "Network (default: server default)")
	fs.Parse(args)

	if *tx == "" {
		fatal("Usage: topocoin-cli send-raw --tx <base64> [--network <net>]")
	}

	var res rpc.SendTransactionResult
	if err := client.Call("wallet_sendTransaction", rpc.SendTransactionParam{Transaction: *tx, Network: *network}, &res); err != nil {
		fatal("wallet_sendTransaction: %v", err)
	}
	fmt.Printf("Signature: %s (%s)\n", res.Signature, res.Network)
}

// ── Password helper ─────────────────────────────────────────────────────

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

// ── Error helper ────────────────────────────────────────────────────────

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
