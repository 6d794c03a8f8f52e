package solana

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Public cluster endpoints.
const (
	DevnetURL  = "https://api.devnet.solana.com"
	MainnetURL = "https://api.mainnet-beta.solana.com"
)

// TopocoinMint is the TPC token mint.
const TopocoinMint = "6zhMkoDvNg7cw8ojTH6BBdkYkDwery4GTRxZKVAPv2EW"

// ErrUnknownNetwork is returned by Networks.Get for unconfigured names.
var ErrUnknownNetwork = errors.New("unknown network")

// Networks maps network names to cluster clients.
type Networks struct {
	clients map[string]*Client
	def     string
}

// NewNetworks builds a client per endpoint. def names the network used when
// callers pass an empty name and must be one of endpoints.
func NewNetworks(endpoints map[string]string, def string, timeout time.Duration, observe Observer) (*Networks, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("no solana networks configured")
	}
	n := &Networks{clients: make(map[string]*Client, len(endpoints)), def: def}
	for name, url := range endpoints {
		if url == "" {
			return nil, fmt.Errorf("network %s: empty endpoint", name)
		}
		n.clients[name] = NewClient(name, url, timeout, observe)
	}
	if _, ok := n.clients[def]; !ok {
		return nil, fmt.Errorf("default network %q is not configured", def)
	}
	return n, nil
}

// Get returns the client for name, or the default when name is empty.
func (n *Networks) Get(name string) (*Client, error) {
	if name == "" {
		name = n.def
	}
	c, ok := n.clients[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
	}
	return c, nil
}

// Default returns the default network name.
func (n *Networks) Default() string { return n.def }

// Names returns the configured network names, sorted.
func (n *Networks) Names() []string {
	names := make([]string, 0, len(n.clients))
	for name := range n.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
