package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ErrNoEndpoint is returned when no RPC endpoint is configured for a chain.
var ErrNoEndpoint = errors.New("no RPC endpoint configured")

// ContractCaller executes read-only contract calls.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type dialFunc func(ctx context.Context, url string) (ContractCaller, func(), error)

func dialEth(ctx context.Context, url string) (ContractCaller, func(), error) {
	c, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	return c, c.Close, nil
}

// Provider hands out one lazily dialed RPC client per chain.
type Provider struct {
	endpoints   map[int64][]string
	dialTimeout time.Duration
	dial        dialFunc

	mu      sync.Mutex
	callers map[int64]ContractCaller
	closers []func()
}

// NewProvider creates a provider over the given per-chain RPC URLs. The first
// reachable URL of each chain wins; later ones are fallbacks.
func NewProvider(endpoints map[int64][]string, dialTimeout time.Duration) *Provider {
	return &Provider{
		endpoints:   endpoints,
		dialTimeout: dialTimeout,
		dial:        dialEth,
		callers:     make(map[int64]ContractCaller),
	}
}

// HasChain reports whether at least one RPC URL is configured for the chain.
func (p *Provider) HasChain(chainID int64) bool {
	return len(p.endpoints[chainID]) > 0
}

// Caller returns the client for a chain, dialing it on first use.
func (p *Provider) Caller(ctx context.Context, chainID int64) (ContractCaller, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.callers[chainID]; ok {
		return c, nil
	}

	urls := p.endpoints[chainID]
	if len(urls) == 0 {
		return nil, fmt.Errorf("chain %d: %w", chainID, ErrNoEndpoint)
	}

	var lastErr error
	for _, url := range urls {
		dialCtx, cancel := context.WithTimeout(ctx, p.dialTimeout)
		c, closeFn, err := p.dial(dialCtx, url)
		cancel()
		if err != nil {
			slog.Warn("RPC dial failed", "chain", chainID, "error", err)
			lastErr = err
			continue
		}
		p.callers[chainID] = c
		if closeFn != nil {
			p.closers = append(p.closers, closeFn)
		}
		return c, nil
	}

	return nil, fmt.Errorf("all RPC endpoints failed for chain %d: %w", chainID, lastErr)
}

// Close closes every dialed client.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, closeFn := range p.closers {
		closeFn()
	}
	p.closers = nil
	p.callers = make(map[int64]ContractCaller)
}
