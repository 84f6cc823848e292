package nav

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/walletnav/internal/domain"
)

// SourceNAV tags errors produced by the resolver.
const SourceNAV = "nav"

var (
	ErrUnresolved     = errors.New("composite token has no positive NAV")
	ErrEmptyBasket    = errors.New("composite basket is empty")
	ErrBasketDisabled = errors.New("composite basket is disabled")
	ErrCircularBasket = errors.New("composite basket references itself")
)

const unknownSymbol = "UNKNOWN"

// Outcome labels reported to the recorder.
const (
	OutcomeResolved = "resolved"
	OutcomePartial  = "partial"
	OutcomeDisabled = "disabled"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
)

// ChainReader reads composite baskets and token metadata on-chain.
type ChainReader interface {
	RedeemQuote(ctx context.Context, chainID int64, token string, shares *big.Int) ([]domain.UnderlyingAmount, error)
	BasketHandlerQuote(ctx context.Context, chainID int64, token string, amount *big.Int) ([]domain.UnderlyingAmount, domain.BasketHealth, error)
	TokenMetadata(ctx context.Context, chainID int64, token string) (domain.TokenMetadata, error)
}

// PriceLookup returns market prices for many tokens on a chain; unpriced tokens are absent.
type PriceLookup interface {
	GetPrices(ctx context.Context, chainID int64, addresses []string) map[string]decimal.Decimal
}

// ChainChecker reports whether a chain can be read.
type ChainChecker interface {
	HasChain(chainID int64) bool
}

// OutcomeRecorder observes per-token resolution outcomes.
type OutcomeRecorder interface {
	NAVOutcome(outcome string)
}

// Result is the outcome of resolving a set of composite tokens.
type Result struct {
	Quotes map[string]domain.BasketQuote
	Errors []domain.SourceError
}

// Resolver prices composite tokens from their on-chain baskets.
type Resolver struct {
	reader     ChainReader
	prices     PriceLookup
	chains     ChainChecker
	registry   []domain.CompositeToken
	registered map[string]bool
	callDelay  time.Duration
	recorder   OutcomeRecorder

	metaMu   sync.Mutex
	metadata map[string]domain.TokenMetadata
}

// NewResolver creates a resolver over composites given in dependency order.
// chains and recorder may be nil.
func NewResolver(
	reader ChainReader,
	prices PriceLookup,
	chains ChainChecker,
	composites []domain.CompositeToken,
	callDelay time.Duration,
	recorder OutcomeRecorder,
) *Resolver {
	if reader == nil {
		panic("nav.NewResolver: reader is nil")
	}
	if prices == nil {
		panic("nav.NewResolver: prices is nil")
	}
	return &Resolver{
		reader:   reader,
		prices:   prices,
		chains:   chains,
		registry: composites,
		registered: lo.SliceToMap(composites, func(c domain.CompositeToken) (string, bool) {
			return c.Key(), true
		}),
		callDelay: callDelay,
		recorder:  recorder,
		metadata:  make(map[string]domain.TokenMetadata),
	}
}

// Apply prices held composites that have no market price. Only the held composites and
// the tokens they transitively depend on are resolved, in registry order.
func (r *Resolver) Apply(ctx context.Context, holdings []domain.Holding) ([]domain.Holding, []domain.SourceError) {
	needed := r.neededTokens(holdings)
	if len(needed) == 0 {
		return holdings, nil
	}

	result := r.ResolveAll(ctx, needed, NewOverrideMap())

	for i := range holdings {
		if holdings[i].Price != nil {
			continue
		}
		q, ok := result.Quotes[holdings[i].ChainKey()]
		if !ok {
			continue
		}
		holdings[i].SetPrice(q.NAV, domain.PriceSourceNAV)
		quote := q
		holdings[i].Basket = &quote
	}

	return holdings, result.Errors
}

func (r *Resolver) neededTokens(holdings []domain.Holding) []domain.CompositeToken {
	byKey := lo.KeyBy(r.registry, func(c domain.CompositeToken) string { return c.Key() })

	needed := make(map[string]bool)
	var queue []string
	for _, h := range holdings {
		key := h.ChainKey()
		if h.Price == nil && r.registered[key] && !needed[key] {
			needed[key] = true
			queue = append(queue, key)
		}
	}

	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]
		c := byKey[key]
		for _, dep := range c.DependsOn {
			depKey := domain.TokenKey(c.ChainID, dep)
			if r.registered[depKey] && !needed[depKey] {
				needed[depKey] = true
				queue = append(queue, depKey)
			}
		}
	}

	return lo.Filter(r.registry, func(c domain.CompositeToken, _ int) bool { return needed[c.Key()] })
}

// ResolveAll resolves tokens sequentially in the given order. Each accepted NAV is written
// to overrides before the next token is read. Failures are collected, never fatal.
func (r *Resolver) ResolveAll(ctx context.Context, tokens []domain.CompositeToken, overrides *OverrideMap) Result {
	result := Result{Quotes: make(map[string]domain.BasketQuote)}
	observed := make(map[string][]string)

	for _, token := range tokens {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, domain.NewSourceError(SourceNAV, token.ChainID, ctx.Err()))
			break
		}

		if r.chains != nil && !r.chains.HasChain(token.ChainID) {
			slog.Warn("no RPC endpoint for composite token chain", "chain", token.ChainID, "token", token.Symbol)
			r.record(OutcomeSkipped)
			continue
		}

		quote, err := r.Resolve(ctx, token, overrides, observed)
		if err != nil {
			if errors.Is(err, ErrBasketDisabled) {
				slog.Info("composite basket disabled", "chain", token.ChainID, "token", token.Symbol)
				r.record(OutcomeDisabled)
				continue
			}
			slog.Warn("composite token unresolved", "chain", token.ChainID, "token", token.Symbol, "error", err)
			r.record(OutcomeFailed)
			result.Errors = append(result.Errors, domain.NewSourceError(SourceNAV, token.ChainID,
				fmt.Errorf("%s: %w", token.Symbol, err)))
			continue
		}

		overrides.Set(token.ChainID, token.Address, quote.NAV)
		result.Quotes[token.Key()] = quote
		if quote.AllUnderlyingPriced {
			r.record(OutcomeResolved)
		} else {
			r.record(OutcomePartial)
		}
	}

	return result
}

// Resolve reads and prices a single composite token. observed collects the basket
// graph seen so far and is used to reject circular baskets. An undeclared token tries
// the direct strategy first and falls back to the basket handler on any failure,
// including an empty or worthless direct basket.
func (r *Resolver) Resolve(ctx context.Context, token domain.CompositeToken, overrides *OverrideMap, observed map[string][]string) (domain.BasketQuote, error) {
	if token.Type != domain.CompositeUndeclared {
		return r.resolveWith(ctx, token, token.Type, overrides, observed)
	}

	quote, directErr := r.resolveWith(ctx, token, domain.CompositeDirect, overrides, observed)
	if directErr == nil {
		return quote, nil
	}
	slog.Debug("direct basket unusable, trying basket handler", "token", token.Symbol, "error", directErr)
	delete(observed, token.Key())

	quote, err := r.resolveWith(ctx, token, domain.CompositeIndirect, overrides, observed)
	if err != nil {
		return domain.BasketQuote{}, fmt.Errorf("%w (direct: %v)", err, directErr)
	}
	return quote, nil
}

func (r *Resolver) resolveWith(ctx context.Context, token domain.CompositeToken, strategy domain.CompositeType, overrides *OverrideMap, observed map[string][]string) (domain.BasketQuote, error) {
	amounts, health, err := r.readBasket(ctx, token, strategy)
	if err != nil {
		return domain.BasketQuote{}, err
	}
	if health == domain.BasketDisabled {
		return domain.BasketQuote{}, ErrBasketDisabled
	}
	if len(amounts) == 0 {
		return domain.BasketQuote{}, ErrEmptyBasket
	}

	legAddrs := lo.Map(amounts, func(a domain.UnderlyingAmount, _ int) string { return domain.LowerAddress(a.Address) })
	if err := r.checkCircular(token, legAddrs, observed); err != nil {
		return domain.BasketQuote{}, err
	}
	observed[token.Key()] = legAddrs

	legs, err := r.priceLegs(ctx, token.ChainID, amounts, overrides)
	if err != nil {
		return domain.BasketQuote{}, err
	}

	nav := decimal.Zero
	allPriced := true
	for _, l := range legs {
		if l.Value == nil {
			allPriced = false
			continue
		}
		nav = nav.Add(*l.Value)
	}
	if !nav.IsPositive() {
		return domain.BasketQuote{}, ErrUnresolved
	}

	return domain.BasketQuote{
		ChainID:             token.ChainID,
		Address:             token.Address,
		Symbol:              token.Symbol,
		Strategy:            strategy,
		Legs:                legs,
		NAV:                 nav,
		AllUnderlyingPriced: allPriced,
		Health:              health,
	}, nil
}

func (r *Resolver) readBasket(ctx context.Context, token domain.CompositeToken, strategy domain.CompositeType) ([]domain.UnderlyingAmount, domain.BasketHealth, error) {
	if strategy == domain.CompositeIndirect {
		return r.reader.BasketHandlerQuote(ctx, token.ChainID, token.Address, domain.UnitAmount(domain.DefaultDecimals))
	}
	amounts, err := r.reader.RedeemQuote(ctx, token.ChainID, token.Address, domain.UnitAmount(token.UnitDecimals()))
	return amounts, "", err
}

// checkCircular rejects a basket containing the token itself or a registered composite
// whose observed basket leads back to the token.
func (r *Resolver) checkCircular(token domain.CompositeToken, legAddrs []string, observed map[string][]string) error {
	self := token.Key()
	for _, addr := range legAddrs {
		legKey := domain.TokenKey(token.ChainID, addr)
		if legKey == self {
			return fmt.Errorf("%w: %s holds itself", ErrCircularBasket, token.Symbol)
		}
		if r.registered[legKey] && reaches(legKey, self, token.ChainID, observed, make(map[string]bool)) {
			return fmt.Errorf("%w: %s via %s", ErrCircularBasket, token.Symbol, addr)
		}
	}
	return nil
}

func reaches(from, target string, chainID int64, observed map[string][]string, seen map[string]bool) bool {
	if seen[from] {
		return false
	}
	seen[from] = true
	for _, addr := range observed[from] {
		next := domain.TokenKey(chainID, addr)
		if next == target || reaches(next, target, chainID, observed, seen) {
			return true
		}
	}
	return false
}

func (r *Resolver) priceLegs(ctx context.Context, chainID int64, amounts []domain.UnderlyingAmount, overrides *OverrideMap) ([]domain.BasketLeg, error) {
	legs := make([]domain.BasketLeg, len(amounts))
	var missing []string
	for i, a := range amounts {
		meta, err := r.tokenMetadata(ctx, chainID, a.Address)
		if err != nil {
			return nil, err
		}
		addr := domain.LowerAddress(a.Address)
		legs[i] = domain.BasketLeg{
			Address:  addr,
			Symbol:   meta.Symbol,
			Decimals: meta.Decimals,
			Quantity: domain.FormatBigUnits(a.Quantity, meta.Decimals),
		}
		if p, ok := overrides.Get(chainID, addr); ok {
			legs[i].UnitPrice = domain.Ptr(p)
			continue
		}
		missing = append(missing, addr)
	}

	if len(missing) > 0 {
		market := r.prices.GetPrices(ctx, chainID, lo.Uniq(missing))
		for i := range legs {
			if legs[i].UnitPrice != nil {
				continue
			}
			if p, ok := market[legs[i].Address]; ok {
				legs[i].UnitPrice = domain.Ptr(p)
			}
		}
	}

	for i := range legs {
		if legs[i].UnitPrice != nil {
			legs[i].Value = domain.Ptr(legs[i].Quantity.Mul(*legs[i].UnitPrice))
		}
	}
	return legs, nil
}

// tokenMetadata returns cached ERC20 metadata, reading it on first use. Read failures
// fall back to 18 decimals and an UNKNOWN symbol and are not cached.
func (r *Resolver) tokenMetadata(ctx context.Context, chainID int64, address string) (domain.TokenMetadata, error) {
	key := domain.TokenKey(chainID, address)

	r.metaMu.Lock()
	meta, ok := r.metadata[key]
	r.metaMu.Unlock()
	if ok {
		return meta, nil
	}

	if r.callDelay > 0 {
		select {
		case <-ctx.Done():
			return domain.TokenMetadata{}, ctx.Err()
		case <-time.After(r.callDelay):
		}
	}

	meta, err := r.reader.TokenMetadata(ctx, chainID, address)
	if err != nil {
		slog.Debug("token metadata unavailable, using defaults", "chain", chainID, "token", address, "error", err)
		return domain.TokenMetadata{Symbol: unknownSymbol, Decimals: domain.DefaultDecimals}, nil
	}
	if meta.Symbol == "" {
		meta.Symbol = unknownSymbol
	}

	r.metaMu.Lock()
	r.metadata[key] = meta
	r.metaMu.Unlock()
	return meta, nil
}

func (r *Resolver) record(outcome string) {
	if r.recorder != nil {
		r.recorder.NAVOutcome(outcome)
	}
}
