package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/mtlprog/walletnav/internal/domain"
)

//go:embed registry.yaml
var defaultRegistry []byte

// ErrCyclicRegistry indicates composite tokens whose declared dependencies form a cycle.
var ErrCyclicRegistry = errors.New("composite registry has a dependency cycle")

// Registry holds the static lookup tables loaded at startup. It is not modified after Load.
type Registry struct {
	Chains         []domain.Chain          `yaml:"chains"`
	SpamSymbols    map[int64][]string      `yaml:"spamSymbols"`
	PriceRedirects []domain.PriceRedirect  `yaml:"priceRedirects"`
	ReceiptTokens  domain.ReceiptTable     `yaml:"receiptTokens"`
	Composites     []domain.CompositeToken `yaml:"composites"`

	ordered []domain.CompositeToken
}

// LoadRegistry reads the registry from path, or the embedded default when path is empty.
func LoadRegistry(path string) (*Registry, error) {
	data := defaultRegistry
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading registry %s: %w", path, err)
		}
		data = b
	}
	return ParseRegistry(data)
}

// ParseRegistry decodes, normalizes and validates a YAML registry.
func ParseRegistry(data []byte) (*Registry, error) {
	var r Registry
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing registry: %w", err)
	}
	r.normalize()
	if err := r.validate(); err != nil {
		return nil, err
	}
	ordered, err := orderComposites(r.Composites)
	if err != nil {
		return nil, err
	}
	r.ordered = ordered
	return &r, nil
}

// OrderedComposites returns composite tokens in dependency order: every token appears after
// the tokens it depends on, ties keep declaration order.
func (r *Registry) OrderedComposites() []domain.CompositeToken {
	return append([]domain.CompositeToken(nil), r.ordered...)
}

// Chain returns the chain with the given ID.
func (r *Registry) Chain(id int64) (domain.Chain, bool) {
	return lo.Find(r.Chains, func(c domain.Chain) bool { return c.ID == id })
}

// ChainIDs returns the IDs of all configured chains in declaration order.
func (r *Registry) ChainIDs() []int64 {
	return lo.Map(r.Chains, func(c domain.Chain, _ int) int64 { return c.ID })
}

// RPCEndpoints returns RPC URLs per chain, with overrides taking precedence when non-empty.
func (r *Registry) RPCEndpoints(override func(chainID int64) []string) map[int64][]string {
	out := make(map[int64][]string, len(r.Chains))
	for _, c := range r.Chains {
		urls := c.RPCURLs
		if override != nil {
			if o := override(c.ID); len(o) > 0 {
				urls = o
			}
		}
		if len(urls) > 0 {
			out[c.ID] = urls
		}
	}
	return out
}

func (r *Registry) normalize() {
	for i := range r.PriceRedirects {
		r.PriceRedirects[i].Address = domain.LowerAddress(r.PriceRedirects[i].Address)
		r.PriceRedirects[i].Underlying = domain.LowerAddress(r.PriceRedirects[i].Underlying)
	}
	for i := range r.Composites {
		c := &r.Composites[i]
		c.Address = domain.LowerAddress(c.Address)
		c.DependsOn = lo.Map(c.DependsOn, func(a string, _ int) string { return domain.LowerAddress(a) })
	}
	for chainID, symbols := range r.SpamSymbols {
		r.SpamSymbols[chainID] = lo.Map(symbols, func(s string, _ int) string { return strings.ToUpper(strings.TrimSpace(s)) })
	}
}

func (r *Registry) validate() error {
	if len(r.Chains) == 0 {
		return errors.New("registry has no chains")
	}
	seenChains := make(map[int64]bool, len(r.Chains))
	for _, c := range r.Chains {
		if c.ID <= 0 || c.ProviderID == "" {
			return fmt.Errorf("chain %q: id and providerId are required", c.Name)
		}
		if seenChains[c.ID] {
			return fmt.Errorf("chain %d declared twice", c.ID)
		}
		seenChains[c.ID] = true
	}

	for _, pr := range r.PriceRedirects {
		if !seenChains[pr.ChainID] {
			return fmt.Errorf("price redirect %s: unknown chain %d", pr.Address, pr.ChainID)
		}
		if _, err := domain.NormalizeAddress(pr.Address); err != nil {
			return fmt.Errorf("price redirect: %w", err)
		}
		if _, err := domain.NormalizeAddress(pr.Underlying); err != nil {
			return fmt.Errorf("price redirect underlying for %s: %w", pr.Address, err)
		}
	}

	for protocol, chains := range r.ReceiptTokens {
		for chainID, addrs := range chains {
			for _, a := range addrs {
				if _, err := domain.NormalizeAddress(a); err != nil {
					return fmt.Errorf("receipt token %s on chain %d: %w", protocol, chainID, err)
				}
			}
		}
	}

	seen := make(map[string]bool, len(r.Composites))
	for _, c := range r.Composites {
		if _, err := domain.NormalizeAddress(c.Address); err != nil {
			return fmt.Errorf("composite %s: %w", c.Symbol, err)
		}
		if !c.Type.Valid() {
			return fmt.Errorf("composite %s: unknown type %q", c.Symbol, c.Type)
		}
		if !seenChains[c.ChainID] {
			return fmt.Errorf("composite %s: unknown chain %d", c.Symbol, c.ChainID)
		}
		if seen[c.Key()] {
			return fmt.Errorf("composite %s declared twice", c.Key())
		}
		seen[c.Key()] = true
	}
	for _, c := range r.Composites {
		for _, dep := range c.DependsOn {
			if !seen[domain.TokenKey(c.ChainID, dep)] {
				return fmt.Errorf("composite %s depends on unregistered token %s", c.Symbol, dep)
			}
		}
	}
	return nil
}

// orderComposites sorts composites topologically over DependsOn (Kahn's algorithm).
// Among ready tokens the earliest declared is emitted first.
func orderComposites(composites []domain.CompositeToken) ([]domain.CompositeToken, error) {
	pending := make(map[string]int, len(composites))
	for _, c := range composites {
		pending[c.Key()] = len(lo.Uniq(c.DependsOn))
	}
	dependents := make(map[string][]string)
	for _, c := range composites {
		for _, dep := range lo.Uniq(c.DependsOn) {
			depKey := domain.TokenKey(c.ChainID, dep)
			dependents[depKey] = append(dependents[depKey], c.Key())
		}
	}

	done := make(map[string]bool, len(composites))
	ordered := make([]domain.CompositeToken, 0, len(composites))
	for len(ordered) < len(composites) {
		next, ok := lo.Find(composites, func(c domain.CompositeToken) bool {
			return !done[c.Key()] && pending[c.Key()] == 0
		})
		if !ok {
			stuck := lo.FilterMap(composites, func(c domain.CompositeToken, _ int) (string, bool) {
				return c.Symbol, !done[c.Key()]
			})
			return nil, fmt.Errorf("%w: %s", ErrCyclicRegistry, strings.Join(stuck, ", "))
		}
		done[next.Key()] = true
		ordered = append(ordered, next)
		for _, d := range dependents[next.Key()] {
			pending[d]--
		}
	}
	return ordered, nil
}
