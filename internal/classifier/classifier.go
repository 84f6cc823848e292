package classifier

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/walletnav/internal/domain"
)

// scamPattern matches names and symbols that advertise a link or invite,
// the usual shape of airdropped phishing tokens.
var scamPattern = regexp.MustCompile(`(?i)(https?://|www\.|t\.me/|discord\.(gg|com/invite)|\bvisit\b)`)

// A bare domain is only a lure next to a claim-style word: plenty of real
// tokens are named after their site (YFI is "yearn.finance").
var (
	lurePattern   = regexp.MustCompile(`(?i)\b(claim|airdrop|rewards?|bonus|free)\b`)
	domainPattern = regexp.MustCompile(`(?i)\b[a-z0-9-]+\.(com|io|net|org|xyz|app|site|online|top|claim|gift|finance)\b`)
)

// PriceLookup returns the market price of a token.
type PriceLookup interface {
	GetPrice(ctx context.Context, chainID int64, address string) (decimal.Decimal, error)
}

// Service drops spam holdings and applies configured price redirects.
type Service struct {
	spam      map[int64]map[string]bool
	redirects map[string]domain.PriceRedirect
	prices    PriceLookup
}

// NewService creates a classifier from the registry tables.
func NewService(spamSymbols map[int64][]string, redirects []domain.PriceRedirect, prices PriceLookup) *Service {
	if prices == nil {
		panic("classifier.NewService: prices is nil")
	}
	spam := make(map[int64]map[string]bool, len(spamSymbols))
	for chainID, symbols := range spamSymbols {
		spam[chainID] = lo.SliceToMap(symbols, func(s string) (string, bool) {
			return strings.ToUpper(s), true
		})
	}
	return &Service{
		spam: spam,
		redirects: lo.KeyBy(redirects, func(r domain.PriceRedirect) string {
			return domain.TokenKey(r.ChainID, r.Address)
		}),
		prices: prices,
	}
}

// IsSpam reports whether a holding should be dropped as spam.
func (s *Service) IsSpam(h domain.Holding) bool {
	if h.PossibleSpam {
		return true
	}
	if s.spam[h.ChainID][strings.ToUpper(strings.TrimSpace(h.Symbol))] {
		return true
	}
	return looksLikeScam(h.Symbol) || looksLikeScam(h.Name)
}

func looksLikeScam(text string) bool {
	if scamPattern.MatchString(text) {
		return true
	}
	return lurePattern.MatchString(text) && domainPattern.MatchString(text)
}

// Classify removes spam and substitutes redirected prices. Spam is dropped regardless of value.
func (s *Service) Classify(ctx context.Context, holdings []domain.Holding) []domain.Holding {
	kept := lo.Reject(holdings, func(h domain.Holding, _ int) bool { return s.IsSpam(h) })
	if dropped := len(holdings) - len(kept); dropped > 0 {
		slog.Debug("dropped spam holdings", "count", dropped)
	}

	for i := range kept {
		redirect, ok := s.redirects[kept[i].ChainKey()]
		if !ok {
			continue
		}
		p, err := s.prices.GetPrice(ctx, redirect.ChainID, redirect.Underlying)
		if err != nil {
			slog.Warn("price redirect lookup failed, keeping original price",
				"chain", redirect.ChainID, "token", redirect.Address, "underlying", redirect.Underlying, "error", err)
			continue
		}
		kept[i].SetPrice(p, domain.PriceSourceRedirect)
	}

	return kept
}
