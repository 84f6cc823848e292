package merge

import (
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/walletnav/internal/domain"
)

// Service combines wallet balances and protocol positions into one list in which
// every economic position appears exactly once.
type Service struct {
	receipts domain.ReceiptTable
	dust     decimal.Decimal
}

// NewService creates a merger using the static receipt-token table.
func NewService(receipts domain.ReceiptTable, dustThreshold decimal.Decimal) *Service {
	return &Service{receipts: receipts, dust: dustThreshold}
}

// Merge returns wallet holdings followed by DeFi-derived holdings that no tagged
// receipt token already covers.
func (s *Service) Merge(wallet []domain.Holding, positions []domain.DeFiPosition) []domain.Holding {
	wallet = lo.UniqBy(wallet, func(h domain.Holding) string { return h.ChainKey() })
	wallet = enrichFromPositions(wallet, positions)

	defi := positionHoldings(positions, s.dust)

	tagged := make(map[string]bool)
	for i := range wallet {
		protocol, ok := s.receipts.Lookup(wallet[i].ChainID, wallet[i].Address)
		if !ok {
			continue
		}
		wallet[i].IsDeFiPosition = true
		wallet[i].ProtocolName = protocol
		tagged[symbolKey(wallet[i].ChainID, wallet[i].Symbol)] = true
	}

	defi = lo.Reject(defi, func(h domain.Holding, _ int) bool {
		return tagged[symbolKey(h.ChainID, h.Symbol)]
	})

	return append(wallet, defi...)
}

// positionHoldings flattens positions into holdings. Borrowed legs are dropped and
// so is dust with a known value; unpriced tokens are kept.
func positionHoldings(positions []domain.DeFiPosition, dust decimal.Decimal) []domain.Holding {
	var out []domain.Holding
	for _, p := range positions {
		for _, t := range p.Tokens {
			if !t.TokenType.IsOwned() {
				continue
			}
			h := domain.Holding{
				ChainID:          p.ChainID,
				Address:          t.Address,
				Symbol:           t.Symbol,
				Name:             t.Name,
				Decimals:         t.Decimals,
				Balance:          t.Balance,
				BalanceFormatted: t.BalanceFormatted,
				Logo:             t.Logo,
				Origin:           domain.OriginDeFi,
				IsDeFiPosition:   true,
				ProtocolName:     p.ProtocolName,
				ProtocolLogo:     p.ProtocolLogo,
				PositionLabel:    p.Label,
				TokenType:        t.TokenType,
			}
			if t.Price != nil {
				h.SetPrice(*t.Price, domain.PriceSourceMarket)
			}
			if h.Value != nil && h.Value.LessThan(dust) {
				continue
			}
			out = append(out, h)
		}
	}
	return out
}

// enrichFromPositions prices wallet holdings that have no price using a position token
// for the same chain and address.
func enrichFromPositions(wallet []domain.Holding, positions []domain.DeFiPosition) []domain.Holding {
	known := make(map[string]decimal.Decimal)
	for _, p := range positions {
		for _, t := range p.Tokens {
			if t.Price == nil || !t.Price.IsPositive() {
				continue
			}
			key := domain.TokenKey(p.ChainID, t.Address)
			if _, ok := known[key]; !ok {
				known[key] = *t.Price
			}
		}
	}

	for i := range wallet {
		if wallet[i].Price != nil {
			continue
		}
		if p, ok := known[wallet[i].ChainKey()]; ok {
			wallet[i].SetPrice(p, domain.PriceSourceDeFi)
		}
	}
	return wallet
}

func symbolKey(chainID int64, symbol string) string {
	return domain.TokenKey(chainID, strings.ToUpper(strings.TrimSpace(symbol)))
}
