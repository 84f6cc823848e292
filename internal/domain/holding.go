package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// PriceSource tags where a holding's unit price came from.
type PriceSource string

const (
	PriceSourceNone     PriceSource = ""
	PriceSourceMarket   PriceSource = "market"
	PriceSourceNAV      PriceSource = "nav"
	PriceSourceRedirect PriceSource = "redirect"
	PriceSourceDeFi     PriceSource = "defi-enrichment"
)

// MarshalJSON encodes an unset source as null.
func (s PriceSource) MarshalJSON() ([]byte, error) {
	if s == PriceSourceNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(s))
}

// UnmarshalJSON accepts null as PriceSourceNone.
func (s *PriceSource) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = PriceSourceNone
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = PriceSource(v)
	return nil
}

// Origin identifies which fetcher produced a holding.
type Origin string

const (
	OriginWallet Origin = "wallet"
	OriginDeFi   Origin = "defi"
)

// Holding is a single priced position in a wallet portfolio.
// Value is always BalanceFormatted × Price; a nil Price implies a nil Value.
type Holding struct {
	ChainID             int64            `json:"chainId"`
	Address             string           `json:"address"`
	Symbol              string           `json:"symbol"`
	Name                string           `json:"name"`
	Decimals            int              `json:"decimals"`
	Balance             string           `json:"balance"`
	BalanceFormatted    decimal.Decimal  `json:"balanceFormatted"`
	Price               *decimal.Decimal `json:"price"`
	Value               *decimal.Decimal `json:"value"`
	PriceSource         PriceSource      `json:"priceSource"`
	PortfolioPercentage decimal.Decimal  `json:"portfolioPercentage"`
	Logo                string           `json:"logo,omitempty"`
	IsNative            bool             `json:"isNative"`
	Origin              Origin           `json:"origin"`
	IsDeFiPosition      bool             `json:"isDefiPosition"`
	ProtocolName        string           `json:"protocolName,omitempty"`
	ProtocolLogo        string           `json:"protocolLogo,omitempty"`
	PositionLabel       string           `json:"positionLabel,omitempty"`
	TokenType           TokenType        `json:"tokenType,omitempty"`
	Basket              *BasketQuote     `json:"basket,omitempty"`
	PossibleSpam        bool             `json:"-"`
}

// SetPrice assigns a unit price and recomputes the value from the formatted balance.
func (h *Holding) SetPrice(price decimal.Decimal, source PriceSource) {
	p := price
	v := h.BalanceFormatted.Mul(p)
	h.Price = &p
	h.Value = &v
	h.PriceSource = source
}

// ClearPrice removes price, value and source together.
func (h *Holding) ClearPrice() {
	h.Price = nil
	h.Value = nil
	h.PriceSource = PriceSourceNone
}

// ChainKey identifies a token on a chain, e.g. "1:0xa0b8...".
func (h Holding) ChainKey() string {
	return TokenKey(h.ChainID, h.Address)
}

// ValueOrZero returns the holding value, treating nil as zero.
func (h Holding) ValueOrZero() decimal.Decimal {
	if h.Value == nil {
		return decimal.Zero
	}
	return *h.Value
}
