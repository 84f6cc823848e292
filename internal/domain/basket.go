package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// CompositeType declares how a composite token's basket is read on-chain.
type CompositeType string

const (
	// CompositeUndeclared tries the direct quote first, then the indirect one.
	CompositeUndeclared CompositeType = ""
	// CompositeDirect reads the per-unit redeem quote from the token itself.
	CompositeDirect CompositeType = "basket-direct"
	// CompositeIndirect reads the quote from the basket handler behind the token's main contract.
	CompositeIndirect CompositeType = "basket-indirect"
)

// Valid reports whether the type is one of the known strategies.
func (t CompositeType) Valid() bool {
	switch t {
	case CompositeUndeclared, CompositeDirect, CompositeIndirect:
		return true
	default:
		return false
	}
}

// BasketHealth is the status reported by a basket handler.
type BasketHealth string

const (
	BasketSound    BasketHealth = "SOUND"
	BasketIffy     BasketHealth = "IFFY"
	BasketDisabled BasketHealth = "DISABLED"
)

// CompositeToken is a registered token whose value is the sum of an underlying basket.
type CompositeToken struct {
	ChainID   int64         `json:"chainId" yaml:"chainId"`
	Address   string        `json:"address" yaml:"address"`
	Symbol    string        `json:"symbol" yaml:"symbol"`
	Type      CompositeType `json:"type,omitempty" yaml:"type"`
	Decimals  int           `json:"decimals,omitempty" yaml:"decimals"`
	DependsOn []string      `json:"dependsOn,omitempty" yaml:"dependsOn"`
}

// Key returns the chain-scoped key of the composite token.
func (c CompositeToken) Key() string {
	return TokenKey(c.ChainID, c.Address)
}

// UnitDecimals returns the token's decimals, defaulting to 18.
func (c CompositeToken) UnitDecimals() int {
	if c.Decimals <= 0 {
		return DefaultDecimals
	}
	return c.Decimals
}

// UnderlyingAmount is a raw on-chain basket entry: token and quantity in its smallest units.
type UnderlyingAmount struct {
	Address  string
	Quantity *big.Int
}

// TokenMetadata describes an ERC20 token.
type TokenMetadata struct {
	Symbol   string
	Decimals int
}

// BasketLeg is one priced underlying of a composite token, per unit of the composite.
type BasketLeg struct {
	Address   string           `json:"address"`
	Symbol    string           `json:"symbol"`
	Decimals  int              `json:"decimals"`
	Quantity  decimal.Decimal  `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unitPrice"`
	Value     *decimal.Decimal `json:"value"`
}

// BasketQuote is the resolved per-unit NAV of a composite token.
type BasketQuote struct {
	ChainID             int64           `json:"chainId"`
	Address             string          `json:"address"`
	Symbol              string          `json:"symbol"`
	Strategy            CompositeType   `json:"strategy"`
	Legs                []BasketLeg     `json:"legs"`
	NAV                 decimal.Decimal `json:"nav"`
	AllUnderlyingPriced bool            `json:"allUnderlyingPriced"`
	Health              BasketHealth    `json:"health,omitempty"`
}
