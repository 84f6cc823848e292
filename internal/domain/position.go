package domain

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// TokenType classifies a constituent of a DeFi position.
type TokenType string

const (
	TokenTypeSupply  TokenType = "supply"
	TokenTypeDeposit TokenType = "deposit"
	TokenTypeStaked  TokenType = "staked"
	TokenTypeLP      TokenType = "lp"
	TokenTypeReward  TokenType = "reward"
	TokenTypeBorrow  TokenType = "borrow"
)

// IsOwned reports whether the token type represents value held by the wallet.
func (t TokenType) IsOwned() bool {
	switch t {
	case TokenTypeSupply, TokenTypeDeposit, TokenTypeStaked, TokenTypeLP, TokenTypeReward:
		return true
	default:
		return false
	}
}

// PositionToken is one constituent token of a protocol position.
type PositionToken struct {
	TokenType        TokenType        `json:"tokenType"`
	Symbol           string           `json:"symbol"`
	Name             string           `json:"name"`
	Address          string           `json:"address"`
	Decimals         int              `json:"decimals"`
	Balance          string           `json:"balance"`
	BalanceFormatted decimal.Decimal  `json:"balanceFormatted"`
	Price            *decimal.Decimal `json:"price"`
	Value            *decimal.Decimal `json:"value"`
	Logo             string           `json:"logo,omitempty"`
}

// DeFiPosition is a protocol-reported position on one chain.
type DeFiPosition struct {
	ChainID      int64            `json:"chainId"`
	ProtocolID   string           `json:"protocolId,omitempty"`
	ProtocolName string           `json:"protocolName"`
	ProtocolLogo string           `json:"protocolLogo,omitempty"`
	Label        string           `json:"label"`
	Tokens       []PositionToken  `json:"tokens"`
	TotalValue   *decimal.Decimal `json:"totalValue"`
}

// Total returns the provider-reported total, or the sum of known constituent
// values when no total was reported. Borrowed legs count against the position.
func (p DeFiPosition) Total() decimal.Decimal {
	if p.TotalValue != nil {
		return *p.TotalValue
	}
	return lo.Reduce(p.Tokens, func(acc decimal.Decimal, t PositionToken, _ int) decimal.Decimal {
		if t.Value == nil {
			return acc
		}
		if t.TokenType == TokenTypeBorrow {
			return acc.Sub(*t.Value)
		}
		return acc.Add(*t.Value)
	}, decimal.Zero)
}
