package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mtlprog/walletnav/internal/domain"
)

// DeFiPositions fetches protocol-level positions of the wallet on one chain.
func (c *Client) DeFiPositions(ctx context.Context, address string, chain domain.Chain) ([]domain.DeFiPosition, error) {
	q := url.Values{}
	q.Set("chain", chain.ProviderID)

	var raws []rawPosition
	if err := c.getJSON(ctx, "/wallets/"+address+"/defi/positions", q, &raws); err != nil {
		return nil, fmt.Errorf("fetching defi positions on %s: %w", chain.ProviderID, err)
	}

	positions := make([]domain.DeFiPosition, 0, len(raws))
	for _, raw := range raws {
		if p, ok := normalizePosition(chain.ID, raw); ok {
			positions = append(positions, p)
		}
	}
	return positions, nil
}

// normalizePosition maps a raw provider position. Records without a position body are skipped.
func normalizePosition(chainID int64, raw rawPosition) (domain.DeFiPosition, bool) {
	if raw.Position == nil {
		return domain.DeFiPosition{}, false
	}

	p := domain.DeFiPosition{
		ChainID:      chainID,
		ProtocolID:   str(raw.ProtocolID),
		ProtocolName: str(raw.ProtocolName),
		ProtocolLogo: str(raw.ProtocolLogo),
		Label:        str(raw.Position.Label),
		TotalValue:   raw.Position.BalanceUSD.ptr(),
	}
	for _, rt := range raw.Position.Tokens {
		p.Tokens = append(p.Tokens, normalizePositionToken(rt))
	}
	return p, true
}

// normalizePositionToken keeps nil prices nil. When only a value is reported, the unit price
// is derived from it so that value = balance × price still holds.
func normalizePositionToken(rt rawPositionToken) domain.PositionToken {
	decimals := domain.DefaultDecimals
	if rt.Decimals.Valid {
		decimals = rt.Decimals.Value
	}

	address := domain.LowerAddress(str(rt.ContractAddress))
	if domain.IsNativeAddress(address) {
		address = domain.NativeAddress
	}

	t := domain.PositionToken{
		TokenType:        domain.TokenType(strings.ToLower(str(rt.TokenType))),
		Symbol:           str(rt.Symbol),
		Name:             str(rt.Name),
		Address:          address,
		Decimals:         decimals,
		Balance:          str(rt.Balance),
		BalanceFormatted: formattedBalance(rt.BalanceFormatted, str(rt.Balance), decimals),
		Logo:             str(rt.Logo),
	}

	price := rt.USDPrice.ptr()
	if price == nil {
		if v := rt.USDValue.ptr(); v != nil && t.BalanceFormatted.IsPositive() {
			derived := v.Div(t.BalanceFormatted)
			price = &derived
		}
	}
	if price != nil {
		value := t.BalanceFormatted.Mul(*price)
		t.Price = price
		t.Value = &value
	}
	return t
}
