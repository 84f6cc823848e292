package provider

import (
	"context"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/walletnav/internal/domain"
)

const maxTokenPages = 10

// WalletTokens fetches all token balances of the wallet on one chain, following cursors.
func (c *Client) WalletTokens(ctx context.Context, address string, chain domain.Chain) ([]domain.Holding, error) {
	var holdings []domain.Holding
	cursor := ""
	for range maxTokenPages {
		q := url.Values{}
		q.Set("chain", chain.ProviderID)
		if cursor != "" {
			q.Set("cursor", cursor)
		}

		var page rawTokenPage
		if err := c.getJSON(ctx, "/wallets/"+address+"/tokens", q, &page); err != nil {
			return nil, fmt.Errorf("fetching tokens on %s: %w", chain.ProviderID, err)
		}
		for _, raw := range page.Result {
			if h, ok := normalizeToken(chain, raw); ok {
				holdings = append(holdings, h)
			}
		}

		cursor = str(page.Cursor)
		if cursor == "" {
			break
		}
	}
	return holdings, nil
}

// normalizeToken maps a raw provider record to a Holding. A missing price stays nil.
func normalizeToken(chain domain.Chain, raw rawToken) (domain.Holding, bool) {
	isNative := raw.NativeToken || domain.IsNativeAddress(raw.TokenAddress)
	address := domain.LowerAddress(raw.TokenAddress)
	if isNative {
		address = domain.NativeAddress
	} else if _, err := domain.NormalizeAddress(address); err != nil {
		return domain.Holding{}, false
	}

	decimals := domain.DefaultDecimals
	if raw.Decimals.Valid {
		decimals = raw.Decimals.Value
	}

	symbol := str(raw.Symbol)
	if symbol == "" && isNative {
		symbol = chain.NativeSymbol
	}

	logo := str(raw.Logo)
	if logo == "" {
		logo = str(raw.Thumbnail)
	}

	h := domain.Holding{
		ChainID:          chain.ID,
		Address:          address,
		Symbol:           symbol,
		Name:             str(raw.Name),
		Decimals:         decimals,
		Balance:          str(raw.Balance),
		BalanceFormatted: formattedBalance(raw.BalanceFormatted, str(raw.Balance), decimals),
		Logo:             logo,
		IsNative:         isNative,
		Origin:           domain.OriginWallet,
		PossibleSpam:     raw.PossibleSpam,
	}
	if p := raw.USDPrice.ptr(); p != nil {
		h.SetPrice(*p, domain.PriceSourceMarket)
	}
	return h, true
}

func formattedBalance(formatted flexDecimal, raw string, decimals int) decimal.Decimal {
	if formatted.Valid {
		return formatted.Decimal
	}
	return domain.FormatUnits(raw, decimals)
}
