package provider

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// flexInt decodes integers the provider sends either as numbers or numeric strings.
type flexInt struct {
	Value int
	Valid bool
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*f = flexInt{}
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		*f = flexInt{}
		return nil
	}
	*f = flexInt{Value: n, Valid: true}
	return nil
}

// flexDecimal decodes amounts sent as numbers, numeric strings, empty strings or null.
// Anything unparsable is treated as absent.
type flexDecimal struct {
	Decimal decimal.Decimal
	Valid   bool
}

func (f *flexDecimal) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*f = flexDecimal{}
		return nil
	}
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		*f = flexDecimal{}
		return nil
	}
	*f = flexDecimal{Decimal: d, Valid: true}
	return nil
}

type rawToken struct {
	TokenAddress     string      `json:"token_address"`
	Symbol           *string     `json:"symbol"`
	Name             *string     `json:"name"`
	Logo             *string     `json:"logo"`
	Thumbnail        *string     `json:"thumbnail"`
	Decimals         flexInt     `json:"decimals"`
	Balance          *string     `json:"balance"`
	BalanceFormatted flexDecimal `json:"balance_formatted"`
	USDPrice         flexDecimal `json:"usd_price"`
	USDValue         flexDecimal `json:"usd_value"`
	NativeToken      bool        `json:"native_token"`
	PossibleSpam     bool        `json:"possible_spam"`
}

type rawTokenPage struct {
	Cursor *string    `json:"cursor"`
	Result []rawToken `json:"result"`
}

type rawPositionToken struct {
	TokenType        *string     `json:"token_type"`
	Name             *string     `json:"name"`
	Symbol           *string     `json:"symbol"`
	ContractAddress  *string     `json:"contract_address"`
	Decimals         flexInt     `json:"decimals"`
	Logo             *string     `json:"logo"`
	Balance          *string     `json:"balance"`
	BalanceFormatted flexDecimal `json:"balance_formatted"`
	USDPrice         flexDecimal `json:"usd_price"`
	USDValue         flexDecimal `json:"usd_value"`
}

type rawPositionDetail struct {
	Label      *string            `json:"label"`
	Tokens     []rawPositionToken `json:"tokens"`
	BalanceUSD flexDecimal        `json:"balance_usd"`
}

type rawPosition struct {
	ProtocolName *string            `json:"protocol_name"`
	ProtocolID   *string            `json:"protocol_id"`
	ProtocolLogo *string            `json:"protocol_logo"`
	Position     *rawPositionDetail `json:"position"`
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func (d flexDecimal) ptr() *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}
