package domain

import (
	"sort"

	"github.com/samber/lo"
)

// Chain describes one supported EVM chain.
type Chain struct {
	ID            int64    `yaml:"id"`
	Name          string   `yaml:"name"`
	ProviderID    string   `yaml:"providerId"`
	DexScreenerID string   `yaml:"dexscreenerId"`
	NativeSymbol  string   `yaml:"nativeSymbol"`
	CoinGeckoID   string   `yaml:"coingeckoId"`
	RPCURLs       []string `yaml:"rpc"`
}

// PriceRedirect substitutes a token's unreliable market price with the price of Underlying.
type PriceRedirect struct {
	ChainID    int64  `yaml:"chainId"`
	Address    string `yaml:"address"`
	Underlying string `yaml:"underlying"`
	Reason     string `yaml:"reason"`
}

// ReceiptTable maps protocol name to chain ID to receipt token addresses.
type ReceiptTable map[string]map[int64][]string

// Lookup returns the protocol owning the receipt token, if any.
func (t ReceiptTable) Lookup(chainID int64, address string) (string, bool) {
	addr := LowerAddress(address)
	protocols := lo.Keys(t)
	sort.Strings(protocols)
	for _, protocol := range protocols {
		for _, a := range t[protocol][chainID] {
			if LowerAddress(a) == addr {
				return protocol, true
			}
		}
	}
	return "", false
}
