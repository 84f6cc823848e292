package chain

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const (
	methodToAssets      = "toAssets"
	methodMain          = "main"
	methodBasketHandler = "basketHandler"
	methodStatus        = "status"
	methodQuote         = "quote"
	methodSymbol        = "symbol"
	methodDecimals      = "decimals"
)

// roundingFloor is the FLOOR member of the on-chain RoundingMode enum.
const roundingFloor uint8 = 0

// navABI covers the read-only calls needed to value composite tokens:
// toAssets on direct baskets, main/basketHandler/status/quote on indirect
// ones, and ERC20 metadata.
const navABI = `[
	{"type":"function","name":"toAssets","stateMutability":"view",
	 "inputs":[{"name":"shares","type":"uint256"},{"name":"rounding","type":"uint8"}],
	 "outputs":[{"name":"assets","type":"address[]"},{"name":"amounts","type":"uint256[]"}]},
	{"type":"function","name":"main","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"basketHandler","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"status","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"quote","stateMutability":"view",
	 "inputs":[{"name":"amount","type":"uint192"},{"name":"rounding","type":"uint8"}],
	 "outputs":[{"name":"erc20s","type":"address[]"},{"name":"quantities","type":"uint256[]"}]},
	{"type":"function","name":"symbol","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"decimals","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"uint8"}]}
]`

var (
	parsedNavABI abi.ABI
	navABIOnce   sync.Once
)

func contractABI() abi.ABI {
	navABIOnce.Do(func() {
		var err error
		parsedNavABI, err = abi.JSON(strings.NewReader(navABI))
		if err != nil {
			panic(fmt.Sprintf("failed to parse NAV ABI: %v", err))
		}
	})
	return parsedNavABI
}
