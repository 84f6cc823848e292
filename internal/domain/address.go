package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NativeAddress is the sentinel used for a chain's native asset.
const NativeAddress = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"

// ErrInvalidAddress indicates input that is not a 20-byte hex address.
var ErrInvalidAddress = errors.New("invalid wallet address")

// NormalizeAddress validates a 0x-prefixed 20-byte hex address and returns it lower-cased.
// Checksum casing is ignored.
func NormalizeAddress(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) != 42 || !(strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) || !common.IsHexAddress(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return strings.ToLower("0x" + s[2:]), nil
}

// LowerAddress lower-cases an address for map keys; it does not validate.
func LowerAddress(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// TokenKey formats a chain-scoped token key, e.g. "1:0xa0b8...".
func TokenKey(chainID int64, address string) string {
	return fmt.Sprintf("%d:%s", chainID, LowerAddress(address))
}

// IsNativeAddress reports whether the address is the native asset sentinel or empty.
func IsNativeAddress(s string) bool {
	a := LowerAddress(s)
	return a == "" || a == NativeAddress || a == "native"
}
