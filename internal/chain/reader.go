package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/mtlprog/walletnav/internal/domain"
)

// ErrUnexpectedShape is returned when a contract answers with data that does not match the expected layout.
var ErrUnexpectedShape = errors.New("unexpected contract response shape")

// CallerSource returns a contract caller for a chain.
type CallerSource interface {
	Caller(ctx context.Context, chainID int64) (ContractCaller, error)
}

// Reader performs typed read-only calls against composite and ERC20 contracts.
type Reader struct {
	callers CallerSource
}

// NewReader creates a new contract reader.
func NewReader(callers CallerSource) *Reader {
	if callers == nil {
		panic("chain.NewReader: callers is nil")
	}
	return &Reader{callers: callers}
}

func (r *Reader) call(ctx context.Context, chainID int64, contract string, method string, args ...any) ([]any, error) {
	caller, err := r.callers.Caller(ctx, chainID)
	if err != nil {
		return nil, err
	}

	parsed := contractABI()
	input, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("packing %s: %w", method, err)
	}

	to := common.HexToAddress(contract)
	out, err := caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("calling %s on %s: %w", method, contract, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s on %s returned no data: %w", method, contract, ErrUnexpectedShape)
	}

	values, err := parsed.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpacking %s from %s: %w", method, contract, err)
	}
	return values, nil
}

// RedeemQuote reads the underlying assets redeemable for shares of a direct basket token.
func (r *Reader) RedeemQuote(ctx context.Context, chainID int64, token string, shares *big.Int) ([]domain.UnderlyingAmount, error) {
	values, err := r.call(ctx, chainID, token, methodToAssets, shares, roundingFloor)
	if err != nil {
		return nil, err
	}
	return basketAmounts(values)
}

// BasketHandlerQuote resolves the token's basket handler and reads the quote for amount units
// together with the handler status. A DISABLED basket returns no amounts.
func (r *Reader) BasketHandlerQuote(ctx context.Context, chainID int64, token string, amount *big.Int) ([]domain.UnderlyingAmount, domain.BasketHealth, error) {
	mainAddr, err := r.addressCall(ctx, chainID, token, methodMain)
	if err != nil {
		return nil, "", err
	}
	handler, err := r.addressCall(ctx, chainID, mainAddr, methodBasketHandler)
	if err != nil {
		return nil, "", err
	}

	values, err := r.call(ctx, chainID, handler, methodStatus)
	if err != nil {
		return nil, "", err
	}
	status, ok := values[0].(uint8)
	if !ok {
		return nil, "", fmt.Errorf("status is %T: %w", values[0], ErrUnexpectedShape)
	}
	health := basketHealth(status)
	if health == domain.BasketDisabled {
		return nil, health, nil
	}

	values, err = r.call(ctx, chainID, handler, methodQuote, amount, roundingFloor)
	if err != nil {
		return nil, health, err
	}
	amounts, err := basketAmounts(values)
	if err != nil {
		return nil, health, err
	}
	return amounts, health, nil
}

// TokenMetadata reads an ERC20 token's symbol and decimals.
func (r *Reader) TokenMetadata(ctx context.Context, chainID int64, token string) (domain.TokenMetadata, error) {
	values, err := r.call(ctx, chainID, token, methodDecimals)
	if err != nil {
		return domain.TokenMetadata{}, err
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return domain.TokenMetadata{}, fmt.Errorf("decimals is %T: %w", values[0], ErrUnexpectedShape)
	}

	values, err = r.call(ctx, chainID, token, methodSymbol)
	if err != nil {
		return domain.TokenMetadata{}, err
	}
	symbol, ok := values[0].(string)
	if !ok {
		return domain.TokenMetadata{}, fmt.Errorf("symbol is %T: %w", values[0], ErrUnexpectedShape)
	}

	return domain.TokenMetadata{Symbol: symbol, Decimals: int(decimals)}, nil
}

func (r *Reader) addressCall(ctx context.Context, chainID int64, contract, method string) (string, error) {
	values, err := r.call(ctx, chainID, contract, method)
	if err != nil {
		return "", err
	}
	addr, ok := values[0].(common.Address)
	if !ok {
		return "", fmt.Errorf("%s is %T: %w", method, values[0], ErrUnexpectedShape)
	}
	if addr == (common.Address{}) {
		return "", fmt.Errorf("%s on %s returned the zero address: %w", method, contract, ErrUnexpectedShape)
	}
	return strings.ToLower(addr.Hex()), nil
}

func basketAmounts(values []any) ([]domain.UnderlyingAmount, error) {
	if len(values) != 2 {
		return nil, fmt.Errorf("got %d outputs, want 2: %w", len(values), ErrUnexpectedShape)
	}
	addrs, ok := values[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("assets are %T: %w", values[0], ErrUnexpectedShape)
	}
	qtys, ok := values[1].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("amounts are %T: %w", values[1], ErrUnexpectedShape)
	}
	if len(addrs) != len(qtys) {
		return nil, fmt.Errorf("%d assets but %d amounts: %w", len(addrs), len(qtys), ErrUnexpectedShape)
	}

	out := make([]domain.UnderlyingAmount, len(addrs))
	for i := range addrs {
		out[i] = domain.UnderlyingAmount{Address: strings.ToLower(addrs[i].Hex()), Quantity: qtys[i]}
	}
	return out, nil
}

func basketHealth(status uint8) domain.BasketHealth {
	switch status {
	case 0:
		return domain.BasketSound
	case 1:
		return domain.BasketIffy
	default:
		return domain.BasketDisabled
	}
}
