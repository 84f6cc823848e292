package price

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxAddressesPerRequest is the DEXScreener limit for /tokens/v1.
const maxAddressesPerRequest = 30

type dexToken struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
}

type dexLiquidity struct {
	USD float64 `json:"usd"`
}

type dexPair struct {
	ChainID   string        `json:"chainId"`
	BaseToken dexToken      `json:"baseToken"`
	PriceUSD  string        `json:"priceUsd"`
	Liquidity *dexLiquidity `json:"liquidity"`
}

// DexScreenerClient fetches USD token prices from the DEXScreener API.
type DexScreenerClient struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
}

// NewDexScreenerClient creates a new DEXScreener client.
func NewDexScreenerClient(baseURL string, maxRetries int, baseDelay time.Duration) *DexScreenerClient {
	return &DexScreenerClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}
}

// TokenPrices returns USD prices keyed by lower-cased address. For each token the pair with the
// deepest USD liquidity wins. Tokens without pairs are absent from the result.
func (c *DexScreenerClient) TokenPrices(ctx context.Context, dexChainID string, addresses []string) (map[string]decimal.Decimal, error) {
	if len(addresses) == 0 {
		return map[string]decimal.Decimal{}, nil
	}
	if len(addresses) > maxAddressesPerRequest {
		return nil, fmt.Errorf("too many addresses: %d > %d", len(addresses), maxAddressesPerRequest)
	}

	url := fmt.Sprintf("%s/tokens/v1/%s/%s", c.baseURL, dexChainID, strings.Join(addresses, ","))
	body, err := c.fetchWithRetry(ctx, url)
	if err != nil {
		return nil, err
	}

	var pairs []dexPair
	if err := json.Unmarshal(body, &pairs); err != nil {
		return nil, fmt.Errorf("parsing DEXScreener response: %w", err)
	}
	return bestPrices(pairs), nil
}

func bestPrices(pairs []dexPair) map[string]decimal.Decimal {
	type best struct {
		price     decimal.Decimal
		liquidity float64
	}
	picked := make(map[string]best)
	for _, p := range pairs {
		price, err := decimal.NewFromString(p.PriceUSD)
		if err != nil || !price.IsPositive() {
			continue
		}
		liq := 0.0
		if p.Liquidity != nil {
			liq = p.Liquidity.USD
		}
		addr := strings.ToLower(p.BaseToken.Address)
		if cur, ok := picked[addr]; ok && cur.liquidity >= liq {
			continue
		}
		picked[addr] = best{price: price, liquidity: liq}
	}

	out := make(map[string]decimal.Decimal, len(picked))
	for addr, b := range picked {
		out[addr] = b.price
	}
	return out
}

func (c *DexScreenerClient) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := range c.maxRetries + 1 {
		if attempt > 0 {
			delay := c.baseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("creating DEXScreener request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("DEXScreener request failed: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading DEXScreener response: %w", err)
		}

		if resp.StatusCode == http.StatusOK {
			return body, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("DEXScreener rate limited (attempt %d/%d)", attempt+1, c.maxRetries+1)
			continue
		}

		return nil, fmt.Errorf("DEXScreener HTTP %d: %s", resp.StatusCode, string(body))
	}

	return nil, lastErr
}
