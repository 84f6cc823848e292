package price

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDexScreenerPicksDeepestPair(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`[
			{"chainId":"ethereum","baseToken":{"address":"0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2","symbol":"WETH"},"priceUsd":"2990.1","liquidity":{"usd":1000}},
			{"chainId":"ethereum","baseToken":{"address":"0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2","symbol":"WETH"},"priceUsd":"3001.5","liquidity":{"usd":5000000}},
			{"chainId":"ethereum","baseToken":{"address":"0x6b175474e89094c44da98b954eedeac495271d0f","symbol":"DAI"},"priceUsd":"","liquidity":{"usd":10}}
		]`))
	}))
	defer srv.Close()

	c := NewDexScreenerClient(srv.URL, 0, time.Millisecond)
	prices, err := c.TokenPrices(t.Context(), "ethereum", []string{weth, dai})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(gotPath, "/tokens/v1/ethereum/") {
		t.Errorf("path = %q", gotPath)
	}
	if !prices[weth].Equal(decimal.RequireFromString("3001.5")) {
		t.Errorf("weth = %s, want 3001.5", prices[weth])
	}
	if _, ok := prices[dai]; ok {
		t.Error("pair with empty price should be ignored")
	}
}

func TestDexScreenerRetriesOn429(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewDexScreenerClient(srv.URL, 2, time.Millisecond)
	if _, err := c.TokenPrices(t.Context(), "ethereum", []string{weth}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestDexScreenerHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewDexScreenerClient(srv.URL, 2, time.Millisecond)
	if _, err := c.TokenPrices(t.Context(), "ethereum", []string{weth}); err == nil {
		t.Error("expected error")
	}
}

func TestDexScreenerTooManyAddresses(t *testing.T) {
	c := NewDexScreenerClient("http://unused", 0, time.Millisecond)
	addrs := make([]string, maxAddressesPerRequest+1)
	if _, err := c.TokenPrices(t.Context(), "ethereum", addrs); err == nil {
		t.Error("expected error")
	}
}
