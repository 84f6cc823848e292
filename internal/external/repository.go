package external

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrQuoteNotFound is returned when no quote was stored for a chain.
var ErrQuoteNotFound = errors.New("native quote not found")

// Quote is a stored USD quote for a chain's native asset.
type Quote struct {
	ChainID     int64           `json:"chainId"`
	CoinGeckoID string          `json:"coingeckoId"`
	PriceUSD    decimal.Decimal `json:"priceUsd"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// QuoteRepository defines persistent storage for native asset quotes.
type QuoteRepository interface {
	SaveQuote(ctx context.Context, q Quote) error
	GetQuote(ctx context.Context, chainID int64) (Quote, error)
	GetAllQuotes(ctx context.Context) ([]Quote, error)
}

// PgQuoteRepository implements QuoteRepository with PostgreSQL.
type PgQuoteRepository struct {
	pool *pgxpool.Pool
}

// NewPgQuoteRepository creates a new PostgreSQL quote repository.
func NewPgQuoteRepository(pool *pgxpool.Pool) *PgQuoteRepository {
	return &PgQuoteRepository{pool: pool}
}

func (r *PgQuoteRepository) SaveQuote(ctx context.Context, q Quote) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO native_quotes (chain_id, coingecko_id, price_usd, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (chain_id) DO UPDATE SET coingecko_id = $2, price_usd = $3, updated_at = NOW()`,
		q.ChainID, q.CoinGeckoID, q.PriceUSD)
	if err != nil {
		return fmt.Errorf("saving quote for chain %d: %w", q.ChainID, err)
	}
	return nil
}

func (r *PgQuoteRepository) GetQuote(ctx context.Context, chainID int64) (Quote, error) {
	var q Quote
	err := r.pool.QueryRow(ctx,
		`SELECT chain_id, coingecko_id, price_usd, updated_at FROM native_quotes WHERE chain_id = $1`,
		chainID).Scan(&q.ChainID, &q.CoinGeckoID, &q.PriceUSD, &q.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Quote{}, ErrQuoteNotFound
	}
	if err != nil {
		return Quote{}, fmt.Errorf("getting quote for chain %d: %w", chainID, err)
	}
	return q, nil
}

func (r *PgQuoteRepository) GetAllQuotes(ctx context.Context) ([]Quote, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT chain_id, coingecko_id, price_usd, updated_at FROM native_quotes ORDER BY chain_id`)
	if err != nil {
		return nil, fmt.Errorf("getting all quotes: %w", err)
	}
	defer rows.Close()

	var quotes []Quote
	for rows.Next() {
		var q Quote
		if err := rows.Scan(&q.ChainID, &q.CoinGeckoID, &q.PriceUSD, &q.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning quote: %w", err)
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}
