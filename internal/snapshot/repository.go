package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/walletnav/internal/domain"
)

// ErrNotFound indicates that the requested snapshot was not found.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot represents a stored daily portfolio snapshot.
type Snapshot struct {
	ID            int             `json:"id"`
	WalletID      int             `json:"walletId"`
	SnapshotDate  time.Time       `json:"snapshotDate"`
	TotalUSDValue decimal.Decimal `json:"totalUsdValue"`
	Data          json.RawMessage `json:"data"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Repository defines persistent storage for snapshots.
type Repository interface {
	Save(ctx context.Context, walletID int, date time.Time, total decimal.Decimal, data json.RawMessage) error
	GetLatest(ctx context.Context, address string) (*Snapshot, error)
	GetByDate(ctx context.Context, address string, date time.Time) (*Snapshot, error)
	List(ctx context.Context, address string, limit int) ([]Snapshot, error)
	ValueSeries(ctx context.Context, address string) ([]domain.ValuePoint, error)
	EnsureWallet(ctx context.Context, address, label string) (int, error)
}

// PgRepository implements Repository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL snapshot repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const snapshotColumns = `ps.id, ps.wallet_id, ps.snapshot_date, ps.total_usd, ps.data, ps.created_at`

func scanSnapshot(row pgx.Row) (*Snapshot, error) {
	var s Snapshot
	if err := row.Scan(&s.ID, &s.WalletID, &s.SnapshotDate, &s.TotalUSDValue, &s.Data, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PgRepository) Save(ctx context.Context, walletID int, date time.Time, total decimal.Decimal, data json.RawMessage) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO portfolio_snapshots (wallet_id, snapshot_date, total_usd, data)
		 VALUES ($1, $2, $3, $4::jsonb)
		 ON CONFLICT (wallet_id, snapshot_date)
		 DO UPDATE SET total_usd = $3, data = $4::jsonb`,
		walletID, date, total, data)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

func (r *PgRepository) GetLatest(ctx context.Context, address string) (*Snapshot, error) {
	s, err := scanSnapshot(r.pool.QueryRow(ctx,
		`SELECT `+snapshotColumns+`
		 FROM portfolio_snapshots ps
		 JOIN wallets w ON w.id = ps.wallet_id
		 WHERE w.address = $1
		 ORDER BY ps.snapshot_date DESC
		 LIMIT 1`, address))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting latest snapshot: %w", err)
	}
	return s, nil
}

func (r *PgRepository) GetByDate(ctx context.Context, address string, date time.Time) (*Snapshot, error) {
	s, err := scanSnapshot(r.pool.QueryRow(ctx,
		`SELECT `+snapshotColumns+`
		 FROM portfolio_snapshots ps
		 JOIN wallets w ON w.id = ps.wallet_id
		 WHERE w.address = $1 AND ps.snapshot_date = $2`, address, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting snapshot by date: %w", err)
	}
	return s, nil
}

func (r *PgRepository) List(ctx context.Context, address string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 30
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+snapshotColumns+`
		 FROM portfolio_snapshots ps
		 JOIN wallets w ON w.id = ps.wallet_id
		 WHERE w.address = $1
		 ORDER BY ps.snapshot_date DESC
		 LIMIT $2`, address, limit)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		snapshots = append(snapshots, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshots: %w", err)
	}
	return snapshots, nil
}

// ValueSeries returns the daily totals of a wallet in ascending date order.
func (r *PgRepository) ValueSeries(ctx context.Context, address string) ([]domain.ValuePoint, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT ps.snapshot_date, ps.total_usd
		 FROM portfolio_snapshots ps
		 JOIN wallets w ON w.id = ps.wallet_id
		 WHERE w.address = $1
		 ORDER BY ps.snapshot_date ASC`, address)
	if err != nil {
		return nil, fmt.Errorf("loading value series: %w", err)
	}
	defer rows.Close()

	var points []domain.ValuePoint
	for rows.Next() {
		var p domain.ValuePoint
		if err := rows.Scan(&p.Date, &p.Value); err != nil {
			return nil, fmt.Errorf("scanning value point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating value series: %w", err)
	}
	return points, nil
}

func (r *PgRepository) EnsureWallet(ctx context.Context, address, label string) (int, error) {
	var id int
	err := r.pool.QueryRow(ctx,
		`INSERT INTO wallets (address, label)
		 VALUES ($1, $2)
		 ON CONFLICT (address) DO UPDATE SET label = COALESCE(NULLIF($2, ''), wallets.label)
		 RETURNING id`,
		address, label).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ensuring wallet %s: %w", address, err)
	}
	return id, nil
}
