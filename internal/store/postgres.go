package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/vaultlink/internal/shortener"
)

const (
	uniqueViolation = "23505"

	// DefaultAcquireTimeout bounds how long a request waits for a pooled connection.
	DefaultAcquireTimeout = 30 * time.Second

	selectColumns = `id, original_url, short_code, created_at, encrypted, expired, transaction_hash`
)

// PostgresStore is a PostgreSQL implementation of shortener.Repository.
type PostgresStore struct {
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
}

// NewPostgresStore creates a new PostgreSQL-backed URL store. A non-positive
// acquireTimeout falls back to DefaultAcquireTimeout.
func NewPostgresStore(pool *pgxpool.Pool, acquireTimeout time.Duration) *PostgresStore {
	if acquireTimeout <= 0 {
		acquireTimeout = DefaultAcquireTimeout
	}

	return &PostgresStore{pool: pool, acquireTimeout: acquireTimeout}
}

// acquire waits for a pooled connection; failures are reported as ErrUnavailable.
func (p *PostgresStore) acquire(ctx context.Context) (*pgxpool.Conn, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	defer cancel()

	conn, err := p.pool.Acquire(acquireCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shortener.ErrUnavailable, err)
	}

	return conn, nil
}

func (p *PostgresStore) GetByCode(ctx context.Context, code shortener.Code) (*shortener.ShortURL, error) {
	return p.getOne(ctx, `SELECT `+selectColumns+` FROM short_urls WHERE short_code = $1`, string(code))
}

func (p *PostgresStore) GetByOriginalURL(ctx context.Context, storedURL string) (*shortener.ShortURL, error) {
	return p.getOne(ctx, `SELECT `+selectColumns+` FROM short_urls WHERE original_url = $1`, storedURL)
}

func (p *PostgresStore) getOne(ctx context.Context, query string, arg any) (*shortener.ShortURL, error) {
	conn, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	shortURL, err := scanShortURL(conn.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shortener.ErrNotFound
		}

		return nil, err
	}

	return shortURL, nil
}

func (p *PostgresStore) Insert(ctx context.Context, draft *shortener.Draft) (*shortener.ShortURL, error) {
	query := `
		INSERT INTO short_urls (original_url, short_code, encrypted, transaction_hash)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (original_url) DO NOTHING
		RETURNING ` + selectColumns

	conn, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	shortURL, err := scanShortURL(conn.QueryRow(ctx, query,
		draft.OriginalURL,
		string(draft.Code),
		draft.Encrypted,
		draft.TransactionHash,
	))
	if err != nil {
		// ON CONFLICT DO NOTHING returns no row.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shortener.ErrDuplicateURL
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if pgErr.ConstraintName == shortCodeConstraint {
				return nil, shortener.ErrDuplicateCode
			}

			return nil, shortener.ErrDuplicateURL
		}

		return nil, err
	}

	return shortURL, nil
}

func (p *PostgresStore) MarkExpired(ctx context.Context, id int64) error {
	conn, err := p.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `UPDATE short_urls SET expired = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return shortener.ErrNotFound
	}

	return nil
}

func (p *PostgresStore) MarkExpiredIfPaid(ctx context.Context, id int64) (*shortener.ShortURL, error) {
	conn, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	var updated *shortener.ShortURL

	err = pgx.BeginTxFunc(ctx, conn, pgx.TxOptions{}, func(tx pgx.Tx) error {
		existing, err := scanShortURL(tx.QueryRow(ctx,
			`SELECT `+selectColumns+` FROM short_urls WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}

		if !existing.Paid() {
			return shortener.ErrNotPaid
		}

		updated, err = scanShortURL(tx.QueryRow(ctx,
			`UPDATE short_urls SET expired = TRUE WHERE id = $1 RETURNING `+selectColumns, id))

		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shortener.ErrNotFound
		}

		return nil, err
	}

	return updated, nil
}

func (p *PostgresStore) List(ctx context.Context) ([]*shortener.ShortURL, error) {
	conn, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `SELECT `+selectColumns+` FROM short_urls ORDER BY id`)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*shortener.ShortURL, error) {
		return scanShortURL(row)
	})
}

// Ping checks database connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Shutdown closes the connection pool.
func (p *PostgresStore) Shutdown() error {
	p.pool.Close()

	return nil
}

func scanShortURL(row pgx.Row) (*shortener.ShortURL, error) {
	var (
		shortURL shortener.ShortURL
		code     string
	)

	err := row.Scan(
		&shortURL.ID,
		&shortURL.OriginalURL,
		&code,
		&shortURL.CreatedAt,
		&shortURL.Encrypted,
		&shortURL.Expired,
		&shortURL.TransactionHash,
	)
	if err != nil {
		return nil, err
	}

	shortURL.Code = shortener.Code(code)

	return &shortURL, nil
}

// Compile-time check.
var _ shortener.Repository = (*PostgresStore)(nil)
