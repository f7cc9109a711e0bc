// Package repositories implements the engine's data-supplier contracts on
// top of a pgx connection pool.
package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dropsight/dropsight/internal/domain/association"
	"github.com/dropsight/dropsight/internal/infrastructure/monitoring/logging"
	"github.com/dropsight/dropsight/pkg/errors"
)

// Querier is the subset of pgxpool.Pool the repositories need, split out so
// tests can substitute a fake.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// TransactionRepository reads and appends co-purchase baskets, implementing
// association.TransactionSource for the miner.
type TransactionRepository struct {
	db     Querier
	logger logging.Logger

	// maxCorpus bounds how many recent baskets a mining run reads.
	maxCorpus int
}

// NewTransactionRepository wires a repository over db.  maxCorpus caps the
// baskets read per mining run; non-positive means 100000.
func NewTransactionRepository(db Querier, log logging.Logger, maxCorpus int) *TransactionRepository {
	if maxCorpus <= 0 {
		maxCorpus = 100000
	}
	return &TransactionRepository{db: db, logger: log, maxCorpus: maxCorpus}
}

// Transactions implements association.TransactionSource: the most recent
// baskets, oldest first so corpus order is reproducible.
func (r *TransactionRepository) Transactions(ctx context.Context) ([]association.Transaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT items FROM (
			SELECT id, items FROM order_baskets ORDER BY id DESC LIMIT $1
		) recent ORDER BY id ASC`, r.maxCorpus)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query order baskets")
	}
	defer rows.Close()

	var out []association.Transaction
	for rows.Next() {
		var items []string
		if err := rows.Scan(&items); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan basket")
		}
		out = append(out, association.Transaction{Items: items})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "basket iteration failed")
	}
	r.logger.Debug("loaded transaction corpus", logging.Int("baskets", len(out)))
	return out, nil
}

// Append stores one basket.  Empty baskets are stored too: they still count
// toward corpus size in support calculations.
func (r *TransactionRepository) Append(ctx context.Context, tx association.Transaction, occurredAt time.Time) error {
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO order_baskets (items, occurred_at) VALUES ($1, $2)`,
		tx.Items, occurredAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to append basket")
	}
	return nil
}

// Count returns the corpus size.
func (r *TransactionRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM order_baskets`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count baskets")
	}
	return n, nil
}
