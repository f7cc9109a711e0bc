package repositories

import (
	"context"
	stderrors "errors"

	"github.com/jackc/pgx/v5"

	"github.com/dropsight/dropsight/internal/domain/product"
	"github.com/dropsight/dropsight/internal/infrastructure/monitoring/logging"
	"github.com/dropsight/dropsight/pkg/errors"
)

// CatalogRepository implements product.Catalog over the catalog_products
// table.
type CatalogRepository struct {
	db     Querier
	logger logging.Logger
}

// NewCatalogRepository wires a repository over db.
func NewCatalogRepository(db Querier, log logging.Logger) *CatalogRepository {
	return &CatalogRepository{db: db, logger: log}
}

// Get implements product.Catalog.  Unknown ids return (nil, nil) so that
// recommendation queries degrade to empty results on cold data.
func (r *CatalogRepository) Get(ctx context.Context, id string) (*product.CatalogEntry, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, category, price, popularity
		FROM catalog_products WHERE id = $1`, id)

	var e product.CatalogEntry
	err := row.Scan(&e.ID, &e.Name, &e.Category, &e.Price, &e.Popularity)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load catalog entry")
	}
	return &e, nil
}

// ListByCategory implements product.Catalog.  Results are ordered by id so
// downstream rankings stay reproducible.
func (r *CatalogRepository) ListByCategory(ctx context.Context, category string) ([]product.CatalogEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, category, price, popularity
		FROM catalog_products WHERE category = $1 ORDER BY id`, category)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list catalog category")
	}
	defer rows.Close()

	var out []product.CatalogEntry
	for rows.Next() {
		var e product.CatalogEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.Category, &e.Price, &e.Popularity); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan catalog entry")
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "catalog iteration failed")
	}
	return out, nil
}

// Upsert inserts or refreshes one entry, keyed by product id.
func (r *CatalogRepository) Upsert(ctx context.Context, e product.CatalogEntry) error {
	if e.ID == "" {
		return errors.Validation("catalog entry id is required")
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO catalog_products (id, name, category, price, popularity, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			price = EXCLUDED.price,
			popularity = EXCLUDED.popularity,
			updated_at = now()`,
		e.ID, e.Name, e.Category, e.Price, e.Popularity)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to upsert catalog entry")
	}
	return nil
}
