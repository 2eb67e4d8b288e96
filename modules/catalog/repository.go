package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wholesalehub/platform/pkg/pg"
)

// Repository is the persistence boundary for products. Handlers depend
// on this interface so tests can swap in fakes.
type Repository interface {
	Create(ctx context.Context, product *Product) error
	GetByID(ctx context.Context, merchantID, productID uuid.UUID) (*Product, error)
	ListByMerchant(ctx context.Context, merchantID uuid.UUID) ([]Product, error)
	Update(ctx context.Context, product *Product) error
	Delete(ctx context.Context, merchantID, productID uuid.UUID) error
	// CountByMerchant reports how many products the merchant currently
	// has. Registered as the usage counter for the products resource.
	CountByMerchant(ctx context.Context, merchantID uuid.UUID) (int64, error)
	SetImageURL(ctx context.Context, merchantID, productID uuid.UUID, imageURL string) error
}

// PostgresRepository implements Repository on a pgx connection pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a product repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("catalog: pgx pool is required")
	}
	return &PostgresRepository{pool: pool}
}

const productColumns = `id, merchant_id, name, description, sku, price_cents, currency, stock, image_url, group_id, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, product *Product) error {
	const q = `
		INSERT INTO products (id, merchant_id, name, description, sku, price_cents, currency, stock, image_url, group_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, q,
		product.ID, product.MerchantID, product.Name, product.Description,
		nullable(product.SKU), product.PriceCents, product.Currency,
		product.Stock, nullable(product.ImageURL), product.GroupID,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: sku %q", ErrDuplicateSKU, product.SKU)
		}
		return errors.Join(ErrFailedToPersist, err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, merchantID, productID uuid.UUID) (*Product, error) {
	const q = `SELECT ` + productColumns + ` FROM products WHERE merchant_id = $1 AND id = $2`
	return r.scanOne(r.pool.QueryRow(ctx, q, merchantID, productID))
}

func (r *PostgresRepository) ListByMerchant(ctx context.Context, merchantID uuid.UUID) ([]Product, error) {
	const q = `SELECT ` + productColumns + ` FROM products WHERE merchant_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, q, merchantID)
	if err != nil {
		return nil, errors.Join(ErrFailedToPersist, err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		var p Product
		if err := scanProduct(rows.Scan, &p); err != nil {
			return nil, errors.Join(ErrFailedToPersist, err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *PostgresRepository) Update(ctx context.Context, product *Product) error {
	const q = `
		UPDATE products
		SET name = $3, description = $4, sku = $5, price_cents = $6, currency = $7,
		    stock = $8, group_id = $9, updated_at = now()
		WHERE merchant_id = $1 AND id = $2
		RETURNING updated_at`

	err := r.pool.QueryRow(ctx, q,
		product.MerchantID, product.ID, product.Name, product.Description,
		nullable(product.SKU), product.PriceCents, product.Currency,
		product.Stock, product.GroupID,
	).Scan(&product.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return ErrProductNotFound
		}
		if pg.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: sku %q", ErrDuplicateSKU, product.SKU)
		}
		return errors.Join(ErrFailedToPersist, err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, merchantID, productID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE merchant_id = $1 AND id = $2`, merchantID, productID)
	if err != nil {
		return errors.Join(ErrFailedToPersist, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *PostgresRepository) CountByMerchant(ctx context.Context, merchantID uuid.UUID) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM products WHERE merchant_id = $1`, merchantID).Scan(&count)
	if err != nil {
		return 0, errors.Join(ErrFailedToPersist, err)
	}
	return count, nil
}

func (r *PostgresRepository) SetImageURL(ctx context.Context, merchantID, productID uuid.UUID, imageURL string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE products SET image_url = $3, updated_at = now() WHERE merchant_id = $1 AND id = $2`,
		merchantID, productID, imageURL)
	if err != nil {
		return errors.Join(ErrFailedToPersist, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

type rowScanner func(dest ...any) error

func scanProduct(scan rowScanner, p *Product) error {
	var sku, imageURL *string
	if err := scan(
		&p.ID, &p.MerchantID, &p.Name, &p.Description, &sku,
		&p.PriceCents, &p.Currency, &p.Stock, &imageURL, &p.GroupID,
		&p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return err
	}
	if sku != nil {
		p.SKU = *sku
	}
	if imageURL != nil {
		p.ImageURL = *imageURL
	}
	return nil
}

func (r *PostgresRepository) scanOne(row interface{ Scan(dest ...any) error }) (*Product, error) {
	var p Product
	if err := scanProduct(row.Scan, &p); err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrProductNotFound
		}
		return nil, errors.Join(ErrFailedToPersist, err)
	}
	return &p, nil
}

// nullable maps empty strings to NULL so partial unique indexes behave.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
