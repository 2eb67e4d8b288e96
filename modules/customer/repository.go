package customer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wholesalehub/platform/pkg/pg"
)

// Repository is the persistence boundary for customers and groups.
type Repository interface {
	CreateCustomer(ctx context.Context, c *Customer) error
	ListCustomers(ctx context.Context, merchantID uuid.UUID) ([]Customer, error)
	DeleteCustomer(ctx context.Context, merchantID, customerID uuid.UUID) error
	// ListPhones returns the phone numbers broadcasts deliver to.
	// A nil groupID targets the merchant's whole customer book.
	ListPhones(ctx context.Context, merchantID uuid.UUID, groupID *uuid.UUID) ([]string, error)

	CreateGroup(ctx context.Context, g *Group) error
	ListGroups(ctx context.Context, merchantID uuid.UUID) ([]Group, error)
	DeleteGroup(ctx context.Context, merchantID, groupID uuid.UUID) error
	// CountGroupsByMerchant backs the custom_groups usage counter.
	CountGroupsByMerchant(ctx context.Context, merchantID uuid.UUID) (int64, error)
}

// PostgresRepository implements Repository on a pgx connection pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a customer repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("customer: pgx pool is required")
	}
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) CreateCustomer(ctx context.Context, c *Customer) error {
	const q = `
		INSERT INTO customers (id, merchant_id, name, phone, email, group_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.pool.QueryRow(ctx, q, c.ID, c.MerchantID, c.Name, c.Phone, c.Email, c.GroupID).Scan(&c.CreatedAt)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ErrDuplicatePhone, c.Phone)
		}
		if pg.IsForeignKeyViolationError(err) {
			return ErrGroupNotFound
		}
		return errors.Join(ErrFailedToPersist, err)
	}
	return nil
}

func (r *PostgresRepository) ListCustomers(ctx context.Context, merchantID uuid.UUID) ([]Customer, error) {
	const q = `
		SELECT id, merchant_id, name, phone, email, group_id, created_at
		FROM customers
		WHERE merchant_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, q, merchantID)
	if err != nil {
		return nil, errors.Join(ErrFailedToPersist, err)
	}
	defer rows.Close()

	customers := make([]Customer, 0)
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.MerchantID, &c.Name, &c.Phone, &c.Email, &c.GroupID, &c.CreatedAt); err != nil {
			return nil, errors.Join(ErrFailedToPersist, err)
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (r *PostgresRepository) DeleteCustomer(ctx context.Context, merchantID, customerID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE merchant_id = $1 AND id = $2`, merchantID, customerID)
	if err != nil {
		return errors.Join(ErrFailedToPersist, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

func (r *PostgresRepository) ListPhones(ctx context.Context, merchantID uuid.UUID, groupID *uuid.UUID) ([]string, error) {
	q := `SELECT phone FROM customers WHERE merchant_id = $1`
	args := []any{merchantID}
	if groupID != nil {
		q += ` AND group_id = $2`
		args = append(args, *groupID)
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, errors.Join(ErrFailedToPersist, err)
	}
	defer rows.Close()

	phones := make([]string, 0)
	for rows.Next() {
		var phone string
		if err := rows.Scan(&phone); err != nil {
			return nil, errors.Join(ErrFailedToPersist, err)
		}
		phones = append(phones, phone)
	}
	return phones, rows.Err()
}

func (r *PostgresRepository) CreateGroup(ctx context.Context, g *Group) error {
	const q = `
		INSERT INTO customer_groups (id, merchant_id, name)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	err := r.pool.QueryRow(ctx, q, g.ID, g.MerchantID, g.Name).Scan(&g.CreatedAt)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateGroup, g.Name)
		}
		return errors.Join(ErrFailedToPersist, err)
	}
	return nil
}

func (r *PostgresRepository) ListGroups(ctx context.Context, merchantID uuid.UUID) ([]Group, error) {
	const q = `
		SELECT id, merchant_id, name, created_at
		FROM customer_groups
		WHERE merchant_id = $1
		ORDER BY created_at`

	rows, err := r.pool.Query(ctx, q, merchantID)
	if err != nil {
		return nil, errors.Join(ErrFailedToPersist, err)
	}
	defer rows.Close()

	groups := make([]Group, 0)
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.MerchantID, &g.Name, &g.CreatedAt); err != nil {
			return nil, errors.Join(ErrFailedToPersist, err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *PostgresRepository) DeleteGroup(ctx context.Context, merchantID, groupID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM customer_groups WHERE merchant_id = $1 AND id = $2`, merchantID, groupID)
	if err != nil {
		if pg.IsForeignKeyViolationError(err) {
			return ErrGroupNotEmpty
		}
		return errors.Join(ErrFailedToPersist, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGroupNotFound
	}
	return nil
}

func (r *PostgresRepository) CountGroupsByMerchant(ctx context.Context, merchantID uuid.UUID) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM customer_groups WHERE merchant_id = $1`, merchantID).Scan(&count)
	if err != nil {
		return 0, errors.Join(ErrFailedToPersist, err)
	}
	return count, nil
}
