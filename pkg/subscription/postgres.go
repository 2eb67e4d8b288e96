package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wholesalehub/platform/pkg/pg"
)

// PostgresStore implements Store over pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed subscription store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Get(ctx context.Context, merchantID uuid.UUID) (*Subscription, error) {
	const q = `
		SELECT merchant_id, plan_id, status, provider_sub_id, provider_customer_id,
		       created_at, updated_at, cancelled_at
		FROM subscriptions
		WHERE merchant_id = $1`

	return s.scanOne(ctx, q, merchantID)
}

func (s *PostgresStore) GetByProviderCustomerID(ctx context.Context, customerID string) (*Subscription, error) {
	const q = `
		SELECT merchant_id, plan_id, status, provider_sub_id, provider_customer_id,
		       created_at, updated_at, cancelled_at
		FROM subscriptions
		WHERE provider_customer_id = $1`

	return s.scanOne(ctx, q, customerID)
}

func (s *PostgresStore) Save(ctx context.Context, sub *Subscription) error {
	const q = `
		INSERT INTO subscriptions (merchant_id, plan_id, status, provider_sub_id,
			provider_customer_id, created_at, updated_at, cancelled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (merchant_id) DO UPDATE SET
			plan_id = EXCLUDED.plan_id,
			status = EXCLUDED.status,
			provider_sub_id = EXCLUDED.provider_sub_id,
			provider_customer_id = EXCLUDED.provider_customer_id,
			updated_at = EXCLUDED.updated_at,
			cancelled_at = EXCLUDED.cancelled_at`

	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now

	_, err := s.pool.Exec(ctx, q,
		sub.MerchantID, sub.PlanID, sub.Status, sub.ProviderSubID,
		sub.ProviderCustomerID, sub.CreatedAt, sub.UpdatedAt, sub.CancelledAt)
	return err
}

func (s *PostgresStore) scanOne(ctx context.Context, q string, arg any) (*Subscription, error) {
	var sub Subscription
	err := s.pool.QueryRow(ctx, q, arg).Scan(
		&sub.MerchantID, &sub.PlanID, &sub.Status, &sub.ProviderSubID,
		&sub.ProviderCustomerID, &sub.CreatedAt, &sub.UpdatedAt, &sub.CancelledAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, errors.Join(ErrSubscriptionNotFound, err)
		}
		return nil, err
	}
	return &sub, nil
}
