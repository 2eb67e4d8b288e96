package broadcast

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the persistence boundary for broadcasts.
type Repository interface {
	Create(ctx context.Context, b *Broadcast) error
	ListByMerchant(ctx context.Context, merchantID uuid.UUID) ([]Broadcast, error)
	// CountSince reports broadcasts created at or after since. The
	// monthly usage counter calls it with the start of the current
	// calendar month.
	CountSince(ctx context.Context, merchantID uuid.UUID, since time.Time) (int64, error)
	SetStatus(ctx context.Context, broadcastID uuid.UUID, status Status, recipientCount int) error
}

// PostgresRepository implements Repository on a pgx connection pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a broadcast repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("broadcast: pgx pool is required")
	}
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Create(ctx context.Context, b *Broadcast) error {
	const q = `
		INSERT INTO broadcasts (id, merchant_id, channel, message, group_id, recipient_count, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := r.pool.QueryRow(ctx, q,
		b.ID, b.MerchantID, b.Channel, b.Message, b.GroupID, b.RecipientCount, b.Status,
	).Scan(&b.CreatedAt)
	if err != nil {
		return errors.Join(ErrFailedToPersist, err)
	}
	return nil
}

func (r *PostgresRepository) ListByMerchant(ctx context.Context, merchantID uuid.UUID) ([]Broadcast, error) {
	const q = `
		SELECT id, merchant_id, channel, message, group_id, recipient_count, status, created_at
		FROM broadcasts
		WHERE merchant_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, q, merchantID)
	if err != nil {
		return nil, errors.Join(ErrFailedToPersist, err)
	}
	defer rows.Close()

	broadcasts := make([]Broadcast, 0)
	for rows.Next() {
		var b Broadcast
		if err := rows.Scan(&b.ID, &b.MerchantID, &b.Channel, &b.Message, &b.GroupID, &b.RecipientCount, &b.Status, &b.CreatedAt); err != nil {
			return nil, errors.Join(ErrFailedToPersist, err)
		}
		broadcasts = append(broadcasts, b)
	}
	return broadcasts, rows.Err()
}

func (r *PostgresRepository) CountSince(ctx context.Context, merchantID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM broadcasts WHERE merchant_id = $1 AND created_at >= $2`,
		merchantID, since,
	).Scan(&count)
	if err != nil {
		return 0, errors.Join(ErrFailedToPersist, err)
	}
	return count, nil
}

func (r *PostgresRepository) SetStatus(ctx context.Context, broadcastID uuid.UUID, status Status, recipientCount int) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE broadcasts SET status = $2, recipient_count = $3 WHERE id = $1`,
		broadcastID, status, recipientCount)
	if err != nil {
		return errors.Join(ErrFailedToPersist, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBroadcastNotFound
	}
	return nil
}

// MonthlyCounter adapts CountSince into a limits counter scoped to the
// current calendar month.
func MonthlyCounter(repo Repository) func(ctx context.Context, merchantID uuid.UUID) (int64, error) {
	return func(ctx context.Context, merchantID uuid.UUID) (int64, error) {
		return repo.CountSince(ctx, merchantID, monthStart(time.Now()))
	}
}
