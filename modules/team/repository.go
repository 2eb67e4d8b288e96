package team

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wholesalehub/platform/pkg/pg"
)

// Repository is the persistence boundary for team members.
type Repository interface {
	CreateInvite(ctx context.Context, m *Member) error
	ListByMerchant(ctx context.Context, merchantID uuid.UUID) ([]Member, error)
	GetByInviteToken(ctx context.Context, token string) (*Member, error)
	Accept(ctx context.Context, memberID uuid.UUID, acceptedAt time.Time) error
	Delete(ctx context.Context, merchantID, memberID uuid.UUID) error
	// CountActive reports the seats in use: the owner plus every
	// accepted member. Registered as the team_members usage counter.
	CountActive(ctx context.Context, merchantID uuid.UUID) (int64, error)
}

// PostgresRepository implements Repository on a pgx connection pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a team repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("team: pgx pool is required")
	}
	return &PostgresRepository{pool: pool}
}

const memberColumns = `id, merchant_id, email, role, status, invite_token, invited_at, accepted_at`

func (r *PostgresRepository) CreateInvite(ctx context.Context, m *Member) error {
	const q = `
		INSERT INTO team_members (id, merchant_id, email, role, status, invite_token)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING invited_at`

	err := r.pool.QueryRow(ctx, q, m.ID, m.MerchantID, m.Email, m.Role, m.Status, m.InviteToken).Scan(&m.InvitedAt)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ErrAlreadyInvited, m.Email)
		}
		return errors.Join(ErrFailedToPersist, err)
	}
	return nil
}

func (r *PostgresRepository) ListByMerchant(ctx context.Context, merchantID uuid.UUID) ([]Member, error) {
	const q = `SELECT ` + memberColumns + ` FROM team_members WHERE merchant_id = $1 ORDER BY invited_at`

	rows, err := r.pool.Query(ctx, q, merchantID)
	if err != nil {
		return nil, errors.Join(ErrFailedToPersist, err)
	}
	defer rows.Close()

	members := make([]Member, 0)
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.MerchantID, &m.Email, &m.Role, &m.Status, &m.InviteToken, &m.InvitedAt, &m.AcceptedAt); err != nil {
			return nil, errors.Join(ErrFailedToPersist, err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *PostgresRepository) GetByInviteToken(ctx context.Context, token string) (*Member, error) {
	const q = `SELECT ` + memberColumns + ` FROM team_members WHERE invite_token = $1`

	var m Member
	err := r.pool.QueryRow(ctx, q, token).Scan(
		&m.ID, &m.MerchantID, &m.Email, &m.Role, &m.Status, &m.InviteToken, &m.InvitedAt, &m.AcceptedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrInviteNotFound
		}
		return nil, errors.Join(ErrFailedToPersist, err)
	}
	return &m, nil
}

func (r *PostgresRepository) Accept(ctx context.Context, memberID uuid.UUID, acceptedAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE team_members SET status = $2, accepted_at = $3 WHERE id = $1 AND status = $4`,
		memberID, StatusAccepted, acceptedAt, StatusInvited)
	if err != nil {
		return errors.Join(ErrFailedToPersist, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyAccepted
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, merchantID, memberID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM team_members WHERE merchant_id = $1 AND id = $2`, merchantID, memberID)
	if err != nil {
		return errors.Join(ErrFailedToPersist, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

func (r *PostgresRepository) CountActive(ctx context.Context, merchantID uuid.UUID) (int64, error) {
	var accepted int64
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM team_members WHERE merchant_id = $1 AND status = $2`,
		merchantID, StatusAccepted,
	).Scan(&accepted)
	if err != nil {
		return 0, errors.Join(ErrFailedToPersist, err)
	}
	// The owner always holds the first seat and has no member row.
	return accepted + 1, nil
}
