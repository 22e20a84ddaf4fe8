package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"channelgate/internal/common"
	"channelgate/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository needs. pgxmock satisfies
// it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type SubscriptionRepository interface {
	Create(ctx context.Context, sub *models.Subscription) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	GetBySessionKey(ctx context.Context, sessionKey string) (*models.Subscription, error)
	// GetByLiveInviteLink matches only links that have not been consumed,
	// so a replayed join event for a spent link resolves to not-found.
	GetByLiveInviteLink(ctx context.Context, link string) (*models.Subscription, error)
	ListExpiredCandidates(ctx context.Context, now time.Time) ([]*models.Subscription, error)
	List(ctx context.Context, limit, offset int) ([]*models.Subscription, error)
	// UpdateAtomic runs mutate inside a transaction holding a row lock on the
	// subscription, so concurrent writers to the same record serialize.
	UpdateAtomic(ctx context.Context, id uuid.UUID, mutate func(*models.Subscription) error) (*models.Subscription, error)
}

type subscriptionRepo struct {
	db DB
}

func NewSubscriptionRepo(db DB) SubscriptionRepository {
	return &subscriptionRepo{db: db}
}

const subscriptionColumns = `id, full_name, email, phone, pan_card, gstin, state, dob,
		plan_name, plan_price, plan_duration_minutes, amount_paid,
		payment_state, window_start, window_end,
		session_key, invite_link, invite_consumed, channel_member_id,
		created_at, updated_at`

func scanSubscription(row pgx.Row) (*models.Subscription, error) {
	sub := &models.Subscription{}
	err := row.Scan(
		&sub.ID, &sub.FullName, &sub.Email, &sub.Phone, &sub.PANCard, &sub.GSTIN, &sub.State, &sub.DOB,
		&sub.PlanName, &sub.PlanPrice, &sub.PlanDurationMinutes, &sub.AmountPaid,
		&sub.PaymentState, &sub.WindowStart, &sub.WindowEnd,
		&sub.SessionKey, &sub.InviteLink, &sub.InviteConsumed, &sub.ChannelMemberID,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return sub, nil
}

func (r *subscriptionRepo) Create(ctx context.Context, sub *models.Subscription) error {
	query := `
		INSERT INTO subscriptions (id, full_name, email, phone, pan_card, gstin, state, dob,
			plan_name, plan_price, plan_duration_minutes, amount_paid,
			payment_state, window_start, window_end,
			session_key, invite_link, invite_consumed, channel_member_id,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query,
		sub.ID, sub.FullName, sub.Email, sub.Phone, sub.PANCard, sub.GSTIN, sub.State, sub.DOB,
		sub.PlanName, sub.PlanPrice, sub.PlanDurationMinutes, sub.AmountPaid,
		sub.PaymentState, sub.WindowStart, sub.WindowEnd,
		sub.SessionKey, sub.InviteLink, sub.InviteConsumed, sub.ChannelMemberID,
	)
	return err
}

func (r *subscriptionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`
	return scanSubscription(r.db.QueryRow(ctx, query, id))
}

func (r *subscriptionRepo) GetBySessionKey(ctx context.Context, sessionKey string) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE session_key = $1`
	return scanSubscription(r.db.QueryRow(ctx, query, sessionKey))
}

func (r *subscriptionRepo) GetByLiveInviteLink(ctx context.Context, link string) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE invite_link = $1 AND invite_consumed = FALSE`
	return scanSubscription(r.db.QueryRow(ctx, query, link))
}

func (r *subscriptionRepo) ListExpiredCandidates(ctx context.Context, now time.Time) ([]*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE payment_state = $1 AND window_end < $2
		ORDER BY window_end ASC`
	rows, err := r.db.Query(ctx, query, models.PaymentPaid, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSubscriptions(rows)
}

func (r *subscriptionRepo) List(ctx context.Context, limit, offset int) ([]*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + `
		FROM subscriptions
		ORDER BY created_at ASC
		LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSubscriptions(rows)
}

func collectSubscriptions(rows pgx.Rows) ([]*models.Subscription, error) {
	var subs []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *subscriptionRepo) UpdateAtomic(ctx context.Context, id uuid.UUID, mutate func(*models.Subscription) error) (*models.Subscription, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1 FOR UPDATE`
	sub, err := scanSubscription(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	if err := mutate(sub); err != nil {
		return nil, err
	}

	update := `
		UPDATE subscriptions
		SET payment_state = $1, session_key = $2, invite_link = $3,
			invite_consumed = $4, channel_member_id = $5, updated_at = NOW()
		WHERE id = $6
	`
	if _, err := tx.Exec(ctx, update,
		sub.PaymentState, sub.SessionKey, sub.InviteLink,
		sub.InviteConsumed, sub.ChannelMemberID, sub.ID,
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return sub, nil
}
