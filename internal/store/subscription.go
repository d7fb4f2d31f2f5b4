package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/brikvest/apiserver/types"
)

// SubscriptionRepository handles persistence for property investments.
type SubscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Create(ctx context.Context, sub types.Subscription) (types.Subscription, error) {
	now := time.Now()
	sub.CreatedAt = now
	sub.UpdatedAt = now

	const query = `
		INSERT INTO subscriptions (user_id, property_id, units, amount,
			payment_reference, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		sub.UserID,
		sub.PropertyID,
		sub.Units,
		sub.Amount,
		sub.PaymentReference,
		sub.Status,
		sub.CreatedAt,
		sub.UpdatedAt,
	).Scan(&sub.ID); err != nil {
		return types.Subscription{}, mapError(err)
	}
	return sub, nil
}

func (r *SubscriptionRepository) GetByReference(ctx context.Context, reference string) (types.Subscription, error) {
	const query = `
		SELECT id, user_id, property_id, units, amount, payment_reference,
			status, created_at, updated_at
		FROM subscriptions
		WHERE payment_reference = $1`
	var sub types.Subscription
	err := r.db.QueryRowContext(ctx, query, reference).Scan(
		&sub.ID,
		&sub.UserID,
		&sub.PropertyID,
		&sub.Units,
		&sub.Amount,
		&sub.PaymentReference,
		&sub.Status,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Subscription{}, ErrNotFound
		}
		return types.Subscription{}, err
	}
	return sub, nil
}

func (r *SubscriptionRepository) ListByUser(ctx context.Context, userID int) ([]types.Subscription, error) {
	const query = `
		SELECT id, user_id, property_id, units, amount, payment_reference,
			status, created_at, updated_at
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []types.Subscription
	for rows.Next() {
		var sub types.Subscription
		if err := rows.Scan(
			&sub.ID,
			&sub.UserID,
			&sub.PropertyID,
			&sub.Units,
			&sub.Amount,
			&sub.PaymentReference,
			&sub.Status,
			&sub.CreatedAt,
			&sub.UpdatedAt,
		); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// UpdateStatus transitions a subscription; only pending rows move.
func (r *SubscriptionRepository) UpdateStatus(ctx context.Context, id int, status string) error {
	const query = `
		UPDATE subscriptions
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = 'pending'`
	result, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
