package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/brikvest/apiserver/types"
)

// PartnerRepository handles persistence for partner referrals.
type PartnerRepository struct {
	db *sql.DB
}

func NewPartnerRepository(db *sql.DB) *PartnerRepository {
	return &PartnerRepository{db: db}
}

func (r *PartnerRepository) Create(ctx context.Context, referral types.PartnerReferral) (types.PartnerReferral, error) {
	referral.CreatedAt = time.Now()
	if referral.Status == "" {
		referral.Status = types.ReferralStatusSignedUp
	}

	const query = `
		INSERT INTO partner_referrals (partner_id, user_id, status, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		referral.PartnerID,
		referral.UserID,
		referral.Status,
		referral.CreatedAt,
	).Scan(&referral.ID); err != nil {
		return types.PartnerReferral{}, mapError(err)
	}
	return referral, nil
}

func (r *PartnerRepository) ListByPartner(ctx context.Context, partnerID int) ([]types.PartnerReferral, error) {
	const query = `
		SELECT id, partner_id, user_id, status, created_at
		FROM partner_referrals
		WHERE partner_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, partnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var referrals []types.PartnerReferral
	for rows.Next() {
		var ref types.PartnerReferral
		if err := rows.Scan(&ref.ID, &ref.PartnerID, &ref.UserID, &ref.Status, &ref.CreatedAt); err != nil {
			return nil, err
		}
		referrals = append(referrals, ref)
	}
	return referrals, rows.Err()
}

// MarkInvested upgrades a referral once the referred user subscribes.
func (r *PartnerRepository) MarkInvested(ctx context.Context, userID int) error {
	const query = `
		UPDATE partner_referrals
		SET status = $1
		WHERE user_id = $2 AND status = $3`
	_, err := r.db.ExecContext(ctx, query, types.ReferralStatusInvested, userID, types.ReferralStatusSignedUp)
	return err
}
