package types

import "time"

// Referral states.
const (
	ReferralStatusSignedUp = "signed_up"
	ReferralStatusInvested = "invested"
)

// PartnerReferral links a partner account to a user who registered with
// the partner's referral code.
type PartnerReferral struct {
	ID        int       `json:"id" db:"id"`
	PartnerID int       `json:"partner_id" db:"partner_id"`
	UserID    int       `json:"user_id" db:"user_id"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
