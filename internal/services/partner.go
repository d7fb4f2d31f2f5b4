package services

import (
	"context"

	"github.com/brikvest/apiserver/types"
)

type partnerStore interface {
	ListByPartner(ctx context.Context, partnerID int) ([]types.PartnerReferral, error)
}

// ReferralSummary aggregates a partner's referral performance.
type ReferralSummary struct {
	Total    int `json:"total"`
	SignedUp int `json:"signed_up"`
	Invested int `json:"invested"`
}

// PartnerService exposes a partner's referral history.
type PartnerService struct {
	referrals partnerStore
}

func NewPartnerService(referrals partnerStore) *PartnerService {
	return &PartnerService{referrals: referrals}
}

func (s *PartnerService) Referrals(ctx context.Context, partnerID int) ([]types.PartnerReferral, error) {
	return s.referrals.ListByPartner(ctx, partnerID)
}

// Summary tallies the partner's referrals by status.
func (s *PartnerService) Summary(ctx context.Context, partnerID int) (ReferralSummary, error) {
	refs, err := s.referrals.ListByPartner(ctx, partnerID)
	if err != nil {
		return ReferralSummary{}, err
	}
	summary := ReferralSummary{Total: len(refs)}
	for _, ref := range refs {
		switch ref.Status {
		case types.ReferralStatusSignedUp:
			summary.SignedUp++
		case types.ReferralStatusInvested:
			summary.Invested++
		}
	}
	return summary, nil
}
