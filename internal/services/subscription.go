package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brikvest/apiserver/internal/payment"
	"github.com/brikvest/apiserver/internal/store"
	"github.com/brikvest/apiserver/types"
)

// ErrUnitsUnavailable is returned when a property cannot cover the
// requested units or is not open for subscription.
var ErrUnitsUnavailable = errors.New("requested units are not available")

type subscriptionStore interface {
	Create(ctx context.Context, sub types.Subscription) (types.Subscription, error)
	GetByReference(ctx context.Context, reference string) (types.Subscription, error)
	ListByUser(ctx context.Context, userID int) ([]types.Subscription, error)
	UpdateStatus(ctx context.Context, id int, status string) error
}

type unitReserver interface {
	Get(ctx context.Context, id int) (types.Property, error)
	ReserveUnits(ctx context.Context, id, units int) error
	ReleaseUnits(ctx context.Context, id, units int) error
}

type referralTracker interface {
	MarkInvested(ctx context.Context, userID int) error
}

// CheckoutResult is handed back to the client to complete payment.
type CheckoutResult struct {
	Subscription     types.Subscription `json:"subscription"`
	AuthorizationURL string             `json:"authorization_url"`
	AccessCode       string             `json:"access_code"`
}

// SubscriptionService sells property units. Checkout reserves units and
// initializes a provider transaction; confirmation verifies the charge
// and activates the subscription. Failed or abandoned checkouts release
// their units on cancellation.
type SubscriptionService struct {
	subs       subscriptionStore
	properties unitReserver
	referrals  referralTracker
	payments   *payment.Client
	logger     *zap.Logger
}

func NewSubscriptionService(
	subs subscriptionStore,
	properties unitReserver,
	referrals referralTracker,
	payments *payment.Client,
	logger *zap.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		subs:       subs,
		properties: properties,
		referrals:  referrals,
		payments:   payments,
		logger:     logger,
	}
}

// Checkout reserves units on the property, records a pending
// subscription, and initializes payment with the provider.
func (s *SubscriptionService) Checkout(ctx context.Context, user types.User, propertyID, units int) (CheckoutResult, error) {
	if units <= 0 {
		return CheckoutResult{}, ErrUnitsUnavailable
	}
	prop, err := s.properties.Get(ctx, propertyID)
	if err != nil {
		return CheckoutResult{}, err
	}
	if err := s.properties.ReserveUnits(ctx, propertyID, units); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return CheckoutResult{}, ErrUnitsUnavailable
		}
		return CheckoutResult{}, err
	}

	amount := prop.UnitPrice * int64(units)
	// References are handed to the payment provider and exposed to
	// clients; random UUIDs avoid leaking ordering the way ULIDs would.
	reference := fmt.Sprintf("sub_%s", uuid.NewString())
	sub, err := s.subs.Create(ctx, types.Subscription{
		UserID:           user.ID,
		PropertyID:       propertyID,
		Units:            units,
		Amount:           amount,
		PaymentReference: reference,
		Status:           types.SubscriptionStatusPending,
	})
	if err != nil {
		s.release(ctx, propertyID, units)
		return CheckoutResult{}, err
	}

	init, err := s.payments.InitializeTransaction(ctx, user.Email, amount, reference)
	if err != nil {
		s.release(ctx, propertyID, units)
		if cancelErr := s.subs.UpdateStatus(ctx, sub.ID, types.SubscriptionStatusCancelled); cancelErr != nil {
			s.logger.Error("cancelling subscription after payment init failure",
				zap.Int("subscription_id", sub.ID), zap.Error(cancelErr))
		}
		return CheckoutResult{}, err
	}
	return CheckoutResult{
		Subscription:     sub,
		AuthorizationURL: init.AuthorizationURL,
		AccessCode:       init.AccessCode,
	}, nil
}

// Confirm verifies the provider transaction and activates the pending
// subscription. Only the subscription's owner may confirm; the
// ownership check runs before any state changes. Activating also
// upgrades the user's referral, if any, to invested.
func (s *SubscriptionService) Confirm(ctx context.Context, userID int, reference string) (types.Subscription, error) {
	sub, err := s.subs.GetByReference(ctx, reference)
	if err != nil {
		return types.Subscription{}, err
	}
	if sub.UserID != userID {
		return types.Subscription{}, ErrForbidden
	}
	if sub.Status != types.SubscriptionStatusPending {
		return sub, nil
	}
	if err := s.payments.VerifyTransaction(ctx, reference); err != nil {
		return types.Subscription{}, err
	}
	if err := s.subs.UpdateStatus(ctx, sub.ID, types.SubscriptionStatusActive); err != nil {
		return types.Subscription{}, err
	}
	sub.Status = types.SubscriptionStatusActive

	if err := s.referrals.MarkInvested(ctx, sub.UserID); err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.Error("marking referral invested failed",
			zap.Int("user_id", sub.UserID), zap.Error(err))
	}
	return sub, nil
}

// Cancel abandons a pending subscription and releases its units.
func (s *SubscriptionService) Cancel(ctx context.Context, userID int, reference string) (types.Subscription, error) {
	sub, err := s.subs.GetByReference(ctx, reference)
	if err != nil {
		return types.Subscription{}, err
	}
	if sub.UserID != userID {
		return types.Subscription{}, ErrForbidden
	}
	if err := s.subs.UpdateStatus(ctx, sub.ID, types.SubscriptionStatusCancelled); err != nil {
		return types.Subscription{}, err
	}
	sub.Status = types.SubscriptionStatusCancelled
	s.release(ctx, sub.PropertyID, sub.Units)
	return sub, nil
}

func (s *SubscriptionService) ListByUser(ctx context.Context, userID int) ([]types.Subscription, error) {
	return s.subs.ListByUser(ctx, userID)
}

func (s *SubscriptionService) release(ctx context.Context, propertyID, units int) {
	if err := s.properties.ReleaseUnits(ctx, propertyID, units); err != nil {
		s.logger.Error("releasing reserved units failed",
			zap.Int("property_id", propertyID), zap.Int("units", units), zap.Error(err))
	}
}
