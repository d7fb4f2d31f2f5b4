package types

import "time"

// Subscription payment states.
const (
	SubscriptionStatusPending   = "pending"
	SubscriptionStatusActive    = "active"
	SubscriptionStatusCancelled = "cancelled"
)

// Subscription records a user's investment in a property.
// It starts pending with a payment reference and becomes active once the
// payment provider confirms the transaction.
type Subscription struct {
	ID         int `json:"id" db:"id"`
	UserID     int `json:"user_id" db:"user_id"`
	PropertyID int `json:"property_id" db:"property_id"`

	// Units is the number of investment units purchased.
	Units int `json:"units" db:"units"`

	// Amount is the total charge in kobo (units * unit price).
	Amount int64 `json:"amount" db:"amount"`

	// PaymentReference is the provider transaction reference.
	PaymentReference string `json:"payment_reference" db:"payment_reference"`

	// Status is one of the SubscriptionStatus constants.
	Status string `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
