package types

import "time"

// BankAccount is a payout destination owned by a user. Account details
// are resolved against the payment provider before being stored.
type BankAccount struct {
	ID            int    `json:"id" db:"id"`
	UserID        int    `json:"user_id" db:"user_id"`
	BankCode      string `json:"bank_code" db:"bank_code"`
	BankName      string `json:"bank_name" db:"bank_name"`
	AccountNumber string `json:"account_number" db:"account_number"`

	// AccountName is the resolved holder name returned by the provider.
	AccountName string `json:"account_name" db:"account_name"`

	// RecipientCode is the provider-side transfer recipient handle.
	RecipientCode string `json:"recipient_code,omitempty" db:"recipient_code"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
