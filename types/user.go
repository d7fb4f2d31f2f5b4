package types

import "time"

// AccountType distinguishes the kinds of accounts on the platform.
type AccountType string

const (
	// AccountTypeIndividual is a regular retail investor account.
	AccountTypeIndividual AccountType = "individual"

	// AccountTypeCompany is an institutional / corporate account.
	AccountTypeCompany AccountType = "company"

	// AccountTypePartner is a referral partner account.
	AccountTypePartner AccountType = "partner"
)

// User represents an account in the system.
// It contains identity, verification, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Email is the user's email address, stored lowercased and unique.
	Email string `json:"email" db:"email"`

	// Phone is the user's phone number, unique across accounts.
	Phone string `json:"phone" db:"phone"`

	// FirstName is the user's given name.
	FirstName string `json:"first_name" db:"first_name"`

	// LastName is the user's family name.
	LastName string `json:"last_name" db:"last_name"`

	// AccountType indicates whether this is an individual, company,
	// or partner account.
	AccountType AccountType `json:"account_type" db:"account_type"`

	// EmailVerified reports whether the user has confirmed their email
	// address via OTP.
	EmailVerified bool `json:"email_verified" db:"email_verified"`

	// KYCStatus is the user's identity verification state
	// ("none", "pending", "approved", "rejected").
	KYCStatus string `json:"kyc_status" db:"kyc_status"`

	// ReferralCode is the code this user hands out to referred signups.
	// Only populated for partner accounts.
	ReferralCode string `json:"referral_code,omitempty" db:"referral_code"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// DeletedAt marks the account as soft-deleted. Accounts are never
	// physically removed; a non-nil DeletedAt excludes the user from
	// all lookups.
	DeletedAt *time.Time `json:"-" db:"deleted_at"`
}
