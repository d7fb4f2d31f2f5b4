package types

import "time"

// KYC document review states. KYCStatusNone is only ever a user-level
// state, before any document has been submitted.
const (
	KYCStatusNone     = "none"
	KYCStatusPending  = "pending"
	KYCStatusApproved = "approved"
	KYCStatusRejected = "rejected"
)

// KYC document types accepted for identity verification.
const (
	KYCDocumentPassport       = "passport"
	KYCDocumentNationalID     = "national_id"
	KYCDocumentDriversLicense = "drivers_license"
	KYCDocumentUtilityBill    = "utility_bill"
)

// KYCDocument is an uploaded identity document awaiting review.
// The file itself lives in object storage under ObjectKey.
type KYCDocument struct {
	ID           int    `json:"id" db:"id"`
	UserID       int    `json:"user_id" db:"user_id"`
	DocumentType string `json:"document_type" db:"document_type"`

	// ObjectKey is the identifier of the file in object storage.
	ObjectKey string `json:"object_key" db:"object_key"`

	// Status is one of the KYCStatus constants.
	Status string `json:"status" db:"status"`

	// ReviewNote is the reviewer's comment, set on approve/reject.
	ReviewNote string `json:"review_note,omitempty" db:"review_note"`

	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty" db:"reviewed_at"`
}
