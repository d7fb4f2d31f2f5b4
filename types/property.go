package types

import "time"

// Property statuses.
const (
	PropertyStatusDraft    = "draft"
	PropertyStatusOpen     = "open"
	PropertyStatusSoldOut  = "sold_out"
	PropertyStatusArchived = "archived"
)

// Property represents an investment listing.
// Prices and amounts are stored in the smallest currency unit (kobo).
type Property struct {
	// ID is the unique identifier of the property.
	ID int `json:"id" db:"id"`

	// Title is the human-readable name of the listing.
	Title string `json:"title" db:"title"`

	// Description contains the full listing copy.
	Description string `json:"description" db:"description"`

	// Location is the free-form address or city of the property.
	Location string `json:"location" db:"location"`

	// UnitPrice is the price of one investment unit, in kobo.
	UnitPrice int64 `json:"unit_price" db:"unit_price"`

	// TotalUnits is the number of units offered.
	TotalUnits int `json:"total_units" db:"total_units"`

	// AvailableUnits is the number of units still open for subscription.
	AvailableUnits int `json:"available_units" db:"available_units"`

	// ExpectedROI is the projected annual return, in basis points.
	ExpectedROI int `json:"expected_roi" db:"expected_roi"`

	// Status is one of the PropertyStatus constants.
	Status string `json:"status" db:"status"`

	// ImageKeys are object-storage keys for listing images.
	ImageKeys []string `json:"image_keys" db:"image_keys"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
