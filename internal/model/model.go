// Package model defines domain entities used by services and storage.
package model

// Principal is an opaque identity capable of authorizing calls.
// The ledger never interprets it beyond equality.
type Principal string

// Stroops is a money amount in the smallest currency unit
// (10^7 stroops = 1 XLM).
type Stroops int64

// Operator is a principal allowed to open parking sessions at a
// configured hourly rate. Operators are registered by the admin and are
// never deleted, only toggled via IsActive.
type Operator struct {
	Address    Principal `json:"address"`
	Name       string    `json:"name"`
	HourlyRate Stroops   `json:"hourly_rate"` // stroops per hour
	IsActive   bool      `json:"is_active"`
}

// ParkingEntry is one parking session keyed by license plate. ExitTime
// and PaymentAmount are set iff IsPaid; a later entry for the same plate
// overwrites a paid record.
type ParkingEntry struct {
	LicensePlate    string    `json:"license_plate"`
	EntryTime       uint64    `json:"entry_time"` // unix seconds
	ExitTime        *uint64   `json:"exit_time,omitempty"`
	OperatorAddress Principal `json:"operator_address"`
	IsPaid          bool      `json:"is_paid"`
	PaymentAmount   *Stroops  `json:"payment_amount,omitempty"`
}

// FeeQuote is the result of a fee calculation against the live clock.
type FeeQuote struct {
	DurationSeconds uint64
	Fee             Stroops
}
