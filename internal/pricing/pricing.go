// Package pricing implements the parking fee arithmetic.
//
// The computation is integer-only: duration is rounded up to whole
// minutes, then charged pro rata against the operator's hourly rate
// with the final division truncating.
package pricing

import (
	"fmt"

	"github.com/mhmtalitas/parkmeter/internal/model"
)

const (
	// HourInSeconds is the billing base for the hourly rate.
	HourInSeconds uint64 = 3600

	// StroopsPerXLM is the number of smallest currency units per XLM.
	StroopsPerXLM model.Stroops = 10_000_000
)

// Fee returns the charge for a stay of durationSeconds at hourlyRate
// (stroops per hour). A partial minute counts as a full minute; the
// final division by 60 truncates.
func Fee(durationSeconds uint64, hourlyRate model.Stroops) model.Stroops {
	durationMinutes := (durationSeconds + 59) / 60
	return model.Stroops(durationMinutes) * hourlyRate / 60
}

// XLMString renders a stroop amount as a decimal XLM string, e.g.
// 10_000_000 -> "1.0000000". Used for display only; all arithmetic
// stays in stroops.
func XLMString(amount model.Stroops) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	whole := amount / StroopsPerXLM
	frac := amount % StroopsPerXLM
	return fmt.Sprintf("%s%d.%07d", sign, whole, frac)
}
