package split

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInvalidSplit = errors.New("invalid split")

// ValidationError describes why a split was rejected. Participant,
// Expected and Actual are set when they apply to the failure.
type ValidationError struct {
	Reason      string
	Participant uuid.UUID
	Expected    decimal.Decimal
	Actual      decimal.Decimal
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Reason)
	if e.Participant != uuid.Nil {
		fmt.Fprintf(&b, ": participant %s", e.Participant)
	}
	if !e.Expected.IsZero() {
		fmt.Fprintf(&b, " (expected %s, got %s)", e.Expected, e.Actual)
	} else if !e.Actual.IsZero() {
		fmt.Fprintf(&b, " (got %s)", e.Actual)
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidSplit
}
