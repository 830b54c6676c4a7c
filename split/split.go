// Package split turns a paid total into per-participant shares.
//
// Every policy guarantees that the returned shares add up to the total
// exactly, in minor units (cents). Participant order is an input: the
// equal policy hands leftover cents to the first participants and the
// percentage policy charges the rounding gap to the first participant.
package split

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeEqual      Type = "EQUAL"
	TypeExact      Type = "EXACT"
	TypePercentage Type = "PERCENTAGE"
)

// MinorUnitScale is the number of decimal places of a minor unit.
const MinorUnitScale = 2

var (
	minorUnit  = decimal.New(1, -MinorUnitScale)
	oneHundred = decimal.NewFromInt(100)
)

// Share is one participant's portion of a total.
type Share struct {
	Participant uuid.UUID
	Amount      decimal.Decimal
}

func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToUpper(strings.TrimSpace(s))); t {
	case TypeEqual, TypeExact, TypePercentage:
		return t, nil
	default:
		return "", &ValidationError{Reason: fmt.Sprintf("unsupported split type %q", s)}
	}
}

// Split divides total among participants using the policy named by t.
// params holds the per-participant amounts for TypeExact and the
// per-participant percentages for TypePercentage; it must be empty for
// TypeEqual.
func Split(total decimal.Decimal, participants []uuid.UUID, t Type, params map[uuid.UUID]decimal.Decimal) ([]Share, error) {
	if err := checkCommon(total, participants); err != nil {
		return nil, err
	}

	switch t {
	case TypeEqual:
		if len(params) > 0 {
			return nil, &ValidationError{Reason: "split details must not be provided for an equal split"}
		}
		return Equal(total, participants)
	case TypeExact:
		return Exact(total, participants, params)
	case TypePercentage:
		return Percentage(total, participants, params)
	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("unsupported split type %q", t)}
	}
}

// Equal gives every participant floor(total/n) at cent scale and hands
// the leftover cents, one each, to the first participants in order.
func Equal(total decimal.Decimal, participants []uuid.UUID) ([]Share, error) {
	if err := checkCommon(total, participants); err != nil {
		return nil, err
	}

	n := decimal.NewFromInt(int64(len(participants)))
	base := total.Div(n).Truncate(MinorUnitScale)
	distributed := base.Mul(n)
	remainderUnits := total.Sub(distributed).Div(minorUnit).Round(0).IntPart()

	shares := make([]Share, 0, len(participants))
	for i, p := range participants {
		amount := base
		if int64(i) < remainderUnits {
			amount = amount.Add(minorUnit)
		}
		shares = append(shares, Share{Participant: p, Amount: amount})
	}
	return shares, nil
}

// Exact uses the caller's amounts verbatim after checking that every
// participant has one, none is negative and they add up to total.
func Exact(total decimal.Decimal, participants []uuid.UUID, amounts map[uuid.UUID]decimal.Decimal) ([]Share, error) {
	if err := checkCommon(total, participants); err != nil {
		return nil, err
	}
	if err := checkParams(participants, amounts, "amount"); err != nil {
		return nil, err
	}

	sum := decimal.Zero
	shares := make([]Share, 0, len(participants))
	for _, p := range participants {
		amount := amounts[p]
		if !IsMinorUnit(amount) {
			return nil, &ValidationError{
				Reason:      "amount has more than 2 decimal places",
				Participant: p,
				Actual:      amount,
			}
		}
		sum = sum.Add(amount)
		shares = append(shares, Share{Participant: p, Amount: amount})
	}

	if !sum.Equal(total) {
		return nil, &ValidationError{
			Reason:   "sum of exact amounts does not equal expense total",
			Expected: total,
			Actual:   sum,
		}
	}
	return shares, nil
}

// Percentage computes total*pct/100 rounded half-up to the cent for each
// participant, then adds whatever gap remains to the first participant.
func Percentage(total decimal.Decimal, participants []uuid.UUID, percentages map[uuid.UUID]decimal.Decimal) ([]Share, error) {
	if err := checkCommon(total, participants); err != nil {
		return nil, err
	}
	if err := checkParams(participants, percentages, "percentage"); err != nil {
		return nil, err
	}

	sumPct := decimal.Zero
	for _, p := range participants {
		sumPct = sumPct.Add(percentages[p])
	}
	if !sumPct.Equal(oneHundred) {
		return nil, &ValidationError{
			Reason:   "sum of percentages does not equal 100",
			Expected: oneHundred,
			Actual:   sumPct,
		}
	}

	sum := decimal.Zero
	shares := make([]Share, 0, len(participants))
	for _, p := range participants {
		// Shift divides by 100 without Div's intermediate rounding. Round is
		// half away from zero, which is half-up for non-negative values.
		amount := total.Mul(percentages[p]).Shift(-2).Round(MinorUnitScale)
		sum = sum.Add(amount)
		shares = append(shares, Share{Participant: p, Amount: amount})
	}

	if gap := total.Sub(sum); !gap.IsZero() {
		first := shares[0].Amount.Add(gap)
		if first.IsNegative() {
			return nil, &ValidationError{
				Reason:      "first participant cannot absorb the rounding gap",
				Participant: shares[0].Participant,
				Actual:      first,
			}
		}
		shares[0].Amount = first
	}
	return shares, nil
}

// IsMinorUnit reports whether d has no digits below the cent.
func IsMinorUnit(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MinorUnitScale))
}

// Sum adds up the share amounts.
func Sum(shares []Share) decimal.Decimal {
	total := decimal.Zero
	for _, s := range shares {
		total = total.Add(s.Amount)
	}
	return total
}

func checkCommon(total decimal.Decimal, participants []uuid.UUID) error {
	if !total.IsPositive() {
		return &ValidationError{Reason: "expense amount must be greater than zero", Actual: total}
	}
	if !IsMinorUnit(total) {
		return &ValidationError{Reason: "expense amount has more than 2 decimal places", Actual: total}
	}
	if len(participants) == 0 {
		return &ValidationError{Reason: "participants list cannot be empty"}
	}

	seen := make(map[uuid.UUID]struct{}, len(participants))
	for _, p := range participants {
		if _, ok := seen[p]; ok {
			return &ValidationError{Reason: "duplicate participant", Participant: p}
		}
		seen[p] = struct{}{}
	}
	return nil
}

func checkParams(participants []uuid.UUID, params map[uuid.UUID]decimal.Decimal, kind string) error {
	if len(params) == 0 {
		return &ValidationError{Reason: fmt.Sprintf("split details (%s per participant) are required", kind)}
	}

	members := make(map[uuid.UUID]struct{}, len(participants))
	for _, p := range participants {
		members[p] = struct{}{}
		v, ok := params[p]
		if !ok {
			return &ValidationError{Reason: fmt.Sprintf("missing %s for participant", kind), Participant: p}
		}
		if v.IsNegative() {
			return &ValidationError{Reason: fmt.Sprintf("%s must not be negative", kind), Participant: p, Actual: v}
		}
	}

	for id := range params {
		if _, ok := members[id]; !ok {
			return &ValidationError{Reason: "split details name a user who is not a participant", Participant: id}
		}
	}
	return nil
}
