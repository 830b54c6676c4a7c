package split

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func users(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}

func amounts(shares []Share) []string {
	out := make([]string, len(shares))
	for i, s := range shares {
		out[i] = s.Amount.StringFixed(MinorUnitScale)
	}
	return out
}

func TestEqualSplit(t *testing.T) {
	tests := []struct {
		name  string
		total string
		n     int
		want  []string
	}{
		{"three ways with one leftover cent", "100.00", 3, []string{"33.34", "33.33", "33.33"}},
		{"six ways with four leftover cents", "10.00", 6, []string{"1.67", "1.67", "1.67", "1.67", "1.66", "1.66"}},
		{"even split", "90.00", 3, []string{"30.00", "30.00", "30.00"}},
		{"single participant", "12.34", 1, []string{"12.34"}},
		{"less than a cent each", "0.02", 3, []string{"0.01", "0.01", "0.00"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			participants := users(tt.n)
			shares, err := Split(dec(tt.total), participants, TypeEqual, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, amounts(shares))
			assert.True(t, Sum(shares).Equal(dec(tt.total)))
			for i, s := range shares {
				assert.Equal(t, participants[i], s.Participant)
			}
		})
	}
}

func TestEqualSplitFollowsGivenOrder(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	first, err := Equal(dec("100.00"), []uuid.UUID{a, b, c})
	require.NoError(t, err)
	second, err := Equal(dec("100.00"), []uuid.UUID{c, b, a})
	require.NoError(t, err)

	assert.Equal(t, a, first[0].Participant)
	assert.Equal(t, "33.34", first[0].Amount.StringFixed(2))
	assert.Equal(t, c, second[0].Participant)
	assert.Equal(t, "33.34", second[0].Amount.StringFixed(2))
}

func TestEqualSplitRejectsDetails(t *testing.T) {
	p := users(2)
	_, err := Split(dec("10.00"), p, TypeEqual, map[uuid.UUID]decimal.Decimal{p[0]: dec("5")})
	require.ErrorIs(t, err, ErrInvalidSplit)
}

func TestExactSplit(t *testing.T) {
	p := users(3)
	shares, err := Split(dec("100.00"), p, TypeExact, map[uuid.UUID]decimal.Decimal{
		p[0]: dec("50.00"),
		p[1]: dec("30.50"),
		p[2]: dec("19.50"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"50.00", "30.50", "19.50"}, amounts(shares))
	assert.True(t, Sum(shares).Equal(dec("100")))
}

func TestExactSplitAllowsZeroShare(t *testing.T) {
	p := users(2)
	shares, err := Exact(dec("20.00"), p, map[uuid.UUID]decimal.Decimal{p[0]: dec("20.00"), p[1]: decimal.Zero})
	require.NoError(t, err)
	assert.Equal(t, []string{"20.00", "0.00"}, amounts(shares))
}

func TestExactSplitErrors(t *testing.T) {
	p := users(2)
	outsider := uuid.New()

	tests := []struct {
		name        string
		params      map[uuid.UUID]decimal.Decimal
		participant uuid.UUID
	}{
		{"sum mismatch", map[uuid.UUID]decimal.Decimal{p[0]: dec("40.00"), p[1]: dec("50.00")}, uuid.Nil},
		{"missing participant", map[uuid.UUID]decimal.Decimal{p[0]: dec("100.00")}, p[1]},
		{"negative amount", map[uuid.UUID]decimal.Decimal{p[0]: dec("110.00"), p[1]: dec("-10.00")}, p[1]},
		{"non participant", map[uuid.UUID]decimal.Decimal{p[0]: dec("50"), p[1]: dec("50"), outsider: dec("0")}, outsider},
		{"sub cent amount", map[uuid.UUID]decimal.Decimal{p[0]: dec("50.005"), p[1]: dec("49.995")}, p[0]},
		{"no details", nil, uuid.Nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Split(dec("100.00"), p, TypeExact, tt.params)
			require.ErrorIs(t, err, ErrInvalidSplit)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.participant, verr.Participant)
		})
	}
}

func TestExactSplitSumMismatchCarriesSums(t *testing.T) {
	p := users(2)
	_, err := Exact(dec("100.00"), p, map[uuid.UUID]decimal.Decimal{p[0]: dec("40.00"), p[1]: dec("50.00")})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Expected.Equal(dec("100")))
	assert.True(t, verr.Actual.Equal(dec("90")))
	assert.Contains(t, err.Error(), "expected 100")
}

func TestPercentageSplit(t *testing.T) {
	p := users(3)

	tests := []struct {
		name  string
		total string
		pcts  []string
		want  []string
	}{
		{"halves of an odd cent", "100.01", []string{"50", "50"}, []string{"50.00", "50.01"}},
		{"thirds", "100.00", []string{"33.33", "33.33", "33.34"}, []string{"33.33", "33.33", "33.34"}},
		{"gap goes to first", "10.00", []string{"33.333", "33.333", "33.334"}, []string{"3.34", "3.33", "3.33"}},
		{"first absorbs negative gap", "0.05", []string{"50", "50"}, []string{"0.02", "0.03"}},
		{"zero percent", "80.00", []string{"0", "100"}, []string{"0.00", "80.00"}},
		{"just above half a cent", "1.00", []string{"99.50000000000000001", "0.49999999999999999"}, []string{"1.00", "0.00"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			participants := p[:len(tt.pcts)]
			params := make(map[uuid.UUID]decimal.Decimal, len(tt.pcts))
			for i, pct := range tt.pcts {
				params[participants[i]] = dec(pct)
			}

			shares, err := Split(dec(tt.total), participants, TypePercentage, params)
			require.NoError(t, err)
			assert.True(t, Sum(shares).Equal(dec(tt.total)), "sum %s", Sum(shares))
			assert.Equal(t, tt.want, amounts(shares))
		})
	}
}

func TestPercentageSplitErrors(t *testing.T) {
	p := users(2)

	tests := []struct {
		name   string
		params map[uuid.UUID]decimal.Decimal
	}{
		{"under one hundred", map[uuid.UUID]decimal.Decimal{p[0]: dec("50"), p[1]: dec("49.99")}},
		{"over one hundred", map[uuid.UUID]decimal.Decimal{p[0]: dec("50"), p[1]: dec("50.01")}},
		{"missing participant", map[uuid.UUID]decimal.Decimal{p[0]: dec("100")}},
		{"negative percentage", map[uuid.UUID]decimal.Decimal{p[0]: dec("110"), p[1]: dec("-10")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Split(dec("100.00"), p, TypePercentage, tt.params)
			require.ErrorIs(t, err, ErrInvalidSplit)
		})
	}
}

func TestPercentageSplitGapCannotGoNegative(t *testing.T) {
	p := users(3)
	_, err := Percentage(dec("0.03"), p, map[uuid.UUID]decimal.Decimal{
		p[0]: decimal.Zero,
		p[1]: dec("50"),
		p[2]: dec("50"),
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, p[0], verr.Participant)
}

func TestCommonPreconditions(t *testing.T) {
	a := uuid.New()

	tests := []struct {
		name         string
		total        string
		participants []uuid.UUID
	}{
		{"zero total", "0", []uuid.UUID{a}},
		{"negative total", "-5.00", []uuid.UUID{a}},
		{"sub cent total", "10.001", []uuid.UUID{a}},
		{"no participants", "10.00", nil},
		{"duplicate participants", "10.00", []uuid.UUID{a, a}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, typ := range []Type{TypeEqual, TypeExact, TypePercentage} {
				_, err := Split(dec(tt.total), tt.participants, typ, nil)
				require.ErrorIs(t, err, ErrInvalidSplit, "split type %s", typ)
			}
		})
	}
}

func TestSplitSumInvariant(t *testing.T) {
	totals := []string{"0.01", "0.99", "1.00", "7.77", "100.00", "100.01", "999999.99"}
	for _, total := range totals {
		for n := 1; n <= 12; n++ {
			p := users(n)

			shares, err := Equal(dec(total), p)
			require.NoError(t, err)
			require.True(t, Sum(shares).Equal(dec(total)), "equal %s/%d", total, n)

			pcts := make(map[uuid.UUID]decimal.Decimal, n)
			each := decimal.NewFromInt(100).Div(decimal.NewFromInt(int64(n))).Truncate(3)
			rest := decimal.NewFromInt(100)
			for i, id := range p {
				if i == n-1 {
					pcts[id] = rest
					break
				}
				pcts[id] = each
				rest = rest.Sub(each)
			}
			shares, err = Percentage(dec(total), p, pcts)
			require.NoError(t, err)
			require.True(t, Sum(shares).Equal(dec(total)), "percentage %s/%d", total, n)
		}
	}
}

func TestParseType(t *testing.T) {
	typ, err := ParseType(" percentage ")
	require.NoError(t, err)
	assert.Equal(t, TypePercentage, typ)

	_, err = ParseType("shares")
	require.ErrorIs(t, err, ErrInvalidSplit)
}
