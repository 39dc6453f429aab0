package domain

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

// Amount is an exact, arbitrary-precision, non-negative integer quantity.
// All prices and quantities in the venue are Amounts; no float ever touches
// monetary arithmetic.
type Amount struct {
	dec decimal.Decimal
}

var amountPattern = regexp.MustCompile(`^[0-9]+$`)

// ZeroAmount is the zero quantity.
var ZeroAmount = Amount{}

// ParseAmount parses a decimal string into an Amount. Signs, fractions,
// exponents and empty input are rejected.
func ParseAmount(s string) (Amount, error) {
	if !amountPattern.MatchString(s) {
		return Amount{}, fmt.Errorf("%w: amount must be a non-negative integer, got %q", ErrInvalidInput, s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return Amount{dec: d}, nil
}

// MustAmount parses s and panics on failure. For tests and constants only.
func MustAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) Add(b Amount) Amount {
	return Amount{dec: a.dec.Add(b.dec)}
}

// Sub returns a-b, failing with ErrInvariantViolation if the result would
// be negative.
func (a Amount) Sub(b Amount) (Amount, error) {
	r := a.dec.Sub(b.dec)
	if r.IsNegative() {
		return Amount{}, fmt.Errorf("%w: %s - %s is negative", ErrInvariantViolation, a, b)
	}
	return Amount{dec: r}, nil
}

func (a Amount) Cmp(b Amount) int     { return a.dec.Cmp(b.dec) }
func (a Amount) Equal(b Amount) bool  { return a.dec.Equal(b.dec) }
func (a Amount) IsZero() bool         { return a.dec.IsZero() }
func (a Amount) IsPositive() bool     { return a.dec.IsPositive() }
func (a Amount) String() string       { return a.dec.String() }

// MinAmount returns the smaller of a and b.
func MinAmount(a, b Amount) Amount {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.dec.String() + `"`), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
