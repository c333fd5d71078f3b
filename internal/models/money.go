package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is an amount in integer minor units (centavos). All ledger
// arithmetic happens on cents; decimal is only used for rate
// multiplications and for rendering two-decimal JSON strings.
type Money int64

// NewMoneyFromCents creates an amount from cents.
func NewMoneyFromCents(cents int64) Money {
	return Money(cents)
}

// NewMoneyFromDecimal converts a major-unit decimal to cents,
// rounding half up at the cent.
func NewMoneyFromDecimal(amount decimal.Decimal) Money {
	return Money(amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart())
}

// Cents returns the raw minor-unit value.
func (m Money) Cents() int64 {
	return int64(m)
}

// Decimal returns the major-unit decimal value.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// ApplyPercent multiplies the amount by rate/100, rounding half up
// at the final cent. Used for fee, reserve and commission math.
func (m Money) ApplyPercent(rate decimal.Decimal) Money {
	cents := decimal.NewFromInt(int64(m)).Mul(rate).Div(decimal.NewFromInt(100)).Round(0)
	return Money(cents.IntPart())
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return m + other
}

// Sub returns m - other.
func (m Money) Sub(other Money) Money {
	return m - other
}

// Neg returns -m.
func (m Money) Neg() Money {
	return -m
}

// IsPositive reports whether the amount is greater than zero.
func (m Money) IsPositive() bool {
	return m > 0
}

// IsNegative reports whether the amount is less than zero.
func (m Money) IsNegative() bool {
	return m < 0
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m == 0
}

// MarshalJSON renders the amount as a two-decimal string ("86.93").
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Decimal().StringFixed(2))
}

// UnmarshalJSON parses an amount from a string or number.
func (m *Money) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return err
		}
		*m = NewMoneyFromDecimal(d)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*m = NewMoneyFromDecimal(decimal.NewFromFloat(f))
	return nil
}

// Value stores the amount as an integer column.
func (m Money) Value() (driver.Value, error) {
	return int64(m), nil
}

// Scan reads the amount from an integer column.
func (m *Money) Scan(value interface{}) error {
	switch v := value.(type) {
	case int64:
		*m = Money(v)
		return nil
	case []byte:
		var d decimal.Decimal
		if err := d.Scan(v); err != nil {
			return err
		}
		*m = Money(d.IntPart())
		return nil
	case nil:
		*m = 0
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Money", value)
	}
}

// String returns the two-decimal major-unit representation.
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Percent is a percentage with 2 decimal places (e.g. 5.99).
type Percent struct {
	decimal.Decimal
}

// NewPercentFromDecimal creates a percentage from a decimal.
func NewPercentFromDecimal(value decimal.Decimal) Percent {
	return Percent{Decimal: value.Round(2)}
}

// NewPercentFromFloat creates a percentage from a float.
func NewPercentFromFloat(value float64) Percent {
	return NewPercentFromDecimal(decimal.NewFromFloat(value))
}

// MarshalJSON renders the percentage as a two-decimal string.
func (p Percent) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Decimal.Round(2).StringFixed(2))
}

// UnmarshalJSON parses a percentage from a string or number.
func (p *Percent) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return err
		}
		p.Decimal = d.Round(2)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	p.Decimal = decimal.NewFromFloat(f).Round(2)
	return nil
}

// Value stores the percentage as a decimal column.
func (p Percent) Value() (driver.Value, error) {
	return p.Decimal.Round(2).Value()
}

// Scan reads the percentage from a decimal column.
func (p *Percent) Scan(value interface{}) error {
	if err := p.Decimal.Scan(value); err != nil {
		return err
	}
	p.Decimal = p.Decimal.Round(2)
	return nil
}

// String returns the two-decimal representation.
func (p Percent) String() string {
	return p.Decimal.Round(2).StringFixed(2)
}
