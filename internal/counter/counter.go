// Package counter is the arithmetic demo shown on the counter screen.
package counter

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrDivideByZero is returned by DivideByZero; the value is left unchanged.
var ErrDivideByZero = errors.New("counter: division by zero")

var (
	two  = decimal.NewFromInt(2)
	half = decimal.New(5, -1)
)

// Counter holds an exact decimal value so repeated halving never drifts.
type Counter struct {
	value decimal.Decimal
}

func (c *Counter) Increment() { c.value = c.value.Add(decimal.NewFromInt(1)) }
func (c *Counter) Decrement() { c.value = c.value.Sub(decimal.NewFromInt(1)) }
func (c *Counter) Reset()     { c.value = decimal.Zero }
func (c *Counter) Double()    { c.value = c.value.Mul(two) }

// Halve multiplies by 0.5 rather than dividing, so no digits are rounded off.
func (c *Counter) Halve() {
	c.value = c.value.Mul(half)
}

// DivideByZero always fails.
func (c *Counter) DivideByZero() error {
	return ErrDivideByZero
}

// Value returns the current value.
func (c *Counter) Value() decimal.Decimal { return c.value }

// String formats the value without trailing zeros.
func (c *Counter) String() string { return c.value.String() }
