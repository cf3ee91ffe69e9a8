// Package arith is a plain dispatch target with two arithmetic operations.
package arith

import (
	"errors"
)

// ErrNaN is returned by Subtract when an operand is missing.
var ErrNaN = errors.New("ERR_NAN")

// Operands are the named params of subtract.
type Operands struct {
	Minuend    *float64 `json:"minuend"`
	Subtrahend *float64 `json:"subtrahend"`
}

// New returns the operation table: add and subtract.
func New() map[string]any {
	return map[string]any{
		"add":      Add,
		"subtract": Subtract,
	}
}

// Add sums its params.
func Add(nums ...float64) float64 {
	var sum float64
	for _, n := range nums {
		sum += n
	}
	return sum
}

// Subtract returns minuend - subtrahend.
func Subtract(o Operands) (float64, error) {
	if o.Minuend == nil || o.Subtrahend == nil {
		return 0, ErrNaN
	}
	return *o.Minuend - *o.Subtrahend, nil
}
