package safemath

import (
	"errors"
	"math/bits"

	"golang.org/x/exp/constraints"
)

var ErrOverflow = errors.New("number overflow")

// Add returns a+b and false if the sum does not fit in T.
func Add[T constraints.Unsigned](a, b T) (T, bool) {
	v := a + b
	return v, v >= a
}

// Sub returns a-b and false if b is greater than a.
func Sub[T constraints.Unsigned](a, b T) (T, bool) {
	if b > a {
		return 0, false
	}
	return a - b, true
}

// Mul returns a*b and false if the product does not fit in T.
func Mul[T constraints.Unsigned](a, b T) (T, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	v := a * b
	return v, v/b == a
}

func Add64(a, b uint64) (uint64, bool) {
	v, carry := bits.Add64(a, b, 0)
	return v, carry == 0
}

func Sub64(a, b uint64) (uint64, bool) {
	v, borrow := bits.Sub64(a, b, 0)
	return v, borrow == 0
}
