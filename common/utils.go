package common

import "cmp"

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// CeilDiv divides a by b rounding up. b must be positive.
//
// Parameters:
//   - a: the dividend
//   - b: the divisor
//
// Returns:
//   - T: ceil(a / b)
func CeilDiv[T ~int | ~uint32](a, b T) T {
	return (a + b - 1) / b
}

// ClampValue limits v to the closed range [lo, hi].
//
// Parameters:
//   - v: the value to clamp
//   - lo: the lower bound
//   - hi: the upper bound
//
// Returns:
//   - T: the clamped value
func ClampValue[T cmp.Ordered](v, lo, hi T) T {
	return min(max(v, lo), hi)
}
