// Package utils provides generic slice helpers used throughout the application.
package utils

// Map applies f to every element of s.
//
// Parameters:
//   - s: Input slice
//   - f: Mapping function, receiving the element and its index
//
// Returns:
//   - []B: A new slice with the mapped values
func Map[A any, B any](s []A, f func(A, uint64) B) []B {
	out := make([]B, 0, len(s))
	for i, v := range s {
		out = append(out, f(v, uint64(i)))
	}
	return out
}

// Filter returns the elements of s for which f returns true.
func Filter[A any](s []A, f func(A) bool) []A {
	out := make([]A, 0)
	for _, v := range s {
		if f(v) {
			out = append(out, v)
		}
	}
	return out
}
