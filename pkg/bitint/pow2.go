// SPDX-License-Identifier: MIT
/*
Package bitint holds the power-of-two helpers used to size FFT frames.

	size := bitint.NextPowerOfTwo(1000) // 1024
	ok := bitint.IsPowerOfTwo(size)

All functions are constant time and allocation free.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= n, and 1 for n <= 1.
// Subtracting one first keeps exact powers of two unchanged.
func NextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

