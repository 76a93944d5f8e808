// Package utils contains small numeric helpers shared across the module.
package utils

import "math"

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// Float64AlmostEqual compares two float64s and returns if the difference between them is less than epsilon.
func Float64AlmostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}

// Clamp limits v to the closed interval [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// IsFinite returns false for NaN and either infinity.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// SafeRatio returns num/denom, or fallback when |denom| is below epsilon or the result is not finite.
// The boolean reports whether the fallback was used.
func SafeRatio(num, denom, epsilon, fallback float64) (float64, bool) {
	if math.Abs(denom) < epsilon {
		return fallback, true
	}
	r := num / denom
	if !IsFinite(r) {
		return fallback, true
	}
	return r, false
}
