package scoring

import "math"

// Percent returns round(part/whole*100), or 0 when whole is not positive.
func Percent(part, whole float64) int {
	if whole <= 0 || math.IsNaN(part) || math.IsInf(part, 0) {
		return 0
	}
	return Round(part / whole * 100)
}

// Ratio returns round(total/count), or 0 when count is not positive.
func Ratio(total, count float64) int {
	if count <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return 0
	}
	return Round(total / count)
}

// Round rounds half up, matching the rounding used when the forms were
// scored on the client.
func Round(x float64) int {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return int(math.Floor(x + 0.5))
}

// Clamp bounds a percentage to [0,100].
func Clamp(pct int) int {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
