package engine

import "photofilter/internal/filter"

// Coercion turns a stored slider value into what a handle receives.
type Coercion func(p filter.Parameter, value float64) any

// TruncateIntegral keeps Intensity continuous and truncates Radius and Scale
// toward zero, so 100.7 is applied as 100.
func TruncateIntegral(p filter.Parameter, value float64) any {
	if p.Integral() {
		return int(value)
	}
	return value
}

// PreserveFloat hands every value through unchanged.
func PreserveFloat(_ filter.Parameter, value float64) any {
	return value
}
