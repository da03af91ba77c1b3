package filter

import (
	"fmt"
	"math"
	"strings"
)

// Input keys declared by filter handles. Only the parameter keys are
// surfaced to callers; the rest are library plumbing.
const (
	KeyImage     = "inputImage"
	KeyIntensity = "inputIntensity"
	KeyRadius    = "inputRadius"
	KeyScale     = "inputScale"
	KeyCenter    = "inputCenter"
	KeyExtent    = "inputExtent"
)

// Parameter is one of the tunable numeric inputs.
type Parameter int

const (
	Intensity Parameter = iota
	Radius
	Scale

	parameterCount
)

var parameterInfo = [parameterCount]struct {
	name     string
	key      string
	def      float64
	integral bool
}{
	Intensity: {"Intensity", KeyIntensity, 0.5, false},
	Radius:    {"Radius", KeyRadius, 100.0, true},
	Scale:     {"Scale", KeyScale, 10.0, true},
}

func (p Parameter) Valid() bool {
	return p >= 0 && p < parameterCount
}

func (p Parameter) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Parameter(%d)", int(p))
	}
	return parameterInfo[p].name
}

// Key is the input key a filter handle declares for p.
func (p Parameter) Key() string {
	if !p.Valid() {
		return ""
	}
	return parameterInfo[p].key
}

// Default is the value a fresh instance starts with.
func (p Parameter) Default() float64 {
	if !p.Valid() {
		return 0
	}
	return parameterInfo[p].def
}

// Integral reports whether handles expect an int for p.
func (p Parameter) Integral() bool {
	return p.Valid() && parameterInfo[p].integral
}

func Parameters() []Parameter {
	return []Parameter{Intensity, Radius, Scale}
}

// ParameterForKey maps a declared input key back to its parameter.
func ParameterForKey(key string) (Parameter, bool) {
	for p := Parameter(0); p < parameterCount; p++ {
		if parameterInfo[p].key == key {
			return p, true
		}
	}
	return 0, false
}

// ParameterSet is a subset of {Intensity, Radius, Scale}.
type ParameterSet uint8

func NewParameterSet(params ...Parameter) ParameterSet {
	var s ParameterSet
	for _, p := range params {
		s = s.With(p)
	}
	return s
}

// ParameterSetFromKeys intersects declared input keys with the parameter set.
func ParameterSetFromKeys(keys []string) ParameterSet {
	var s ParameterSet
	for _, key := range keys {
		if p, ok := ParameterForKey(key); ok {
			s = s.With(p)
		}
	}
	return s
}

func (s ParameterSet) With(p Parameter) ParameterSet {
	if !p.Valid() {
		return s
	}
	return s | 1<<uint(p)
}

func (s ParameterSet) Has(p Parameter) bool {
	return p.Valid() && s&(1<<uint(p)) != 0
}

func (s ParameterSet) Len() int {
	n := 0
	for _, p := range Parameters() {
		if s.Has(p) {
			n++
		}
	}
	return n
}

// List returns members in Intensity, Radius, Scale order.
func (s ParameterSet) List() []Parameter {
	out := make([]Parameter, 0, s.Len())
	for _, p := range Parameters() {
		if s.Has(p) {
			out = append(out, p)
		}
	}
	return out
}

func (s ParameterSet) String() string {
	names := make([]string, 0, 3)
	for _, p := range s.List() {
		names = append(names, p.String())
	}
	return "{" + strings.Join(names, ", ") + "}"
}

// Number extracts a numeric handle value.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		f := float64(n)
		return f, !math.IsNaN(f) && !math.IsInf(f, 0)
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
