package filter

import (
	"fmt"
	"strings"
)

// Kind identifies one supported filter. The set is closed.
type Kind int

const (
	AreaAverage Kind = iota
	Bloom
	Crystallize
	Edges
	GaussianBlur
	MorphologyGradient
	Pixellate
	SepiaTone
	UnsharpMask
	Vignette

	kindCount
)

var kindNames = [kindCount]string{
	AreaAverage:        "AreaAverage",
	Bloom:              "Bloom",
	Crystallize:        "Crystallize",
	Edges:              "Edges",
	GaussianBlur:       "GaussianBlur",
	MorphologyGradient: "MorphologyGradient",
	Pixellate:          "Pixellate",
	SepiaTone:          "SepiaTone",
	UnsharpMask:        "UnsharpMask",
	Vignette:           "Vignette",
}

func (k Kind) Valid() bool {
	return k >= 0 && k < kindCount
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Kinds returns every kind in menu order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// ParseKind resolves a kind by name, ignoring case.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown filter %q", name)
}

// UnsupportedKindError reports a Kind value outside the closed set.
type UnsupportedKindError struct {
	Kind Kind
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("unsupported filter kind %d", int(e.Kind))
}
