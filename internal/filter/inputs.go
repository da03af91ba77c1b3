package filter

import (
	"fmt"
	"image"
	"slices"
)

// UnknownKeyError is returned by SetValue for keys a handle does not declare.
type UnknownKeyError struct {
	Kind Kind
	Key  string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("%s does not accept input %q", e.Kind, e.Key)
}

// Inputs is the key/value store backing library handles.
type Inputs struct {
	kind   Kind
	keys   []string
	values map[string]any
}

func NewInputs(kind Kind, keys ...string) Inputs {
	return Inputs{
		kind:   kind,
		keys:   keys,
		values: make(map[string]any, len(keys)),
	}
}

func (in *Inputs) Kind() Kind {
	return in.kind
}

func (in *Inputs) InputKeys() []string {
	return slices.Clone(in.keys)
}

func (in *Inputs) SetValue(key string, value any) error {
	if !slices.Contains(in.keys, key) {
		return &UnknownKeyError{Kind: in.kind, Key: key}
	}

	switch key {
	case KeyImage:
		img, ok := value.(image.Image)
		if !ok && value != nil {
			return fmt.Errorf("%s: %s expects an image, got %T", in.kind, key, value)
		}
		if img == nil {
			delete(in.values, key)
			return nil
		}
	case KeyCenter:
		if value == nil {
			delete(in.values, key)
			return nil
		}
		if _, ok := value.(image.Point); !ok {
			return fmt.Errorf("%s: %s expects an image.Point, got %T", in.kind, key, value)
		}
	case KeyExtent:
		if value == nil {
			delete(in.values, key)
			return nil
		}
		if _, ok := value.(image.Rectangle); !ok {
			return fmt.Errorf("%s: %s expects an image.Rectangle, got %T", in.kind, key, value)
		}
	default:
		switch value.(type) {
		case float64, float32, int, int32, int64:
		default:
			return fmt.Errorf("%s: %s expects a number, got %T", in.kind, key, value)
		}
	}

	in.values[key] = value
	return nil
}

func (in *Inputs) Value(key string) (any, bool) {
	v, ok := in.values[key]
	return v, ok
}

// Image returns the bound input image, if any.
func (in *Inputs) Image() image.Image {
	img, _ := in.values[KeyImage].(image.Image)
	return img
}

// Point reads a bound image.Point input such as KeyCenter.
func (in *Inputs) Point(key string) (image.Point, bool) {
	p, ok := in.values[key].(image.Point)
	return p, ok
}

// Rect reads a bound image.Rectangle input such as KeyExtent.
func (in *Inputs) Rect(key string) (image.Rectangle, bool) {
	r, ok := in.values[key].(image.Rectangle)
	return r, ok
}

// Float reads a numeric input, falling back to def when unset.
func (in *Inputs) Float(key string, def float64) (float64, bool) {
	v, ok := in.values[key]
	if !ok {
		return def, true
	}
	return Number(v)
}

// Int reads a numeric input truncated toward zero.
func (in *Inputs) Int(key string, def int) (int, bool) {
	f, ok := in.Float(key, float64(def))
	if !ok {
		return 0, false
	}
	return int(f), true
}
