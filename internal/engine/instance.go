package engine

import (
	"fmt"
	"image"

	"github.com/google/uuid"

	"photofilter/internal/filter"
)

// Instance binds one filter kind to slider values and an input image.
// It is not safe for concurrent use; the engine serializes renders.
type Instance struct {
	id         uuid.UUID
	catalog    *filter.Catalog
	kind       filter.Kind
	handle     filter.Handle
	values     map[filter.Parameter]float64
	input      image.Image
	generation uint64
}

// NewInstance creates an instance of kind with default parameter values.
func NewInstance(catalog *filter.Catalog, kind filter.Kind) (*Instance, error) {
	values := make(map[filter.Parameter]float64, 3)
	for _, p := range filter.Parameters() {
		values[p] = p.Default()
	}
	return newInstance(catalog, kind, values, nil, 0)
}

func newInstance(catalog *filter.Catalog, kind filter.Kind, values map[filter.Parameter]float64, input image.Image, generation uint64) (*Instance, error) {
	handle, err := catalog.Instantiate(kind)
	if err != nil {
		return nil, err
	}
	return &Instance{
		id:         uuid.New(),
		catalog:    catalog,
		kind:       kind,
		handle:     handle,
		values:     values,
		input:      input,
		generation: generation,
	}, nil
}

func (i *Instance) ID() uuid.UUID {
	return i.id
}

func (i *Instance) Kind() filter.Kind {
	return i.kind
}

// Bind attaches or replaces the source image. It does not render.
func (i *Instance) Bind(img image.Image) {
	i.input = img
	i.generation++
}

func (i *Instance) Input() image.Image {
	return i.input
}

// SetParameter stores value even when the current kind ignores p, so that
// a later kind switch picks it up.
func (i *Instance) SetParameter(p filter.Parameter, value float64) error {
	if !p.Valid() {
		return fmt.Errorf("unknown parameter %v", p)
	}
	i.values[p] = value
	return nil
}

func (i *Instance) Parameter(p filter.Parameter) float64 {
	return i.values[p]
}

// Values returns a copy of every stored value, applicable or not.
func (i *Instance) Values() map[filter.Parameter]float64 {
	out := make(map[filter.Parameter]float64, len(i.values))
	for p, v := range i.values {
		out[p] = v
	}
	return out
}

// ApplicableParameters asks the handle which inputs it declares. The answer
// is recomputed on every call.
func (i *Instance) ApplicableParameters() filter.ParameterSet {
	return filter.ParameterSetFromKeys(i.handle.InputKeys())
}

// Handle exposes the underlying filter handle.
func (i *Instance) Handle() filter.Handle {
	return i.handle
}

// WithKind returns a new instance of kind carrying over the stored values
// and the bound input.
func (i *Instance) WithKind(kind filter.Kind) (*Instance, error) {
	next, err := newInstance(i.catalog, kind, i.Values(), i.input, i.generation)
	if err != nil {
		return nil, err
	}
	return next, nil
}
