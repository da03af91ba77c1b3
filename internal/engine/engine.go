// Package engine renders filter instances and keeps the latest result.
package engine

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"photofilter/internal/filter"
	"photofilter/internal/logger"
)

const component = "FilterEngine"

// RenderResult is one materialized filter output.
type RenderResult struct {
	ID         uuid.UUID
	InstanceID uuid.UUID
	Kind       filter.Kind
	Image      *image.RGBA
	Parameters filter.ParameterSet
	Applied    map[filter.Parameter]any
	Duration   time.Duration
	RenderedAt time.Time
}

// clone copies the pixels and the applied values so callers never share
// the engine's retained result.
func (r *RenderResult) clone() *RenderResult {
	out := *r
	out.Image = &image.RGBA{
		Pix:    append([]uint8(nil), r.Image.Pix...),
		Stride: r.Image.Stride,
		Rect:   r.Image.Rect,
	}
	out.Applied = make(map[filter.Parameter]any, len(r.Applied))
	for p, v := range r.Applied {
		out.Applied[p] = v
	}
	return &out
}

// renderKey identifies everything that determines a render's pixels.
type renderKey struct {
	instance   uuid.UUID
	generation uint64
	kind       filter.Kind
	parameters filter.ParameterSet
	applied    [3]any
}

type Engine struct {
	catalog *filter.Catalog
	ec      filter.Context
	coerce  Coercion
	log     logger.Logger

	mu      sync.Mutex
	last    *RenderResult
	lastKey renderKey
	renders uint64
	hits    uint64
}

type Option func(*Engine)

func WithLogger(log logger.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithCoercion replaces TruncateIntegral.
func WithCoercion(c Coercion) Option {
	return func(e *Engine) {
		e.coerce = c
	}
}

// New creates an engine that owns one execution context from catalog.
func New(catalog *filter.Catalog, opts ...Option) *Engine {
	e := &Engine{
		catalog: catalog,
		coerce:  TruncateIntegral,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.ec = catalog.NewContext()
	return e
}

func (e *Engine) Catalog() *filter.Catalog {
	return e.catalog
}

// NewInstance creates a default instance of kind.
func (e *Engine) NewInstance(kind filter.Kind) (*Instance, error) {
	inst, err := NewInstance(e.catalog, kind)
	if err != nil {
		return nil, err
	}
	e.log.Debug(component, "instance created", map[string]interface{}{
		"instance": inst.ID().String(),
		"kind":     kind.String(),
	})
	return inst, nil
}

// Select swaps inst for a new instance of kind that keeps the slider values.
func (e *Engine) Select(inst *Instance, kind filter.Kind) (*Instance, error) {
	next, err := inst.WithKind(kind)
	if err != nil {
		return nil, err
	}
	e.log.Debug(component, "filter switched", map[string]interface{}{
		"from":       inst.Kind().String(),
		"to":         kind.String(),
		"applicable": next.ApplicableParameters().String(),
	})
	return next, nil
}

// Last returns a copy of the most recent successful result, or nil.
func (e *Engine) Last() *RenderResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.last == nil {
		return nil
	}
	return e.last.clone()
}

// Render applies inst's applicable values to its handle and materializes the
// output. On failure the previous result is left in place. Every call returns
// its own copy of the result.
func (e *Engine) Render(ctx context.Context, inst *Instance) (*RenderResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if inst == nil {
		return nil, fmt.Errorf("render: nil instance")
	}
	if inst.Input() == nil {
		return nil, ErrNoInputBound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	params := inst.ApplicableParameters()
	applied := make(map[filter.Parameter]any, params.Len())
	key := renderKey{
		instance:   inst.ID(),
		generation: inst.generation,
		kind:       inst.Kind(),
		parameters: params,
	}
	for _, p := range params.List() {
		v := e.coerce(p, inst.Parameter(p))
		applied[p] = v
		key.applied[p] = v
	}

	if e.last != nil && e.lastKey == key {
		e.hits++
		e.log.Debug(component, "render reused", map[string]interface{}{
			"kind":   inst.Kind().String(),
			"result": e.last.ID.String(),
		})
		return e.last.clone(), nil
	}

	handle := inst.Handle()
	if err := handle.SetValue(filter.KeyImage, inst.Input()); err != nil {
		return nil, e.unavailable(inst, applied, "input rejected", err)
	}
	for _, p := range params.List() {
		if err := handle.SetValue(p.Key(), applied[p]); err != nil {
			return nil, e.unavailable(inst, applied, p.String()+" rejected", err)
		}
	}

	out, ok := handle.OutputImage(e.ec)
	if !ok || out == nil {
		return nil, e.unavailable(inst, applied, "filter produced no output", nil)
	}

	raster, err := e.ec.Rasterize(out)
	if err != nil {
		return nil, e.unavailable(inst, applied, "rasterize", err)
	}

	result := &RenderResult{
		ID:         uuid.New(),
		InstanceID: inst.ID(),
		Kind:       inst.Kind(),
		Image:      raster,
		Parameters: params,
		Applied:    applied,
		Duration:   time.Since(start),
		RenderedAt: time.Now(),
	}
	e.last = result
	e.lastKey = key
	e.renders++

	b := raster.Bounds()
	e.log.Info(component, "render complete", map[string]interface{}{
		"kind":       inst.Kind().String(),
		"library":    e.ec.Library(),
		"applicable": params.String(),
		"size":       fmt.Sprintf("%dx%d", b.Dx(), b.Dy()),
		"bytes":      humanize.IBytes(uint64(len(raster.Pix))),
		"duration":   result.Duration.String(),
	})

	return result.clone(), nil
}

func (e *Engine) unavailable(inst *Instance, applied map[filter.Parameter]any, reason string, err error) error {
	rerr := &RenderUnavailableError{
		Kind:    inst.Kind(),
		Applied: applied,
		Reason:  reason,
		Err:     err,
	}
	e.log.Warning(component, "render unavailable", map[string]interface{}{
		"kind":   inst.Kind().String(),
		"reason": rerr.Error(),
	})
	return rerr
}

// Stats reports completed renders and cache hits.
func (e *Engine) Stats() (renders, reused uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.renders, e.hits
}

// Close releases the execution context.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ec.Close()
}
