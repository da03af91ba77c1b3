// Package native is the pure Go filter library, built on gift and bild.
package native

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/disintegration/gift"

	"photofilter/internal/filter"
)

const libraryName = "native"

// declaredKeys is what each handle reports from InputKeys.
var declaredKeys = map[filter.Kind][]string{
	filter.AreaAverage:        {filter.KeyImage, filter.KeyExtent},
	filter.Bloom:              {filter.KeyImage, filter.KeyRadius, filter.KeyIntensity},
	filter.Crystallize:        {filter.KeyImage, filter.KeyRadius, filter.KeyCenter},
	filter.Edges:              {filter.KeyImage, filter.KeyIntensity},
	filter.GaussianBlur:       {filter.KeyImage, filter.KeyRadius},
	filter.MorphologyGradient: {filter.KeyImage, filter.KeyRadius},
	filter.Pixellate:          {filter.KeyImage, filter.KeyCenter, filter.KeyScale},
	filter.SepiaTone:          {filter.KeyImage, filter.KeyIntensity},
	filter.UnsharpMask:        {filter.KeyImage, filter.KeyRadius, filter.KeyIntensity},
	filter.Vignette:           {filter.KeyImage, filter.KeyIntensity, filter.KeyRadius},
}

type Library struct {
	parallel bool
}

type Option func(*Library)

// WithParallelization toggles gift's worker fan-out for every context.
func WithParallelization(enabled bool) Option {
	return func(l *Library) {
		l.parallel = enabled
	}
}

func New(opts ...Option) *Library {
	l := &Library{parallel: true}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Library) Name() string {
	return libraryName
}

func (l *Library) NewHandle(kind filter.Kind) (filter.Handle, error) {
	render, ok := renderers[kind]
	if !ok {
		return nil, &filter.UnsupportedKindError{Kind: kind}
	}
	return &handle{
		Inputs: filter.NewInputs(kind, declaredKeys[kind]...),
		render: render,
	}, nil
}

func (l *Library) NewContext() filter.Context {
	return &Context{parallel: l.parallel}
}

// Context carries gift's execution settings between renders.
type Context struct {
	parallel bool
}

func (c *Context) Library() string {
	return libraryName
}

func (c *Context) Rasterize(img image.Image) (*image.RGBA, error) {
	if img == nil {
		return nil, fmt.Errorf("nothing to rasterize")
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst, nil
}

func (c *Context) Close() error {
	return nil
}

func (c *Context) apply(src image.Image, filters ...gift.Filter) *image.RGBA {
	g := gift.New(filters...)
	g.SetParallelization(c.parallel)
	dst := image.NewRGBA(g.Bounds(src.Bounds()))
	g.Draw(dst, src)
	return dst
}

type renderFunc func(c *Context, src image.Image, in *filter.Inputs) (image.Image, bool)

type handle struct {
	filter.Inputs
	render renderFunc
}

func (h *handle) OutputImage(ec filter.Context) (image.Image, bool) {
	c, ok := ec.(*Context)
	if !ok {
		return nil, false
	}
	src := h.Image()
	if src == nil || src.Bounds().Empty() {
		return nil, false
	}
	return h.render(c, src, &h.Inputs)
}
