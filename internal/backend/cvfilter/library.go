// Package cvfilter implements the filter library on OpenCV through gocv.
package cvfilter

import (
	"fmt"
	"image"
	"image/draw"

	"photofilter/internal/filter"
	"photofilter/internal/logger"
	"photofilter/internal/opencv/conversion"
	"photofilter/internal/opencv/memory"
	"photofilter/internal/opencv/safe"
)

const libraryName = "opencv"

// OpenCV averages the whole Mat and resizes from the corner, so AreaAverage
// declares no extent and Pixellate no center.
var declaredKeys = map[filter.Kind][]string{
	filter.AreaAverage:        {filter.KeyImage},
	filter.Bloom:              {filter.KeyImage, filter.KeyRadius, filter.KeyIntensity},
	filter.Crystallize:        {filter.KeyImage, filter.KeyRadius, filter.KeyCenter},
	filter.Edges:              {filter.KeyImage, filter.KeyIntensity},
	filter.GaussianBlur:       {filter.KeyImage, filter.KeyRadius},
	filter.MorphologyGradient: {filter.KeyImage, filter.KeyRadius},
	filter.Pixellate:          {filter.KeyImage, filter.KeyScale},
	filter.SepiaTone:          {filter.KeyImage, filter.KeyIntensity},
	filter.UnsharpMask:        {filter.KeyImage, filter.KeyRadius, filter.KeyIntensity},
	filter.Vignette:           {filter.KeyImage, filter.KeyIntensity, filter.KeyRadius},
}

type Library struct {
	log logger.Logger
}

func New(log logger.Logger) *Library {
	return &Library{log: log}
}

func (l *Library) Name() string {
	return libraryName
}

func (l *Library) NewHandle(kind filter.Kind) (filter.Handle, error) {
	apply, ok := appliers[kind]
	if !ok {
		return nil, &filter.UnsupportedKindError{Kind: kind}
	}
	return &handle{
		Inputs: filter.NewInputs(kind, declaredKeys[kind]...),
		apply:  apply,
		log:    l.log,
	}, nil
}

// NewContext creates a context with its own Mat pool.
func (l *Library) NewContext() filter.Context {
	return &Context{mem: memory.NewManager(l.log), log: l.log}
}

type Context struct {
	mem *memory.Manager
	log logger.Logger
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

func (c *Context) Stats() memory.Stats {
	return c.mem.GetStats()
}

func (c *Context) Close() error {
	c.mem.Cleanup()
	return nil
}

// scratch allocates a destination shaped like src.
func (c *Context) scratch(src *safe.Mat) (*safe.Mat, error) {
	return c.mem.GetMat(src.Rows(), src.Cols(), src.Type())
}

// applyFunc returns a Mat owned by the caller, or false when the inputs
// cannot produce an image.
type applyFunc func(c *Context, src *safe.Mat, in *filter.Inputs) (*safe.Mat, bool, error)

type handle struct {
	filter.Inputs
	apply applyFunc
	log   logger.Logger
}

func (h *handle) OutputImage(ec filter.Context) (image.Image, bool) {
	c, ok := ec.(*Context)
	if !ok {
		return nil, false
	}
	img := h.Image()
	if img == nil || img.Bounds().Empty() {
		return nil, false
	}

	src, err := conversion.ImageToMat(img, "input")
	if err != nil {
		h.log.Error("OpenCVFilter", err, map[string]interface{}{"kind": h.Kind().String()})
		return nil, false
	}
	defer src.Close()

	out, ok, err := h.apply(c, src, &h.Inputs)
	if err != nil {
		h.log.Error("OpenCVFilter", err, map[string]interface{}{"kind": h.Kind().String()})
		return nil, false
	}
	if !ok {
		return nil, false
	}
	defer c.mem.ReleaseMat(out)

	result, err := conversion.MatToImage(out)
	if err != nil {
		h.log.Error("OpenCVFilter", err, map[string]interface{}{"kind": h.Kind().String()})
		return nil, false
	}
	return result, true
}
