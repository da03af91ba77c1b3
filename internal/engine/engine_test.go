package engine

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photofilter/internal/backend/native"
	"photofilter/internal/filter"
)

// recordingLibrary declares Radius and Intensity for every kind and echoes
// the input image, counting how often output is pulled.
type recordingLibrary struct {
	pulls   int
	decline bool
}

func (l *recordingLibrary) Name() string { return "recording" }

func (l *recordingLibrary) NewHandle(kind filter.Kind) (filter.Handle, error) {
	keys := []string{filter.KeyImage, filter.KeyRadius, filter.KeyIntensity}
	if kind == filter.Pixellate {
		keys = []string{filter.KeyImage, filter.KeyScale}
	}
	return &recordingHandle{Inputs: filter.NewInputs(kind, keys...), lib: l}, nil
}

func (l *recordingLibrary) NewContext() filter.Context { return native.New().NewContext() }

type recordingHandle struct {
	filter.Inputs
	lib *recordingLibrary
}

func (h *recordingHandle) OutputImage(filter.Context) (image.Image, bool) {
	h.lib.pulls++
	if h.lib.decline || h.Image() == nil {
		return nil, false
	}
	return h.Image(), true
}

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 20), G: uint8(y * 20), B: 60, A: 255})
		}
	}
	return img
}

func nativeEngine() *Engine {
	return New(filter.NewCatalog(native.New()))
}

func TestApplicableParametersAreStableSubsets(t *testing.T) {
	e := nativeEngine()
	for _, kind := range e.Catalog().Kinds() {
		inst, err := e.NewInstance(kind)
		require.NoError(t, err)

		first := inst.ApplicableParameters()
		for _, p := range first.List() {
			require.Contains(t, filter.Parameters(), p)
		}
		for i := 0; i < 3; i++ {
			require.Equal(t, first, inst.ApplicableParameters(), kind.String())
		}
	}
}

func TestNewInstanceDefaults(t *testing.T) {
	inst, err := nativeEngine().NewInstance(filter.Bloom)
	require.NoError(t, err)

	assert.Equal(t, 0.5, inst.Parameter(filter.Intensity))
	assert.Equal(t, 100.0, inst.Parameter(filter.Radius))
	assert.Equal(t, 10.0, inst.Parameter(filter.Scale))
	assert.Nil(t, inst.Input())
}

func TestRenderWithoutInput(t *testing.T) {
	e := nativeEngine()
	inst, err := e.NewInstance(filter.SepiaTone)
	require.NoError(t, err)

	result, err := e.Render(context.Background(), inst)
	require.ErrorIs(t, err, ErrNoInputBound)
	require.Nil(t, result)
	require.Nil(t, e.Last())
}

func TestRenderIsIdempotent(t *testing.T) {
	e := nativeEngine()
	inst, err := e.NewInstance(filter.UnsharpMask)
	require.NoError(t, err)
	inst.Bind(gradient(10, 8))
	require.NoError(t, inst.SetParameter(filter.Radius, 2))

	a, err := e.Render(context.Background(), inst)
	require.NoError(t, err)
	b, err := e.Render(context.Background(), inst)
	require.NoError(t, err)
	require.Equal(t, a.ID, b.ID)

	renders, reused := e.Stats()
	require.Equal(t, uint64(1), renders)
	require.Equal(t, uint64(1), reused)

	// A second engine recomputes from scratch and must agree pixel for pixel.
	c, err := nativeEngine().Render(context.Background(), inst)
	require.NoError(t, err)
	require.Equal(t, a.Image.Pix, c.Image.Pix)
}

func TestRenderResultsAreNotShared(t *testing.T) {
	e := nativeEngine()
	inst, err := e.NewInstance(filter.SepiaTone)
	require.NoError(t, err)
	inst.Bind(gradient(6, 4))

	first, err := e.Render(context.Background(), inst)
	require.NoError(t, err)
	want := append([]uint8(nil), first.Image.Pix...)

	first.Image.Pix[0] ^= 0xFF
	first.Applied[filter.Intensity] = 99.0

	again, err := e.Render(context.Background(), inst)
	require.NoError(t, err)
	require.Equal(t, want, again.Image.Pix)
	require.Equal(t, 0.5, again.Applied[filter.Intensity])
	require.Equal(t, want, e.Last().Image.Pix)

	_, reused := e.Stats()
	require.Equal(t, uint64(1), reused)
}

func TestRenderRecomputesAfterChange(t *testing.T) {
	lib := &recordingLibrary{}
	e := New(filter.NewCatalog(lib))
	inst, err := e.NewInstance(filter.Bloom)
	require.NoError(t, err)
	inst.Bind(gradient(4, 4))

	_, err = e.Render(context.Background(), inst)
	require.NoError(t, err)
	_, err = e.Render(context.Background(), inst)
	require.NoError(t, err)
	require.Equal(t, 1, lib.pulls)

	require.NoError(t, inst.SetParameter(filter.Intensity, 0.9))
	_, err = e.Render(context.Background(), inst)
	require.NoError(t, err)
	require.Equal(t, 2, lib.pulls)

	inst.Bind(gradient(4, 4))
	_, err = e.Render(context.Background(), inst)
	require.NoError(t, err)
	require.Equal(t, 3, lib.pulls)
}

func TestSwitchingKindPreservesValues(t *testing.T) {
	e := nativeEngine()
	sepia, err := e.NewInstance(filter.SepiaTone)
	require.NoError(t, err)
	sepia.Bind(gradient(6, 6))
	require.NoError(t, sepia.SetParameter(filter.Intensity, 0.8))

	vignette, err := e.Select(sepia, filter.Vignette)
	require.NoError(t, err)
	require.NotEqual(t, sepia.ID(), vignette.ID())
	require.Equal(t, 0.8, vignette.Parameter(filter.Intensity))
	require.Same(t, sepia.Input(), vignette.Input())
	require.True(t, vignette.ApplicableParameters().Has(filter.Intensity))

	_, err = e.Render(context.Background(), vignette)
	require.NoError(t, err)

	bound, ok := vignette.Handle().Value(filter.KeyIntensity)
	require.True(t, ok)
	require.Equal(t, 0.8, bound)
}

func TestRadiusIsTruncatedBeforeBinding(t *testing.T) {
	e := New(filter.NewCatalog(&recordingLibrary{}))
	inst, err := e.NewInstance(filter.GaussianBlur)
	require.NoError(t, err)
	inst.Bind(gradient(3, 3))
	require.NoError(t, inst.SetParameter(filter.Radius, 100.7))

	result, err := e.Render(context.Background(), inst)
	require.NoError(t, err)

	bound, ok := inst.Handle().Value(filter.KeyRadius)
	require.True(t, ok)
	require.Equal(t, 100, bound)
	require.Equal(t, 100, result.Applied[filter.Radius])
	require.Equal(t, 100.7, inst.Parameter(filter.Radius))
}

func TestScaleIsTruncatedBeforeBinding(t *testing.T) {
	e := New(filter.NewCatalog(&recordingLibrary{}))
	inst, err := e.NewInstance(filter.Pixellate)
	require.NoError(t, err)
	inst.Bind(gradient(3, 3))
	require.NoError(t, inst.SetParameter(filter.Scale, 7.99))

	_, err = e.Render(context.Background(), inst)
	require.NoError(t, err)

	bound, _ := inst.Handle().Value(filter.KeyScale)
	require.Equal(t, 7, bound)
}

func TestPreserveFloatCoercion(t *testing.T) {
	e := New(filter.NewCatalog(&recordingLibrary{}), WithCoercion(PreserveFloat))
	inst, err := e.NewInstance(filter.GaussianBlur)
	require.NoError(t, err)
	inst.Bind(gradient(3, 3))
	require.NoError(t, inst.SetParameter(filter.Radius, 2.5))

	_, err = e.Render(context.Background(), inst)
	require.NoError(t, err)

	bound, _ := inst.Handle().Value(filter.KeyRadius)
	require.Equal(t, 2.5, bound)
}

func TestUnhonoredParameterIsRetainedButNotApplied(t *testing.T) {
	e := nativeEngine()
	inst, err := e.NewInstance(filter.GaussianBlur)
	require.NoError(t, err)
	inst.Bind(gradient(5, 5))
	require.NoError(t, inst.SetParameter(filter.Scale, 3))
	require.NoError(t, inst.SetParameter(filter.Radius, 1))

	result, err := e.Render(context.Background(), inst)
	require.NoError(t, err)
	require.NotContains(t, result.Applied, filter.Scale)
	require.Equal(t, 3.0, inst.Parameter(filter.Scale))

	_, ok := inst.Handle().Value(filter.KeyScale)
	require.False(t, ok)
}

func TestSetParameterRejectsUnknownName(t *testing.T) {
	inst, err := nativeEngine().NewInstance(filter.Edges)
	require.NoError(t, err)
	require.Error(t, inst.SetParameter(filter.Parameter(7), 1))
}

func TestGaussianBlurOfSolidGrayScenario(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range src.Pix {
		src.Pix[i] = 128
	}

	e := nativeEngine()
	inst, err := e.NewInstance(filter.GaussianBlur)
	require.NoError(t, err)
	inst.Bind(src)
	require.NoError(t, inst.SetParameter(filter.Radius, 1))

	result, err := e.Render(context.Background(), inst)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 4, 4), result.Image.Bounds())

	first := result.Image.RGBAAt(0, 0)
	assert.InDelta(t, 128, int(first.R), 1)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			require.Equal(t, first, result.Image.RGBAAt(x, y))
		}
	}
}

func TestRenderUnavailableKeepsPreviousResult(t *testing.T) {
	e := nativeEngine()
	inst, err := e.NewInstance(filter.Pixellate)
	require.NoError(t, err)
	inst.Bind(gradient(8, 8))
	require.NoError(t, inst.SetParameter(filter.Scale, 2))

	good, err := e.Render(context.Background(), inst)
	require.NoError(t, err)

	require.NoError(t, inst.SetParameter(filter.Scale, 0.4))
	result, err := e.Render(context.Background(), inst)
	require.Nil(t, result)
	require.ErrorIs(t, err, ErrRenderUnavailable)

	var unavailable *RenderUnavailableError
	require.True(t, errors.As(err, &unavailable))
	require.Equal(t, filter.Pixellate, unavailable.Kind)
	require.Equal(t, 0, unavailable.Applied[filter.Scale])

	last := e.Last()
	require.Equal(t, good.ID, last.ID)
	require.Equal(t, good.Image.Pix, last.Image.Pix)

	require.NoError(t, inst.SetParameter(filter.Scale, 4))
	_, err = e.Render(context.Background(), inst)
	require.NoError(t, err)
}

func TestDecliningLibrary(t *testing.T) {
	e := New(filter.NewCatalog(&recordingLibrary{decline: true}))
	inst, err := e.NewInstance(filter.Edges)
	require.NoError(t, err)
	inst.Bind(gradient(2, 2))

	_, err = e.Render(context.Background(), inst)
	require.ErrorIs(t, err, ErrRenderUnavailable)
	require.Nil(t, e.Last())
}

func TestUnsupportedKind(t *testing.T) {
	_, err := nativeEngine().NewInstance(filter.Kind(-3))
	var unsupported *filter.UnsupportedKindError
	require.ErrorAs(t, err, &unsupported)
}

func TestRenderHonorsCancelledContext(t *testing.T) {
	e := nativeEngine()
	inst, err := e.NewInstance(filter.SepiaTone)
	require.NoError(t, err)
	inst.Bind(gradient(2, 2))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Render(ctx, inst)
	require.ErrorIs(t, err, context.Canceled)
}

func TestTruncateIntegral(t *testing.T) {
	assert.Equal(t, 0.75, TruncateIntegral(filter.Intensity, 0.75))
	assert.Equal(t, 100, TruncateIntegral(filter.Radius, 100.7))
	assert.Equal(t, 9, TruncateIntegral(filter.Scale, 9.2))
}
