package cvfilter

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"

	"photofilter/internal/filter"
	"photofilter/internal/logger"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestAreaAverageDeclaresNoParameters(t *testing.T) {
	h, err := New(logger.Nop()).NewHandle(filter.AreaAverage)
	require.NoError(t, err)
	require.Zero(t, filter.ParameterSetFromKeys(h.InputKeys()).Len())
}

func TestGaussianBlurOfUniformImage(t *testing.T) {
	lib := New(logger.Nop())
	ec := lib.NewContext()
	defer ec.Close()

	gray := color.RGBA{R: 128, G: 128, B: 128, A: 255}
	h, err := lib.NewHandle(filter.GaussianBlur)
	require.NoError(t, err)
	require.NoError(t, h.SetValue(filter.KeyImage, solid(4, 4, gray)))
	require.NoError(t, h.SetValue(filter.KeyRadius, 1))

	out, ok := h.OutputImage(ec)
	require.True(t, ok)

	rgba, err := ec.Rasterize(out)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 4, 4), rgba.Bounds())
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			require.Equal(t, gray, rgba.RGBAAt(x, y))
		}
	}
}

func TestPoolRecyclesScratchMats(t *testing.T) {
	lib := New(logger.Nop())
	ec := lib.NewContext().(*Context)
	defer ec.Close()

	h, err := lib.NewHandle(filter.SepiaTone)
	require.NoError(t, err)
	require.NoError(t, h.SetValue(filter.KeyImage, solid(8, 8, color.RGBA{R: 10, G: 200, B: 30, A: 255})))

	for i := 0; i < 3; i++ {
		_, ok := h.OutputImage(ec)
		require.True(t, ok)
	}

	stats := ec.Stats()
	require.Zero(t, stats.ActiveMats)
	require.Positive(t, stats.PoolHits)
}

func TestPixellateRejectsZeroScale(t *testing.T) {
	lib := New(logger.Nop())
	ec := lib.NewContext()
	defer ec.Close()

	h, err := lib.NewHandle(filter.Pixellate)
	require.NoError(t, err)
	require.NoError(t, h.SetValue(filter.KeyImage, solid(4, 4, color.RGBA{A: 255})))
	require.NoError(t, h.SetValue(filter.KeyScale, 0))

	_, ok := h.OutputImage(ec)
	require.False(t, ok)
}

func TestPixellateDeclaresNoCenter(t *testing.T) {
	h, err := New(logger.Nop()).NewHandle(filter.Pixellate)
	require.NoError(t, err)
	require.NotContains(t, h.InputKeys(), filter.KeyCenter)
	require.Error(t, h.SetValue(filter.KeyCenter, image.Pt(1, 1)))
}
