package filter

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLibrary struct{}

func (stubLibrary) Name() string { return "stub" }

func (stubLibrary) NewHandle(kind Kind) (Handle, error) {
	in := NewInputs(kind, KeyImage, KeyRadius)
	return &stubHandle{Inputs: in}, nil
}

func (stubLibrary) NewContext() Context { return nil }

type stubHandle struct {
	Inputs
}

func (h *stubHandle) OutputImage(Context) (image.Image, bool) { return h.Image(), h.Image() != nil }

func TestKindsOrderIsStable(t *testing.T) {
	want := []Kind{
		AreaAverage, Bloom, Crystallize, Edges, GaussianBlur,
		MorphologyGradient, Pixellate, SepiaTone, UnsharpMask, Vignette,
	}
	require.Equal(t, want, Kinds())
	require.Equal(t, Kinds(), NewCatalog(stubLibrary{}).Kinds())
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("gaussianblur")
	require.NoError(t, err)
	require.Equal(t, GaussianBlur, k)

	k, err = ParseKind(" SepiaTone ")
	require.NoError(t, err)
	require.Equal(t, SepiaTone, k)

	_, err = ParseKind("Posterize")
	require.Error(t, err)
}

func TestCatalogRejectsOutOfRangeKind(t *testing.T) {
	c := NewCatalog(stubLibrary{})

	_, err := c.Instantiate(Kind(42))
	var unsupported *UnsupportedKindError
	require.ErrorAs(t, err, &unsupported)
	require.Equal(t, Kind(42), unsupported.Kind)

	_, err = c.Instantiate(Kind(-1))
	require.ErrorAs(t, err, &unsupported)

	h, err := c.Instantiate(Vignette)
	require.NoError(t, err)
	require.Equal(t, Vignette, h.Kind())
}

func TestParameterDefaults(t *testing.T) {
	assert.Equal(t, 0.5, Intensity.Default())
	assert.Equal(t, 100.0, Radius.Default())
	assert.Equal(t, 10.0, Scale.Default())

	assert.False(t, Intensity.Integral())
	assert.True(t, Radius.Integral())
	assert.True(t, Scale.Integral())
}

func TestParameterSetFromKeys(t *testing.T) {
	s := ParameterSetFromKeys([]string{KeyImage, KeyCenter, KeyScale, KeyIntensity, "inputColor"})

	assert.True(t, s.Has(Intensity))
	assert.False(t, s.Has(Radius))
	assert.True(t, s.Has(Scale))
	assert.Equal(t, []Parameter{Intensity, Scale}, s.List())
	assert.Equal(t, "{Intensity, Scale}", s.String())
	assert.Equal(t, 0, ParameterSetFromKeys(nil).Len())
}

func TestInputsSetValue(t *testing.T) {
	in := NewInputs(GaussianBlur, KeyImage, KeyRadius)

	require.NoError(t, in.SetValue(KeyRadius, 12))
	r, ok := in.Int(KeyRadius, 0)
	require.True(t, ok)
	require.Equal(t, 12, r)

	var unknown *UnknownKeyError
	require.ErrorAs(t, in.SetValue(KeyIntensity, 0.3), &unknown)
	require.Equal(t, KeyIntensity, unknown.Key)

	require.Error(t, in.SetValue(KeyRadius, "wide"))
	require.Error(t, in.SetValue(KeyImage, 3))

	img := image.NewGray(image.Rect(0, 0, 2, 2))
	require.NoError(t, in.SetValue(KeyImage, img))
	require.Same(t, img, in.Image())

	require.NoError(t, in.SetValue(KeyImage, nil))
	require.Nil(t, in.Image())
}

func TestInputsGeometryValues(t *testing.T) {
	in := NewInputs(AreaAverage, KeyImage, KeyExtent, KeyCenter)

	_, ok := in.Rect(KeyExtent)
	require.False(t, ok)

	require.Error(t, in.SetValue(KeyExtent, 4.0))
	require.Error(t, in.SetValue(KeyCenter, image.Rect(0, 0, 1, 1)))

	require.NoError(t, in.SetValue(KeyExtent, image.Rect(1, 1, 3, 3)))
	extent, ok := in.Rect(KeyExtent)
	require.True(t, ok)
	require.Equal(t, image.Rect(1, 1, 3, 3), extent)

	require.NoError(t, in.SetValue(KeyCenter, image.Pt(5, 7)))
	center, ok := in.Point(KeyCenter)
	require.True(t, ok)
	require.Equal(t, image.Pt(5, 7), center)

	require.NoError(t, in.SetValue(KeyCenter, nil))
	_, ok = in.Point(KeyCenter)
	require.False(t, ok)
}

func TestInputsFloatRejectsNonFinite(t *testing.T) {
	in := NewInputs(Bloom, KeyIntensity)

	v, ok := in.Float(KeyIntensity, 0.25)
	require.True(t, ok)
	require.Equal(t, 0.25, v)

	require.NoError(t, in.SetValue(KeyIntensity, math.NaN()))
	_, ok = in.Float(KeyIntensity, 0.25)
	require.False(t, ok)
}

func TestInputKeysReturnsCopy(t *testing.T) {
	in := NewInputs(Edges, KeyImage, KeyIntensity)
	keys := in.InputKeys()
	keys[0] = "mutated"
	require.Equal(t, []string{KeyImage, KeyIntensity}, in.InputKeys())
}
