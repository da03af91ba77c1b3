package native

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/anthonynsimon/bild/blend"
	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/gift"

	"photofilter/internal/backend/cells"
	"photofilter/internal/filter"
)

// edgeGain scales the Sobel magnitude before Intensity is applied.
const edgeGain = 4.0

var renderers = map[filter.Kind]renderFunc{
	filter.AreaAverage:        renderAreaAverage,
	filter.Bloom:              renderBloom,
	filter.Crystallize:        renderCrystallize,
	filter.Edges:              renderEdges,
	filter.GaussianBlur:       renderGaussianBlur,
	filter.MorphologyGradient: renderMorphologyGradient,
	filter.Pixellate:          renderPixellate,
	filter.SepiaTone:          renderSepiaTone,
	filter.UnsharpMask:        renderUnsharpMask,
	filter.Vignette:           renderVignette,
}

// renderAreaAverage means the pixels inside inputExtent, or the whole image
// when no extent is bound.
func renderAreaAverage(c *Context, src image.Image, in *filter.Inputs) (image.Image, bool) {
	region := src.Bounds()
	if extent, ok := in.Rect(filter.KeyExtent); ok {
		region = region.Intersect(extent)
	}
	if region.Empty() {
		return nil, false
	}

	rgba, err := c.Rasterize(src)
	if err != nil {
		return nil, false
	}
	region = region.Sub(src.Bounds().Min)

	var r, g, b, a uint64
	for y := region.Min.Y; y < region.Max.Y; y++ {
		row := rgba.Pix[rgba.PixOffset(region.Min.X, y):rgba.PixOffset(region.Max.X, y)]
		for i := 0; i < len(row); i += 4 {
			r += uint64(row[i])
			g += uint64(row[i+1])
			b += uint64(row[i+2])
			a += uint64(row[i+3])
		}
	}
	n := uint64(region.Dx() * region.Dy())

	out := image.NewRGBA(image.Rect(0, 0, 1, 1))
	out.SetRGBA(0, 0, color.RGBA{
		R: uint8((r + n/2) / n),
		G: uint8((g + n/2) / n),
		B: uint8((b + n/2) / n),
		A: uint8((a + n/2) / n),
	})
	return out, true
}

func renderBloom(_ *Context, src image.Image, in *filter.Inputs) (image.Image, bool) {
	radius, ok := in.Int(filter.KeyRadius, int(filter.Radius.Default()))
	if !ok || radius < 0 {
		return nil, false
	}
	intensity, ok := in.Float(filter.KeyIntensity, filter.Intensity.Default())
	if !ok {
		return nil, false
	}

	glow := blend.Lighten(src, blur.Gaussian(src, float64(radius)))
	return blend.Opacity(src, glow, clampUnit(intensity)), true
}

func renderCrystallize(_ *Context, src image.Image, in *filter.Inputs) (image.Image, bool) {
	radius, ok := in.Int(filter.KeyRadius, int(filter.Radius.Default()))
	if !ok || radius < 1 {
		return nil, false
	}
	if center, ok := in.Point(filter.KeyCenter); ok {
		return cells.CrystallizeAt(src, radius, cellAnchor(center, radius)), true
	}
	return cells.Crystallize(src, radius), true
}

// cellAnchor is the corner of the grid cell centered on center.
func cellAnchor(center image.Point, size int) image.Point {
	return center.Sub(image.Pt(size/2, size/2))
}

func renderEdges(c *Context, src image.Image, in *filter.Inputs) (image.Image, bool) {
	intensity, ok := in.Float(filter.KeyIntensity, filter.Intensity.Default())
	if !ok || intensity < 0 {
		return nil, false
	}

	gain := float32(intensity * edgeGain)
	return c.apply(src,
		gift.Sobel(),
		gift.ColorFunc(func(r0, g0, b0, _ float32) (float32, float32, float32, float32) {
			return r0 * gain, g0 * gain, b0 * gain, 1
		}),
	), true
}

func renderGaussianBlur(c *Context, src image.Image, in *filter.Inputs) (image.Image, bool) {
	radius, ok := in.Int(filter.KeyRadius, int(filter.Radius.Default()))
	if !ok || radius < 0 {
		return nil, false
	}
	if radius == 0 {
		return src, true
	}
	return c.apply(src, gift.GaussianBlur(float32(radius))), true
}

func renderMorphologyGradient(c *Context, src image.Image, in *filter.Inputs) (image.Image, bool) {
	radius, ok := in.Int(filter.KeyRadius, int(filter.Radius.Default()))
	if !ok || radius < 0 {
		return nil, false
	}

	rgba, err := c.Rasterize(src)
	if err != nil {
		return nil, false
	}
	dilated := squareRank(rgba, radius, true, c.parallel)
	eroded := squareRank(rgba, radius, false, c.parallel)
	return blend.Difference(dilated, eroded), true
}

func renderPixellate(c *Context, src image.Image, in *filter.Inputs) (image.Image, bool) {
	scale, ok := in.Int(filter.KeyScale, int(filter.Scale.Default()))
	if !ok || scale < 1 {
		return nil, false
	}
	center, ok := in.Point(filter.KeyCenter)
	if !ok {
		return c.apply(src, gift.Pixelate(scale)), true
	}

	rgba, err := c.Rasterize(src)
	if err != nil {
		return nil, false
	}
	return pixellateAt(rgba, scale, cellAnchor(center, scale).Sub(src.Bounds().Min)), true
}

func renderSepiaTone(c *Context, src image.Image, in *filter.Inputs) (image.Image, bool) {
	intensity, ok := in.Float(filter.KeyIntensity, filter.Intensity.Default())
	if !ok {
		return nil, false
	}
	return c.apply(src, gift.Sepia(float32(clampUnit(intensity)*100))), true
}

func renderUnsharpMask(c *Context, src image.Image, in *filter.Inputs) (image.Image, bool) {
	radius, ok := in.Int(filter.KeyRadius, int(filter.Radius.Default()))
	if !ok || radius < 0 {
		return nil, false
	}
	intensity, ok := in.Float(filter.KeyIntensity, filter.Intensity.Default())
	if !ok || intensity < 0 {
		return nil, false
	}
	if radius == 0 {
		return src, true
	}
	return c.apply(src, gift.UnsharpMask(float32(radius), float32(intensity), 0)), true
}

func renderVignette(c *Context, src image.Image, in *filter.Inputs) (image.Image, bool) {
	radius, ok := in.Int(filter.KeyRadius, int(filter.Radius.Default()))
	if !ok || radius < 0 {
		return nil, false
	}
	intensity, ok := in.Float(filter.KeyIntensity, filter.Intensity.Default())
	if !ok {
		return nil, false
	}
	return c.apply(src, &vignetteFilter{radius: float64(radius), intensity: intensity}), true
}

// vignetteFilter leaves a disc of the given radius around the center intact
// and darkens linearly from its rim to the corners.
type vignetteFilter struct {
	radius    float64
	intensity float64
}

func (v *vignetteFilter) Bounds(srcBounds image.Rectangle) image.Rectangle {
	return image.Rect(0, 0, srcBounds.Dx(), srcBounds.Dy())
}

func (v *vignetteFilter) Draw(dst draw.Image, src image.Image, _ *gift.Options) {
	sb := src.Bounds()
	w, h := sb.Dx(), sb.Dy()
	cx, cy := float64(w)/2, float64(h)/2
	falloff := math.Hypot(cx, cy) - v.radius

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			factor := 1.0
			if falloff > 0 {
				d := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy) - v.radius
				factor = 1 - v.intensity*clampUnit(d/falloff)
			}
			factor = math.Max(0, factor)

			r, g, b, a := src.At(sb.Min.X+x, sb.Min.Y+y).RGBA()
			dst.Set(dst.Bounds().Min.X+x, dst.Bounds().Min.Y+y, color.RGBA64{
				R: scale16(r, factor),
				G: scale16(g, factor),
				B: scale16(b, factor),
				A: uint16(a),
			})
		}
	}
}

func scale16(v uint32, factor float64) uint16 {
	return uint16(math.Min(65535, math.Round(float64(v)*factor)))
}

func clampUnit(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
