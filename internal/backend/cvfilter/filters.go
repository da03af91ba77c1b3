package cvfilter

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"

	"photofilter/internal/backend/cells"
	"photofilter/internal/filter"
	"photofilter/internal/opencv/conversion"
	"photofilter/internal/opencv/safe"
)

const edgeGain = 4.0

// sepiaBGR is the classic sepia matrix with rows and columns in BGR order.
var sepiaBGR = [3][3]float32{
	{0.131, 0.534, 0.272},
	{0.168, 0.686, 0.349},
	{0.189, 0.769, 0.393},
}

var appliers = map[filter.Kind]applyFunc{
	filter.AreaAverage:        applyAreaAverage,
	filter.Bloom:              applyBloom,
	filter.Crystallize:        applyCrystallize,
	filter.Edges:              applyEdges,
	filter.GaussianBlur:       applyGaussianBlur,
	filter.MorphologyGradient: applyMorphologyGradient,
	filter.Pixellate:          applyPixellate,
	filter.SepiaTone:          applySepiaTone,
	filter.UnsharpMask:        applyUnsharpMask,
	filter.Vignette:           applyVignette,
}

func applyAreaAverage(c *Context, src *safe.Mat, _ *filter.Inputs) (*safe.Mat, bool, error) {
	mean := src.GetMat().Mean()

	dst, err := c.mem.GetMat(1, 1, gocv.MatTypeCV8UC3)
	if err != nil {
		return nil, false, err
	}
	for ch, v := range []float64{mean.Val1, mean.Val2, mean.Val3} {
		if err := dst.SetUCharAt3(0, 0, ch, uint8(math.Round(v))); err != nil {
			c.mem.ReleaseMat(dst)
			return nil, false, err
		}
	}
	return dst, true, nil
}

func applyBloom(c *Context, src *safe.Mat, in *filter.Inputs) (*safe.Mat, bool, error) {
	radius, ok := in.Int(filter.KeyRadius, int(filter.Radius.Default()))
	if !ok || radius < 0 {
		return nil, false, nil
	}
	intensity, ok := in.Float(filter.KeyIntensity, filter.Intensity.Default())
	if !ok {
		return nil, false, nil
	}
	intensity = clampUnit(intensity)

	blurred, err := gaussian(c, src, float64(radius))
	if err != nil {
		return nil, false, err
	}
	defer c.mem.ReleaseMat(blurred)

	lighter := gocv.NewMat()
	defer lighter.Close()
	gocv.Max(src.GetMat(), blurred.GetMat(), &lighter)

	dst, err := c.scratch(src)
	if err != nil {
		return nil, false, err
	}
	dstMat := dst.GetMat()
	gocv.AddWeighted(src.GetMat(), 1-intensity, lighter, intensity, 0, &dstMat)
	return dst, true, nil
}

func applyCrystallize(_ *Context, src *safe.Mat, in *filter.Inputs) (*safe.Mat, bool, error) {
	radius, ok := in.Int(filter.KeyRadius, int(filter.Radius.Default()))
	if !ok || radius < 1 {
		return nil, false, nil
	}

	img, err := conversion.MatToImage(src)
	if err != nil {
		return nil, false, err
	}
	// The Mat starts at the origin; centers are in input image coordinates.
	anchor := img.Bounds().Min
	if center, ok := in.Point(filter.KeyCenter); ok {
		anchor = center.Sub(in.Image().Bounds().Min).Sub(image.Pt(radius/2, radius/2))
	}
	out, err := conversion.ImageToMat(cells.CrystallizeAt(img, radius, anchor), "crystallize")
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func applyEdges(c *Context, src *safe.Mat, in *filter.Inputs) (*safe.Mat, bool, error) {
	intensity, ok := in.Float(filter.KeyIntensity, filter.Intensity.Default())
	if !ok || intensity < 0 {
		return nil, false, nil
	}

	gx, gy := gocv.NewMat(), gocv.NewMat()
	defer gx.Close()
	defer gy.Close()
	gocv.Sobel(src.GetMat(), &gx, gocv.MatTypeCV16S, 1, 0, 3, 1, 0, gocv.BorderReplicate)
	gocv.Sobel(src.GetMat(), &gy, gocv.MatTypeCV16S, 0, 1, 3, 1, 0, gocv.BorderReplicate)

	ax, ay := gocv.NewMat(), gocv.NewMat()
	defer ax.Close()
	defer ay.Close()
	gocv.ConvertScaleAbs(gx, &ax, 1, 0)
	gocv.ConvertScaleAbs(gy, &ay, 1, 0)

	magnitude := gocv.NewMat()
	defer magnitude.Close()
	gocv.AddWeighted(ax, 0.5, ay, 0.5, 0, &magnitude)

	dst, err := c.scratch(src)
	if err != nil {
		return nil, false, err
	}
	dstMat := dst.GetMat()
	gocv.ConvertScaleAbs(magnitude, &dstMat, intensity*edgeGain, 0)
	return dst, true, nil
}

func applyGaussianBlur(c *Context, src *safe.Mat, in *filter.Inputs) (*safe.Mat, bool, error) {
	radius, ok := in.Int(filter.KeyRadius, int(filter.Radius.Default()))
	if !ok || radius < 0 {
		return nil, false, nil
	}
	dst, err := gaussian(c, src, float64(radius))
	if err != nil {
		return nil, false, err
	}
	return dst, true, nil
}

func applyMorphologyGradient(c *Context, src *safe.Mat, in *filter.Inputs) (*safe.Mat, bool, error) {
	radius, ok := in.Int(filter.KeyRadius, int(filter.Radius.Default()))
	if !ok || radius < 0 {
		return nil, false, nil
	}

	ksize := 2*radius + 1
	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: ksize, Y: ksize})
	defer kernel.Close()

	dst, err := c.scratch(src)
	if err != nil {
		return nil, false, err
	}
	dstMat := dst.GetMat()
	gocv.MorphologyEx(src.GetMat(), &dstMat, gocv.MorphGradient, kernel)
	return dst, true, nil
}

func applyPixellate(c *Context, src *safe.Mat, in *filter.Inputs) (*safe.Mat, bool, error) {
	scale, ok := in.Int(filter.KeyScale, int(filter.Scale.Default()))
	if !ok || scale < 1 {
		return nil, false, nil
	}

	rows, cols := src.Rows(), src.Cols()
	small := gocv.NewMat()
	defer small.Close()
	gocv.Resize(src.GetMat(), &small, image.Point{X: ceilDiv(cols, scale), Y: ceilDiv(rows, scale)}, 0, 0, gocv.InterpolationArea)

	dst, err := c.scratch(src)
	if err != nil {
		return nil, false, err
	}
	dstMat := dst.GetMat()
	gocv.Resize(small, &dstMat, image.Point{X: cols, Y: rows}, 0, 0, gocv.InterpolationNearestNeighbor)
	return dst, true, nil
}

func applySepiaTone(c *Context, src *safe.Mat, in *filter.Inputs) (*safe.Mat, bool, error) {
	intensity, ok := in.Float(filter.KeyIntensity, filter.Intensity.Default())
	if !ok {
		return nil, false, nil
	}
	intensity = clampUnit(intensity)

	kernel := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV32F)
	defer kernel.Close()
	for row := range sepiaBGR {
		for col, v := range sepiaBGR[row] {
			kernel.SetFloatAt(row, col, v)
		}
	}

	toned := gocv.NewMat()
	defer toned.Close()
	gocv.Transform(src.GetMat(), &toned, kernel)

	dst, err := c.scratch(src)
	if err != nil {
		return nil, false, err
	}
	dstMat := dst.GetMat()
	gocv.AddWeighted(src.GetMat(), 1-intensity, toned, intensity, 0, &dstMat)
	return dst, true, nil
}

func applyUnsharpMask(c *Context, src *safe.Mat, in *filter.Inputs) (*safe.Mat, bool, error) {
	radius, ok := in.Int(filter.KeyRadius, int(filter.Radius.Default()))
	if !ok || radius < 0 {
		return nil, false, nil
	}
	intensity, ok := in.Float(filter.KeyIntensity, filter.Intensity.Default())
	if !ok || intensity < 0 {
		return nil, false, nil
	}

	blurred, err := gaussian(c, src, float64(radius))
	if err != nil {
		return nil, false, err
	}
	defer c.mem.ReleaseMat(blurred)

	dst, err := c.scratch(src)
	if err != nil {
		return nil, false, err
	}
	dstMat := dst.GetMat()
	gocv.AddWeighted(src.GetMat(), 1+intensity, blurred.GetMat(), -intensity, 0, &dstMat)
	return dst, true, nil
}

func applyVignette(_ *Context, src *safe.Mat, in *filter.Inputs) (*safe.Mat, bool, error) {
	radius, ok := in.Int(filter.KeyRadius, int(filter.Radius.Default()))
	if !ok || radius < 0 {
		return nil, false, nil
	}
	intensity, ok := in.Float(filter.KeyIntensity, filter.Intensity.Default())
	if !ok {
		return nil, false, nil
	}

	dst, err := src.Clone()
	if err != nil {
		return nil, false, err
	}

	rows, cols := dst.Rows(), dst.Cols()
	cx, cy := float64(cols)/2, float64(rows)/2
	falloff := math.Hypot(cx, cy) - float64(radius)
	if falloff <= 0 {
		return dst, true, nil
	}

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			d := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy) - float64(radius)
			factor := math.Max(0, 1-intensity*clampUnit(d/falloff))
			for ch := 0; ch < 3; ch++ {
				v, err := dst.GetUCharAt3(y, x, ch)
				if err != nil {
					dst.Close()
					return nil, false, fmt.Errorf("vignette pixel access: %w", err)
				}
				scaled := math.Min(255, math.Round(float64(v)*factor))
				if err := dst.SetUCharAt3(y, x, ch, uint8(scaled)); err != nil {
					dst.Close()
					return nil, false, fmt.Errorf("vignette pixel access: %w", err)
				}
			}
		}
	}
	return dst, true, nil
}

// gaussian blurs with sigma equal to radius; zero copies src.
func gaussian(c *Context, src *safe.Mat, sigma float64) (*safe.Mat, error) {
	dst, err := c.scratch(src)
	if err != nil {
		return nil, err
	}
	dstMat := dst.GetMat()
	if sigma == 0 {
		src.GetMat().CopyTo(&dstMat)
		return dst, nil
	}
	gocv.GaussianBlur(src.GetMat(), &dstMat, image.Point{}, sigma, sigma, gocv.BorderReplicate)
	return dst, nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func clampUnit(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
