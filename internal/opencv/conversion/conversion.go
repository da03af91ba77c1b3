package conversion

import (
	"fmt"
	"image"

	"photofilter/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// ImageToMat converts a Go image into a 3-channel BGR Mat. Alpha is dropped;
// every OpenCV filter in this module works on opaque BGR data.
func ImageToMat(img image.Image, tag string) (*safe.Mat, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}

	bounds := img.Bounds()
	if err := safe.ValidateDimensions(bounds.Dx(), bounds.Dy(), "image to Mat conversion"); err != nil {
		return nil, err
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("image to Mat conversion failed: %w", err)
	}
	defer mat.Close()

	return safe.NewMatFromMat(mat, tag)
}

// MatToImage converts 1, 3 or 4 channel 8-bit Mats back to Go images.
func MatToImage(src *safe.Mat) (image.Image, error) {
	if err := safe.ValidateMatForOperation(src, "Mat to image conversion"); err != nil {
		return nil, err
	}

	switch src.Type() {
	case gocv.MatTypeCV8UC1, gocv.MatTypeCV8UC3, gocv.MatTypeCV8UC4:
	default:
		return nil, fmt.Errorf("unsupported Mat type %v for image conversion", src.Type())
	}

	img, err := src.GetMat().ToImage()
	if err != nil {
		return nil, fmt.Errorf("Mat to image conversion failed: %w", err)
	}
	return img, nil
}
