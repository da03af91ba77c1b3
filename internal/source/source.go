// Package source decodes picked photos into images ready for binding.
package source

import (
	"bufio"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"fyne.io/fyne/v2"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Picked is a decoded photo plus where it came from.
type Picked struct {
	Image  image.Image
	Format string
	Origin string
}

func Decode(r io.Reader) (*Picked, error) {
	img, format, err := image.Decode(bufio.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("decoded %s image is empty", format)
	}
	return &Picked{Image: img, Format: format}, nil
}

func LoadFile(path string) (*Picked, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	picked, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	picked.Origin = path
	return picked, nil
}

// FromURI reads the photo returned by a fyne open dialog and closes it.
func FromURI(reader fyne.URIReadCloser) (*Picked, error) {
	if reader == nil {
		return nil, fmt.Errorf("no photo selected")
	}
	defer reader.Close()

	picked, err := Decode(reader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", reader.URI().Name(), err)
	}
	picked.Origin = reader.URI().String()
	return picked, nil
}
