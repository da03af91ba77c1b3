package sink

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Format is an export encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
)

const defaultJPEGQuality = 95

// ParseFormat accepts format names and the usual aliases.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "bmp":
		return FormatBMP, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	default:
		return "", fmt.Errorf("unsupported output format %q", name)
	}
}

// FormatForExtension picks a format from a file extension, defaulting to PNG.
func FormatForExtension(ext string) Format {
	f, err := ParseFormat(ext)
	if err != nil {
		return FormatPNG
	}
	return f
}

func (f Format) Extension() string {
	if f == FormatJPEG {
		return ".jpg"
	}
	return "." + string(f)
}

// Encode writes img in the given format. quality only affects JPEG.
func Encode(w io.Writer, img image.Image, format Format, quality int) error {
	switch format {
	case FormatJPEG:
		if quality <= 0 || quality > 100 {
			quality = defaultJPEGQuality
		}
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case FormatBMP:
		return bmp.Encode(w, img)
	case FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case FormatPNG, "":
		return png.Encode(w, img)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
