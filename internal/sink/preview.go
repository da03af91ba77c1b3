package sink

import (
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	xdraw "golang.org/x/image/draw"
)

// Thumbnail scales img to fit within maxSide pixels, keeping the aspect
// ratio. Images that already fit are returned unchanged.
func Thumbnail(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSide <= 0 || (w <= maxSide && h <= maxSide) {
		return img
	}

	tw, th := maxSide, maxSide
	if w >= h {
		th = max(1, h*maxSide/w)
	} else {
		tw = max(1, w*maxSide/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// FuncPreviewer passes a thumbnail to Show.
type FuncPreviewer struct {
	MaxSide int
	Show    func(thumb image.Image)
}

func (p FuncPreviewer) Preview(img image.Image) {
	if p.Show == nil {
		return
	}
	p.Show(Thumbnail(img, p.MaxSide))
}

// CanvasPreviewer swaps the image shown by a fyne canvas.Image.
type CanvasPreviewer struct {
	Target  *canvas.Image
	MaxSide int
}

func (p CanvasPreviewer) Preview(img image.Image) {
	if p.Target == nil {
		return
	}
	thumb := Thumbnail(img, p.MaxSide)
	fyne.Do(func() {
		p.Target.Image = thumb
		p.Target.Refresh()
	})
}
