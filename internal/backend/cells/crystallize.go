// Package cells renders the Voronoi cell effect shared by both filter
// libraries; neither gift nor OpenCV ships one.
package cells

import (
	"image"
	"image/color"
	"image/draw"
)

// Crystallize tessellates src into cells seeded on a jittered grid with the
// given spacing. Every pixel takes the color found at its nearest seed.
// Seeds depend only on the grid position, so output is deterministic.
func Crystallize(src image.Image, radius int) *image.RGBA {
	return CrystallizeAt(src, radius, src.Bounds().Min)
}

// CrystallizeAt is Crystallize with the grid shifted so that one grid cell
// starts at anchor, given in src coordinates.
func CrystallizeAt(src image.Image, radius int, anchor image.Point) *image.RGBA {
	bounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	if bounds.Empty() {
		return dst
	}

	rgba := image.NewRGBA(dst.Bounds())
	draw.Draw(rgba, rgba.Bounds(), src, bounds.Min, draw.Src)

	if radius < 1 {
		radius = 1
	}
	ox := floorMod(anchor.X-bounds.Min.X, radius)
	oy := floorMod(anchor.Y-bounds.Min.Y, radius)

	w, h := bounds.Dx(), bounds.Dy()
	for y := 0; y < h; y++ {
		gy := floorDiv(y-oy, radius)
		for x := 0; x < w; x++ {
			gx := floorDiv(x-ox, radius)

			bestDist := -1
			var best image.Point
			for cy := gy - 1; cy <= gy+1; cy++ {
				for cx := gx - 1; cx <= gx+1; cx++ {
					seed := seedAt(cx, cy, radius).Add(image.Pt(ox, oy))
					dx, dy := seed.X-x, seed.Y-y
					d := dx*dx + dy*dy
					if bestDist < 0 || d < bestDist {
						bestDist = d
						best = seed
					}
				}
			}

			dst.SetRGBA(x, y, sample(rgba, best))
		}
	}

	return dst
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}

func seedAt(cx, cy, radius int) image.Point {
	hash := mix(uint32(cx)*0x9E3779B1 ^ uint32(cy)*0x85EBCA77)
	jx := int(hash % uint32(radius))
	jy := int((hash >> 16) % uint32(radius))
	return image.Point{X: cx*radius + jx, Y: cy*radius + jy}
}

func mix(h uint32) uint32 {
	h ^= h >> 16
	h *= 0x7FEB352D
	h ^= h >> 15
	h *= 0x846CA68B
	h ^= h >> 16
	return h
}

func sample(img *image.RGBA, p image.Point) color.RGBA {
	b := img.Bounds()
	p.X = clamp(p.X, b.Min.X, b.Max.X-1)
	p.Y = clamp(p.Y, b.Min.Y, b.Max.Y-1)
	return img.RGBAAt(p.X, p.Y)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
