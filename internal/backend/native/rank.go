package native

import (
	"image"
	"runtime"
	"sync"
)

// squareRank replaces every channel value with the maximum (dilate) or the
// minimum over the (2r+1)x(2r+1) square around it, clipped at the image
// border. The square is separable: a row pass and a column pass each keep a
// monotonic window, so the cost does not grow with r.
func squareRank(src *image.RGBA, r int, dilate, parallel bool) *image.RGBA {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	tmp := image.NewRGBA(image.Rect(0, 0, w, h))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if r == 0 {
		copy(dst.Pix, src.Pix)
		return dst
	}

	parallelize(parallel, h, func(lo, hi int) {
		window := make([]int, 0, w)
		for y := lo; y < hi; y++ {
			for ch := 0; ch < 4; ch++ {
				window = rankLine(src.Pix, tmp.Pix, src.PixOffset(0, y)+ch, tmp.PixOffset(0, y)+ch, 4, w, r, dilate, window)
			}
		}
	})
	parallelize(parallel, w, func(lo, hi int) {
		window := make([]int, 0, h)
		for x := lo; x < hi; x++ {
			for ch := 0; ch < 4; ch++ {
				window = rankLine(tmp.Pix, dst.Pix, x*4+ch, x*4+ch, tmp.Stride, h, r, dilate, window)
			}
		}
	})
	return dst
}

// rankLine runs the sliding extreme over n samples spaced step apart. Both
// buffers use the same step. window is scratch space, returned for reuse.
func rankLine(src, dst []uint8, srcOff, dstOff, step, n, r int, dilate bool, window []int) []int {
	at := func(i int) uint8 { return src[srcOff+i*step] }
	dominated := func(old, v uint8) bool {
		if dilate {
			return old <= v
		}
		return old >= v
	}

	window = window[:0]
	head, next := 0, 0
	for i := 0; i < n; i++ {
		for ; next < n && next <= i+r; next++ {
			v := at(next)
			for len(window) > head && dominated(at(window[len(window)-1]), v) {
				window = window[:len(window)-1]
			}
			window = append(window, next)
		}
		for window[head] < i-r {
			head++
		}
		dst[dstOff+i*step] = at(window[head])
	}
	return window
}

// pixellateAt fills each size x size cell with its mean color. Cell corners
// sit on anchor plus multiples of size; partial cells at the border are
// averaged over their visible pixels.
func pixellateAt(src *image.RGBA, size int, anchor image.Point) *image.RGBA {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))

	x0 := anchor.X%size - size
	y0 := anchor.Y%size - size
	for cy := y0; cy < h; cy += size {
		for cx := x0; cx < w; cx += size {
			cell := image.Rect(cx, cy, cx+size, cy+size).Intersect(dst.Rect)
			if cell.Empty() {
				continue
			}

			var sum [4]uint64
			for y := cell.Min.Y; y < cell.Max.Y; y++ {
				row := src.Pix[src.PixOffset(cell.Min.X, y):src.PixOffset(cell.Max.X, y)]
				for i := 0; i < len(row); i += 4 {
					for ch := 0; ch < 4; ch++ {
						sum[ch] += uint64(row[i+ch])
					}
				}
			}
			n := uint64(cell.Dx() * cell.Dy())
			var mean [4]uint8
			for ch := range mean {
				mean[ch] = uint8((sum[ch] + n/2) / n)
			}

			for y := cell.Min.Y; y < cell.Max.Y; y++ {
				row := dst.Pix[dst.PixOffset(cell.Min.X, y):dst.PixOffset(cell.Max.X, y)]
				for i := 0; i < len(row); i += 4 {
					copy(row[i:i+4], mean[:])
				}
			}
		}
	}
	return dst
}

// parallelize splits [0, n) into contiguous chunks, one per CPU.
func parallelize(enabled bool, n int, fn func(lo, hi int)) {
	workers := 1
	if enabled {
		workers = min(runtime.GOMAXPROCS(0), n)
	}
	if workers <= 1 {
		fn(0, n)
		return
	}

	var wg sync.WaitGroup
	chunk := (n + workers - 1) / workers
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(lo, hi)
		}()
	}
	wg.Wait()
}
