package memory

import (
	"gocv.io/x/gocv"

	"photofilter/internal/opencv/safe"
)

// PoolKey is the shape every Mat in one pool shares.
type PoolKey struct {
	Rows    int
	Cols    int
	MatType gocv.MatType
}

func keyOf(mat *safe.Mat) PoolKey {
	return PoolKey{Rows: mat.Rows(), Cols: mat.Cols(), MatType: mat.Type()}
}

// pool is a bounded LIFO of idle Mats. The Manager's lock guards it.
type pool struct {
	idle  []*safe.Mat
	depth int
}

func newPool(depth int) *pool {
	return &pool{idle: make([]*safe.Mat, 0, depth), depth: depth}
}

// take pops the most recently returned usable Mat, closing stale ones.
func (p *pool) take() *safe.Mat {
	for n := len(p.idle); n > 0; n = len(p.idle) {
		mat := p.idle[n-1]
		p.idle[n-1] = nil
		p.idle = p.idle[:n-1]
		if mat.IsValid() && !mat.Empty() {
			return mat
		}
		mat.Close()
	}
	return nil
}

// give keeps mat for reuse, or reports false when the caller must close it.
func (p *pool) give(mat *safe.Mat) bool {
	if len(p.idle) >= p.depth || !mat.IsValid() || mat.Empty() {
		return false
	}
	p.idle = append(p.idle, mat)
	return true
}

func (p *pool) drain() int {
	n := len(p.idle)
	for i, mat := range p.idle {
		mat.Close()
		p.idle[i] = nil
	}
	p.idle = p.idle[:0]
	return n
}
