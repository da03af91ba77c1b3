package memory

import (
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
	"gocv.io/x/gocv"

	"photofilter/internal/logger"
	"photofilter/internal/opencv/safe"
)

const (
	defaultPoolDepth = 4
	defaultLimit     = 2 * 1024 * 1024 * 1024
)

// Manager hands out scratch Mats for filter passes and recycles them by shape.
type Manager struct {
	pools     map[PoolKey]*pool
	active    map[uint64]int64
	mu        sync.Mutex
	stats     Stats
	poolDepth int
	log       logger.Logger
}

type Stats struct {
	TotalAllocated int64
	TotalReleased  int64
	ActiveMats     int64
	PoolHits       int64
	PoolMisses     int64
	MaxAllowed     int64
}

func NewManager(log logger.Logger) *Manager {
	return &Manager{
		pools:     make(map[PoolKey]*pool),
		active:    make(map[uint64]int64),
		stats:     Stats{MaxAllowed: defaultLimit},
		poolDepth: defaultPoolDepth,
		log:       log,
	}
}

// GetMat returns a Mat of the requested shape. Reused Mats keep their old
// contents; every caller overwrites the whole destination.
func (m *Manager) GetMat(rows, cols int, matType gocv.MatType) (*safe.Mat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inUse := m.stats.TotalAllocated - m.stats.TotalReleased
	if inUse > m.stats.MaxAllowed {
		return nil, fmt.Errorf("memory limit exceeded: %s in use", humanize.IBytes(uint64(inUse)))
	}

	key := PoolKey{Rows: rows, Cols: cols, MatType: matType}
	if p, ok := m.pools[key]; ok {
		if mat := p.take(); mat != nil {
			m.stats.PoolHits++
			m.track(mat)
			return mat, nil
		}
	}

	m.stats.PoolMisses++
	mat, err := safe.NewTaggedMat(rows, cols, matType, "scratch")
	if err != nil {
		return nil, err
	}
	m.track(mat)
	return mat, nil
}

func (m *Manager) track(mat *safe.Mat) {
	size := mat.Size()
	m.active[mat.ID()] = size
	m.stats.TotalAllocated += size
	m.stats.ActiveMats++
}

// ReleaseMat returns a Mat obtained from GetMat. Untracked Mats are closed.
func (m *Manager) ReleaseMat(mat *safe.Mat) {
	if mat == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	size, ok := m.active[mat.ID()]
	if !ok {
		mat.Close()
		return
	}
	delete(m.active, mat.ID())
	m.stats.TotalReleased += size
	m.stats.ActiveMats--

	key := keyOf(mat)
	p, ok := m.pools[key]
	if !ok {
		p = newPool(m.poolDepth)
		m.pools[key] = p
	}
	if !p.give(mat) {
		mat.Close()
	}
}

func (m *Manager) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

func (m *Manager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	pooled := 0
	for key, p := range m.pools {
		pooled += p.drain()
		delete(m.pools, key)
	}

	m.log.Debug("MemoryManager", "released pooled Mats", map[string]interface{}{
		"pooled":      pooled,
		"still_owned": len(m.active),
		"hits":        m.stats.PoolHits,
		"misses":      m.stats.PoolMisses,
		"allocated":   humanize.IBytes(uint64(m.stats.TotalAllocated)),
	})
}
