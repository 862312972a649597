package detector

import (
	"strings"
	"sync"

	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/logx"
)

// ReorgDetector remembers the canonical hash of the most recent heights and
// reports when a height is seen again with a different hash.
type ReorgDetector struct {
	mu        sync.Mutex
	depth     uint64
	highest   uint64
	canonical map[uint64]string
}

func NewReorgDetector(depth uint64) *ReorgDetector {
	if depth == 0 {
		depth = 64
	}
	return &ReorgDetector{
		depth:     depth,
		canonical: make(map[uint64]string),
	}
}

// Observe records hash as canonical at height. If another hash was canonical
// there, it is returned as replaced and reorged is true.
func (d *ReorgDetector) Observe(height uint64, hash string) (replaced string, reorged bool) {
	hash = strings.ToLower(hash)

	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, ok := d.canonical[height]; ok && prev != hash {
		replaced, reorged = prev, true
		logx.Info("🔀 Reorg at height %d: %s replaced by %s", height, prev, hash)
	}
	d.canonical[height] = hash

	if height > d.highest {
		d.highest = height
		d.prune()
	}
	return replaced, reorged
}

// Canonical returns the hash currently recorded at height.
func (d *ReorgDetector) Canonical(height uint64) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	hash, ok := d.canonical[height]
	return hash, ok
}

func (d *ReorgDetector) prune() {
	if d.highest < d.depth {
		return
	}
	floor := d.highest - d.depth
	for h := range d.canonical {
		if h <= floor {
			delete(d.canonical, h)
		}
	}
}
