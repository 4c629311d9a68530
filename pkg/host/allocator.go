package host

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/justyntemme/framego/pkg/frame"
)

// Allocator provides the pixel memory behind host-allocated output buffers
type Allocator interface {
	// Allocate returns zeroed memory of exactly desc.Size() bytes
	Allocate(desc frame.Descriptor) []byte
	// Recycle hands memory back once no frame references it
	Recycle(desc frame.Descriptor, pix []byte)
}

// HeapAllocator allocates fresh memory every time
type HeapAllocator struct{}

// Allocate implements Allocator
func (HeapAllocator) Allocate(desc frame.Descriptor) []byte {
	return make([]byte, desc.Size())
}

// Recycle implements Allocator
func (HeapAllocator) Recycle(frame.Descriptor, []byte) {}

const (
	// DefaultPoolShapes is the number of distinct shapes a pool keeps free lists for
	DefaultPoolShapes = 16
	// DefaultPoolDepth is the number of free buffers kept per shape
	DefaultPoolDepth = 8
)

// PoolAllocator keeps a bounded free list per frame shape. Shapes that have
// not been used recently are evicted together with their free list.
type PoolAllocator struct {
	mu      sync.Mutex
	pools   *lru.Cache[frame.Descriptor, [][]byte]
	depth   int
	metrics *Metrics
}

// NewPoolAllocator creates a pool for up to shapes distinct descriptors with
// up to depth free buffers each
func NewPoolAllocator(shapes, depth int, metrics *Metrics) (*PoolAllocator, error) {
	if shapes <= 0 {
		shapes = DefaultPoolShapes
	}
	if depth <= 0 {
		depth = DefaultPoolDepth
	}
	pools, err := lru.New[frame.Descriptor, [][]byte](shapes)
	if err != nil {
		return nil, fmt.Errorf("failed to create frame pool: %w", err)
	}
	return &PoolAllocator{pools: pools, depth: depth, metrics: metrics}, nil
}

// Allocate implements Allocator
func (a *PoolAllocator) Allocate(desc frame.Descriptor) []byte {
	a.mu.Lock()
	free, ok := a.pools.Get(desc)
	if ok && len(free) > 0 {
		pix := free[len(free)-1]
		free[len(free)-1] = nil
		a.pools.Add(desc, free[:len(free)-1])
		a.mu.Unlock()

		a.metrics.RecordAllocation(true)
		clear(pix)
		return pix
	}
	a.mu.Unlock()

	a.metrics.RecordAllocation(false)
	return make([]byte, desc.Size())
}

// Recycle implements Allocator. Memory of the wrong size is discarded.
func (a *PoolAllocator) Recycle(desc frame.Descriptor, pix []byte) {
	if len(pix) != desc.Size() || cap(pix) == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	free, _ := a.pools.Get(desc)
	if len(free) >= a.depth {
		return
	}
	a.pools.Add(desc, append(free, pix))
}

// Free returns the number of free buffers held for a shape
func (a *PoolAllocator) Free(desc frame.Descriptor) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	free, _ := a.pools.Peek(desc)
	return len(free)
}

// Shapes returns the number of shapes with a free list
func (a *PoolAllocator) Shapes() int {
	return a.pools.Len()
}
