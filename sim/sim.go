// Package sim provides reference Backend, Mapper and FirmwareFetcher
// implementations with no real hardware dependency, for exercising and
// demonstrating rproc end to end (cmd/rproc-sim). Its sharded memory
// region stands in for a simulated remote processor's local memory space
// that the Mapper operates on; the Backend does not touch it.
package sim

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/behrlich/rproc/internal/interfaces"
)

// ShardSize is the size of each memory shard (64KB): good parallelism for
// concurrent small accesses while keeping lock overhead reasonable.
const ShardSize = 64 * 1024

// Memory is a sharded-lock byte array standing in for a remote
// processor's local, host-visible memory space.
type Memory struct {
	data   []byte
	shards []sync.RWMutex
}

// NewMemory allocates a zeroed Memory region of size bytes.
func NewMemory(size int64) *Memory {
	numShards := (size + ShardSize - 1) / ShardSize
	if numShards < 1 {
		numShards = 1
	}
	return &Memory{
		data:   make([]byte, size),
		shards: make([]sync.RWMutex, numShards),
	}
}

func (m *Memory) shardRange(off, length int64) (start, end int) {
	start = int(off / ShardSize)
	end = int((off + length - 1) / ShardSize)
	if end >= len(m.shards) {
		end = len(m.shards) - 1
	}
	if end < start {
		end = start
	}
	return start, end
}

// slice returns a copy of [off, off+length), taken while holding the
// covering shard locks. A mapping's Release writes its copy back.
func (m *Memory) slice(off int64, length int) ([]byte, error) {
	if off < 0 || length < 0 || off+int64(length) > int64(len(m.data)) {
		return nil, fmt.Errorf("sim: region [%d,%d) out of bounds for %d-byte memory", off, off+int64(length), len(m.data))
	}
	start, end := m.shardRange(off, int64(length))
	for i := start; i <= end; i++ {
		m.shards[i].Lock()
	}
	defer func() {
		for i := start; i <= end; i++ {
			m.shards[i].Unlock()
		}
	}()
	out := make([]byte, length)
	copy(out, m.data[off:off+int64(length)])
	return out, nil
}

// Mapper hands out Mapping views backed by a shared Memory region, using
// hostPA directly as the byte offset into that region.
type Mapper struct {
	mem *Memory
}

// NewMapper returns a Mapper whose Acquire calls index into mem by
// physical offset.
func NewMapper(mem *Memory) *Mapper {
	return &Mapper{mem: mem}
}

func (s *Mapper) Acquire(hostPA uint64, length uint32) (interfaces.Mapping, error) {
	data, err := s.mem.slice(int64(hostPA), int(length))
	if err != nil {
		return nil, err
	}
	return &mapping{mem: s.mem, off: int64(hostPA), data: data}, nil
}

type mapping struct {
	mem *Memory
	off int64

	mu   sync.Mutex
	data []byte
	done bool
}

func (m *mapping) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data
}

// Release writes the mapping's current contents back into the backing
// Memory region and discards the local copy.
func (m *mapping) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done {
		return nil
	}
	start, end := m.mem.shardRange(m.off, int64(len(m.data)))
	for i := start; i <= end; i++ {
		m.mem.shards[i].Lock()
	}
	copy(m.mem.data[m.off:m.off+int64(len(m.data))], m.data)
	for i := start; i <= end; i++ {
		m.mem.shards[i].Unlock()
	}
	m.data = nil
	m.done = true
	return nil
}

// Backend is a reference remote-processor Backend that tracks running
// state and the boot address it was last started with, without driving
// any real core.
type Backend struct {
	running  atomic.Bool
	bootAddr atomic.Uint64
}

// NewBackend returns an idle Backend.
func NewBackend() *Backend {
	return &Backend{}
}

func (b *Backend) Start(ctx context.Context, bootAddr uint64) error {
	b.bootAddr.Store(bootAddr)
	b.running.Store(true)
	return nil
}

func (b *Backend) Stop(ctx context.Context) error {
	b.running.Store(false)
	return nil
}

// Running reports whether Start has been called more recently than Stop.
func (b *Backend) Running() bool { return b.running.Load() }

// BootAddr returns the address passed to the most recent Start call.
func (b *Backend) BootAddr() uint64 { return b.bootAddr.Load() }

// FileFetcher is a FirmwareFetcher that reads firmware images from a
// directory on disk, one file per firmware name.
type FileFetcher struct {
	dir string
}

// NewFileFetcher returns a FileFetcher rooted at dir.
func NewFileFetcher(dir string) *FileFetcher {
	return &FileFetcher{dir: dir}
}

func (f *FileFetcher) Fetch(ctx context.Context, firmwareName string) ([]byte, error) {
	path := f.dir + string(os.PathSeparator) + firmwareName
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sim: read firmware %q: %w", path, err)
	}
	return data, nil
}

var (
	_ interfaces.Mapper          = (*Mapper)(nil)
	_ interfaces.Mapping         = (*mapping)(nil)
	_ interfaces.Backend         = (*Backend)(nil)
	_ interfaces.FirmwareFetcher = (*FileFetcher)(nil)
)
