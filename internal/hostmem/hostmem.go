// Package hostmem implements interfaces.Mapper over anonymous mmap'd
// pages: acquire a region, pin it, hand back a byte slice, unmap on
// release. Used for per-section and per-trace-buffer host-visible
// mappings.
//
// There is no real physical-address-backed device memory in this
// environment, so Acquire maps a fresh anonymous region per call rather
// than an offset into a file descriptor; hostPA is recorded for
// diagnostics only. A platform with real co-processor memory would back
// Acquire with unix.Mmap against a /dev/mem-like fd at the given offset
// instead.
package hostmem

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/behrlich/rproc/internal/interfaces"
)

// Mapper acquires host-visible mappings backed by anonymous mmap'd pages,
// locked resident for the lifetime of the binding.
type Mapper struct{}

// New returns a ready-to-use Mapper.
func New() *Mapper {
	return &Mapper{}
}

// Acquire maps length bytes and locks them resident. hostPA is recorded on
// the returned Mapping for diagnostics but does not address real memory.
func (m *Mapper) Acquire(hostPA uint64, length uint32) (interfaces.Mapping, error) {
	if length == 0 {
		return &mapping{hostPA: hostPA}, nil
	}

	data, err := unix.Mmap(-1, 0, int(length), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("hostmem: mmap %d bytes at pa=%#x: %w", length, hostPA, err)
	}

	if err := unix.Mlock(data); err != nil {
		unix.Munmap(data)
		return nil, fmt.Errorf("hostmem: mlock %d bytes at pa=%#x: %w", length, hostPA, err)
	}

	return &mapping{hostPA: hostPA, data: data}, nil
}

type mapping struct {
	hostPA uint64
	data   []byte
}

func (m *mapping) Bytes() []byte { return m.data }

func (m *mapping) Release() error {
	if len(m.data) == 0 {
		return nil
	}
	if err := unix.Munlock(m.data); err != nil {
		return fmt.Errorf("hostmem: munlock pa=%#x: %w", m.hostPA, err)
	}
	if err := unix.Munmap(m.data); err != nil {
		return fmt.Errorf("hostmem: munmap pa=%#x: %w", m.hostPA, err)
	}
	m.data = nil
	return nil
}

var _ interfaces.Mapper = (*Mapper)(nil)
var _ interfaces.Mapping = (*mapping)(nil)
