package rproc

import (
	"context"
	"sync"

	"github.com/behrlich/rproc/internal/interfaces"
)

// MockBackend is a Backend implementation for unit-testing registration
// and lifecycle code without real hardware.
type MockBackend struct {
	mu sync.Mutex

	StartErr error
	StopErr  error

	startCalls   int
	stopCalls    int
	lastBootAddr uint64
	running      bool
}

// NewMockBackend returns a MockBackend whose Start/Stop always succeed.
func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

func (m *MockBackend) Start(ctx context.Context, bootAddr uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startCalls++
	m.lastBootAddr = bootAddr
	if m.StartErr != nil {
		return m.StartErr
	}
	m.running = true
	return nil
}

func (m *MockBackend) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCalls++
	if m.StopErr != nil {
		return m.StopErr
	}
	m.running = false
	return nil
}

// StartCalls returns the number of times Start has been called.
func (m *MockBackend) StartCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startCalls
}

// StopCalls returns the number of times Stop has been called.
func (m *MockBackend) StopCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopCalls
}

// LastBootAddr returns the bootAddr passed to the most recent Start call.
func (m *MockBackend) LastBootAddr() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastBootAddr
}

// IsRunning reports whether Start has succeeded more recently than Stop.
func (m *MockBackend) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// MockMapping is a Mapping backed by a plain Go slice.
type MockMapping struct {
	data     []byte
	released bool
}

func (m *MockMapping) Bytes() []byte { return m.data }

func (m *MockMapping) Release() error {
	m.released = true
	return nil
}

// Released reports whether Release has been called.
func (m *MockMapping) Released() bool { return m.released }

// MockMapper is a Mapper implementation backed by plain Go byte slices,
// with no notion of a real address space: unless AcquireErr is set, every
// Acquire call succeeds with a freshly zeroed buffer, keyed by nothing but
// the call itself.
type MockMapper struct {
	mu       sync.Mutex
	AcquireErr error
	acquired []*MockMapping
}

// NewMockMapper returns a MockMapper whose Acquire always succeeds.
func NewMockMapper() *MockMapper {
	return &MockMapper{}
}

func (m *MockMapper) Acquire(hostPA uint64, length uint32) (interfaces.Mapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AcquireErr != nil {
		return nil, m.AcquireErr
	}
	mm := &MockMapping{data: make([]byte, length)}
	m.acquired = append(m.acquired, mm)
	return mm, nil
}

// Acquired returns every mapping handed out so far, in order.
func (m *MockMapper) Acquired() []*MockMapping {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*MockMapping{}, m.acquired...)
}

// MockFetcher is a FirmwareFetcher backed by an in-memory map of firmware
// name to image bytes.
type MockFetcher struct {
	mu     sync.Mutex
	images map[string][]byte
}

// NewMockFetcher returns a MockFetcher with no images registered.
func NewMockFetcher() *MockFetcher {
	return &MockFetcher{images: make(map[string][]byte)}
}

// SetImage registers the bytes returned for a given firmware name.
func (f *MockFetcher) SetImage(name string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images[name] = data
}

func (f *MockFetcher) Fetch(ctx context.Context, firmwareName string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.images[firmwareName]
	if !ok {
		return nil, NewProcessorError("fetch", firmwareName, ErrCodeMissingFirmware, "no such firmware image registered with MockFetcher")
	}
	return data, nil
}

var (
	_ interfaces.Backend         = (*MockBackend)(nil)
	_ interfaces.Mapper          = (*MockMapper)(nil)
	_ interfaces.Mapping         = (*MockMapping)(nil)
	_ interfaces.FirmwareFetcher = (*MockFetcher)(nil)
)
