package resource

import (
	"errors"
	"testing"

	"github.com/behrlich/rproc/internal/interfaces"
	"github.com/behrlich/rproc/internal/uapi"
)

type fakeMapping struct {
	data     []byte
	released bool
}

func (m *fakeMapping) Bytes() []byte { return m.data }
func (m *fakeMapping) Release() error {
	m.released = true
	return nil
}

type fakeMapper struct {
	mappings []*fakeMapping
	failAt   int
	calls    int
}

func (m *fakeMapper) Acquire(hostPA uint64, length uint32) (interfaces.Mapping, error) {
	defer func() { m.calls++ }()
	if m.failAt > 0 && m.calls == m.failAt {
		return nil, errors.New("mapping failed")
	}
	mm := &fakeMapping{data: make([]byte, length)}
	m.mappings = append(m.mappings, mm)
	return mm, nil
}

func identity(da uint64) (uint64, error) { return da, nil }

func entryBytes(typ uapi.ResourceType, da, pa uint64, length uint32) []byte {
	e := &uapi.ResourceEntry{Type: typ, DA: da, PA: pa, Len: length}
	return uapi.MarshalResourceEntry(e)
}

func TestInterpretBootAddr(t *testing.T) {
	payload := entryBytes(uapi.ResourceBootAddr, 0x10080000, 0, 0)
	res, err := Interpret(payload, identity, &fakeMapper{}, nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.BootAddrSet || res.BootAddr != 0x10080000 {
		t.Errorf("res = %+v, want BootAddr=0x10080000", res)
	}
}

func TestInterpretDuplicateBootAddrKeepsFirst(t *testing.T) {
	payload := append(entryBytes(uapi.ResourceBootAddr, 0x1000, 0, 0), entryBytes(uapi.ResourceBootAddr, 0x2000, 0, 0)...)
	res, err := Interpret(payload, identity, &fakeMapper{}, nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.BootAddr != 0x1000 {
		t.Errorf("BootAddr = %#x, want first entry 0x1000", res.BootAddr)
	}
}

func TestInterpretTwoTraceBuffers(t *testing.T) {
	payload := append(
		entryBytes(uapi.ResourceTrace, 0xA, 0, 1024),
		entryBytes(uapi.ResourceTrace, 0xB, 0, 2048)...,
	)
	res, err := Interpret(payload, identity, &fakeMapper{}, nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.TraceBindings) != 2 {
		t.Fatalf("len(TraceBindings) = %d, want 2", len(res.TraceBindings))
	}
	if res.TraceBindings[0].Slot != "trace0" || len(res.TraceBindings[0].Mapping.Bytes()) != 1024 {
		t.Errorf("trace0 = %+v", res.TraceBindings[0])
	}
	if res.TraceBindings[1].Slot != "trace1" || len(res.TraceBindings[1].Mapping.Bytes()) != 2048 {
		t.Errorf("trace1 = %+v", res.TraceBindings[1])
	}
}

func TestInterpretThirdTraceBufferTooMany(t *testing.T) {
	payload := append(
		entryBytes(uapi.ResourceTrace, 0xA, 0, 1),
		append(entryBytes(uapi.ResourceTrace, 0xB, 0, 1), entryBytes(uapi.ResourceTrace, 0xC, 0, 1)...)...,
	)
	mapper := &fakeMapper{}
	_, err := Interpret(payload, identity, mapper, nil, 0)
	if !errors.Is(err, ErrTooMany) {
		t.Fatalf("expected ErrTooMany, got %v", err)
	}
	for i, m := range mapper.mappings {
		if !m.released {
			t.Errorf("mapping %d not released on TooMany rollback", i)
		}
	}
}

func TestInterpretMappingFailureRollsBackPrior(t *testing.T) {
	payload := append(entryBytes(uapi.ResourceTrace, 0xA, 0, 1), entryBytes(uapi.ResourceTrace, 0xB, 0, 1)...)
	mapper := &fakeMapper{failAt: 1}
	_, err := Interpret(payload, identity, mapper, nil, 0)
	if !errors.Is(err, ErrMappingFailed) {
		t.Fatalf("expected ErrMappingFailed, got %v", err)
	}
	if len(mapper.mappings) != 1 || !mapper.mappings[0].released {
		t.Errorf("expected first mapping released on rollback, got %+v", mapper.mappings)
	}
}

func TestInterpretUnknownKindIgnored(t *testing.T) {
	payload := entryBytes(uapi.ResourceCarveout, 0x1000, 0x2000, 4096)
	res, err := Interpret(payload, identity, &fakeMapper{}, nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.BootAddrSet || len(res.TraceBindings) != 0 {
		t.Errorf("expected no effect from ignored kind, got %+v", res)
	}
}

func TestInterpretTrailingPartialEntryIgnored(t *testing.T) {
	payload := append(entryBytes(uapi.ResourceBootAddr, 0x1000, 0, 0), []byte{1, 2, 3}...)
	res, err := Interpret(payload, identity, &fakeMapper{}, nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.BootAddrSet {
		t.Errorf("expected boot addr parsed despite trailing partial bytes")
	}
}
