package loader

import (
	"errors"
	"testing"

	"github.com/behrlich/rproc/internal/fwparse"
	"github.com/behrlich/rproc/internal/interfaces"
	"github.com/behrlich/rproc/internal/uapi"
)

type fakeMapping struct {
	data     []byte
	released bool
}

func (m *fakeMapping) Bytes() []byte  { return m.data }
func (m *fakeMapping) Release() error { m.released = true; return nil }

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

func buildImage(sections [][]byte) []byte {
	hdr := &uapi.ContainerHeader{Magic: [4]byte{'R', 'P', 'R', 'C'}, Version: 1, HeaderLen: 0}
	buf := append([]byte{}, uapi.MarshalContainerHeader(hdr)...)
	for _, s := range sections {
		buf = append(buf, s...)
	}
	return buf
}

func buildSection(typ uapi.SectionType, da uint64, payload []byte) []byte {
	h := &uapi.SectionHeader{Type: typ, DA: da, Len: uint32(len(payload))}
	return append(uapi.MarshalSectionHeader(h), payload...)
}

func TestLoadDataSection(t *testing.T) {
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	img := buildImage([][]byte{buildSection(uapi.SectionData, 0x1000, payload)})

	c, err := fwparse.Parse(img)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	mapper := &fakeMapper{}
	res, err := Load(c.Sections(), identity, mapper, nil)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if res.BootAddrSet {
		t.Errorf("expected no boot addr for a plain DATA section")
	}
	if len(mapper.mappings) != 1 {
		t.Fatalf("expected 1 mapping acquired, got %d", len(mapper.mappings))
	}
	if string(mapper.mappings[0].data) != string(payload) {
		t.Errorf("mapped data = %x, want %x", mapper.mappings[0].data, payload)
	}
	if !mapper.mappings[0].released {
		t.Errorf("expected temporary mapping to be released after load")
	}
}

func TestLoadResourceSectionBootAddr(t *testing.T) {
	entry := &uapi.ResourceEntry{Type: uapi.ResourceBootAddr, DA: 0x10080000}
	rsc := buildSection(uapi.SectionResource, 0, uapi.MarshalResourceEntry(entry))
	img := buildImage([][]byte{rsc})

	c, err := fwparse.Parse(img)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	res, err := Load(c.Sections(), identity, &fakeMapper{}, nil)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if !res.BootAddrSet || res.BootAddr != 0x10080000 {
		t.Errorf("res = %+v, want BootAddr=0x10080000", res)
	}
}

func TestLoadTruncatedSectionRollsBackTraceBindings(t *testing.T) {
	traceEntry := &uapi.ResourceEntry{Type: uapi.ResourceTrace, DA: 0xA, Len: 16}
	rsc := buildSection(uapi.SectionResource, 0, uapi.MarshalResourceEntry(traceEntry))
	img := buildImage([][]byte{rsc})
	// Append a bogus, truncated section header after the valid one.
	img = append(img, uapi.MarshalSectionHeader(&uapi.SectionHeader{Type: uapi.SectionData, DA: 0, Len: 100})...)

	c, err := fwparse.Parse(img)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	mapper := &fakeMapper{}
	_, err = Load(c.Sections(), identity, mapper, nil)
	if !errors.Is(err, fwparse.ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
	if len(mapper.mappings) < 2 {
		t.Fatalf("expected at least the trace mapping to be acquired, got %d", len(mapper.mappings))
	}
	traceMapping := mapper.mappings[1]
	if !traceMapping.released {
		t.Errorf("expected trace mapping to be rolled back on later truncation")
	}
}

func TestLoadInvalidAddressPropagates(t *testing.T) {
	img := buildImage([][]byte{buildSection(uapi.SectionData, 0x9999, []byte{1})})
	c, err := fwparse.Parse(img)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	failTranslate := func(da uint64) (uint64, error) { return 0, errors.New("no match") }
	_, err = Load(c.Sections(), failTranslate, &fakeMapper{}, nil)
	if !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("expected ErrInvalidAddress, got %v", err)
	}
}
