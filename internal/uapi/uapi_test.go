package uapi

import (
	"bytes"
	"testing"
	"unsafe"
)

// Test in-memory structure sizes. ContainerHeader and SectionHeader match
// their wire sizes; ResourceEntry is 80 bytes in memory against 76 on the
// wire because of alignment padding.
func TestStructSizes(t *testing.T) {
	tests := []struct {
		name     string
		size     uintptr
		expected int
	}{
		{"ContainerHeader", unsafe.Sizeof(ContainerHeader{}), 12},
		{"SectionHeader", unsafe.Sizeof(SectionHeader{}), 16},
		{"ResourceEntry", unsafe.Sizeof(ResourceEntry{}), 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if int(tt.size) != tt.expected {
				t.Errorf("%s size = %d, want %d", tt.name, tt.size, tt.expected)
			}
		})
	}
}

func TestContainerHeaderRoundTrip(t *testing.T) {
	h := &ContainerHeader{Magic: [4]byte{'R', 'P', 'R', 'C'}, Version: 1, HeaderLen: 16}
	buf := MarshalContainerHeader(h)
	if len(buf) != 12 {
		t.Fatalf("expected 12 bytes, got %d", len(buf))
	}

	got, err := UnmarshalContainerHeader(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Magic != h.Magic || got.Version != h.Version || got.HeaderLen != h.HeaderLen {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, h)
	}
}

func TestContainerHeaderTruncated(t *testing.T) {
	if _, err := UnmarshalContainerHeader([]byte{1, 2, 3}); err != ErrInsufficientData {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestSectionHeaderRoundTrip(t *testing.T) {
	h := &SectionHeader{Type: SectionData, DA: 0x1000, Len: 4}
	buf := MarshalSectionHeader(h)

	got, err := UnmarshalSectionHeader(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *got != *h {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, h)
	}
}

func TestResourceEntryRoundTrip(t *testing.T) {
	r := &ResourceEntry{Type: ResourceTrace, DA: 0x2000, PA: 0x3000, Len: 1024, Flags: 0}
	copy(r.Name[:], "trace0")
	buf := MarshalResourceEntry(r)
	if len(buf) != ResourceEntrySizeBytes {
		t.Fatalf("expected %d bytes, got %d", ResourceEntrySizeBytes, len(buf))
	}

	got, err := UnmarshalResourceEntry(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Type != r.Type || got.DA != r.DA || got.PA != r.PA || got.Len != r.Len {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, r)
	}
	if got.NameString() != "trace0" {
		t.Errorf("NameString() = %q, want %q", got.NameString(), "trace0")
	}
	if !bytes.Equal(got.Name[:], r.Name[:]) {
		t.Error("name bytes do not match")
	}
}

func TestSectionTypeString(t *testing.T) {
	cases := map[SectionType]string{
		SectionResource: "resource",
		SectionText:     "text",
		SectionData:     "data",
		SectionType(99): "unknown",
	}
	for in, want := range cases {
		if got := in.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", in, got, want)
		}
	}
}

func TestResourceTypeString(t *testing.T) {
	cases := map[ResourceType]string{
		ResourceCarveout: "carveout",
		ResourceDevmem:   "devmem",
		ResourceDevice:   "device",
		ResourceIRQ:      "irq",
		ResourceTrace:    "trace",
		ResourceBootAddr: "bootaddr",
		ResourceType(99): "unknown",
	}
	for in, want := range cases {
		if got := in.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", in, got, want)
		}
	}
}
