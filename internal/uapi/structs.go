// Package uapi defines the on-wire layout of the firmware container format:
// the container header, section headers, and resource table entries.
// Structures are decoded field-by-field with explicit little-endian byte
// order rather than unsafe struct overlays: portable, and straightforward
// to fuzz.
package uapi

import "unsafe"

// ContainerHeader is the fixed portion of the firmware container header.
// On the wire: magic[4]='RPRC', version:u32_le, header_len:u32_le, followed
// by header_len bytes of free-form text (not part of this struct).
type ContainerHeader struct {
	Magic     [4]byte
	Version   uint32
	HeaderLen uint32
}

// Compile-time size check - the fixed header is exactly 12 bytes.
var _ [12]byte = [unsafe.Sizeof(ContainerHeader{})]byte{}

// SectionType identifies the kind of payload a section carries.
type SectionType uint32

const (
	SectionResource SectionType = 0
	SectionText     SectionType = 1
	SectionData     SectionType = 2
)

func (t SectionType) String() string {
	switch t {
	case SectionResource:
		return "resource"
	case SectionText:
		return "text"
	case SectionData:
		return "data"
	default:
		return "unknown"
	}
}

// SectionHeader precedes every section's payload.
// On the wire: type:u32_le, da:u64_le, len:u32_le. DA is declared first in
// the struct so the in-memory layout has no padding.
type SectionHeader struct {
	DA   uint64
	Type SectionType
	Len  uint32
}

// Compile-time size check - 16 bytes.
var _ [16]byte = [unsafe.Sizeof(SectionHeader{})]byte{}

// ResourceType identifies the kind of service a resource entry requests.
type ResourceType uint32

const (
	ResourceCarveout ResourceType = 0
	ResourceDevmem   ResourceType = 1
	ResourceDevice   ResourceType = 2
	ResourceIRQ      ResourceType = 3
	ResourceTrace    ResourceType = 4
	ResourceBootAddr ResourceType = 5
)

func (t ResourceType) String() string {
	switch t {
	case ResourceCarveout:
		return "carveout"
	case ResourceDevmem:
		return "devmem"
	case ResourceDevice:
		return "device"
	case ResourceIRQ:
		return "irq"
	case ResourceTrace:
		return "trace"
	case ResourceBootAddr:
		return "bootaddr"
	default:
		return "unknown"
	}
}

// ResourceNameLength is the size of the NUL-padded name field.
const ResourceNameLength = 48

// ResourceEntry describes a single resource table entry.
// On the wire (76 bytes, packed): type:u32_le, da:u64_le, pa:u64_le,
// len:u32_le, flags:u32_le, name[48]:u8.
type ResourceEntry struct {
	Type  ResourceType
	DA    uint64
	PA    uint64
	Len   uint32
	Flags uint32
	Name  [ResourceNameLength]byte
}

// Compile-time size check - 80 bytes in memory: the 76 bytes of fields
// (4+8+8+4+4+48) plus 4 bytes of alignment padding after Type.
var _ [80]byte = [unsafe.Sizeof(ResourceEntry{})]byte{}

// NameString returns the NUL-terminated portion of the entry's name field.
func (r *ResourceEntry) NameString() string {
	n := 0
	for n < len(r.Name) && r.Name[n] != 0 {
		n++
	}
	return string(r.Name[:n])
}
