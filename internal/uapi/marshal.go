package uapi

import "encoding/binary"

// MarshalError reports a marshal/unmarshal failure.
type MarshalError string

func (e MarshalError) Error() string { return string(e) }

const (
	ErrInsufficientData MarshalError = "insufficient data for unmarshaling"
	ErrBadMagic         MarshalError = "bad container magic"
)

// ContainerHeaderSizeBytes is the on-wire size of the fixed portion of a
// container header (excludes the variable-length free-form text header).
const ContainerHeaderSizeBytes = 12

// MarshalContainerHeader converts a ContainerHeader to its 12-byte wire form.
func MarshalContainerHeader(h *ContainerHeader) []byte {
	buf := make([]byte, 12)
	copy(buf[0:4], h.Magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.HeaderLen)
	return buf
}

// UnmarshalContainerHeader reads a ContainerHeader from its 12-byte wire
// form. Callers are responsible for checking the magic via h.Magic.
func UnmarshalContainerHeader(data []byte) (*ContainerHeader, error) {
	if len(data) < 12 {
		return nil, ErrInsufficientData
	}
	h := &ContainerHeader{}
	copy(h.Magic[:], data[0:4])
	h.Version = binary.LittleEndian.Uint32(data[4:8])
	h.HeaderLen = binary.LittleEndian.Uint32(data[8:12])
	return h, nil
}

// SectionHeaderSizeBytes is the on-wire size of a SectionHeader.
const SectionHeaderSizeBytes = 16

// MarshalSectionHeader converts a SectionHeader to its 16-byte wire form.
func MarshalSectionHeader(h *SectionHeader) []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(h.Type))
	binary.LittleEndian.PutUint64(buf[4:12], h.DA)
	binary.LittleEndian.PutUint32(buf[12:16], h.Len)
	return buf
}

// UnmarshalSectionHeader reads a SectionHeader from its 16-byte wire form.
func UnmarshalSectionHeader(data []byte) (*SectionHeader, error) {
	if len(data) < 16 {
		return nil, ErrInsufficientData
	}
	return &SectionHeader{
		Type: SectionType(binary.LittleEndian.Uint32(data[0:4])),
		DA:   binary.LittleEndian.Uint64(data[4:12]),
		Len:  binary.LittleEndian.Uint32(data[12:16]),
	}, nil
}

// MarshalResourceEntry converts a ResourceEntry to its 76-byte wire form.
func MarshalResourceEntry(r *ResourceEntry) []byte {
	buf := make([]byte, ResourceEntrySizeBytes)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(r.Type))
	binary.LittleEndian.PutUint64(buf[4:12], r.DA)
	binary.LittleEndian.PutUint64(buf[12:20], r.PA)
	binary.LittleEndian.PutUint32(buf[20:24], r.Len)
	binary.LittleEndian.PutUint32(buf[24:28], r.Flags)
	copy(buf[28:28+ResourceNameLength], r.Name[:])
	return buf
}

// ResourceEntrySizeBytes is the on-wire size of a ResourceEntry.
const ResourceEntrySizeBytes = 4 + 8 + 8 + 4 + 4 + ResourceNameLength

// UnmarshalResourceEntry reads a ResourceEntry from its 76-byte wire form.
func UnmarshalResourceEntry(data []byte) (*ResourceEntry, error) {
	if len(data) < ResourceEntrySizeBytes {
		return nil, ErrInsufficientData
	}
	r := &ResourceEntry{
		Type:  ResourceType(binary.LittleEndian.Uint32(data[0:4])),
		DA:    binary.LittleEndian.Uint64(data[4:12]),
		PA:    binary.LittleEndian.Uint64(data[12:20]),
		Len:   binary.LittleEndian.Uint32(data[20:24]),
		Flags: binary.LittleEndian.Uint32(data[24:28]),
	}
	copy(r.Name[:], data[28:28+ResourceNameLength])
	return r, nil
}
