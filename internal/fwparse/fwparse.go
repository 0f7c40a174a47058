// Package fwparse validates a firmware container's header and exposes its
// sections as a lazy stream. It decodes the on-wire format with explicit
// little-endian field reads rather than unsafe struct overlays.
package fwparse

import (
	"errors"

	"github.com/behrlich/rproc/internal/constants"
	"github.com/behrlich/rproc/internal/uapi"
)

var (
	// ErrTooSmall is returned when the buffer is shorter than a container
	// header.
	ErrTooSmall = errors.New("firmware image smaller than container header")
	// ErrBadMagic is returned when the container's magic bytes do not match
	// "RPRC".
	ErrBadMagic = errors.New("firmware image has bad magic")
	// ErrTruncated is returned when a section header or payload runs past
	// the end of the buffer.
	ErrTruncated = errors.New("firmware image truncated")
)

// Section is one decoded section: its header plus a slice into the
// original buffer for its payload (no copy).
type Section struct {
	Type    uapi.SectionType
	DA      uint64
	Payload []byte
}

// Container is a parsed firmware image: the free-form text header plus the
// remaining bytes available for section iteration.
type Container struct {
	TextHeader []byte
	body       []byte
}

// Parse validates the container header and returns a Container ready for
// section iteration. It does not itself decode sections; call Sections.
func Parse(data []byte) (*Container, error) {
	if len(data) < uapi.ContainerHeaderSizeBytes {
		return nil, ErrTooSmall
	}
	hdr, err := uapi.UnmarshalContainerHeader(data)
	if err != nil {
		return nil, ErrTooSmall
	}
	if hdr.Magic != constants.FirmwareMagic {
		return nil, ErrBadMagic
	}

	bodyStart := uapi.ContainerHeaderSizeBytes + int(hdr.HeaderLen)
	if bodyStart > len(data) {
		return nil, ErrTruncated
	}

	return &Container{
		TextHeader: data[uapi.ContainerHeaderSizeBytes:bodyStart],
		body:       data[bodyStart:],
	}, nil
}

// Sections returns a lazy iterator over the container's sections in order.
// Each call to Next advances the stream; it returns (nil, nil) when the
// stream is exhausted.
func (c *Container) Sections() *SectionStream {
	return &SectionStream{remaining: c.body}
}

// SectionStream is a forward-only iterator over a container's sections.
type SectionStream struct {
	remaining []byte
}

// Next decodes and returns the next section, or (nil, nil) at end of
// stream. A malformed header or truncated payload yields ErrTruncated.
func (s *SectionStream) Next() (*Section, error) {
	if len(s.remaining) == 0 {
		return nil, nil
	}
	if len(s.remaining) < uapi.SectionHeaderSizeBytes {
		return nil, ErrTruncated
	}

	hdr, err := uapi.UnmarshalSectionHeader(s.remaining)
	if err != nil {
		return nil, ErrTruncated
	}
	s.remaining = s.remaining[uapi.SectionHeaderSizeBytes:]

	if uint64(len(s.remaining)) < uint64(hdr.Len) {
		return nil, ErrTruncated
	}
	payload := s.remaining[:hdr.Len]
	s.remaining = s.remaining[hdr.Len:]

	return &Section{Type: hdr.Type, DA: hdr.DA, Payload: payload}, nil
}
