// Package loader places a firmware image's sections into host-visible
// memory, translating each section's device address and dispatching the
// embedded resource table as it goes.
package loader

import (
	"errors"

	"github.com/behrlich/rproc/internal/fwparse"
	"github.com/behrlich/rproc/internal/interfaces"
	"github.com/behrlich/rproc/internal/resource"
	"github.com/behrlich/rproc/internal/uapi"
)

// ErrInvalidAddress is returned when a section's device address cannot be
// translated.
var ErrInvalidAddress = errors.New("section has invalid address")

// ErrMappingFailed is returned when a section's host mapping cannot be
// acquired.
var ErrMappingFailed = errors.New("section mapping failed")

// Result is the outcome of successfully loading every section in a stream.
type Result struct {
	BootAddr      uint64
	BootAddrSet   bool
	TraceBindings []resource.TraceBinding
}

// Load iterates sections, translating, mapping, copying, and (for RESOURCE
// sections) dispatching the resource-table interpreter on the bytes just
// written. Any failure releases every trace binding attached earlier in
// this load and returns the error; the section stream is abandoned.
func Load(stream *fwparse.SectionStream, translate resource.Translator, mapper interfaces.Mapper, log resource.Logger) (*Result, error) {
	res := &Result{}

	for {
		sec, err := stream.Next()
		if err != nil {
			rollback(res.TraceBindings)
			return nil, err
		}
		if sec == nil {
			return res, nil
		}

		if err := loadSection(sec, translate, mapper, log, res); err != nil {
			rollback(res.TraceBindings)
			return nil, err
		}
	}
}

func loadSection(sec *fwparse.Section, translate resource.Translator, mapper interfaces.Mapper, log resource.Logger, res *Result) error {
	pa, err := translate(sec.DA)
	if err != nil {
		return ErrInvalidAddress
	}

	mapping, err := mapper.Acquire(pa, uint32(len(sec.Payload)))
	if err != nil {
		return ErrMappingFailed
	}
	defer mapping.Release()

	copy(mapping.Bytes(), sec.Payload)

	if sec.Type == uapi.SectionResource {
		rr, err := resource.Interpret(mapping.Bytes(), translate, mapper, log, len(res.TraceBindings))
		if err != nil {
			return err
		}
		if rr.BootAddrSet && !res.BootAddrSet {
			res.BootAddr = rr.BootAddr
			res.BootAddrSet = true
		}
		res.TraceBindings = append(res.TraceBindings, rr.TraceBindings...)
	}

	return nil
}

func rollback(bindings []resource.TraceBinding) {
	for _, b := range bindings {
		_ = b.Mapping.Release()
	}
}
