// Package resource interprets a firmware image's embedded resource table:
// a sequence of fixed-size entries requesting host-side services (trace
// buffers, boot address).
package resource

import (
	"errors"

	"github.com/behrlich/rproc/internal/constants"
	"github.com/behrlich/rproc/internal/interfaces"
	"github.com/behrlich/rproc/internal/uapi"
)

var (
	// ErrInvalidAddress is returned when a resource entry's device address
	// cannot be translated.
	ErrInvalidAddress = errors.New("resource entry has invalid address")
	// ErrTooMany is returned when a firmware image requests more trace
	// buffers than there are slots.
	ErrTooMany = errors.New("too many trace buffer requests")
	// ErrMappingFailed is returned when a trace buffer's host mapping
	// cannot be acquired.
	ErrMappingFailed = errors.New("trace buffer mapping failed")
)

// Translator maps a device address to a host physical address (the
// internal/xlate.Translate signature, accepted here as a function value so
// this package does not need to import xlate or the processor's map).
type Translator func(da uint64) (uint64, error)

// TraceBinding is one acquired trace-buffer mapping, labeled by slot
// ("trace0" or "trace1").
type TraceBinding struct {
	Slot    string
	Mapping interfaces.Mapping
}

// Result is the outcome of successfully interpreting a resource table.
type Result struct {
	BootAddr      uint64
	BootAddrSet   bool
	TraceBindings []TraceBinding
}

// Logger is the subset of interfaces.Logger used to warn on a duplicate
// BOOTADDR entry.
type Logger interface {
	Printf(format string, args ...interface{})
}

// Interpret walks the resource entries packed in payload, dispatching each
// by kind. existingTraceBindings is the count of trace bindings already
// attached to the processor earlier in this load (from a prior RESOURCE
// section, if any) so the two-slot cap is enforced per processor, not per
// section. On any failure every trace mapping acquired during this call is
// released before the error is returned (transactional at section
// granularity).
func Interpret(payload []byte, translate Translator, mapper interfaces.Mapper, log Logger, existingTraceBindings int) (*Result, error) {
	res := &Result{}

	for len(payload) >= uapi.ResourceEntrySizeBytes {
		entry, err := uapi.UnmarshalResourceEntry(payload)
		if err != nil {
			break
		}
		payload = payload[uapi.ResourceEntrySizeBytes:]

		switch entry.Type {
		case uapi.ResourceTrace:
			if err := interpretTrace(entry, translate, mapper, res, existingTraceBindings); err != nil {
				releaseAll(res.TraceBindings)
				return nil, err
			}
		case uapi.ResourceBootAddr:
			if res.BootAddrSet {
				if log != nil {
					log.Printf("duplicate BOOTADDR resource entry, keeping first (%#x)", res.BootAddr)
				}
				continue
			}
			res.BootAddr = entry.DA
			res.BootAddrSet = true
		case uapi.ResourceCarveout, uapi.ResourceDevmem, uapi.ResourceDevice, uapi.ResourceIRQ:
			// Parsed but ignored in this revision.
		default:
			// Unknown kind: ignored silently for forward compatibility.
		}
	}

	// A trailing remainder shorter than one entry is ignored.
	return res, nil
}

func interpretTrace(entry *uapi.ResourceEntry, translate Translator, mapper interfaces.Mapper, res *Result, existingTraceBindings int) error {
	total := existingTraceBindings + len(res.TraceBindings)
	if total >= constants.MaxTraceBindings {
		return ErrTooMany
	}

	pa, err := translate(entry.DA)
	if err != nil {
		return ErrInvalidAddress
	}

	mapping, err := mapper.Acquire(pa, entry.Len)
	if err != nil {
		return ErrMappingFailed
	}

	slot := "trace0"
	if total == 1 {
		slot = "trace1"
	}
	res.TraceBindings = append(res.TraceBindings, TraceBinding{Slot: slot, Mapping: mapping})
	return nil
}

func releaseAll(bindings []TraceBinding) {
	for _, b := range bindings {
		_ = b.Mapping.Release()
	}
}
