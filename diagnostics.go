package rproc

import (
	"bytes"
	"context"
)

// Diagnostics is a read-only view of one processor's name, state, and
// trace buffers. It is obtained via Registry.Diagnostics and reflects a
// snapshot at the time of the call, not a live view.
type Diagnostics struct {
	Name   string
	State  State
	Trace0 []byte
	Trace1 []byte
}

// Diagnostics returns a read-only snapshot of the named processor.
func (r *Registry) Diagnostics(name string) (*Diagnostics, error) {
	r.mu.Lock()
	p, ok := r.procs[name]
	r.mu.Unlock()
	if !ok {
		return nil, NewProcessorError("diagnostics", name, ErrCodeNotFound, "no such processor")
	}

	if err := p.prim.Lock(context.Background()); err != nil {
		return nil, NewProcessorError("diagnostics", name, ErrCodeInterrupted, "interrupted")
	}
	defer p.prim.Unlock()

	d := &Diagnostics{Name: p.name, State: p.state}
	for _, b := range p.traceBindings {
		switch b.Slot {
		case "trace0":
			d.Trace0 = append([]byte(nil), b.Mapping.Bytes()...)
		case "trace1":
			d.Trace1 = append([]byte(nil), b.Mapping.Bytes()...)
		}
	}
	return d, nil
}

// TraceText returns the NUL-terminated prefix of a trace buffer. There is
// no wrap handling; ring-buffer traces are future work.
func TraceText(buf []byte) string {
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		return string(buf[:i])
	}
	return string(buf)
}
