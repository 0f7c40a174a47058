package rproc

import (
	"context"
	"time"

	"github.com/behrlich/rproc/internal/fwparse"
	"github.com/behrlich/rproc/internal/loader"
	"github.com/behrlich/rproc/internal/primitive"
	"github.com/behrlich/rproc/internal/resource"
	"github.com/behrlich/rproc/internal/xlate"
)

// processor is one registered remote-processor record. Its mutable fields
// are guarded exclusively by prim, the per-processor serialization
// primitive — the registry lock is never held at the
// same time as prim.
type processor struct {
	name string
	ops  Ops

	prim primitive.Primitive

	state         State
	refcount      int
	traceBindings []resource.TraceBinding
	bootAddr      uint64
	bootAddrSet   bool
	loadDone      chan struct{}
	withdrawn     bool
}

// Handle is a reference-counted capability representing a live acquisition
// of a remote processor.
type Handle struct {
	p *processor
}

// Name returns the acquired processor's name.
func (h *Handle) Name() string { return h.p.name }

// acquire implements the get() acquisition contract.
func (r *Registry) acquire(ctx context.Context, p *processor) (*Handle, error) {
	if err := p.prim.Lock(ctx); err != nil {
		return nil, NewProcessorError("get", p.name, ErrCodeInterrupted, "interrupted waiting for serialization primitive")
	}

	if p.withdrawn {
		p.prim.Unlock()
		r.observer().ObserveBusyRejection()
		return nil, NewProcessorError("get", p.name, ErrCodeBusy, "processor is being unregistered")
	}

	p.refcount++
	fastPath := p.refcount > 1

	if fastPath {
		refcount := p.refcount
		p.prim.Unlock()
		r.observer().ObserveAcquire(refcount)
		return &Handle{p: p}, nil
	}

	if p.ops.Firmware == "" {
		p.refcount--
		p.prim.Unlock()
		return nil, NewProcessorError("get", p.name, ErrCodeMissingFirmware, "no firmware set for processor")
	}

	p.loadDone = make(chan struct{})
	p.state = StateLoading
	done := p.loadDone
	p.prim.Unlock()

	r.observer().ObserveAcquire(1)
	r.observer().ObserveLoadStart()
	go r.runLoad(p, done)

	return &Handle{p: p}, nil
}

// runLoad is the async firmware-fetch completion callback.
// It runs on a worker goroutine decoupled from the acquiring caller.
func (r *Registry) runLoad(p *processor, done chan struct{}) {
	start := time.Now()
	ctx := context.Background()

	ok := r.runLoadInner(ctx, p)

	r.observer().ObserveLoad(uint64(time.Since(start).Nanoseconds()), ok)
	close(done)
}

func (r *Registry) runLoadInner(ctx context.Context, p *processor) bool {
	if r.cfg.Fetcher == nil || r.cfg.Mapper == nil {
		r.logger().Printf("firmware load failed for %q: registry has no Fetcher or Mapper", p.name)
		p.failLoad()
		return false
	}

	blob, err := r.cfg.Fetcher.Fetch(ctx, p.ops.Firmware)
	if err != nil || len(blob) == 0 {
		r.logger().Printf("firmware fetch failed for %q: %v", p.name, err)
		p.failLoad()
		return false
	}

	container, err := fwparse.Parse(blob)
	if err != nil {
		r.logger().Printf("firmware parse failed for %q: %v", p.name, err)
		p.failLoad()
		return false
	}

	translate := func(da uint64) (uint64, error) { return xlate.Translate(p.ops.Maps, da) }
	result, err := loader.Load(container.Sections(), translate, r.cfg.Mapper, r.logger())
	if err != nil {
		r.logger().Printf("firmware load failed for %q: %v", p.name, err)
		p.failLoad()
		return false
	}

	if err := p.prim.Lock(ctx); err != nil {
		releaseBindings(result.TraceBindings)
		p.failLoad()
		return false
	}

	if err := p.ops.Backend.Start(ctx, result.BootAddr); err != nil {
		p.prim.Unlock()
		r.logger().Printf("backend start failed for %q: %v", p.name, err)
		r.observer().ObserveBackendStart(false)
		releaseBindings(result.TraceBindings)
		p.failLoad()
		return false
	}
	r.observer().ObserveBackendStart(true)

	p.traceBindings = result.TraceBindings
	p.bootAddr = result.BootAddr
	p.bootAddrSet = result.BootAddrSet
	p.state = StateRunning
	r.observer().ObserveTraceBinding(len(p.traceBindings))
	p.prim.Unlock()

	return true
}

// failLoad forces the processor back to OFFLINE with refcount 0, the
// terminal outcome for every pipeline failure during an async load.
func (p *processor) failLoad() {
	ctx := context.Background()
	if err := p.prim.Lock(ctx); err != nil {
		return
	}
	p.state = StateOffline
	p.refcount = 0
	p.traceBindings = nil
	p.bootAddrSet = false
	p.prim.Unlock()
}

func releaseBindings(bindings []resource.TraceBinding) {
	for _, b := range bindings {
		_ = b.Mapping.Release()
	}
}

// release implements the put() release contract.
func (r *Registry) release(h *Handle) error {
	p := h.p
	ctx := context.Background()

	// Read whichever completion signal is current and wait on it before
	// touching refcount: a load that is still in flight may fail and force
	// refcount to 0 on its own, so the "already zero" check below must see
	// the post-load state, not a stale mid-load snapshot.
	if err := p.prim.Lock(ctx); err != nil {
		return NewProcessorError("put", p.name, ErrCodeInterrupted, "interrupted waiting for serialization primitive")
	}
	done := p.loadDone
	p.prim.Unlock()

	if done != nil {
		<-done
	}

	if err := p.prim.Lock(ctx); err != nil {
		return NewProcessorError("put", p.name, ErrCodeInterrupted, "interrupted waiting for serialization primitive")
	}
	if p.refcount == 0 {
		p.prim.Unlock()
		r.observer().ObserveAsymmetricRelease()
		return NewProcessorError("put", p.name, ErrCodeAsymmetricRelease, "release called with refcount already zero")
	}
	p.refcount--
	refcount := p.refcount
	if refcount > 0 {
		p.prim.Unlock()
		r.observer().ObserveRelease(refcount)
		return nil
	}

	bindings := p.traceBindings
	p.traceBindings = nil
	p.bootAddrSet = false

	wasRunning := p.state == StateRunning
	var backendErr error
	if wasRunning {
		backendErr = p.ops.Backend.Stop(ctx)
	}
	p.state = StateOffline
	p.prim.Unlock()

	releaseBindings(bindings)
	r.observer().ObserveTraceBinding(0)
	r.observer().ObserveRelease(0)

	if wasRunning {
		r.observer().ObserveBackendStop(backendErr == nil)
	}
	if backendErr != nil {
		r.logger().Printf("backend stop failed for %q: %v", p.name, backendErr)
	}

	return nil
}
