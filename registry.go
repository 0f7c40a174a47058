package rproc

import (
	"context"
	"fmt"
	"sync"

	"github.com/behrlich/rproc/internal/constants"
	"github.com/behrlich/rproc/internal/interfaces"
	"github.com/behrlich/rproc/internal/logging"
	"github.com/behrlich/rproc/internal/primitive"
)

// Registry is a process-wide named set of remote processors with
// concurrent-safe insert/lookup/remove. A single
// registry-wide lock protects the map itself; it is never held at the
// same time as a processor's own serialization primitive.
type Registry struct {
	mu    sync.Mutex
	procs map[string]*processor

	cfg Config
}

// NewRegistry creates an empty Registry using cfg. If cfg.Logger is nil,
// logging.Default() is used. cfg.Metrics is always populated with a fresh
// Metrics if nil. If the caller also leaves cfg.Observer nil, it defaults
// to a MetricsObserver wired to that same Metrics, so Registry.Metrics
// reports real numbers out of the box; supplying a custom Observer opts
// out of that wiring and Metrics stays zero unless the caller records
// into it itself.
func NewRegistry(cfg Config) *Registry {
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics()
	}
	if cfg.Observer == nil {
		cfg.Observer = NewMetricsObserver(cfg.Metrics)
	}
	return &Registry{
		procs: make(map[string]*processor),
		cfg:   cfg,
	}
}

func (r *Registry) logger() interfaces.Logger {
	if r.cfg.Logger != nil {
		return r.cfg.Logger
	}
	return logging.Default()
}

func (r *Registry) observer() Observer {
	return r.cfg.Observer
}

// Metrics returns the registry's metrics instance.
func (r *Registry) Metrics() *Metrics {
	return r.cfg.Metrics
}

// Register validates and links in a new processor record.
// Duplicate names are rejected with Exists.
func (r *Registry) Register(name string, ops Ops) error {
	if name == "" || len(name) > constants.MaxNameLength {
		return fmt.Errorf("rproc: register: processor name must be non-empty and at most %d bytes", constants.MaxNameLength)
	}
	if ops.Backend == nil {
		return fmt.Errorf("rproc: register %q: ops.Backend must not be nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.procs[name]; exists {
		return NewProcessorError("register", name, ErrCodeExists, "processor already registered")
	}

	r.procs[name] = &processor{
		name:  name,
		ops:   ops,
		prim:  primitive.New(),
		state: StateOffline,
	}
	r.logger().Printf("registered processor %q", name)
	return nil
}

// Unregister withdraws a processor's registration. It fails with Busy if
// the processor currently has any outstanding acquisitions.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	p, ok := r.procs[name]
	r.mu.Unlock()
	if !ok {
		return NewProcessorError("unregister", name, ErrCodeNotFound, "no such processor")
	}

	if err := p.prim.Lock(context.Background()); err != nil {
		return NewProcessorError("unregister", name, ErrCodeInterrupted, "interrupted")
	}
	if p.refcount > 0 {
		p.prim.Unlock()
		r.observer().ObserveBusyRejection()
		return NewProcessorError("unregister", name, ErrCodeBusy, "processor has outstanding acquisitions")
	}
	p.withdrawn = true
	p.prim.Unlock()

	r.mu.Lock()
	delete(r.procs, name)
	r.mu.Unlock()

	r.logger().Printf("unregistered processor %q", name)
	return nil
}

// Get acquires a handle to the named processor, kicking off an
// asynchronous firmware load if this is the first outstanding acquisition.
func (r *Registry) Get(ctx context.Context, name string) (*Handle, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	r.mu.Lock()
	p, ok := r.procs[name]
	r.mu.Unlock()
	if !ok {
		return nil, NewProcessorError("get", name, ErrCodeNotFound, "no such processor")
	}

	return r.acquire(ctx, p)
}

// Put releases a handle acquired via Get. It blocks until any in-flight
// firmware load for the handle's processor has completed.
func (r *Registry) Put(h *Handle) error {
	if h == nil || h.p == nil {
		return NewError("put", ErrCodeAsymmetricRelease, "nil handle")
	}
	return r.release(h)
}
