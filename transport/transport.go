// Package transport implements the transport registry (C5): a named
// store of transport records plus the lifecycle driver that runs
// connect/listen/disconnect/close across all of them in parallel.
//
// Grounded on the teacher's internal/infrastructure/publishing
// registry.go (FormatRegistry: RWMutex-guarded map, Register/Get/
// List/Count) adapted from publishing-format registration to
// transport registration, and on parallel_publisher.go's
// fan-out-then-fan-in goroutine shape for runLifecycle.
package transport

import (
	"context"
	"sort"
	"sync"

	"github.com/afoninsky/bishop/bishoperr"
)

// SendFunc performs a request/response call against the transport.
type SendFunc func(ctx context.Context, message any) (any, error)

// NotifyFunc delivers an event without awaiting a reply.
type NotifyFunc func(ctx context.Context, message any, headers any) error

// LifecycleFunc backs the optional connect/listen/disconnect/close hooks.
type LifecycleFunc func(ctx context.Context) error

// Options carries transport-declared per-call defaults, e.g. a
// transport-specific timeout the dispatcher adopts when the caller
// did not set $timeout (§4.4 step 5).
type Options struct {
	Timeout int64 // milliseconds; 0 means "no override"
}

// Transport is the external collaborator record (§3, §6): name,
// options, a required Send, a required Notify, and optional lifecycle
// hooks.
type Transport struct {
	Name       string
	Options    Options
	Send       SendFunc
	Notify     NotifyFunc
	Connect    LifecycleFunc
	Listen     LifecycleFunc
	Disconnect LifecycleFunc
	Close      LifecycleFunc
}

// Registry holds named transports. Writers are Register (called from
// use); readers are Act and the lifecycle methods — grounded on the
// teacher's FormatRegistry RWMutex-map convention.
type Registry struct {
	mu         sync.RWMutex
	transports map[string]*Transport
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{transports: make(map[string]*Transport)}
}

// Register adds t to the registry. Fails with DUPLICATE_TRANSPORT if
// a transport under the same name already exists.
func (r *Registry) Register(t *Transport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.transports[t.Name]; exists {
		return bishoperr.New(bishoperr.DuplicateTransport, "transport already registered: "+t.Name)
	}
	r.transports[t.Name] = t
	return nil
}

// Get retrieves a transport by name.
func (r *Registry) Get(name string) (*Transport, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transports[name]
	return t, ok
}

// List returns all registered transport names, sorted for determinism.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.transports))
	for name := range r.transports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered transports.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.transports)
}

// hookSelector extracts the relevant lifecycle hook from a transport,
// used by runLifecycle to stay generic across the four entry points.
type hookSelector func(t *Transport) LifecycleFunc

// runLifecycle invokes the hook selected by sel on every registered
// transport that has it, in parallel, and resolves when all have
// completed. Errors are aggregated by re-raising the first failure
// after awaiting the rest, grounded on parallel_publisher.go's
// fan-out-then-fan-in shape (one goroutine per transport,
// sync.WaitGroup, first error retained).
func (r *Registry) runLifecycle(ctx context.Context, sel hookSelector) error {
	r.mu.RLock()
	hooks := make([]LifecycleFunc, 0, len(r.transports))
	for _, t := range r.transports {
		if hook := sel(t); hook != nil {
			hooks = append(hooks, hook)
		}
	}
	r.mu.RUnlock()

	if len(hooks) == 0 {
		return nil
	}

	errs := make([]error, len(hooks))
	var wg sync.WaitGroup
	wg.Add(len(hooks))
	for i, hook := range hooks {
		go func(i int, hook LifecycleFunc) {
			defer wg.Done()
			errs[i] = hook(ctx)
		}(i, hook)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Connect invokes the connect hook across all transports.
func (r *Registry) Connect(ctx context.Context) error {
	return r.runLifecycle(ctx, func(t *Transport) LifecycleFunc { return t.Connect })
}

// Listen invokes the listen hook across all transports.
func (r *Registry) Listen(ctx context.Context) error {
	return r.runLifecycle(ctx, func(t *Transport) LifecycleFunc { return t.Listen })
}

// Disconnect invokes the disconnect hook across all transports.
//
// Open Question resolution (§9): the source's disconnect invokes the
// connect hook (apparent bug). This implementation invokes Disconnect,
// not Connect.
func (r *Registry) Disconnect(ctx context.Context) error {
	return r.runLifecycle(ctx, func(t *Transport) LifecycleFunc { return t.Disconnect })
}

// Close invokes the close hook across all transports.
func (r *Registry) Close(ctx context.Context) error {
	return r.runLifecycle(ctx, func(t *Transport) LifecycleFunc { return t.Close })
}
