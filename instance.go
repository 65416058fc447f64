// Package bishop implements a pattern-matched RPC dispatch core: callers
// invoke a handler by supplying a pattern (an unordered string-keyed map),
// the Instance selects the most specific registered pattern that is a
// subset of the request, dispatches to a local handler or a named
// transport, enforces a timeout, and fans the completed call out to
// subscriber transports and a process-wide event bus.
//
// The package composes the lower-level packages under this module:
// pattern (parsing/splitting/beautifying), index (the subset-match
// store), headers (meta-flag normalization), transport (the named
// transport registry), notify (fan-out and the event bus), plugin (the
// plugin host) and bishoperr (typed error kinds and the terminateOn
// classifier).
package bishop

import (
	"context"
	"sync"

	"github.com/afoninsky/bishop/bishoperr"
	"github.com/afoninsky/bishop/headers"
	"github.com/afoninsky/bishop/index"
	"github.com/afoninsky/bishop/internal/config"
	"github.com/afoninsky/bishop/notify"
	"github.com/afoninsky/bishop/pattern"
	"github.com/afoninsky/bishop/pkg/logger"
	"github.com/afoninsky/bishop/plugin"
	"github.com/afoninsky/bishop/transport"
)

// Handler is a local registration's callable: it receives the matched
// message (the non-meta portion of the composed request pattern) and
// the normalized headers for this call. A step of a chain registered
// with AddChain may set h.Break to stop the remaining steps (§4.4
// expansion, spec.md S7); separate Add registrations under overlapping
// patterns are never chained, so Break has no effect on them.
type Handler func(ctx context.Context, h *headers.Headers, msg pattern.Pattern) (any, error)

// regPayload is the value stored in the pattern index for every
// registration (§3 "Payload (registration record)"): either a local
// handler, or the name of a transport the dispatcher resolves at call
// time.
type regPayload struct {
	transport string // empty means local
	handler   Handler
}

// Instance is a dispatch core: two pattern indices (all registrations,
// and local-only), a transport registry, a process-wide event bus, a
// named-routes bundle populated by plugins, and the construction-time
// configuration driving match order, timeouts and error classification.
//
// Ownership (§3, §5): Instance exclusively owns all, localOnly,
// transports, bus and routes. Handlers own no framework state.
type Instance struct {
	cfg *config.Config
	log *logger.Logger

	cache      *pattern.Cache
	all        *index.Index
	localOnly  *index.Index
	transports *transport.Registry
	bus        *notify.Bus
	classifier bishoperr.Classifier
	metrics    *metrics

	routesMu sync.RWMutex
	routes   map[string]map[string]any
}

// New builds an Instance from its construction-time configuration and
// a logger. The classifier is built from cfg.TerminateOn as a
// NameListClassifier — callers needing a predicate-based classifier
// (the "Predicate(fn)" arm of the terminateOn sum type, §9) should set
// it with SetClassifier after construction.
func New(cfg *config.Config, log *logger.Logger) (*Instance, error) {
	cache, err := pattern.NewCache(cfg.RegexCacheSize)
	if err != nil {
		return nil, err
	}

	m, err := newMetrics()
	if err != nil {
		return nil, err
	}

	return &Instance{
		cfg:        cfg,
		log:        log,
		cache:      cache,
		all:        index.New(),
		localOnly:  index.New(),
		transports: transport.NewRegistry(),
		bus:        notify.NewBus(),
		classifier: bishoperr.NewNameListClassifier(cfg.TerminateOn),
		metrics:    m,
		routes:     make(map[string]map[string]any),
	}, nil
}

// SetClassifier overrides the default NameListClassifier, e.g. with a
// bishoperr.PredicateClassifier — the "Predicate(fn)" arm of the
// terminateOn sum type (§9).
func (in *Instance) SetClassifier(c bishoperr.Classifier) {
	in.classifier = c
}

// RegisterTransport implements plugin.Host: it installs t into the
// transport registry, failing with DUPLICATE_TRANSPORT if t.Name is
// already registered.
func (in *Instance) RegisterTransport(t *transport.Transport) error {
	return in.transports.Register(t)
}

// MergeRoutes implements plugin.Host: it merges routes into the
// named-routes bundle for name, right-biased on key collision.
func (in *Instance) MergeRoutes(name string, routes map[string]any) {
	in.routesMu.Lock()
	defer in.routesMu.Unlock()

	bucket, ok := in.routes[name]
	if !ok {
		bucket = make(map[string]any, len(routes))
		in.routes[name] = bucket
	}
	for k, v := range routes {
		bucket[k] = v
	}
}

// Routes returns the named-routes bundle merged by plugins under name
// (§4.7), for external consumers (§5 "readers: external consumers").
func (in *Instance) Routes(name string) (map[string]any, bool) {
	in.routesMu.RLock()
	defer in.routesMu.RUnlock()
	r, ok := in.routes[name]
	return r, ok
}

// Use resolves pluginOrLocator to a callable and invokes it with this
// Instance as the plugin.Host (§4.7).
func (in *Instance) Use(ctx context.Context, pluginOrLocator any, resolver plugin.Resolver, args ...any) error {
	return plugin.Use(ctx, pluginOrLocator, resolver, in, args...)
}

// Connect drives the connect lifecycle hook across every registered
// transport, in parallel (§4.5).
func (in *Instance) Connect(ctx context.Context) error {
	return in.transports.Connect(ctx)
}

// Listen drives the listen lifecycle hook across every registered
// transport, in parallel (§4.5).
func (in *Instance) Listen(ctx context.Context) error {
	return in.transports.Listen(ctx)
}

// Disconnect drives the disconnect lifecycle hook across every
// registered transport, in parallel (§4.5, §9 Open Question: invokes
// disconnect, not connect).
func (in *Instance) Disconnect(ctx context.Context) error {
	return in.transports.Disconnect(ctx)
}

// Close drives the close lifecycle hook across every registered
// transport, in parallel.
func (in *Instance) Close(ctx context.Context) error {
	return in.transports.Close(ctx)
}
