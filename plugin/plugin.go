// Package plugin implements the plugin host (C7): resolving a plugin
// locator to a callable, invoking it with the instance, and
// classifying its return value as installing a transport or merging a
// named-routes bundle.
//
// The function-or-struct duality of Func/Plugin is grounded on
// bjaus-dispatch's Source/SourceFunc adapter pattern. The defensive
// nil checks in Use before invoking a resolved plugin mirror the
// qri-io-qri dispatch.go style of guarding against a nil instance or
// parameter before dispatching.
package plugin

import (
	"context"

	"github.com/afoninsky/bishop/bishoperr"
	"github.com/afoninsky/bishop/transport"
)

// Kind classifies a Result's shape.
type Kind string

const (
	// KindNone is the zero Kind. Like any kind other than
	// KindTransport, it merges Result.Routes under Result.Name when Name
	// is set; a nil *Result is the no-op return.
	KindNone Kind = ""
	// KindTransport installs Result.Transport under Result.Name.
	KindTransport Kind = "transport"
	// KindRoutes merges Result.Routes under instance.routes[Result.Name].
	KindRoutes Kind = "routes"
)

// Result is a plugin's classified return value (§4.7, §6 plugin
// contract): null | {type?: "transport"|other, name?, routes?, ...}.
type Result struct {
	Kind      Kind
	Name      string
	Routes    map[string]any
	Transport *transport.Transport
}

// Host is the subset of Instance a plugin can act on: installing a
// transport and merging a routes bundle. Kept as a narrow interface
// so plugin does not import the top-level bishop package.
type Host interface {
	RegisterTransport(t *transport.Transport) error
	MergeRoutes(name string, routes map[string]any)
}

// Func is a plugin: invoked with the host instance and any
// caller-supplied arguments, returning a classified Result (or nil
// for a no-op).
type Func func(ctx context.Context, host Host, args ...any) (*Result, error)

// Resolver looks up a plugin by its string locator. Resolution
// strategy (filesystem, registry, network fetch, ...) is an external
// collaborator's concern (§1 Out of scope) — the host only consumes
// the resolved Func.
type Resolver func(locator string) (Func, error)

// Use resolves pluginOrLocator to a callable (string locators go
// through resolver; any other value must already be a Func), invokes
// it, and applies the classified Result to host. A nil Result is a
// no-op. Fails with INVALID_PLUGIN if pluginOrLocator cannot be
// resolved to a callable, or if resolver is nil and a string locator
// was supplied.
func Use(ctx context.Context, pluginOrLocator any, resolver Resolver, host Host, args ...any) error {
	fn, err := resolve(pluginOrLocator, resolver)
	if err != nil {
		return err
	}

	result, err := fn(ctx, host, args...)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}

	return apply(result, host)
}

func resolve(pluginOrLocator any, resolver Resolver) (Func, error) {
	switch v := pluginOrLocator.(type) {
	case nil:
		return nil, bishoperr.New(bishoperr.InvalidPlugin, "plugin locator is nil")
	case Func:
		return v, nil
	case string:
		if resolver == nil {
			return nil, bishoperr.New(bishoperr.InvalidPlugin, "no resolver configured for string locator: "+v)
		}
		fn, err := resolver(v)
		if err != nil {
			return nil, bishoperr.Wrap(bishoperr.InvalidPlugin, "failed to resolve plugin locator: "+v, err)
		}
		if fn == nil {
			return nil, bishoperr.New(bishoperr.InvalidPlugin, "resolver produced a non-callable for locator: "+v)
		}
		return fn, nil
	default:
		return nil, bishoperr.New(bishoperr.InvalidPlugin, "plugin locator is not callable")
	}
}

func apply(result *Result, host Host) error {
	switch result.Kind {
	case KindTransport:
		if result.Transport == nil || result.Name == "" {
			return bishoperr.New(bishoperr.InvalidPlugin, "transport plugin result missing name or transport")
		}
		result.Transport.Name = result.Name
		return host.RegisterTransport(result.Transport)
	default:
		if result.Name != "" {
			host.MergeRoutes(result.Name, result.Routes)
		}
		return nil
	}
}
