package bishop

import (
	"context"
	"fmt"
	"time"

	"github.com/afoninsky/bishop/bishoperr"
	"github.com/afoninsky/bishop/headers"
	"github.com/afoninsky/bishop/index"
	"github.com/afoninsky/bishop/notify"
	"github.com/afoninsky/bishop/pattern"
	"github.com/afoninsky/bishop/pkg/logger"
)

// actOutcome carries the result of running one handler in its own
// goroutine so Act can select between it and a timeout timer.
type actOutcome struct {
	result any
	err    error
}

// Act executes one call against patternStr (§4.4 grammar for
// patternStr and each override): compose the effective request
// pattern, select an index, look up the best match, resolve its
// handler, run the execution envelope (fire-and-forget, classified
// errors), and — on success — detach a notification fan-out if
// headers.notify is non-empty.
//
// Fails with PATTERN_NOT_FOUND if nothing matches, NO_SUCH_TRANSPORT
// if a remote registration names an unregistered transport,
// PATTERN_TIMEOUT if the envelope does not complete within the
// resolved timeout, or HANDLER_FAILURE wrapping a handler's error the
// classifier declined to mute.
func (in *Instance) Act(ctx context.Context, patternStr string, overrides ...string) (any, error) {
	started := time.Now()

	message, h, entry, callerTimeout, err := in.prepare(patternStr, overrides)
	if err != nil {
		in.metrics.recordDispatch("error", time.Since(started))
		return nil, err
	}

	handler, transportTimeout, isLocal, err := in.resolveHandler(entry)
	if err != nil {
		in.metrics.recordDispatch("error", time.Since(started))
		return nil, err
	}
	if transportTimeout > 0 && !callerTimeout {
		h.Timeout = transportTimeout
	}

	ctx = logger.WithRequestID(ctx, h.ID)

	if isLocal && h.Nowait {
		go in.runDetached(context.WithoutCancel(ctx), handler, h, message)
		in.metrics.recordDispatch("nowait", time.Since(started))
		return nil, nil
	}

	resultCh := make(chan actOutcome, 1)
	go func() {
		res, herr := in.invoke(ctx, handler, h, message)
		resultCh <- actOutcome{result: res, err: herr}
	}()

	timeout := h.Timeout
	if timeout <= 0 {
		timeout = in.cfg.Timeout
	}

	var outcome actOutcome
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case outcome = <-resultCh:
		case <-timer.C:
			in.metrics.recordDispatch("timeout", time.Since(started))
			return nil, bishoperr.New(bishoperr.PatternTimeout,
				fmt.Sprintf("dispatch timed out after %s: %s", timeout, pattern.Beautify(message)))
		}
	} else {
		outcome = <-resultCh
	}

	elapsed := time.Since(started)
	in.warnIfSlow(ctx, elapsed, h, message)

	outcomeLabel := "ok"
	if outcome.err != nil {
		outcomeLabel = "error"
	}
	in.metrics.recordDispatch(outcomeLabel, elapsed)

	if outcome.err == nil && len(h.Notify) > 0 {
		go notify.FanOut(context.WithoutCancel(ctx), in.transports, in.bus, h.Pattern, outcome.result, h, in.log)
	}

	return outcome.result, outcome.err
}

// prepare composes the request pattern (§4.4 step 2), normalizes
// headers (§4.3), selects the index (§4.4 step 3) and runs the lookup
// (§4.4 step 4), failing with PATTERN_NOT_FOUND if nothing matches. It
// also reports whether the caller set $timeout explicitly.
func (in *Instance) prepare(patternStr string, overrides []string) (pattern.Pattern, *headers.Headers, index.Entry, bool, error) {
	var zero index.Entry

	parts := make([]pattern.Pattern, 0, 1+len(overrides))

	p, err := in.cache.Parse(patternStr)
	if err != nil {
		return nil, nil, zero, false, fmt.Errorf("bishop: parse pattern %q: %w", patternStr, err)
	}
	parts = append(parts, p)

	for _, o := range overrides {
		op, err := in.cache.Parse(o)
		if err != nil {
			return nil, nil, zero, false, fmt.Errorf("bishop: parse override %q: %w", o, err)
		}
		parts = append(parts, op)
	}

	message, meta, _ := pattern.Split(parts...)

	h, err := headers.Normalize(headers.Input{
		AddHeaders:    in.defaultHeaders(),
		ActHeaders:    metaToAny(meta),
		SourceMessage: message,
	})
	if err != nil {
		return nil, nil, zero, false, err
	}

	idx := in.all
	if h.Local {
		idx = in.localOnly
	}

	entry, found := idx.Lookup(message, index.MatchOrder(in.cfg.MatchOrder))
	if !found {
		return nil, nil, zero, false, bishoperr.New(bishoperr.PatternNotFound, "no pattern matches: "+pattern.Beautify(message))
	}

	h.Pattern = entry.Pattern
	_, callerTimeout := meta["timeout"]
	return message, h, entry, callerTimeout, nil
}

// defaultHeaders builds the addHeaders source (§4.3) from the
// instance's construction-time configuration.
func (in *Instance) defaultHeaders() map[string]any {
	return map[string]any{
		"timeout": int64(in.cfg.Timeout / time.Millisecond),
		"slow":    int64(in.cfg.SlowPatternTimeout / time.Millisecond),
		"debug":   in.cfg.Debug,
	}
}

// metaToAny lifts a meta sub-pattern's pattern.Value entries into the
// map[string]any headers.Normalize consumes as actHeaders; the
// coercion helpers in the headers package accept pattern.Value
// directly so regex-valued notify flags still coerce to ["local"].
func metaToAny(meta pattern.Pattern) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}

// resolveHandler resolves entry's payload to a callable Handler
// (§4.4 step 5), and reports whether the payload is a local handler
// (payload.type == "local", §3) — the property step 6 gates
// fire-and-forget on, independent of whether the caller's request set
// $local (which only selects which index is searched, §4.4 step 3). A
// local payload is returned as-is; a remote payload is resolved against
// the transport registry and wrapped around its Send function, failing
// with NO_SUCH_TRANSPORT if the named transport is not registered or
// declares no send hook. The transport's declared options.timeout is
// returned so the caller can adopt it when the caller did not set
// $timeout.
func (in *Instance) resolveHandler(entry index.Entry) (Handler, time.Duration, bool, error) {
	pl, ok := entry.Payload.(*regPayload)
	if !ok {
		return nil, 0, false, fmt.Errorf("bishop: invalid registration payload %T", entry.Payload)
	}

	if pl.transport == "" {
		return pl.handler, 0, true, nil
	}

	t, ok := in.transports.Get(pl.transport)
	if !ok {
		return nil, 0, false, bishoperr.New(bishoperr.NoSuchTransport, "no such transport: "+pl.transport)
	}
	if t.Send == nil {
		return nil, 0, false, bishoperr.New(bishoperr.NoSuchTransport, "transport has no send hook: "+pl.transport)
	}

	var transportTimeout time.Duration
	if t.Options.Timeout > 0 {
		transportTimeout = time.Duration(t.Options.Timeout) * time.Millisecond
	}

	handler := func(ctx context.Context, _ *headers.Headers, msg pattern.Pattern) (any, error) {
		return t.Send(ctx, msg)
	}
	return handler, transportTimeout, false, nil
}

// invoke runs handler once and classifies a non-nil error (§7): a
// "fatal" verdict aborts the process after logging, "mute" swallows
// the error and returns a nil result, anything else propagates as
// HANDLER_FAILURE wrapping the original cause.
func (in *Instance) invoke(ctx context.Context, handler Handler, h *headers.Headers, message pattern.Pattern) (any, error) {
	res, err := handler(ctx, h, message)
	if err == nil {
		return res, nil
	}

	switch in.classifier.Classify(err) {
	case bishoperr.VerdictFatal:
		in.log.WithContext(ctx).Fatal("bishop: fatal error raised inside execution envelope",
			"pattern", pattern.Beautify(message), "error", err)
		return nil, err
	case bishoperr.VerdictMute:
		return nil, nil
	default:
		return nil, bishoperr.Wrap(bishoperr.HandlerFailure,
			"handler failed for pattern "+pattern.Beautify(message), err)
	}
}

// runDetached invokes handler without the caller awaiting it (§4.4
// step 6 fire-and-forget). Its error, if any, is classified the same
// way invoke classifies an awaited handler's error, except a
// propagate verdict can only be logged — there is no caller left to
// return HANDLER_FAILURE to. On success, a non-empty notify list still
// fans out, since fan-out is itself detached from the caller.
func (in *Instance) runDetached(ctx context.Context, handler Handler, h *headers.Headers, message pattern.Pattern) {
	res, err := handler(ctx, h, message)
	if err != nil {
		switch in.classifier.Classify(err) {
		case bishoperr.VerdictFatal:
			in.log.WithContext(ctx).Fatal("bishop: fatal error raised inside fire-and-forget envelope",
				"pattern", pattern.Beautify(message), "error", err)
		case bishoperr.VerdictMute:
		default:
			in.log.WithContext(ctx).Error("bishop: fire-and-forget handler failed",
				"pattern", pattern.Beautify(message), "error", err)
		}
		return
	}

	if len(h.Notify) > 0 {
		notify.FanOut(ctx, in.transports, in.bus, h.Pattern, res, h, in.log)
	}
}

// warnIfSlow emits a warning log if elapsed exceeds the per-call or
// configured slow threshold (§4.4 step 7), and records it in the
// slow-call counter.
func (in *Instance) warnIfSlow(ctx context.Context, elapsed time.Duration, h *headers.Headers, message pattern.Pattern) {
	threshold := h.Slow
	if threshold <= 0 {
		threshold = in.cfg.SlowPatternTimeout
	}
	if threshold <= 0 || elapsed <= threshold {
		return
	}

	in.metrics.slowCalls.Inc()
	in.log.WithContext(ctx).Warn("bishop: slow dispatch",
		"pattern", pattern.Beautify(message),
		"elapsed_ms", elapsed.Milliseconds(),
		"threshold_ms", threshold.Milliseconds())
}
