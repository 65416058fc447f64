package bishoperr

import (
	"fmt"
	"runtime"
)

// Verdict is the outcome of classifying an error raised inside the
// execution envelope (§7: "fatal" | "mute" | propagate).
type Verdict string

const (
	// VerdictFatal aborts the process after logging.
	VerdictFatal Verdict = "fatal"
	// VerdictMute swallows the error; the call returns a null-ish result.
	VerdictMute Verdict = "mute"
	// VerdictPropagate re-raises the error to the caller as HANDLER_FAILURE.
	VerdictPropagate Verdict = "propagate"
)

// Classifier evaluates an error produced by a handler and decides what
// the dispatcher should do with it. It is the Go rendering of the
// source's terminateOn sum type: NameList(Set<String>) | Predicate(fn).
type Classifier interface {
	Classify(err error) Verdict
}

// PredicateClassifier wraps an arbitrary predicate function, the
// "Predicate(fn)" arm of the terminateOn sum type.
type PredicateClassifier func(err error) Verdict

func (f PredicateClassifier) Classify(err error) Verdict { return f(err) }

// NameListClassifier is the "NameList(Set<String>)" arm: a set of Go
// type names (e.g. "*runtime.TypeAssertionError") whose match aborts
// the process. These are the closest Go analogues to the source's
// ReferenceError/RangeError/SyntaxError/TypeError default list — an
// Open Question resolution recorded in DESIGN.md, since Go has no
// equivalent built-in error-class hierarchy.
type NameListClassifier struct {
	Names map[string]struct{}
}

// NewNameListClassifier builds a NameListClassifier from a slice of
// Go type names, mirroring the default terminateOn list shape.
func NewNameListClassifier(names []string) *NameListClassifier {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return &NameListClassifier{Names: set}
}

func (c *NameListClassifier) Classify(err error) Verdict {
	if err == nil {
		return VerdictMute
	}
	cause := causeOf(err)

	if _, matchAny := c.Names["runtime.Error"]; matchAny {
		if _, isRuntimeErr := cause.(runtime.Error); isRuntimeErr {
			return VerdictFatal
		}
	}

	if _, fatal := c.Names[typeName(cause)]; fatal {
		return VerdictFatal
	}
	return VerdictPropagate
}

// causeOf unwraps a *Error down to the concrete error a handler raised,
// so NameListClassifier matches against the handler's failure rather
// than the core's own wrapping type.
func causeOf(err error) error {
	if e, ok := err.(*Error); ok && e.Cause != nil {
		return e.Cause
	}
	return err
}

// typeName returns the Go type name used to match against the
// terminateOn name list, e.g. "*runtime.TypeAssertionError".
func typeName(err error) string {
	return fmt.Sprintf("%T", err)
}
