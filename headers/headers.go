// Package headers implements the header normalizer (C3): merging
// addHeaders/actHeaders/sourceMessage/matchedPattern into a validated
// canonical Headers record with a generated correlation id.
//
// Validation is implemented with go-playground/validator/v10 struct
// tags, grounded on the teacher's internal/infrastructure/routing
// parser.go (validator.New + RegisterValidation for a custom rule).
// The 10-character id generalizes the teacher's
// pkg/logger.GenerateRequestID to google/uuid-derived id generation.
package headers

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/afoninsky/bishop/bishoperr"
	"github.com/afoninsky/bishop/pattern"
)

// Headers is the canonical per-call header record built from three
// merged sources (§3, §4.3).
type Headers struct {
	// ID has no length/charset constraint beyond non-empty: a
	// caller-supplied $id is an ordinary correlation string (§6), and
	// only the auto-generated fallback (generateID) is guaranteed to be
	// a 10-character lowercase-alphanumeric id by construction.
	ID      string          `validate:"required"`
	Timeout time.Duration   `validate:"gte=0"`
	Slow    time.Duration   `validate:"gte=0"`
	Local   bool
	Nowait  bool
	Notify  []string `validate:"omitempty,unique,dive,notify_name"`
	Debug   bool
	Break   bool
	Pattern pattern.Pattern
	Source  pattern.Pattern
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("notify_name", validateNotifyName)
	return v
}

// validateNotifyName mirrors the teacher's alphanum_hyphen custom
// validator, applied to each resolved subscriber transport name.
func validateNotifyName(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return false
	}
	for _, r := range value {
		if !((r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') ||
			r == '-' || r == '_') {
			return false
		}
	}
	return true
}

// Input bundles the three header sources that Normalize merges,
// plus the matched pattern and the original request pattern that §4.3
// injects as headers.pattern / headers.source.
type Input struct {
	AddHeaders    map[string]any
	ActHeaders    map[string]any
	SourceMessage pattern.Pattern
	MatchedPattern pattern.Pattern
}

// Normalize deep-merges the three header sources with right-biased
// overwrite, injects pattern/source, generates an id if absent,
// coerces notify, and validates the result against the schema.
// Fails with INVALID_HEADERS when validation rejects.
func Normalize(in Input) (*Headers, error) {
	merged := mergeRightBiased(in.AddHeaders, in.ActHeaders)

	h := &Headers{
		Pattern: in.MatchedPattern,
		Source:  in.SourceMessage,
	}

	if id, ok := stringField(merged, "id"); ok && id != "" {
		h.ID = id
	} else {
		h.ID = generateID()
	}

	h.Timeout = durationField(merged, "timeout")
	h.Slow = durationField(merged, "slow")
	h.Local = boolField(merged, "local")
	h.Nowait = boolField(merged, "nowait")
	h.Debug = boolField(merged, "debug")
	h.Break = boolField(merged, "break")
	h.Notify = coerceNotify(merged["notify"])

	if err := validate.Struct(h); err != nil {
		return nil, bishoperr.Wrap(bishoperr.InvalidHeaders, "header schema validation failed", err)
	}

	return h, nil
}

// mergeRightBiased deep-merges two header maps, b overwriting a on
// key collision — the right-biased overwrite §4.3 requires across
// addHeaders/actHeaders.
func mergeRightBiased(a, b map[string]any) map[string]any {
	out := make(map[string]any, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func stringField(m map[string]any, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case pattern.Value:
		if !t.IsRegex() {
			return t.StringValue(), true
		}
	}
	return "", false
}

func durationField(m map[string]any, key string) time.Duration {
	v, ok := m[key]
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case time.Duration:
		return t
	case int:
		return time.Duration(t) * time.Millisecond
	case int64:
		return time.Duration(t) * time.Millisecond
	case float64:
		return time.Duration(t) * time.Millisecond
	case string:
		if ms, err := strconv.ParseInt(t, 10, 64); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	case pattern.Value:
		if !t.IsRegex() {
			if ms, err := strconv.ParseInt(t.StringValue(), 10, 64); err == nil {
				return time.Duration(ms) * time.Millisecond
			}
		}
	}
	return 0
}

func boolField(m map[string]any, key string) bool {
	v, ok := m[key]
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true"
	case pattern.Value:
		return !t.IsRegex() && t.StringValue() == "true"
	}
	return false
}

// generateID derives the 10-character lowercase-alphanumeric id from
// a random UUID: strip hyphens, lowercase, truncate — generalizing
// the teacher's logger.GenerateRequestID to id generation for headers.
func generateID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	raw = strings.ToLower(raw)
	if len(raw) > 10 {
		raw = raw[:10]
	}
	return raw
}

// coerceNotify applies the notify coercion table from §4.3: true /
// "true" / any regex become ["local"]; a comma-separated string is
// split and trimmed; an existing list is passed through unchanged.
func coerceNotify(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case bool:
		if t {
			return []string{"local"}
		}
		return nil
	case string:
		if t == "true" {
			return []string{"local"}
		}
		return splitNotifyString(t)
	case pattern.Value:
		if t.IsRegex() {
			return []string{"local"}
		}
		return splitNotifyString(t.StringValue())
	case []string:
		return t
	default:
		return nil
	}
}

func splitNotifyString(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
