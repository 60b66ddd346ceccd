package decode

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// snippetLimit bounds how much of a malformed frame is kept for logging.
const snippetLimit = 120

// Sample is one decoded telemetry object: string keys, heterogeneous
// values (numbers, strings, nested objects and arrays).
type Sample map[string]any

// Clone returns an independent deep copy of the sample. Nested objects
// and arrays are copied as well, so callers can never alias shared state.
func (s Sample) Clone() Sample {
	if s == nil {
		return nil
	}
	out := make(Sample, len(s))
	for k, v := range s {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = cloneValue(vv)
		}
		return m
	case []any:
		a := make([]any, len(t))
		for i, vv := range t {
			a[i] = cloneValue(vv)
		}
		return a
	default:
		return t
	}
}

// Error reports one frame that failed to decode. It carries a truncated
// snippet of the offending text so logs stay bounded.
type Error struct {
	Snippet string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("decode: malformed frame %q: %v", e.Snippet, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Decode parses one candidate frame into a Sample. Failures are
// independent per frame and never mutate shared state.
func Decode(frame []byte) (Sample, error) {
	var sample Sample
	if err := json.Unmarshal(frame, &sample); err != nil {
		return nil, &Error{Snippet: truncate(string(frame)), Err: err}
	}
	return sample, nil
}

func truncate(s string) string {
	if len(s) <= snippetLimit {
		return s
	}
	cut := snippetLimit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
