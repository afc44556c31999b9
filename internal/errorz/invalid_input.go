package errorz

import (
	"errors"
	"strings"
)

// InvalidInput signals that a provided input is invalid due to the wrapped errors.
// The wrapped errors are typically Keyed errors, one per offending field.
type InvalidInput []error

func (e InvalidInput) Error() string {
	var b strings.Builder
	b.WriteString("invalid input:\n")
	for _, err := range e {
		b.WriteString(err.Error())
		b.WriteString("\n")
	}
	return b.String()
}

func (e InvalidInput) Unwrap() []error {
	return e
}

// FieldMap groups the messages of the wrapped Keyed errors by key.
// Errors without a key end up under the empty key.
func (e InvalidInput) FieldMap() map[string][]string {
	out := make(map[string][]string, len(e))
	for _, err := range e {
		var k Keyed
		if errors.As(err, &k) {
			out[k.Key] = append(out[k.Key], k.Err.Error())
			continue
		}
		out[""] = append(out[""], err.Error())
	}
	return out
}
