// Package sanitize strips markup from user supplied profile text before it is
// persisted.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Keys whose values are stored verbatim.
var verbatim = map[string]bool{
	"password": true,
	"email":    true,
}

// Sanitizer removes every HTML element from text. Input entities are decoded
// before the policy runs, so entity-encoded tags are stripped as well. In the
// output only quotes and ampersands are decoded again; '<' and '>' stay
// escaped. It is safe for concurrent use.
type Sanitizer struct {
	policy *bluemonday.Policy
}

func New() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// plainText undoes the escaping of characters that cannot open markup.
var plainText = strings.NewReplacer("&#39;", "'", "&#34;", `"`, "&quot;", `"`, "&amp;", "&")

// Text returns s without markup and surrounding whitespace.
func (s *Sanitizer) Text(in string) string {
	if in == "" {
		return ""
	}
	return strings.TrimSpace(plainText.Replace(s.policy.Sanitize(html.UnescapeString(in))))
}

// Fields returns a copy of fields with every string value sanitized. Nested
// maps and slices are walked; password and email are left untouched.
func (s *Sanitizer) Fields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if verbatim[k] {
			out[k] = v
			continue
		}
		out[k] = s.value(v)
	}
	return out
}

func (s *Sanitizer) value(v any) any {
	switch t := v.(type) {
	case string:
		return s.Text(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = s.value(inner)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, inner := range t {
			out[k] = s.Text(inner)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = s.value(inner)
		}
		return out
	case []string:
		out := make([]string, len(t))
		for i, inner := range t {
			out[i] = s.Text(inner)
		}
		return out
	default:
		return v
	}
}
