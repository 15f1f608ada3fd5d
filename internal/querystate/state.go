// Package querystate keeps list-view state in a URL query string.
//
// The encoded query is the single source of truth for a view: it is what
// the web panel shows in the address bar, what the terminal browser prints
// on its location line, and what `products list --query` accepts. Updates
// are patches: provided keys overwrite, omitted keys persist, and keys set
// to nil or "" are removed so the encoded form never carries `key=` noise.
package querystate

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Patch maps keys to new values. A nil or "" value deletes the key; other
// values are formatted with FormatValue.
type Patch map[string]any

// State is an ordered set of non-empty query parameters. The zero value is
// an empty state. States are immutable; Apply returns a new one.
type State struct {
	keys []string
	vals map[string]string
}

// Parse decodes a raw query string, with or without a leading "?".
// Empty values are dropped and the first occurrence of a repeated key wins.
func Parse(raw string) State {
	raw = strings.TrimPrefix(raw, "?")
	s := State{vals: map[string]string{}}
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		k = unescape(k)
		v = unescape(v)
		if k == "" || v == "" {
			continue
		}
		if _, dup := s.vals[k]; dup {
			continue
		}
		s.keys = append(s.keys, k)
		s.vals[k] = v
	}
	return s
}

func unescape(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}

// Encode serializes the state in key order, without a leading "?".
func (s State) Encode() string {
	var b strings.Builder
	for i, k := range s.keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(s.vals[k]))
	}
	return b.String()
}

func (s State) String() string {
	return s.Encode()
}

// Get returns the value for key, or fallback when key is absent.
func (s State) Get(key, fallback string) string {
	if v, ok := s.vals[key]; ok {
		return v
	}
	return fallback
}

// Has reports whether key is present.
func (s State) Has(key string) bool {
	_, ok := s.vals[key]
	return ok
}

// Keys returns the present keys in order.
func (s State) Keys() []string {
	return append([]string(nil), s.keys...)
}

// Len returns the number of present keys.
func (s State) Len() int {
	return len(s.keys)
}

// Values converts the state to url.Values.
func (s State) Values() url.Values {
	v := make(url.Values, len(s.keys))
	for _, k := range s.keys {
		v.Set(k, s.vals[k])
	}
	return v
}

// Apply returns s with patch merged in. Existing keys keep their position;
// new keys are appended in sorted order.
func (s State) Apply(patch Patch) State {
	next := State{
		keys: make([]string, 0, len(s.keys)+len(patch)),
		vals: make(map[string]string, len(s.vals)+len(patch)),
	}
	next.keys = append(next.keys, s.keys...)
	for k, v := range s.vals {
		next.vals[k] = v
	}

	names := make([]string, 0, len(patch))
	for k := range patch {
		if k != "" {
			names = append(names, k)
		}
	}
	sort.Strings(names)

	for _, k := range names {
		v := FormatValue(patch[k])
		_, exists := next.vals[k]
		switch {
		case v == "" && exists:
			delete(next.vals, k)
			next.keys = removeKey(next.keys, k)
		case v == "":
		case exists:
			next.vals[k] = v
		default:
			next.keys = append(next.keys, k)
			next.vals[k] = v
		}
	}
	return next
}

func removeKey(keys []string, key string) []string {
	out := keys[:0]
	for _, k := range keys {
		if k != key {
			out = append(out, k)
		}
	}
	return out
}

// FormatValue renders a patch value. Numbers are base 10; nil is "".
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case *string:
		if t == nil {
			return ""
		}
		return *t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
