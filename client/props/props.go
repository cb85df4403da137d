// Package props encodes item properties into the wire format used by the
// storage API's properties query parameter:
//
//	key1=val1;key2=v1,v2,v3
//
// The characters '=', '|' and ',' are escaped with a preceding backslash
// inside keys and values. A backslash is never escaped, so a value ending
// in a backslash followed by a reserved character does not round-trip.
package props

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInvalidPropertyValue is returned when a property value is neither
// a string nor a list of strings.
var ErrInvalidPropertyValue = errors.New("invalid property value")

// Properties maps a property name to either a string or a []string.
type Properties map[string]any

const reserved = "=|,"

// Escape prefixes every '=', '|' and ',' in s with a backslash.
func Escape(s string) string {
	if !strings.ContainsAny(s, reserved) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		if strings.ContainsRune(reserved, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}

	return b.String()
}

// Encode serializes p into the properties wire string. Entries are
// emitted in key order.
func Encode(p Properties) (string, error) {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	entries := make([]string, 0, len(keys))
	for _, k := range keys {
		var value string
		switch v := p[k].(type) {
		case string:
			value = Escape(v)
		case []string:
			escaped := make([]string, len(v))
			for i, elem := range v {
				escaped[i] = Escape(elem)
			}
			value = strings.Join(escaped, ",")
		default:
			return "", fmt.Errorf("property %q: %w: %T", k, ErrInvalidPropertyValue, v)
		}

		entries = append(entries, Escape(k)+"="+value)
	}

	return strings.Join(entries, ";"), nil
}

// Parse is the inverse of Encode. Escaped reserved characters are
// unescaped; a backslash before any other character is kept verbatim.
// Every value is returned as a list.
func Parse(s string) (map[string][]string, error) {
	out := make(map[string][]string)
	if s == "" {
		return out, nil
	}

	for _, entry := range split(s, ';') {
		if entry == "" {
			continue
		}

		kv := split(entry, '=')
		if len(kv) != 2 {
			return nil, fmt.Errorf("entry %q: want exactly one unescaped '='", entry)
		}

		key := unescape(kv[0])
		if key == "" {
			return nil, fmt.Errorf("entry %q: empty key", entry)
		}

		parts := split(kv[1], ',')
		values := make([]string, len(parts))
		for i, part := range parts {
			values[i] = unescape(part)
		}
		out[key] = values
	}

	return out, nil
}

// split cuts s at every sep that isn't preceded by a backslash.
// Escapes are left in place for unescape.
func split(s string, sep byte) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\' && i+1 < len(s) && strings.IndexByte(reserved, s[i+1]) >= 0:
			i++
		case s[i] == sep:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}

	return append(parts, s[start:])
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && strings.IndexByte(reserved, s[i+1]) >= 0 {
			i++
		}
		b.WriteByte(s[i])
	}

	return b.String()
}
