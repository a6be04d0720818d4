package cache

import (
	"strconv"
	"strings"
	"time"
)

const keySeparator = ":"

// absentMarker prefixes placeholder tokens. Escaping guarantees no present
// value ever renders with it, so "no-org" the placeholder and an organization
// literally named "no-org" stay distinct.
const absentMarker = "~"

var keyEscaper = strings.NewReplacer(
	"%", "%25",
	keySeparator, "%3A",
	absentMarker, "%7E",
)

// Key is a structured cache key: an operation namespace followed by ordered
// parts. Keys are immutable; every builder method returns a copy.
type Key struct {
	namespace string
	parts     []string
}

// NewKey starts a key for the given operation namespace.
func NewKey(namespace string) Key {
	return Key{namespace: namespace}
}

// Namespace returns the operation tag the key was built with.
func (k Key) Namespace() string {
	return k.namespace
}

// With appends a required part.
func (k Key) With(part string) Key {
	return k.append(keyEscaper.Replace(part))
}

// Optional appends part, or the placeholder token when part is empty.
func (k Key) Optional(part, placeholder string) Key {
	if part == "" {
		return k.append(absentMarker + placeholder)
	}
	return k.With(part)
}

// Time appends t as an RFC 3339 UTC timestamp, so the same instant in
// different locations yields the same key.
func (k Key) Time(t time.Time) Key {
	return k.append(t.UTC().Format(time.RFC3339Nano))
}

// Int appends n in base 10.
func (k Key) Int(n int) Key {
	return k.append(strconv.Itoa(n))
}

// Float appends f in its shortest exact decimal form.
func (k Key) Float(f float64) Key {
	return k.append(strconv.FormatFloat(f, 'g', -1, 64))
}

func (k Key) append(part string) Key {
	parts := make([]string, len(k.parts), len(k.parts)+1)
	copy(parts, k.parts)
	return Key{namespace: k.namespace, parts: append(parts, part)}
}

// String serializes the key, e.g. "carbon-offset:org123:2025-01-01T00:00:00Z:~no-org".
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(keyEscaper.Replace(k.namespace))
	for _, p := range k.parts {
		b.WriteString(keySeparator)
		b.WriteString(p)
	}
	return b.String()
}
