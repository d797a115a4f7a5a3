package marker

import (
	"log/slog"
)

// Key is the attribute key under which a marker is attached to a record.
const Key = "marker"

// Record is the read side of a log record that may carry a marker.
type Record interface {
	// Lookup returns the value attached under key, if any.
	Lookup(key string) (any, bool)
}

// Attr returns an attribute attaching m to a log call.
func Attr(m Marker) slog.Attr {
	return slog.Any(Key, m)
}

// FromRecord adapts r to a [Record]. Only the record's own top-level
// attributes are consulted; the first one with a matching key wins.
func FromRecord(r slog.Record) Record {
	return slogRecord{rec: r}
}

type slogRecord struct {
	rec slog.Record
}

func (s slogRecord) Lookup(key string) (any, bool) {
	var (
		val   any
		found bool
	)

	s.rec.Attrs(func(a slog.Attr) bool {
		if a.Key != key {
			return true
		}

		val, found = a.Value.Any(), true

		return false
	})

	return val, found
}

// Match reports whether the marker attached to rec satisfies target.
//
// It returns false when rec or target is nil, when no marker is attached, or
// when the attached value is not a [Marker]. A target of type []Marker,
// []string or []any matches if any element matches. Any other target is
// passed to [Marker.Contains] as is.
func Match(rec Record, target any) bool {
	if rec == nil || target == nil {
		return false
	}

	v, ok := rec.Lookup(Key)
	if !ok || v == nil {
		return false
	}

	attached, ok := v.(Marker)
	if !ok || !valid(attached) {
		return false
	}

	switch t := target.(type) {
	case []Marker:
		return anyContains(attached, t)
	case []string:
		return anyContains(attached, t)
	case []any:
		return anyContains(attached, t)
	}

	return attached.Contains(target)
}

func anyContains[T any](m Marker, targets []T) bool {
	for _, t := range targets {
		if m.Contains(t) {
			return true
		}
	}

	return false
}
