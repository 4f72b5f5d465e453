// Package store implements converter-backed persistent key/value stores.
// A Store caches its whole contents in memory, round-trips every entry
// through a Converter, and owns a single JSON backing file.
package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Converter is a bidirectional codec between T and both a plain-string
// form and a JSON fragment form. The string form is used for map keys and
// for entity-attribute records; the JSON form for store values. Both
// directions must round-trip exactly.
type Converter[T any] interface {
	FromString(s string) (T, error)
	ToString(v T) (string, error)
	FromJSON(raw json.RawMessage) (T, error)
	ToJSON(v T) (json.RawMessage, error)
}

// funcConverter assembles a Converter from four functions.
type funcConverter[T any] struct {
	fromString func(string) (T, error)
	toString   func(T) (string, error)
	fromJSON   func(json.RawMessage) (T, error)
	toJSON     func(T) (json.RawMessage, error)
}

func (c funcConverter[T]) FromString(s string) (T, error)            { return c.fromString(s) }
func (c funcConverter[T]) ToString(v T) (string, error)              { return c.toString(v) }
func (c funcConverter[T]) FromJSON(raw json.RawMessage) (T, error)   { return c.fromJSON(raw) }
func (c funcConverter[T]) ToJSON(v T) (json.RawMessage, error)       { return c.toJSON(v) }

func jsonDecode[T any](raw json.RawMessage) (T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

func jsonEncode[T any](v T) (json.RawMessage, error) {
	return json.Marshal(v)
}

// Text converts strings. The string form is the value itself.
func Text() Converter[string] {
	return funcConverter[string]{
		fromString: func(s string) (string, error) { return s, nil },
		toString:   func(v string) (string, error) { return v, nil },
		fromJSON:   jsonDecode[string],
		toJSON:     jsonEncode[string],
	}
}

// Int converts ints.
func Int() Converter[int] {
	return funcConverter[int]{
		fromString: strconv.Atoi,
		toString:   func(v int) (string, error) { return strconv.Itoa(v), nil },
		fromJSON:   jsonDecode[int],
		toJSON:     jsonEncode[int],
	}
}

// Int64 converts int64s.
func Int64() Converter[int64] {
	return funcConverter[int64]{
		fromString: func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) },
		toString:   func(v int64) (string, error) { return strconv.FormatInt(v, 10), nil },
		fromJSON:   jsonDecode[int64],
		toJSON:     jsonEncode[int64],
	}
}

// Float converts float64s.
func Float() Converter[float64] {
	return funcConverter[float64]{
		fromString: func(s string) (float64, error) { return strconv.ParseFloat(s, 64) },
		toString:   func(v float64) (string, error) { return strconv.FormatFloat(v, 'g', -1, 64), nil },
		fromJSON:   jsonDecode[float64],
		toJSON:     jsonEncode[float64],
	}
}

// Bool converts bools. Only "true" and "false" are accepted string forms.
func Bool() Converter[bool] {
	return funcConverter[bool]{
		fromString: func(s string) (bool, error) {
			switch s {
			case "true":
				return true, nil
			case "false":
				return false, nil
			}
			return false, fmt.Errorf("store: not a bool: %q", s)
		},
		toString: func(v bool) (string, error) { return strconv.FormatBool(v), nil },
		fromJSON: jsonDecode[bool],
		toJSON:   jsonEncode[bool],
	}
}

// UUID converts entity identifiers.
func UUID() Converter[uuid.UUID] {
	return funcConverter[uuid.UUID]{
		fromString: uuid.Parse,
		toString:   func(v uuid.UUID) (string, error) { return v.String(), nil },
		fromJSON: func(raw json.RawMessage) (uuid.UUID, error) {
			s, err := jsonDecode[string](raw)
			if err != nil {
				return uuid.Nil, err
			}
			return uuid.Parse(s)
		},
		toJSON: func(v uuid.UUID) (json.RawMessage, error) { return json.Marshal(v.String()) },
	}
}

// Instant converts timestamps, serialized as RFC 3339 with nanoseconds.
func Instant() Converter[time.Time] {
	return funcConverter[time.Time]{
		fromString: func(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) },
		toString:   func(v time.Time) (string, error) { return v.UTC().Format(time.RFC3339Nano), nil },
		fromJSON: func(raw json.RawMessage) (time.Time, error) {
			s, err := jsonDecode[string](raw)
			if err != nil {
				return time.Time{}, err
			}
			return time.Parse(time.RFC3339Nano, s)
		},
		toJSON: func(v time.Time) (json.RawMessage, error) {
			return json.Marshal(v.UTC().Format(time.RFC3339Nano))
		},
	}
}

// JSONOnly builds the string forms of a converter from its JSON forms:
// the string form is the compact JSON text. Composite converters without
// a natural flat string encoding are assembled this way.
func JSONOnly[T any](fromJSON func(json.RawMessage) (T, error), toJSON func(T) (json.RawMessage, error)) Converter[T] {
	return funcConverter[T]{
		fromString: func(s string) (T, error) { return fromJSON(json.RawMessage(s)) },
		toString: func(v T) (string, error) {
			raw, err := toJSON(v)
			if err != nil {
				return "", err
			}
			return string(raw), nil
		},
		fromJSON: fromJSON,
		toJSON:   toJSON,
	}
}

// nullString is the flat string encoding of an absent nullable value.
const nullString = "NULL"

// Nullable wraps a converter so it tolerates exactly one level of
// null/absence, mapping to a nil pointer.
func Nullable[T any](inner Converter[T]) Converter[*T] {
	return funcConverter[*T]{
		fromString: func(s string) (*T, error) {
			if s == nullString {
				return nil, nil
			}
			v, err := inner.FromString(s)
			if err != nil {
				return nil, err
			}
			return &v, nil
		},
		toString: func(v *T) (string, error) {
			if v == nil {
				return nullString, nil
			}
			return inner.ToString(*v)
		},
		fromJSON: func(raw json.RawMessage) (*T, error) {
			if string(raw) == "null" {
				return nil, nil
			}
			v, err := inner.FromJSON(raw)
			if err != nil {
				return nil, err
			}
			return &v, nil
		},
		toJSON: func(v *T) (json.RawMessage, error) {
			if v == nil {
				return json.RawMessage("null"), nil
			}
			return inner.ToJSON(*v)
		},
	}
}

// List wraps a converter into a converter of slices.
func List[T any](inner Converter[T]) Converter[[]T] {
	return JSONOnly(
		func(raw json.RawMessage) ([]T, error) {
			var raws []json.RawMessage
			if err := json.Unmarshal(raw, &raws); err != nil {
				return nil, err
			}
			out := make([]T, 0, len(raws))
			for i, r := range raws {
				v, err := inner.FromJSON(r)
				if err != nil {
					return nil, fmt.Errorf("store: list element %d: %w", i, err)
				}
				out = append(out, v)
			}
			return out, nil
		},
		func(vs []T) (json.RawMessage, error) {
			raws := make([]json.RawMessage, 0, len(vs))
			for _, v := range vs {
				r, err := inner.ToJSON(v)
				if err != nil {
					return nil, err
				}
				raws = append(raws, r)
			}
			return json.Marshal(raws)
		},
	)
}

// MapOf wraps a key and value converter into a converter of maps, encoded
// as a JSON object whose member names are the key converter's string form.
func MapOf[K comparable, V any](keyConv Converter[K], valConv Converter[V]) Converter[map[K]V] {
	return JSONOnly(
		func(raw json.RawMessage) (map[K]V, error) {
			var raws map[string]json.RawMessage
			if err := json.Unmarshal(raw, &raws); err != nil {
				return nil, err
			}
			out := make(map[K]V, len(raws))
			for name, r := range raws {
				k, err := keyConv.FromString(name)
				if err != nil {
					return nil, fmt.Errorf("store: map key %q: %w", name, err)
				}
				v, err := valConv.FromJSON(r)
				if err != nil {
					return nil, fmt.Errorf("store: map value for %q: %w", name, err)
				}
				out[k] = v
			}
			return out, nil
		},
		func(m map[K]V) (json.RawMessage, error) {
			raws := make(map[string]json.RawMessage, len(m))
			for k, v := range m {
				name, err := keyConv.ToString(k)
				if err != nil {
					return nil, err
				}
				r, err := valConv.ToJSON(v)
				if err != nil {
					return nil, err
				}
				raws[name] = r
			}
			return json.Marshal(raws)
		},
	)
}
