// Package jsonvalue implements the canonical JSON value the quorum router
// compares upstream results by: a sum type over null/bool/number/string/
// array/object, with an equality relation that can be parameterized to
// ignore named fields (the eth_getBlockByNumber "miner" exclusion) without
// ever mutating the values being compared.
package jsonvalue

import (
	"encoding/json"
	"fmt"

	"github.com/google/go-cmp/cmp"
)

// Value wraps a JSON-decoded tree (map[string]any / []any / float64 /
// string / bool / nil) so it can be passed around, marshaled and compared
// as a single opaque unit.
type Value struct {
	raw any
}

// Parse decodes data into a canonical Value. Empty input decodes to a null
// Value.
func Parse(data []byte) (Value, error) {
	if len(data) == 0 {
		return Value{raw: nil}, nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return Value{}, fmt.Errorf("jsonvalue: cannot parse: %w", err)
	}
	return Value{raw: v}, nil
}

// From canonicalizes an arbitrary Go value by round-tripping it through
// JSON, so callers can build a Value from a typed struct without hand
// rolling the decode step.
func From(v any) (Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Value{}, fmt.Errorf("jsonvalue: cannot encode: %w", err)
	}
	return Parse(data)
}

// Raw returns the underlying decoded tree.
func (v Value) Raw() any {
	return v.raw
}

// IsNull reports whether v decoded to JSON null (or was never set).
func (v Value) IsNull() bool {
	return v.raw == nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.raw)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) String() string {
	data, err := json.Marshal(v.raw)
	if err != nil {
		return fmt.Sprintf("<unmarshalable jsonvalue: %s>", err)
	}
	return string(data)
}

// Equal implements the result-equality relation: structural deep equality,
// optionally ignoring object fields named in excludeFields at any nesting
// depth. It never mutates a or b.
func Equal(a, b Value, excludeFields ...string) bool {
	if len(excludeFields) == 0 {
		return cmp.Equal(a.raw, b.raw)
	}
	return cmp.Equal(a.raw, b.raw, ignoreKeys(excludeFields))
}

// ignoreKeys returns a cmp.Option that treats any object entry whose key is
// in keys as equal regardless of value, at whatever depth it occurs.
func ignoreKeys(keys []string) cmp.Option {
	excluded := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		excluded[k] = struct{}{}
	}
	return cmp.FilterPath(func(p cmp.Path) bool {
		mi, ok := p.Last().(cmp.MapIndex)
		if !ok {
			return false
		}
		key, ok := mi.Key().Interface().(string)
		if !ok {
			return false
		}
		_, skip := excluded[key]
		return skip
	}, cmp.Ignore())
}
