package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/reactors/internal/ir"
	"github.com/roach88/reactors/internal/trace"
)

// marshalValue converts a recorded value to canonical JSON TEXT. Values
// canonical JSON cannot carry are stored as their text rendering, which is
// also what the trace digest hashes.
func marshalValue(v any) (string, error) {
	data, err := ir.MarshalCanonical(trace.Normalize(v))
	if err != nil {
		return "", fmt.Errorf("marshal value: %w", err)
	}
	return string(data), nil
}

// unmarshalValue parses a stored value. Integers come back as int64.
func unmarshalValue(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	if n, ok := v.(json.Number); ok {
		i, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("unmarshal value: %w", err)
		}
		return i, nil
	}
	return v, nil
}

// marshalOptions converts run options to canonical JSON TEXT.
func marshalOptions(opts map[string]any) (string, error) {
	if opts == nil {
		opts = map[string]any{}
	}
	data, err := ir.MarshalCanonical(opts)
	if err != nil {
		return "", fmt.Errorf("marshal options: %w", err)
	}
	return string(data), nil
}

// unmarshalOptions parses stored options.
func unmarshalOptions(s string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("unmarshal options: %w", err)
	}
	for k, v := range m {
		if n, ok := v.(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				m[k] = i
			}
		}
	}
	return m, nil
}
