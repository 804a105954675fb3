package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/asyncmock/internal/wire"
)

// canonicalText converts a JSON body to canonical JSON TEXT for storage.
// Bodies holding values canonical JSON cannot express (non-integer numbers)
// are stored compacted instead.
func canonicalText(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("empty body")
	}
	if data, err := wire.MarshalCanonical(raw); err == nil {
		return string(data), nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", fmt.Errorf("body is not JSON: %w", err)
	}
	return buf.String(), nil
}

// nullableText maps an optional body to a SQL value.
func nullableText(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	return canonicalText(raw)
}
