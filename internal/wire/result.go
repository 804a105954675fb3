package wire

import (
	"encoding/json"
	"fmt"
)

// EncodeOk returns the canonical success payload {"ok": v}.
func EncodeOk(v any) ([]byte, error) {
	data, err := json.Marshal(map[string]any{"ok": v})
	if err != nil {
		return nil, fmt.Errorf("encode ok result: %w", err)
	}
	return data, nil
}

// EncodeErr returns the canonical failure payload {"err": msg}.
func EncodeErr(msg string) []byte {
	// Marshalling a string map cannot fail.
	data, _ := json.Marshal(map[string]string{"err": msg})
	return data
}
