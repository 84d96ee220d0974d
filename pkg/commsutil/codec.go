package commsutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const codecLogPrefix = "commsutil:codec"

// ErrNotObject is returned by DecodeObject for payloads that are not a JSON object.
var ErrNotObject = errors.New("payload is not a JSON object")

// EncodePayload serializes a value to JSON bytes.
func EncodePayload(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// DecodePayload deserializes JSON bytes into the given target.
func DecodePayload(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// DecodeObject decodes a JSON object into a generic map, keeping numbers as
// json.Number so integer parameters survive without float rounding. Empty
// input and JSON null decode to an empty map.
func DecodeObject(data []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return map[string]any{}, nil
	}
	if trimmed[0] != '{' {
		return nil, ErrNotObject
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("%s - invalid JSON: %w", codecLogPrefix, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%s - invalid JSON: trailing data", codecLogPrefix)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}
