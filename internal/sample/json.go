package sample

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Marshal encodes v without escaping HTML characters. Non-ASCII text is
// written as-is.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

type fields map[string]json.RawMessage

func decodeFields(b []byte) (fields, error) {
	var raw fields
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("expected JSON object, got null")
	}
	return raw, nil
}

// take decodes and removes key when present.
func (f fields) take(key string, dst any) (bool, error) {
	v, ok := f[key]
	if !ok {
		return false, nil
	}
	delete(f, key)
	if err := json.Unmarshal(v, dst); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (f fields) put(key string, v any) error {
	raw, err := Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	f[key] = raw
	return nil
}

func (f fields) clone() fields {
	out := make(fields, len(f)+8)
	for k, v := range f {
		out[k] = v
	}
	return out
}
