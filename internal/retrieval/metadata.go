package retrieval

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// DecodeMetadata decodes a JSON object stored by a backend. Integral numbers
// come back as int64 and other numbers as float64, so ids above 2^53 keep
// every digit. Empty input decodes to nil.
func DecodeMetadata(data []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var metadata map[string]any
	if err := dec.Decode(&metadata); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after metadata object")
	}

	return NormalizeNumbers(metadata), nil
}

// NormalizeNumbers replaces json.Number values, including nested ones, with
// int64 when the number is integral and float64 otherwise. A number that
// fits neither is kept as json.Number.
func NormalizeNumbers(metadata map[string]any) map[string]any {
	for key, value := range metadata {
		metadata[key] = normalizeValue(value)
	}
	return metadata
}

func normalizeValue(value any) any {
	switch val := value.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val
	case map[string]any:
		return NormalizeNumbers(val)
	case []any:
		for i, item := range val {
			val[i] = normalizeValue(item)
		}
		return val
	default:
		return value
	}
}
