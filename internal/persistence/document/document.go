// Package document encodes records for document-oriented storage. Absent optional
// values are removed before a document is written, at every nesting level.
package document

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Marshal encodes v as JSON with every null object member removed recursively.
// Array elements are kept in place so positions stay stable.
func Marshal(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("document: encode: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("document: decode: %w", err)
	}

	out, err := json.Marshal(Strip(tree))
	if err != nil {
		return nil, fmt.Errorf("document: re-encode: %w", err)
	}
	return out, nil
}

// Unmarshal decodes a stored document into v.
func Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("document: decode: %w", err)
	}
	return nil
}

// Strip removes nil members from every map in a decoded JSON tree.
func Strip(node any) any {
	switch typed := node.(type) {
	case map[string]any:
		for key, value := range typed {
			if value == nil {
				delete(typed, key)
				continue
			}
			typed[key] = Strip(value)
		}
		return typed
	case []any:
		for i, value := range typed {
			typed[i] = Strip(value)
		}
		return typed
	default:
		return node
	}
}
