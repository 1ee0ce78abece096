package blocks

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Hash returns the SHA-1 hex digest of the "blocks" array of a raw body.
// The array is re-encoded canonically (sorted keys, no HTML escaping) so
// formatting differences do not change the hash.
func Hash(rawBody []byte) (string, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(rawBody, &doc); err != nil {
		return "", fmt.Errorf("hash body: %w", err)
	}

	canonical, err := Canonical(doc["blocks"])
	if err != nil {
		return "", fmt.Errorf("hash blocks: %w", err)
	}

	sum := sha1.Sum(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Canonical re-encodes a JSON value with sorted object keys and without
// HTML escaping. An empty input encodes as null.
func Canonical(raw []byte) ([]byte, error) {
	var v any
	if len(bytes.TrimSpace(raw)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
