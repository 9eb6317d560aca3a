package domain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// TimestampFormat is the canonical timestamp layout: UTC with fixed-width
// microseconds, so identical logical times always encode to identical bytes.
const TimestampFormat = "2006-01-02T15:04:05.000000Z"

// FormatTimestamp renders a time in the canonical layout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// CanonicalJSON encodes a value as deterministic JSON: object keys sorted
// lexicographically, fixed "," and ":" separators, no insignificant
// whitespace, no HTML escaping. Repeated runs over identical logical content
// yield byte-identical output, which is what makes stored entry hashes
// verifiable later.
func CanonicalJSON(value any) (string, error) {
	var b strings.Builder
	if err := writeCanonical(&b, value); err != nil {
		return "", err
	}
	return b.String(), nil
}

// HashHex returns the lowercase hex SHA-256 digest of the canonical payload.
func HashHex(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

func writeCanonical(b *strings.Builder, value any) error {
	switch v := value.(type) {
	case nil:
		b.WriteString("null")
		return nil

	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeScalar(b, k); err != nil {
				return err
			}
			b.WriteByte(':')
			if err := writeCanonical(b, v[k]); err != nil {
				return err
			}
		}
		b.WriteByte('}')
		return nil

	case []any:
		b.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeCanonical(b, item); err != nil {
				return err
			}
		}
		b.WriteByte(']')
		return nil

	case bool, string, float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return writeScalar(b, v)

	default:
		// Unknown composite type: normalize through encoding/json and recurse.
		// UseNumber keeps numeric literals byte-stable.
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("canonical encoding failed: %w", err)
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var generic any
		if err := dec.Decode(&generic); err != nil {
			return fmt.Errorf("canonical normalization failed: %w", err)
		}
		return writeCanonical(b, generic)
	}
}

// writeScalar encodes a single JSON scalar without HTML escaping.
func writeScalar(b *strings.Builder, value any) error {
	if n, ok := value.(json.Number); ok {
		b.WriteString(n.String())
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return fmt.Errorf("canonical scalar encoding failed: %w", err)
	}
	// Encode appends a trailing newline.
	b.WriteString(strings.TrimSuffix(buf.String(), "\n"))
	return nil
}
