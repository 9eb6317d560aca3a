// Package repository implements data persistence for the audit chain.
// Repositories support both PostgreSQL and MySQL; entries are append-only and
// hash fields are never updated after insert.
package repository

import (
	"encoding/json"

	apperrors "github.com/allisson/gatekeeper/internal/errors"
)

// marshalJSONColumn encodes a map for a nullable JSON column. A nil map is
// stored as SQL NULL so it round-trips distinctly from an empty object.
func marshalJSONColumn(m map[string]any) (any, error) {
	if m == nil {
		return nil, nil
	}

	data, err := json.Marshal(m)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode json column")
	}

	return data, nil
}

// unmarshalJSONColumn decodes a nullable JSON column into a map.
func unmarshalJSONColumn(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode json column")
	}

	return m, nil
}
