package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mesh-intelligence/homepage/pkg/types"
)

// Load decodes every value in collection name into a T.
func Load[T any](ctx context.Context, m *Manager, name string) ([]T, error) {
	raw, err := m.Collection(ctx, name)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raw))
	for i, v := range raw {
		var item T
		if err := json.Unmarshal(v, &item); err != nil {
			return nil, fmt.Errorf("decoding %s[%d]: %w", name, i, err)
		}
		out = append(out, item)
	}
	return out, nil
}

// LoadKeyed decodes the value under key, or returns nil when absent.
func LoadKeyed[T any](ctx context.Context, m *Manager, name, key string) (*T, error) {
	raw, err := m.Keyed(ctx, name, key)
	if err != nil || raw == nil {
		return nil, err
	}
	var item T
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("decoding %s[%s]: %w", name, key, err)
	}
	return &item, nil
}

// Replace encodes items and replaces collection name with them. Each item
// is stored under its own RecordKey.
func Replace[T types.Keyed](ctx context.Context, m *Manager, name string, items []T) error {
	records, err := types.EncodeRecords(items)
	if err != nil {
		return types.WriteFailed("replace", name, "", err)
	}
	return m.ReplaceCollection(ctx, name, records)
}

// Put encodes v and stores it under key.
func Put[T any](ctx context.Context, m *Manager, name, key string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return types.WriteFailed("put", name, key, err)
	}
	return m.PutKeyed(ctx, name, key, data)
}
