// Package entity is the key-value substrate every handler reads and writes.
// Records are JSON documents addressed by (kind, id); the last write wins.
package entity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"balancerScope/internal/model"
)

// ErrNotFound is returned by Must when a record is absent.
var ErrNotFound = errors.New("entity not found")

// Store loads and saves raw entity documents.
type Store interface {
	Get(ctx context.Context, kind model.Kind, id string) ([]byte, bool, error)
	Put(ctx context.Context, kind model.Kind, id string, data []byte) error
}

// Transactor runs fn against a store whose writes become visible only if fn
// returns nil.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(Store) error) error
}

// Entity is a record with a stable (kind, id) address.
type Entity interface {
	EntityKind() model.Kind
	EntityID() string
}

type entityPtr[T any] interface {
	*T
	Entity
}

// Load returns the record stored under id, or nil when absent.
func Load[T any, P entityPtr[T]](ctx context.Context, s Store, id string) (P, error) {
	var zero T
	kind := P(&zero).EntityKind()

	data, ok, err := s.Get(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("load %s %s: %w", kind, id, err)
	}
	if !ok {
		return nil, nil
	}

	out := P(new(T))
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", kind, id, err)
	}
	return out, nil
}

// Must is Load with absence reported as ErrNotFound.
func Must[T any, P entityPtr[T]](ctx context.Context, s Store, id string) (P, error) {
	out, err := Load[T, P](ctx, s, id)
	if err != nil {
		return nil, err
	}
	if out == nil {
		var zero T
		return nil, fmt.Errorf("%s %s: %w", P(&zero).EntityKind(), id, ErrNotFound)
	}
	return out, nil
}

// Save upserts e under its own kind and id.
func Save(ctx context.Context, s Store, e Entity) error {
	if e.EntityID() == "" {
		return fmt.Errorf("save %s: empty id", e.EntityKind())
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", e.EntityKind(), e.EntityID(), err)
	}
	if err := s.Put(ctx, e.EntityKind(), e.EntityID(), data); err != nil {
		return fmt.Errorf("save %s %s: %w", e.EntityKind(), e.EntityID(), err)
	}
	return nil
}
