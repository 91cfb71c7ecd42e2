// Package storage provides the key-value backends used on the device: a secure store for the
// device identity and a general store for counters and markers.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound reports that a key has no value. Any other error is a backend failure.
var ErrNotFound = errors.New("storage: key not found")

// SecureStore holds small secrets such as the device identity.
type SecureStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Store is general key-value storage with enumeration for bulk cleanup.
type Store interface {
	SecureStore
	ListKeys(ctx context.Context) ([]string, error)
	DeleteMany(ctx context.Context, keys []string) error
}
