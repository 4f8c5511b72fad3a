package store

import (
	"context"
	"errors"
	"slices"
	"time"

	apperrors "github.com/matzehuels/mixgraph/pkg/errors"
	"github.com/matzehuels/mixgraph/pkg/observability"
	"golang.org/x/sync/singleflight"
)

// Instrumented wraps a backend with key validation, retries of transient
// failures, observability hooks and read deduplication.
type Instrumented struct {
	inner   Store
	backend string
	reads   singleflight.Group
}

// Instrument wraps s. The backend name labels every hook call.
func Instrument(s Store, backend string) *Instrumented {
	if i, ok := s.(*Instrumented); ok {
		return i
	}
	return &Instrumented{inner: s, backend: backend}
}

// Backend returns the backend name.
func (s *Instrumented) Backend() string { return s.backend }

// Get reads key. Concurrent Gets of the same key share one backend call
// and receive copies of its result.
func (s *Instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	if err := apperrors.ValidateGraphKey(key); err != nil {
		return nil, err
	}
	hooks := observability.Store()
	began := time.Now()
	v, err, _ := s.reads.Do(key, func() (any, error) {
		var data []byte
		err := RetryWithBackoff(ctx, func() error {
			var err error
			data, err = s.inner.Get(ctx, key)
			return err
		})
		return data, err
	})
	if errors.Is(err, ErrNotFound) {
		hooks.OnStoreGet(ctx, s.backend, false, time.Since(began))
		return nil, err
	}
	if err != nil {
		hooks.OnStoreError(ctx, s.backend, "get", err)
		return nil, err
	}
	hooks.OnStoreGet(ctx, s.backend, true, time.Since(began))
	return slices.Clone(v.([]byte)), nil
}

// Put writes key.
func (s *Instrumented) Put(ctx context.Context, key string, data []byte) error {
	if err := apperrors.ValidateGraphKey(key); err != nil {
		return err
	}
	hooks := observability.Store()
	began := time.Now()
	err := RetryWithBackoff(ctx, func() error {
		return s.inner.Put(ctx, key, data)
	})
	if err != nil {
		hooks.OnStoreError(ctx, s.backend, "put", err)
		return err
	}
	hooks.OnStorePut(ctx, s.backend, len(data), time.Since(began))
	return nil
}

// Delete removes key.
func (s *Instrumented) Delete(ctx context.Context, key string) error {
	if err := apperrors.ValidateGraphKey(key); err != nil {
		return err
	}
	err := RetryWithBackoff(ctx, func() error {
		return s.inner.Delete(ctx, key)
	})
	if err != nil {
		observability.Store().OnStoreError(ctx, s.backend, "delete", err)
		return err
	}
	observability.Store().OnStoreDelete(ctx, s.backend)
	return nil
}

// List returns all keys.
func (s *Instrumented) List(ctx context.Context) ([]string, error) {
	var keys []string
	err := RetryWithBackoff(ctx, func() error {
		var err error
		keys, err = s.inner.List(ctx)
		return err
	})
	if err != nil {
		observability.Store().OnStoreError(ctx, s.backend, "list", err)
		return nil, err
	}
	return keys, nil
}

// Close closes the wrapped backend.
func (s *Instrumented) Close() error { return s.inner.Close() }

var _ Store = (*Instrumented)(nil)
