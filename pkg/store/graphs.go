package store

import (
	"context"
	"errors"

	apperrors "github.com/matzehuels/mixgraph/pkg/errors"
	mgio "github.com/matzehuels/mixgraph/pkg/io"
	"github.com/matzehuels/mixgraph/pkg/nodegraph"
)

// SaveGraph encodes g and stores it under key. It returns the content
// hash of the stored document.
func SaveGraph(ctx context.Context, s Store, key string, g *nodegraph.Graph) (string, error) {
	data, err := mgio.Marshal(g)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrCodeInternal, err, "encode graph %s", key)
	}
	if err := s.Put(ctx, key, data); err != nil {
		return "", wrapStoreError(err, key)
	}
	return Hash(data), nil
}

// LoadGraph reads the document stored under key and restores it against
// reg. It returns the graph and the content hash of the stored document.
func LoadGraph(ctx context.Context, s Store, key string, reg *nodegraph.Registry, opts nodegraph.Options) (*nodegraph.Graph, string, error) {
	data, err := s.Get(ctx, key)
	if err != nil {
		return nil, "", wrapStoreError(err, key)
	}
	g, err := mgio.Unmarshal(data, reg, opts)
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.ErrCodeInvalidDocument, err, "graph %s", key)
	}
	return g, Hash(data), nil
}

// wrapStoreError attaches an error code to a backend error. Errors that
// already carry a code are returned unchanged.
func wrapStoreError(err error, key string) error {
	if apperrors.GetCode(err) != "" {
		return err
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return apperrors.Wrap(apperrors.ErrCodeGraphNotFound, err, "graph %s not found", key)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Wrap(apperrors.ErrCodeTimeout, err, "graph %s", key)
	}
	return apperrors.Wrap(apperrors.ErrCodeStoreUnavailable, err, "graph %s", key)
}
