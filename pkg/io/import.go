package io

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/mixgraph/pkg/nodegraph"
)

// ErrUnsupportedVersion is returned for documents written by a newer
// version of the format.
var ErrUnsupportedVersion = errors.New("unsupported document version")

// ReadDocument decodes a graph document from r without restoring it.
// Documents without a version are treated as version 1.
func ReadDocument(r io.Reader) (*nodegraph.Document, error) {
	var doc nodegraph.Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if doc.Version == 0 {
		doc.Version = 1
	}
	if doc.Version > nodegraph.DocumentVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}
	return &doc, nil
}

// ReadJSON decodes a graph document from r and restores it against reg.
//
// ReadJSON returns an error if the JSON is malformed, if the document
// version is newer than [nodegraph.DocumentVersion], or if
// [nodegraph.Restore] rejects the document. ReadJSON does not close r.
func ReadJSON(r io.Reader, reg *nodegraph.Registry, opts nodegraph.Options) (*nodegraph.Graph, error) {
	doc, err := ReadDocument(r)
	if err != nil {
		return nil, err
	}
	g, err := nodegraph.Restore(reg, doc, opts)
	if err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}
	return g, nil
}

// Unmarshal restores a graph from its JSON encoding.
func Unmarshal(data []byte, reg *nodegraph.Registry, opts nodegraph.Options) (*nodegraph.Graph, error) {
	return ReadJSON(bytes.NewReader(data), reg, opts)
}

// ImportJSON reads a JSON file at path and returns the restored graph.
// The error wraps the underlying cause with the file path for context.
func ImportJSON(path string, reg *nodegraph.Registry, opts nodegraph.Options) (*nodegraph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	g, err := ReadJSON(f, reg, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}
