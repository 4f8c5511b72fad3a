package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/mixgraph/pkg/nodegraph"
)

// WriteJSON snapshots g and writes it to w as indented JSON.
// The output can be re-imported with [ReadJSON].
func WriteJSON(g *nodegraph.Graph, w io.Writer) error {
	doc, err := g.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	return WriteDocument(doc, w)
}

// WriteDocument writes doc to w as indented JSON.
func WriteDocument(doc *nodegraph.Document, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// Marshal returns the JSON encoding of g.
func Marshal(g *nodegraph.Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteJSON(g, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportJSON writes g to a JSON file at path.
// This is a convenience wrapper around [WriteJSON] for file-based output.
func ExportJSON(g *nodegraph.Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteJSON(g, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
