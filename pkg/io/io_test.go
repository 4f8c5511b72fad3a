package io

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/mixgraph/pkg/nodegraph"
	"github.com/matzehuels/mixgraph/pkg/nodegraph/nodes"
)

func buildGraph(t *testing.T) (*nodegraph.Registry, *nodegraph.Graph) {
	t.Helper()
	reg, err := nodes.NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	g := nodegraph.New(reg, nodegraph.Options{Class: nodes.GraphClass})
	if _, err := nodes.Chain(g, nodes.Layer{Material: "portal.mat"}); err != nil {
		t.Fatal(err)
	}
	return reg, g
}

func TestRoundTrip(t *testing.T) {
	reg, g := buildGraph(t)

	var buf bytes.Buffer
	if err := WriteJSON(g, &buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	first := buf.String()

	restored, err := ReadJSON(strings.NewReader(first), reg, nodegraph.Options{})
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if restored.NodeCount() != g.NodeCount() || len(restored.Links()) != len(g.Links()) {
		t.Errorf("restored %d nodes / %d links, want %d / %d",
			restored.NodeCount(), len(restored.Links()), g.NodeCount(), len(g.Links()))
	}
	if restored.NextID() != g.NextID() {
		t.Errorf("NextID = %d, want %d", restored.NextID(), g.NextID())
	}

	data, err := Marshal(restored)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != first {
		t.Error("re-exported document differs from the original")
	}
}

func TestReadDocumentVersion(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr error
	}{
		{"missing version", `{"nodes":[],"pins":[],"links":[]}`, 1, nil},
		{"current version", `{"version":1,"nodes":[],"pins":[],"links":[]}`, 1, nil},
		{"newer version", `{"version":99}`, 0, ErrUnsupportedVersion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ReadDocument(strings.NewReader(tt.input))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if doc.Version != tt.want {
				t.Errorf("Version = %d, want %d", doc.Version, tt.want)
			}
		})
	}
}

func TestReadJSONErrors(t *testing.T) {
	reg, _ := buildGraph(t)
	tests := []struct {
		name  string
		input string
	}{
		{"malformed", `{"nodes": [`},
		{"unknown class", `{"version":1,"next_id":2,"nodes":[{"class":"nope","id":1,"inputs":[],"outputs":[]}],"pins":[],"links":[]}`},
		{"dangling link", `{"version":1,"next_id":4,"nodes":[],"pins":[],"links":[{"id":3,"start":1,"end":2}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadJSON(strings.NewReader(tt.input), reg, nodegraph.Options{}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestExportImportFile(t *testing.T) {
	reg, g := buildGraph(t)
	path := filepath.Join(t.TempDir(), "graph.json")
	if err := ExportJSON(g, path); err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	restored, err := ImportJSON(path, reg, nodegraph.Options{})
	if err != nil {
		t.Fatalf("ImportJSON: %v", err)
	}
	if p := restored.PropertyByName(g.Properties()[0].Name); p == nil {
		t.Error("property lost in round trip")
	}

	if _, err := ImportJSON(filepath.Join(t.TempDir(), "missing.json"), reg, nodegraph.Options{}); err == nil {
		t.Error("expected error for missing file")
	}
}
