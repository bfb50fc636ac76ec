// Package snapshot persists a graph store to disk and restores it. The
// document has two ordered collections, nodes and edges, with every enum
// written as its string name. JSON is the default encoding; YAML and SQLite
// are chosen by file extension.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/ipxgraph/internal/models"
	"github.com/nvandessel/ipxgraph/internal/store"
)

// ErrInvalid is returned when a snapshot cannot be decoded into a valid graph.
var ErrInvalid = errors.New("invalid snapshot")

// Format identifies a snapshot encoding.
type Format string

const (
	FormatJSON   Format = "json"
	FormatYAML   Format = "yaml"
	FormatSQLite Format = "sqlite"
)

// FormatFor picks the encoding from a file extension, defaulting to JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite
	default:
		return FormatJSON
	}
}

// Document is the on-disk form of a graph. Node metadata is free-form; after
// a JSON or SQLite round trip every number in it decodes as float64.
type Document struct {
	Nodes []models.ArtifactNode   `json:"nodes" yaml:"nodes"`
	Edges []models.DependencyEdge `json:"edges" yaml:"edges"`
}

// FromStore captures every node and edge of r in insertion order.
func FromStore(r store.Reader) Document {
	return Document{Nodes: r.Nodes(), Edges: r.Edges()}
}

// Validate checks every enum-valued field against the known names.
func (d Document) Validate() error {
	var errs []error
	for i, n := range d.Nodes {
		if n.ID == "" {
			errs = append(errs, fmt.Errorf("nodes[%d]: node_id is empty", i))
		}
		if !n.Type.Valid() {
			errs = append(errs, fmt.Errorf("node %q: unknown node_type %q", n.ID, n.Type))
		}
		if !n.Domain.Valid() {
			errs = append(errs, fmt.Errorf("node %q: unknown domain %q", n.ID, n.Domain))
		}
		for kind := range n.DefinedElements {
			if !kind.Valid() {
				errs = append(errs, fmt.Errorf("node %q: unknown element kind %q", n.ID, kind))
			}
		}
	}
	for i, e := range d.Edges {
		if !e.Type.Valid() {
			errs = append(errs, fmt.Errorf("edges[%d] %s: unknown edge_type %q", i, e.ID(), e.Type))
		}
		if !e.Domain.Valid() {
			errs = append(errs, fmt.Errorf("edges[%d] %s: unknown domain %q", i, e.ID(), e.Domain))
		}
		for j, md := range e.MappingDetails {
			if !md.Category.Valid() {
				errs = append(errs, fmt.Errorf("edges[%d] %s: mapping_details[%d]: unknown category %q", i, e.ID(), j, md.Category))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Build validates the document and loads it into a new in-memory store.
func (d Document) Build(opts ...store.Option) (*store.InMemoryGraphStore, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	s := store.NewInMemoryGraphStore(opts...)
	for _, n := range d.Nodes {
		if err := s.AddNode(n); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}
	for _, e := range d.Edges {
		if err := s.AddEdge(e); err != nil {
			return nil, fmt.Errorf("%w: edge %s: %w", ErrInvalid, e.ID(), err)
		}
	}
	return s, nil
}

// Encode writes doc to w as JSON or YAML.
func Encode(w io.Writer, f Format, doc Document) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("format %q is not a stream encoding", f)
	}
}

// Decode reads a JSON or YAML document from r.
func Decode(r io.Reader, f Format) (Document, error) {
	var doc Document
	switch f {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return Document{}, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return Document{}, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	default:
		return Document{}, fmt.Errorf("format %q is not a stream encoding", f)
	}
	doc.applyDefaults()
	return doc, nil
}

// applyDefaults fills fields older snapshots may omit. An edge without a
// domain belongs to the global domain.
func (d *Document) applyDefaults() {
	for i := range d.Edges {
		if d.Edges[i].Domain == "" {
			d.Edges[i].Domain = models.DomainGlobal
		}
	}
}

// Save writes the graph held by r to path, choosing the encoding by extension.
// The file is replaced atomically for JSON and YAML.
func Save(ctx context.Context, path string, r store.Reader) error {
	doc := FromStore(r)
	f := FormatFor(path)
	if f == FormatSQLite {
		return saveSQLite(ctx, path, doc)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, f, doc); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return writeFileAtomic(path, buf.Bytes())
}

// Load reads a snapshot from path into a new in-memory store.
func Load(ctx context.Context, path string, opts ...store.Option) (*store.InMemoryGraphStore, error) {
	doc, err := ReadDocument(ctx, path)
	if err != nil {
		return nil, err
	}
	s, err := doc.Build(opts...)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return s, nil
}

// ReadDocument reads a snapshot document without building a store.
func ReadDocument(ctx context.Context, path string) (Document, error) {
	f := FormatFor(path)
	if f == FormatSQLite {
		return loadSQLite(ctx, path)
	}

	file, err := os.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("opening snapshot: %w", err)
	}
	defer file.Close()

	doc, err := Decode(file, f)
	if err != nil {
		return Document{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return doc, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing snapshot: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("setting snapshot permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}
