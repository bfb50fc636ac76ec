package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nvandessel/ipxgraph/internal/models"

	_ "modernc.org/sqlite"
)

const (
	createNodes = `CREATE TABLE nodes (
    seq INTEGER PRIMARY KEY,
    node_id TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    node_type TEXT NOT NULL,
    domain TEXT NOT NULL,
    file_path TEXT NOT NULL,
    description TEXT NOT NULL,
    eda_tool TEXT NOT NULL,
    version TEXT NOT NULL,
    tags TEXT NOT NULL,
    metadata TEXT NOT NULL,
    defined_elements TEXT NOT NULL
);`

	createEdges = `CREATE TABLE edges (
    seq INTEGER PRIMARY KEY,
    source_id TEXT NOT NULL,
    target_id TEXT NOT NULL,
    edge_type TEXT NOT NULL,
    label TEXT NOT NULL,
    domain TEXT NOT NULL,
    metadata TEXT NOT NULL,
    mapping_details TEXT NOT NULL
);`

	idxEdgesSource = `CREATE INDEX idx_edges_source ON edges(source_id);`
	idxEdgesTarget = `CREATE INDEX idx_edges_target ON edges(target_id);`
)

var schemaDDL = []string{createNodes, createEdges, idxEdgesSource, idxEdgesTarget}

// saveSQLite writes doc into a fresh database file at path. Structured
// fields (tags, metadata, defined elements, mapping details) are stored as
// JSON text columns.
func saveSQLite(ctx context.Context, path string, doc Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	tmp := path + ".tmp"
	_ = os.Remove(tmp)
	defer os.Remove(tmp)

	if err := writeSQLite(ctx, tmp, doc); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

func writeSQLite(ctx context.Context, path string, doc Document) (err error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("opening sqlite snapshot: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing sqlite snapshot: %w", cerr)
		}
	}()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, ddl := range schemaDDL {
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	for i, n := range doc.Nodes {
		tags, err := jsonText(n.Tags)
		if err != nil {
			return err
		}
		meta, err := jsonText(n.Metadata)
		if err != nil {
			return err
		}
		elems, err := jsonText(n.DefinedElements)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO nodes (seq, node_id, name, node_type, domain, file_path, description, eda_tool, version, tags, metadata, defined_elements)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			i, n.ID, n.Name, string(n.Type), string(n.Domain), n.FilePath, n.Description, n.EDATool, n.Version, tags, meta, elems)
		if err != nil {
			return fmt.Errorf("inserting node %q: %w", n.ID, err)
		}
	}

	for i, e := range doc.Edges {
		meta, err := jsonText(e.Metadata)
		if err != nil {
			return err
		}
		details, err := jsonText(e.MappingDetails)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO edges (seq, source_id, target_id, edge_type, label, domain, metadata, mapping_details)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			i, e.SourceID, e.TargetID, string(e.Type), e.Label, string(e.Domain), meta, details)
		if err != nil {
			return fmt.Errorf("inserting edge %s: %w", e.ID(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	return nil
}

func loadSQLite(ctx context.Context, path string) (doc Document, err error) {
	if _, err := os.Stat(path); err != nil {
		return Document{}, fmt.Errorf("opening snapshot: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return Document{}, fmt.Errorf("opening sqlite snapshot: %w", err)
	}
	defer db.Close()

	doc.Nodes, err = readNodes(ctx, db)
	if err != nil {
		return Document{}, err
	}
	doc.Edges, err = readEdges(ctx, db)
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

func readNodes(ctx context.Context, db *sql.DB) ([]models.ArtifactNode, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT node_id, name, node_type, domain, file_path, description, eda_tool, version, tags, metadata, defined_elements
		 FROM nodes ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying nodes: %w", ErrInvalid, err)
	}
	defer rows.Close()

	var nodes []models.ArtifactNode
	for rows.Next() {
		var (
			n                     models.ArtifactNode
			nodeType, domain      string
			tags, meta, elemsText string
		)
		if err := rows.Scan(&n.ID, &n.Name, &nodeType, &domain, &n.FilePath, &n.Description,
			&n.EDATool, &n.Version, &tags, &meta, &elemsText); err != nil {
			return nil, fmt.Errorf("scanning node: %w", err)
		}
		n.Type = models.NodeType(nodeType)
		n.Domain = models.Domain(domain)
		if err := errors.Join(
			fromJSONText(tags, &n.Tags),
			fromJSONText(meta, &n.Metadata),
			fromJSONText(elemsText, &n.DefinedElements),
		); err != nil {
			return nil, fmt.Errorf("%w: node %q: %w", ErrInvalid, n.ID, err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func readEdges(ctx context.Context, db *sql.DB) ([]models.DependencyEdge, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT source_id, target_id, edge_type, label, domain, metadata, mapping_details
		 FROM edges ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying edges: %w", ErrInvalid, err)
	}
	defer rows.Close()

	var edges []models.DependencyEdge
	for rows.Next() {
		var (
			e                 models.DependencyEdge
			edgeType, domain  string
			meta, detailsText string
		)
		if err := rows.Scan(&e.SourceID, &e.TargetID, &edgeType, &e.Label, &domain, &meta, &detailsText); err != nil {
			return nil, fmt.Errorf("scanning edge: %w", err)
		}
		e.Type = models.EdgeType(edgeType)
		e.Domain = models.Domain(domain)
		if err := errors.Join(
			fromJSONText(meta, &e.Metadata),
			fromJSONText(detailsText, &e.MappingDetails),
		); err != nil {
			return nil, fmt.Errorf("%w: edge %s: %w", ErrInvalid, e.ID(), err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func jsonText(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding column: %w", err)
	}
	return string(b), nil
}

func fromJSONText(s string, v any) error {
	return json.Unmarshal([]byte(s), v)
}
