// Package changes detects artifact file changes against a stored hash
// baseline and propagates their impact through the dependency graph.
package changes

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/ipxgraph/internal/models"
	"github.com/nvandessel/ipxgraph/internal/store"
)

// Status classifies a changed artifact file.
type Status string

const (
	StatusModified Status = "modified" // file present, hash differs from baseline
	StatusAdded    Status = "added"    // file present, no baseline entry
	StatusMissing  Status = "missing"  // baseline entry present, file unreadable
)

// Baseline maps node id to the hex SHA-256 digest of its file.
type Baseline map[string]string

// ChangedFile is one file-bearing node whose hash differs from the baseline.
type ChangedFile struct {
	NodeID   string `json:"node_id"`
	Name     string `json:"name"`
	FilePath string `json:"file_path"`
	Status   Status `json:"status"`
	OldHash  string `json:"old_hash,omitempty"`
	NewHash  string `json:"new_hash,omitempty"`
}

// ImpactChain is the shortest route from a changed node to one node it affects.
type ImpactChain struct {
	SourceID   string            `json:"source"`
	AffectedID string            `json:"affected"`
	Path       []string          `json:"path"`
	EdgeTypes  []models.EdgeType `json:"edge_types"`
	Depth      int               `json:"depth"`
	// Direction is outbound for downstream impact and inbound for upstream.
	Direction store.Direction `json:"direction"`
}

// PropagateOptions controls impact propagation.
type PropagateOptions struct {
	IncludeUpstream bool
	MaxDepth        int // 0 means unlimited
}

// Detector compares live file hashes with a baseline. It only reads the graph.
type Detector struct {
	graph    store.Reader
	baseline Baseline
	root     string
	workers  int
	logger   *zap.Logger
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets the detector logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithWorkers bounds the number of files hashed concurrently.
func WithWorkers(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithRoot sets the directory relative node file paths are resolved against.
// Without it they resolve against the working directory.
func WithRoot(dir string) Option {
	return func(d *Detector) {
		d.root = dir
	}
}

// WithBaseline starts the detector from an existing baseline.
func WithBaseline(b Baseline) Option {
	return func(d *Detector) {
		d.baseline = cloneBaseline(b)
	}
}

// NewDetector creates a Detector over graph with an empty baseline.
func NewDetector(graph store.Reader, opts ...Option) *Detector {
	d := &Detector{
		graph:    graph,
		baseline: Baseline{},
		workers:  runtime.GOMAXPROCS(0),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Baseline returns a copy of the current baseline.
func (d *Detector) Baseline() Baseline {
	return cloneBaseline(d.baseline)
}

// BuildBaseline hashes every file-bearing node, replaces the detector's
// baseline with the result and returns a copy. Unreadable files are left out.
func (d *Detector) BuildBaseline(ctx context.Context) (Baseline, error) {
	hashes, err := d.hashAll(ctx)
	if err != nil {
		return nil, err
	}
	b := make(Baseline, len(hashes))
	for _, h := range hashes {
		if h.ok {
			b[h.node.ID] = h.sum
		}
	}
	d.baseline = b
	d.logger.Info("baseline built", zap.Int("files", len(b)))
	return cloneBaseline(b), nil
}

// SaveBaseline writes the baseline to path as a flat JSON object.
func (d *Detector) SaveBaseline(path string) error {
	data, err := json.MarshalIndent(d.baseline, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding baseline: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing baseline: %w", err)
	}
	d.logger.Info("baseline saved", zap.String("path", path), zap.Int("files", len(d.baseline)))
	return nil
}

// LoadBaseline replaces the baseline with the one stored at path.
func (d *Detector) LoadBaseline(path string) error {
	b, err := ReadBaseline(path)
	if err != nil {
		return err
	}
	d.baseline = b
	d.logger.Info("baseline loaded", zap.String("path", path), zap.Int("files", len(b)))
	return nil
}

// ReadBaseline reads a baseline file written by SaveBaseline.
func ReadBaseline(path string) (Baseline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading baseline: %w", err)
	}
	b := Baseline{}
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parsing baseline %s: %w", path, err)
	}
	return b, nil
}

// DetectChanges rehashes every file-bearing node and reports those whose
// status differs from the baseline, in graph insertion order.
func (d *Detector) DetectChanges(ctx context.Context) ([]ChangedFile, error) {
	hashes, err := d.hashAll(ctx)
	if err != nil {
		return nil, err
	}

	var changes []ChangedFile
	for _, h := range hashes {
		old, inBaseline := d.baseline[h.node.ID]
		cf := ChangedFile{NodeID: h.node.ID, Name: h.node.Name, FilePath: h.node.FilePath}
		switch {
		case !inBaseline && h.ok:
			cf.Status, cf.NewHash = StatusAdded, h.sum
		case inBaseline && !h.ok:
			cf.Status, cf.OldHash = StatusMissing, old
		case inBaseline && old != h.sum:
			cf.Status, cf.OldHash, cf.NewHash = StatusModified, old, h.sum
		default:
			continue
		}
		changes = append(changes, cf)
	}

	d.logger.Info("changes detected", zap.Int("changed", len(changes)))
	return changes, nil
}

// PropagateImpact runs a breadth-first search from each changed node and
// returns one chain per (changed node, reachable node) pair. Ids that are
// not in the graph are skipped.
func (d *Detector) PropagateImpact(changedIDs []string, opts PropagateOptions) []ImpactChain {
	var chains []ImpactChain
	for _, id := range changedIDs {
		if _, ok := d.graph.GetNode(id); !ok {
			d.logger.Warn("changed node not in graph, skipping", zap.String("node_id", id))
			continue
		}
		chains = appendChains(chains, d.graph, id, store.DirectionOutbound, opts.MaxDepth)
		if opts.IncludeUpstream {
			chains = appendChains(chains, d.graph, id, store.DirectionInbound, opts.MaxDepth)
		}
	}

	d.logger.Info("impact propagated",
		zap.Int("chains", len(chains)),
		zap.Int("changed_nodes", len(changedIDs)),
	)
	return chains
}

func appendChains(chains []ImpactChain, r store.Reader, id string, dir store.Direction, maxDepth int) []ImpactChain {
	for _, reached := range store.Traverse(r, id, dir, maxDepth) {
		chains = append(chains, ImpactChain{
			SourceID:   id,
			AffectedID: reached.ID,
			Path:       reached.Path,
			EdgeTypes:  reached.EdgeTypes,
			Depth:      reached.Depth,
			Direction:  dir,
		})
	}
	return chains
}

// FullScan detects changes and propagates their impact.
func (d *Detector) FullScan(ctx context.Context, opts PropagateOptions) (*ChangeReport, error) {
	changes, err := d.DetectChanges(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(changes))
	for i, c := range changes {
		ids[i] = c.NodeID
	}
	chains := d.PropagateImpact(ids, opts)

	seen := make(map[string]bool)
	affected := []string{}
	for _, c := range chains {
		if !seen[c.AffectedID] {
			seen[c.AffectedID] = true
			affected = append(affected, c.AffectedID)
		}
	}
	sort.Strings(affected)

	r := &ChangeReport{
		Timestamp:       time.Now().UTC(),
		ChangedFiles:    nonNil(changes),
		ImpactChains:    nonNil(chains),
		AffectedNodeIDs: affected,
	}
	d.logger.Info("full scan complete",
		zap.Int("changed", len(r.ChangedFiles)),
		zap.Int("affected", len(r.AffectedNodeIDs)),
	)
	return r, nil
}

type fileHash struct {
	node models.ArtifactNode
	sum  string
	ok   bool
}

// hashAll hashes file-bearing nodes with at most d.workers files open at
// once. Results keep graph insertion order.
func (d *Detector) hashAll(ctx context.Context) ([]fileHash, error) {
	var out []fileHash
	for _, n := range d.graph.Nodes() {
		if n.HasFile() {
			out = append(out, fileHash{node: n})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for i := range out {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path := d.resolve(out[i].node.FilePath)
			sum, err := hashFile(path)
			if err != nil {
				d.logger.Debug("file unreadable",
					zap.String("node_id", out[i].node.ID),
					zap.String("path", path),
					zap.Error(err),
				)
				return nil
			}
			out[i].sum, out[i].ok = sum, true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("hashing files: %w", err)
	}
	return out, nil
}

func (d *Detector) resolve(path string) string {
	if d.root == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(d.root, path)
}

// hashFile returns the hex SHA-256 digest of the file at path.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func cloneBaseline(b Baseline) Baseline {
	out := make(Baseline, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
