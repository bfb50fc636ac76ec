package changes

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// ChangeReport is the result of a full scan.
type ChangeReport struct {
	Timestamp    time.Time     `json:"timestamp"`
	ChangedFiles []ChangedFile `json:"changed_files"`
	ImpactChains []ImpactChain `json:"impact_chains"`
	// AffectedNodeIDs is the sorted union of affected ids across all chains.
	AffectedNodeIDs []string `json:"affected_nodes"`
}

// HasChanges reports whether any file changed.
func (r *ChangeReport) HasChanges() bool {
	return len(r.ChangedFiles) > 0
}

// ChainsFrom returns the chains whose source is id.
func (r *ChangeReport) ChainsFrom(id string) []ImpactChain {
	var out []ImpactChain
	for _, c := range r.ImpactChains {
		if c.SourceID == id {
			out = append(out, c)
		}
	}
	return out
}

// MarshalJSON adds the change and affected totals.
func (r *ChangeReport) MarshalJSON() ([]byte, error) {
	type plain ChangeReport
	return json.Marshal(struct {
		*plain
		TotalChanged  int `json:"total_changed"`
		TotalAffected int `json:"total_affected"`
	}{(*plain)(r), len(r.ChangedFiles), len(r.AffectedNodeIDs)})
}

// Save writes the report to path as indented JSON.
func (r *ChangeReport) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding change report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing change report: %w", err)
	}
	return nil
}
