// Package models defines the artifact graph data model: design artifacts,
// the dependencies between them and the field-level mappings those
// dependencies carry.
package models

import (
	"fmt"
	"maps"
	"slices"
)

// DefinedElements is the declared inventory of sub-elements an artifact is
// expected to contain, keyed by element kind.
type DefinedElements map[ElementKind][]string

// ArtifactNode is a single file or logical artifact in the design flow.
type ArtifactNode struct {
	ID          string   `json:"node_id" yaml:"node_id"`
	Name        string   `json:"name" yaml:"name"`
	Type        NodeType `json:"node_type" yaml:"node_type"`
	Domain      Domain   `json:"domain" yaml:"domain"`
	FilePath    string   `json:"file_path,omitempty" yaml:"file_path,omitempty"` // empty for logical nodes
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	EDATool     string   `json:"eda_tool,omitempty" yaml:"eda_tool,omitempty"`
	Version     string   `json:"version,omitempty" yaml:"version,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	Metadata        map[string]any  `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	DefinedElements DefinedElements `json:"defined_elements,omitempty" yaml:"defined_elements,omitempty"`
}

// HasFile reports whether the node is backed by a file on disk.
func (n *ArtifactNode) HasFile() bool {
	return n.FilePath != ""
}

// Elements returns the declared element names of the given kind.
func (n *ArtifactNode) Elements(kind ElementKind) []string {
	return n.DefinedElements[kind]
}

// HasElements reports whether any element kind carries at least one name.
func (n *ArtifactNode) HasElements() bool {
	for _, names := range n.DefinedElements {
		if len(names) > 0 {
			return true
		}
	}
	return false
}

// Clone returns a copy of n that shares no slices or maps with it.
// Metadata values are copied shallowly.
func (n ArtifactNode) Clone() ArtifactNode {
	n.Tags = slices.Clone(n.Tags)
	n.Metadata = maps.Clone(n.Metadata)
	if n.DefinedElements != nil {
		de := make(DefinedElements, len(n.DefinedElements))
		for k, v := range n.DefinedElements {
			de[k] = slices.Clone(v)
		}
		n.DefinedElements = de
	}
	return n
}

// DependencyEdge is a directed dependency between two artifacts.
type DependencyEdge struct {
	SourceID       string          `json:"source_id" yaml:"source_id"`
	TargetID       string          `json:"target_id" yaml:"target_id"`
	Type           EdgeType        `json:"edge_type" yaml:"edge_type"`
	Label          string          `json:"label,omitempty" yaml:"label,omitempty"`
	Domain         Domain          `json:"domain" yaml:"domain"`
	Metadata       map[string]any  `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	MappingDetails []MappingDetail `json:"mapping_details,omitempty" yaml:"mapping_details,omitempty"`
}

// ID returns the display identifier source--type-->target. Parallel edges of
// different types between the same pair have distinct ids.
func (e *DependencyEdge) ID() string {
	return fmt.Sprintf("%s--%s-->%s", e.SourceID, e.Type, e.TargetID)
}

// DetailsFor returns the mapping details of the given category in order.
func (e *DependencyEdge) DetailsFor(category MappingCategory) []MappingDetail {
	var out []MappingDetail
	for _, d := range e.MappingDetails {
		if d.Category == category {
			out = append(out, d)
		}
	}
	return out
}

// Clone returns a copy of e that shares no slices or maps with it.
func (e DependencyEdge) Clone() DependencyEdge {
	e.Metadata = maps.Clone(e.Metadata)
	if e.MappingDetails != nil {
		details := make([]MappingDetail, len(e.MappingDetails))
		for i, d := range e.MappingDetails {
			details[i] = MappingDetail{Category: d.Category, Fields: maps.Clone(d.Fields)}
		}
		e.MappingDetails = details
	}
	return e
}
