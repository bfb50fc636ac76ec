package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"

	"gopkg.in/yaml.v3"
)

// ErrMissingCategory is returned when a mapping detail record has no category.
var ErrMissingCategory = errors.New("mapping detail has no category")

const categoryKey = "category"

// MappingDetail is one field-level mapping record on an edge. On the wire it
// is a flat object: the mandatory "category" key plus category-specific
// scalar fields.
type MappingDetail struct {
	Category MappingCategory
	Fields   map[string]string
}

// NewMappingDetail builds a detail from alternating field/value pairs.
// A trailing field without a value is ignored.
func NewMappingDetail(category MappingCategory, pairs ...string) MappingDetail {
	d := MappingDetail{Category: category, Fields: make(map[string]string, len(pairs)/2)}
	for i := 0; i+1 < len(pairs); i += 2 {
		d.Fields[pairs[i]] = pairs[i+1]
	}
	return d
}

// Value returns the value of field, or "" when absent.
func (d MappingDetail) Value(field string) string {
	return d.Fields[field]
}

// MissingFields returns the required fields that are absent or empty, in
// the order given.
func (d MappingDetail) MissingFields(required []string) []string {
	var missing []string
	for _, f := range required {
		if d.Fields[f] == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

func (d MappingDetail) flatten() map[string]string {
	m := make(map[string]string, len(d.Fields)+1)
	maps.Copy(m, d.Fields)
	m[categoryKey] = string(d.Category)
	return m
}

// MarshalJSON writes the detail as a flat object.
func (d MappingDetail) MarshalJSON() ([]byte, error) {
	if d.Category == "" {
		return nil, ErrMissingCategory
	}
	return json.Marshal(d.flatten())
}

// UnmarshalJSON reads a flat object. Numbers and booleans are kept in their
// textual form; null values are treated as absent.
func (d *MappingDetail) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := MappingDetail{Fields: make(map[string]string, len(raw))}
	for k, v := range raw {
		s, present, err := scalarText(v)
		if err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
		if !present {
			continue
		}
		if k == categoryKey {
			out.Category = MappingCategory(s)
			continue
		}
		out.Fields[k] = s
	}
	if out.Category == "" {
		return ErrMissingCategory
	}
	*d = out
	return nil
}

func scalarText(v json.RawMessage) (string, bool, error) {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return "", false, nil
	}
	switch v[0] {
	case '"':
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return "", false, err
		}
		return s, true, nil
	case '{', '[':
		return "", false, errors.New("mapping values must be scalars")
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(v, &b); err != nil {
			return "", false, err
		}
		return fmt.Sprint(b), true, nil
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		return "", false, err
	}
	return n.String(), true, nil
}

// MarshalYAML writes the detail as a flat mapping.
func (d MappingDetail) MarshalYAML() (any, error) {
	if d.Category == "" {
		return nil, ErrMissingCategory
	}
	return d.flatten(), nil
}

// UnmarshalYAML reads a flat mapping of scalars.
func (d *MappingDetail) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: mapping detail must be a mapping", value.Line)
	}

	out := MappingDetail{Fields: make(map[string]string, len(value.Content)/2)}
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i].Value, value.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: field %q: mapping values must be scalars", val.Line, key)
		}
		if val.Tag == "!!null" {
			continue
		}
		if key == categoryKey {
			out.Category = MappingCategory(val.Value)
			continue
		}
		out.Fields[key] = val.Value
	}
	if out.Category == "" {
		return ErrMissingCategory
	}
	*d = out
	return nil
}
