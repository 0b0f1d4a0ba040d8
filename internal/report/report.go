// Package report renders a human-readable YAML summary of a resolved map.
package report

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/scsmap/internal/scsmap"
)

// Reference is one unresolved reference in a Summary.
type Reference struct {
	Owner     string `yaml:"owner"`
	OwnerKind string `yaml:"owner_kind"`
	Field     string `yaml:"field"`
	Target    string `yaml:"target"`
}

// Summary describes the contents of a map and the outcome of its last
// resolve pass. UIDs are rendered as 16-digit hex strings.
type Summary struct {
	Map            string         `yaml:"map"`
	Sectors        int            `yaml:"sectors"`
	Nodes          int            `yaml:"nodes"`
	Items          int            `yaml:"items"`
	Kinds          map[string]int `yaml:"kinds"`
	Resolved       int            `yaml:"resolved"`
	Merged         int            `yaml:"merged"`
	DuplicateItems []string       `yaml:"duplicate_items,omitempty"`
	Unresolved     []Reference    `yaml:"unresolved,omitempty"`
}

// Summarize builds the summary of m from its indexed contents and rep.
//
// Precondition: m must have been resolved and rep must be its report.
func Summarize(m *scsmap.Map, rep scsmap.Report) Summary {
	s := Summary{
		Map:      m.Name,
		Sectors:  len(m.Sectors()),
		Nodes:    m.NodeCount(),
		Items:    m.ItemCount(),
		Kinds:    make(map[string]int),
		Resolved: rep.Resolved,
		Merged:   rep.Merged,
	}
	for _, item := range m.Items() {
		s.Kinds[item.Kind().String()]++
	}
	for _, id := range rep.DuplicateItems {
		s.DuplicateItems = append(s.DuplicateItems, hexUID(id))
	}
	for _, u := range rep.Unresolved {
		s.Unresolved = append(s.Unresolved, Reference{
			Owner:     hexUID(u.Owner),
			OwnerKind: u.OwnerKind,
			Field:     u.Field,
			Target:    hexUID(u.Target),
		})
	}
	return s
}

func hexUID(id uint64) string { return fmt.Sprintf("%016x", id) }

// Write renders s as YAML to w.
func (s Summary) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("report: encoding summary: %w", err)
	}
	return enc.Close()
}

// Parse reads a summary previously written by Write.
func Parse(data []byte) (Summary, error) {
	var s Summary
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Summary{}, fmt.Errorf("report: parsing summary: %w", err)
	}
	return s, nil
}
