package model

import (
	"fmt"
	"regexp"
)

// Ordering selects how retrieved matches are ordered.
type Ordering string

const (
	OrderingNone           Ordering = "none"
	OrderingTextLengthDesc Ordering = "text_length_desc"
)

// MaxMatches bounds the number of matches any profile may request.
const MaxMatches = 5

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsIdentifier reports whether s can be used as a label, relationship type
// or property key without quoting concerns.
func IsIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// Profile parameterizes the retrieval pipeline: which entity is matched,
// which properties are searched and displayed, and how results are shaped.
type Profile struct {
	Name                string   `yaml:"name"`
	Label               string   `yaml:"label"`
	SearchAttributes    []string `yaml:"search_attributes"`
	DisplayAttributes   []string `yaml:"display_attributes"`
	RelatedAttributes   []string `yaml:"related_attributes"`
	TraversalDepth      int      `yaml:"traversal_depth"`
	SourceRelationship  string   `yaml:"source_relationship"`
	SourceNameAttribute string   `yaml:"source_name_attribute"`
	SourceProperty      string   `yaml:"source_property"`
	Ordering            Ordering `yaml:"ordering"`
	TruncateAt          int      `yaml:"truncate_at"`
	Limit               int      `yaml:"limit"`
}

// PolicyProfile matches Policy nodes by title, description or keywords.
func PolicyProfile() Profile {
	return Profile{
		Name:                "policy",
		Label:               "Policy",
		SearchAttributes:    []string{"title", "description", "keywords"},
		DisplayAttributes:   []string{"title", "description"},
		RelatedAttributes:   []string{"name", "title", "text"},
		TraversalDepth:      1,
		SourceRelationship:  "SOURCE",
		SourceNameAttribute: "name",
		SourceProperty:      "source",
		Ordering:            OrderingNone,
		TruncateAt:          300,
		Limit:               5,
	}
}

// ChunkProfile matches document chunks and prefers longer ones.
func ChunkProfile() Profile {
	return Profile{
		Name:                "chunk",
		Label:               "Chunk",
		SearchAttributes:    []string{"text"},
		DisplayAttributes:   []string{"text"},
		RelatedAttributes:   []string{"name", "title", "text"},
		TraversalDepth:      1,
		SourceRelationship:  "SOURCE",
		SourceNameAttribute: "name",
		SourceProperty:      "source",
		Ordering:            OrderingTextLengthDesc,
		TruncateAt:          300,
		Limit:               4,
	}
}

// BuiltinProfiles returns the profiles shipped with the service, keyed by name.
func BuiltinProfiles() map[string]Profile {
	p, c := PolicyProfile(), ChunkProfile()
	return map[string]Profile{p.Name: p, c.Name: c}
}

// Validate checks that the profile can be turned into a safe query.
func (p Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile name is required")
	}
	if !identifierPattern.MatchString(p.Label) {
		return fmt.Errorf("profile %s: label %q is not a valid identifier", p.Name, p.Label)
	}
	if len(p.SearchAttributes) == 0 {
		return fmt.Errorf("profile %s: at least one search attribute is required", p.Name)
	}
	if len(p.DisplayAttributes) == 0 {
		return fmt.Errorf("profile %s: at least one display attribute is required", p.Name)
	}
	for _, group := range [][]string{p.SearchAttributes, p.DisplayAttributes, p.RelatedAttributes} {
		for _, attr := range group {
			if !identifierPattern.MatchString(attr) {
				return fmt.Errorf("profile %s: attribute %q is not a valid identifier", p.Name, attr)
			}
		}
	}
	if p.TraversalDepth < 0 || p.TraversalDepth > 1 {
		return fmt.Errorf("profile %s: traversal depth must be 0 or 1, got %d", p.Name, p.TraversalDepth)
	}
	if !identifierPattern.MatchString(p.SourceRelationship) {
		return fmt.Errorf("profile %s: source relationship %q is not a valid identifier", p.Name, p.SourceRelationship)
	}
	for _, attr := range []string{p.SourceNameAttribute, p.SourceProperty} {
		if attr != "" && !identifierPattern.MatchString(attr) {
			return fmt.Errorf("profile %s: source attribute %q is not a valid identifier", p.Name, attr)
		}
	}
	switch p.Ordering {
	case OrderingNone, OrderingTextLengthDesc:
	default:
		return fmt.Errorf("profile %s: unknown ordering %q", p.Name, p.Ordering)
	}
	if p.TruncateAt <= 0 {
		return fmt.Errorf("profile %s: truncate_at must be positive", p.Name)
	}
	if p.Limit < 1 || p.Limit > MaxMatches {
		return fmt.Errorf("profile %s: limit must be between 1 and %d, got %d", p.Name, MaxMatches, p.Limit)
	}
	return nil
}
