package model

// UnknownSource is reported when a match has no source document.
const UnknownSource = "Unknown"

// Match is one record retrieved from the graph for a question.
// Empty RelationshipType / RelatedText mean the match had no related node.
type Match struct {
	PrimaryText      string
	RelationshipType string
	RelatedText      string
	SourceDocument   string
}

// Source returns the source document name, or UnknownSource when absent.
func (m Match) Source() string {
	if m.SourceDocument == "" {
		return UnknownSource
	}
	return m.SourceDocument
}

// HasRelationship reports whether the match carries a related node.
func (m Match) HasRelationship() bool {
	return m.RelationshipType != "" || m.RelatedText != ""
}
