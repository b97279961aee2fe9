package query

import (
	"fmt"
	"strings"

	"github.com/policysage/policysage-api/internal/domain/model"
)

const (
	ellipsis        = "..."
	notApplicable   = "N/A"
	detailSeparator = "---"
)

// Formatter shapes retrieved matches into the prompt context and the
// human-readable detail blocks. It has no side effects.
type Formatter struct {
	entity     string
	truncateAt int
}

// NewFormatter creates a formatter for the profile's entity and truncation cap.
func NewFormatter(p model.Profile) *Formatter {
	return &Formatter{entity: p.Label, truncateAt: p.TruncateAt}
}

// Format returns the context block (one truncated primary text per line, in
// received order) and one detail block per match.
func (f *Formatter) Format(matches []model.Match) (string, []string) {
	lines := make([]string, 0, len(matches))
	details := make([]string, 0, len(matches))
	for _, m := range matches {
		lines = append(lines, Truncate(m.PrimaryText, f.truncateAt))
		details = append(details, f.Detail(m))
	}
	return strings.Join(lines, "\n"), details
}

// Detail renders one match as a markdown block.
func (f *Formatter) Detail(m model.Match) string {
	relationship := notApplicable
	if m.HasRelationship() {
		relationship = fmt.Sprintf("%s → %s", orNA(m.RelationshipType), orNA(m.RelatedText))
	}

	return fmt.Sprintf("🔹 **%s:** %s\n\n🔗 **Relationship:** %s\n\n📄 **Source:** %s\n\n%s",
		f.entity, Truncate(m.PrimaryText, f.truncateAt), relationship, m.Source(), detailSeparator)
}

// Truncate cuts s to at most n runes followed by an ellipsis. Strings of n
// runes or fewer are returned unchanged.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + ellipsis
}

func orNA(s string) string {
	if s == "" {
		return notApplicable
	}
	return s
}
