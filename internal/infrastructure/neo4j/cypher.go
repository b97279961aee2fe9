package neo4j

import (
	"fmt"
	"strings"

	"github.com/policysage/policysage-api/internal/domain/model"
)

// BuildMatchQuery renders the retrieval query for a profile. Only the
// validated label is written into the query text; the question, the
// attribute names, relationship types and the limit are bound by matchParams.
func BuildMatchQuery(p model.Profile) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "MATCH (n:%s)\n", quoteIdentifier(p.Label))
	// List-valued attributes (e.g. keywords stored as a list) match when any
	// element contains the question.
	b.WriteString("WHERE any(attr IN $searchAttrs WHERE\n")
	b.WriteString("  toLower(toStringOrNull(n[attr])) CONTAINS toLower($question)\n")
	b.WriteString("  OR any(k IN " + listOrEmpty("n[attr]") + " WHERE toLower(toStringOrNull(k)) CONTAINS toLower($question)))\n")
	b.WriteString("OPTIONAL MATCH (n)-[s]->(d)\n")
	b.WriteString("WHERE type(s) = $sourceRel\n")
	if p.TraversalDepth > 0 {
		b.WriteString("OPTIONAL MATCH (n)-[r]->(m)\n")
		b.WriteString("WHERE type(r) <> $sourceRel\n")
	}
	b.WriteString("WITH DISTINCT\n")
	b.WriteString("  [attr IN $displayAttrs | " + displayText("n[attr]") + "] AS primary,\n")
	if p.TraversalDepth > 0 {
		b.WriteString("  type(r) AS relationship,\n")
		b.WriteString("  head([attr IN $relatedAttrs WHERE m[attr] IS NOT NULL | toStringOrNull(m[attr])]) AS related,\n")
	} else {
		b.WriteString("  null AS relationship,\n")
		b.WriteString("  null AS related,\n")
	}
	b.WriteString("  coalesce(toStringOrNull(d[$sourceNameAttr]), toStringOrNull(n[$sourceProp])) AS source\n")
	b.WriteString("RETURN primary, relationship, related, source\n")
	if p.Ordering == model.OrderingTextLengthDesc {
		b.WriteString("ORDER BY reduce(total = 0, part IN primary | total + size(part)) DESC, primary[0] ASC\n")
	}
	b.WriteString("LIMIT $limit")

	return b.String(), nil
}

// matchParams binds the user question and the profile settings.
func matchParams(p model.Profile, question string) map[string]any {
	return map[string]any{
		"question":       question,
		"searchAttrs":    stringList(p.SearchAttributes),
		"displayAttrs":   stringList(p.DisplayAttributes),
		"relatedAttrs":   stringList(p.RelatedAttributes),
		"sourceRel":      p.SourceRelationship,
		"sourceNameAttr": p.SourceNameAttribute,
		"sourceProp":     p.SourceProperty,
		"limit":          int64(p.Limit),
	}
}

// listOrEmpty yields expr when it holds a list and [] otherwise. Type
// predicates need Neo4j 5.9 or later.
func listOrEmpty(expr string) string {
	return "CASE WHEN " + expr + " IS :: LIST<ANY> NOT NULL THEN " + expr + " ELSE [] END"
}

// displayText renders a scalar as a string and a list as its elements
// joined by ", ". Missing values become the empty string.
func displayText(expr string) string {
	return "CASE WHEN " + expr + " IS :: LIST<ANY> NOT NULL" +
		" THEN reduce(acc = '', k IN " + expr + " | acc + CASE WHEN acc = '' THEN '' ELSE ', ' END + coalesce(toStringOrNull(k), ''))" +
		" ELSE coalesce(toStringOrNull(" + expr + "), '') END"
}

func quoteIdentifier(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

func stringList(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
