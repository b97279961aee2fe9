package neo4j

import (
	"context"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v6/neo4j"
	"github.com/policysage/policysage-api/internal/domain/model"
	"github.com/policysage/policysage-api/internal/domain/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var adversarialQuestions = []string{
	"credit score",
	"' OR 1=1 //",
	"') RETURN n //",
	"credit'}) MATCH (x) DETACH DELETE x //",
	"$question",
	"`Policy`",
	"MATCH (n) RETURN n",
	"\"; DROP DATABASE neo4j;",
	"",
}

func TestBuildMatchQuery_QuestionNeverInQueryText(t *testing.T) {
	for _, p := range model.BuiltinProfiles() {
		query, err := BuildMatchQuery(p)
		require.NoError(t, err)

		for _, q := range adversarialQuestions {
			params := matchParams(p, q)
			assert.Equal(t, q, params["question"], "question must be bound verbatim")
		}
		// The text is fixed per profile, so no question can change it.
		assert.Contains(t, query, "$question")
		assert.NotContains(t, query, "credit")
	}
}

func TestBuildMatchQuery_PolicyProfile(t *testing.T) {
	query, err := BuildMatchQuery(model.PolicyProfile())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(query, "MATCH (n:`Policy`)"))
	assert.Contains(t, query, "CONTAINS toLower($question)")
	assert.Contains(t, query, "OPTIONAL MATCH (n)-[r]->(m)")
	assert.Contains(t, query, "WITH DISTINCT")
	assert.NotContains(t, query, "ORDER BY")
	assert.True(t, strings.HasSuffix(query, "LIMIT $limit"))
}

func TestBuildMatchQuery_SearchesListAttributes(t *testing.T) {
	query, err := BuildMatchQuery(model.PolicyProfile())
	require.NoError(t, err)

	assert.Contains(t, query, "any(k IN CASE WHEN n[attr] IS :: LIST<ANY> NOT NULL THEN n[attr] ELSE [] END")
	assert.Contains(t, query, "[attr IN $displayAttrs | CASE WHEN n[attr] IS :: LIST<ANY> NOT NULL")
}

func TestBuildMatchQuery_ChunkProfileOrdersByLength(t *testing.T) {
	query, err := BuildMatchQuery(model.ChunkProfile())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(query, "MATCH (n:`Chunk`)"))
	assert.Contains(t, query, "ORDER BY reduce(total = 0, part IN primary | total + size(part)) DESC")
}

func TestBuildMatchQuery_NoTraversal(t *testing.T) {
	p := model.PolicyProfile()
	p.TraversalDepth = 0

	query, err := BuildMatchQuery(p)
	require.NoError(t, err)

	assert.NotContains(t, query, "(n)-[r]->(m)")
	assert.Contains(t, query, "null AS relationship")
	assert.Contains(t, query, "OPTIONAL MATCH (n)-[s]->(d)")
}

func TestBuildMatchQuery_RejectsInvalidProfile(t *testing.T) {
	p := model.PolicyProfile()
	p.Label = "Policy) MATCH (x) DETACH DELETE x //"

	_, err := BuildMatchQuery(p)
	assert.Error(t, err)
}

func TestMatchParams(t *testing.T) {
	p := model.ChunkProfile()
	params := matchParams(p, "loan")

	assert.Equal(t, "loan", params["question"])
	assert.Equal(t, []any{"text"}, params["searchAttrs"])
	assert.Equal(t, []any{"text"}, params["displayAttrs"])
	assert.Equal(t, "SOURCE", params["sourceRel"])
	assert.Equal(t, int64(4), params["limit"])
}

func TestDecodeMatch(t *testing.T) {
	record := &neo4j.Record{
		Keys: []string{"primary", "relationship", "related", "source"},
		Values: []any{
			[]any{"Loan Policy", " Loan policy requires minimum credit score of 650 "},
			"GOVERNS",
			"Personal Loans",
			"loans.pdf",
		},
	}

	m, err := decodeMatch(record)
	require.NoError(t, err)
	assert.Equal(t, "Loan Policy: Loan policy requires minimum credit score of 650", m.PrimaryText)
	assert.Equal(t, "GOVERNS", m.RelationshipType)
	assert.Equal(t, "Personal Loans", m.RelatedText)
	assert.Equal(t, "loans.pdf", m.SourceDocument)
}

func TestDecodeMatch_NullColumns(t *testing.T) {
	record := &neo4j.Record{
		Keys:   []string{"primary", "relationship", "related", "source"},
		Values: []any{[]any{"", "Only a description"}, nil, nil, nil},
	}

	m, err := decodeMatch(record)
	require.NoError(t, err)
	assert.Equal(t, "Only a description", m.PrimaryText)
	assert.Empty(t, m.RelationshipType)
	assert.Empty(t, m.RelatedText)
	assert.Equal(t, model.UnknownSource, m.Source())
}

func TestDecodeMatch_RejectsMistypedColumns(t *testing.T) {
	keys := []string{"primary", "relationship", "related", "source"}
	tests := []struct {
		name   string
		values []any
	}{
		{"relationship", []any{[]any{"Loan"}, int64(7), nil, nil}},
		{"related", []any{[]any{"Loan"}, nil, []any{"a"}, nil}},
		{"source", []any{[]any{"Loan"}, nil, nil, true}},
		{"missing column", []any{[]any{"Loan"}, nil, nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := keys[:len(tt.values)]
			_, err := decodeMatch(&neo4j.Record{Keys: k, Values: tt.values})
			assert.Error(t, err)
		})
	}
}

func TestUpsertQuery_UsesProfileIdentifiers(t *testing.T) {
	query, err := upsertQuery(model.PolicyProfile())
	require.NoError(t, err)

	assert.Contains(t, query, "MERGE (d:`Document` {`name`: $document})")
	assert.Contains(t, query, "MERGE (n:`Policy` {id: rec.id, document: $document})")
	assert.Contains(t, query, "MERGE (n)-[:`SOURCE`]->(d)")
	related := relatedQuery(model.PolicyProfile(), "GOVERNS")
	assert.Contains(t, related, "MATCH (n:`Policy` {id: link.id, document: $document})")
	assert.Contains(t, related, "MERGE (n)-[:`GOVERNS`]->(m)")
}

func TestUpsertRecords_RejectsReservedProperties(t *testing.T) {
	// Validation runs before any query is sent, so no driver is needed.
	c := &Client{profile: model.PolicyProfile()}

	for _, key := range []string{"id", "document"} {
		err := c.UpsertRecords(context.Background(), "loans.pdf", []repository.Record{
			{ID: "loan-1", Properties: map[string]any{key: "other"}},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reserved")
	}
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, "`Policy`", quoteIdentifier("Policy"))
	assert.Equal(t, "`a``b`", quoteIdentifier("a`b"))
}
