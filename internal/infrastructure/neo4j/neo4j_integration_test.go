//go:build integration

package neo4j

import (
	"context"
	"errors"
	"log"
	"os"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v6/neo4j"
	"github.com/policysage/policysage-api/internal/domain/model"
	"github.com/policysage/policysage-api/internal/domain/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcneo4j "github.com/testcontainers/testcontainers-go/modules/neo4j"
)

const testPassword = "policysage_test"

var boltURL string

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := tcneo4j.Run(ctx, "neo4j:5", tcneo4j.WithAdminPassword(testPassword))
	if err != nil {
		log.Fatalf("error starting neo4j container: %v", err)
	}

	boltURL, err = container.BoltUrl(ctx)
	if err != nil {
		log.Fatalf("error reading neo4j bolt url: %v", err)
	}

	code := m.Run()

	if err := testcontainers.TerminateContainer(container); err != nil {
		log.Printf("error tearing down neo4j container: %v", err)
	}
	os.Exit(code)
}

func newTestClient(t *testing.T, profile model.Profile) *Client {
	t.Helper()
	ctx := context.Background()

	client, err := NewClient(ctx, boltURL, "neo4j", testPassword, profile)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close(context.Background()) })
	return client
}

func resetGraph(t *testing.T, c *Client) {
	t.Helper()
	_, err := neo4j.ExecuteQuery(context.Background(), c.driver, "MATCH (n) DETACH DELETE n", nil,
		neo4j.EagerResultTransformer)
	require.NoError(t, err)
}

func seedPolicies(t *testing.T, c *Client) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, c.UpsertRecords(ctx, "loans.pdf", []repository.Record{
		{
			ID: "loan-1",
			Properties: map[string]any{
				"title":       "Loan Eligibility",
				"description": "Loan policy requires minimum credit score of 650",
				"keywords":    "loan, credit, score",
			},
			Related: &repository.RelatedRecord{Type: "GOVERNS", Name: "Personal Loans"},
		},
		{
			ID: "loan-2",
			Properties: map[string]any{
				"title":       "Loan Tenure",
				"description": "Personal loans may be repaid over at most 60 months",
				"keywords":    "loan, tenure",
			},
		},
	}))
	require.NoError(t, c.UpsertRecords(ctx, "accounts.pdf", []repository.Record{
		{
			ID: "acct-1",
			Properties: map[string]any{
				"title":       "Dormant Accounts",
				"description": "Accounts without activity for 24 months become dormant",
				"keywords":    "account, dormant",
			},
		},
	}))
}

func TestFetchMatches_EndToEndCreditScore(t *testing.T) {
	c := newTestClient(t, model.PolicyProfile())
	resetGraph(t, c)
	seedPolicies(t, c)

	matches, err := c.FetchMatches(context.Background(), "credit score")
	require.NoError(t, err)
	require.Len(t, matches, 1)

	assert.Equal(t, "Loan Eligibility: Loan policy requires minimum credit score of 650", matches[0].PrimaryText)
	assert.Equal(t, "GOVERNS", matches[0].RelationshipType)
	assert.Equal(t, "Personal Loans", matches[0].RelatedText)
	assert.Equal(t, "loans.pdf", matches[0].SourceDocument)
}

func TestFetchMatches_CaseInsensitive(t *testing.T) {
	c := newTestClient(t, model.PolicyProfile())
	resetGraph(t, c)
	seedPolicies(t, c)

	matches, err := c.FetchMatches(context.Background(), "DORMANT")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "accounts.pdf", matches[0].SourceDocument)
}

func TestFetchMatches_ListValuedKeywords(t *testing.T) {
	c := newTestClient(t, model.PolicyProfile())
	resetGraph(t, c)
	ctx := context.Background()

	require.NoError(t, c.UpsertRecords(ctx, "mortgages.pdf", []repository.Record{
		{
			ID: "mtg-1",
			Properties: map[string]any{
				"title":       "Home Finance",
				"description": "Fixed terms up to 30 years",
				"keywords":    []any{"mortgage", "rate"},
			},
		},
	}))

	matches, err := c.FetchMatches(ctx, "MORTGAGE")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Home Finance: Fixed terms up to 30 years", matches[0].PrimaryText)
	assert.Equal(t, "mortgages.pdf", matches[0].SourceDocument)
}

func TestFetchMatches_EmptyDataset(t *testing.T) {
	c := newTestClient(t, model.PolicyProfile())
	resetGraph(t, c)

	matches, err := c.FetchMatches(context.Background(), "credit score")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestFetchMatches_AdversarialQuestionsAreStable(t *testing.T) {
	c := newTestClient(t, model.PolicyProfile())
	resetGraph(t, c)
	seedPolicies(t, c)
	ctx := context.Background()

	for _, q := range adversarialQuestions {
		if q == "" || q == "credit score" {
			continue
		}
		matches, err := c.FetchMatches(ctx, q)
		require.NoError(t, err, "question %q", q)
		assert.Empty(t, matches, "question %q must not match unrelated records", q)
	}

	// The dataset is untouched afterwards.
	matches, err := c.FetchMatches(ctx, "loan")
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestFetchMatches_IdempotentWithOrdering(t *testing.T) {
	p := model.PolicyProfile()
	p.Ordering = model.OrderingTextLengthDesc
	c := newTestClient(t, p)
	resetGraph(t, c)
	seedPolicies(t, c)
	ctx := context.Background()

	first, err := c.FetchMatches(ctx, "loan")
	require.NoError(t, err)
	second, err := c.FetchMatches(ctx, "loan")
	require.NoError(t, err)

	require.Len(t, first, 2)
	assert.Equal(t, first, second)
	assert.GreaterOrEqual(t, len(first[0].PrimaryText), len(first[1].PrimaryText))
}

func TestFetchMatches_RespectsLimit(t *testing.T) {
	p := model.PolicyProfile()
	p.Limit = 1
	c := newTestClient(t, p)
	resetGraph(t, c)
	seedPolicies(t, c)

	matches, err := c.FetchMatches(context.Background(), "loan")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestDeleteDocument(t *testing.T) {
	c := newTestClient(t, model.PolicyProfile())
	resetGraph(t, c)
	seedPolicies(t, c)
	ctx := context.Background()

	require.NoError(t, c.DeleteDocument(ctx, "loans.pdf"))

	matches, err := c.FetchMatches(ctx, "loan")
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = c.FetchMatches(ctx, "dormant")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestUpsertRecords_SameIDInTwoDocuments(t *testing.T) {
	c := newTestClient(t, model.PolicyProfile())
	resetGraph(t, c)
	ctx := context.Background()

	require.NoError(t, c.UpsertRecords(ctx, "a.pdf", []repository.Record{
		{ID: "x", Properties: map[string]any{"title": "Overdraft", "description": "Overdraft fee is 25 in branch A"}},
	}))
	require.NoError(t, c.UpsertRecords(ctx, "b.pdf", []repository.Record{
		{ID: "x", Properties: map[string]any{"title": "Overdraft", "description": "Overdraft fee is 30 in branch B"}},
	}))

	matches, err := c.FetchMatches(ctx, "overdraft")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	sources := []string{matches[0].SourceDocument, matches[1].SourceDocument}
	assert.ElementsMatch(t, []string{"a.pdf", "b.pdf"}, sources)

	// Reloading a.pdf leaves b.pdf's record untouched.
	require.NoError(t, c.DeleteDocument(ctx, "a.pdf"))
	require.NoError(t, c.UpsertRecords(ctx, "a.pdf", []repository.Record{
		{ID: "x", Properties: map[string]any{"title": "Overdraft", "description": "Overdraft fee is 20 in branch A"}},
	}))

	matches, err = c.FetchMatches(ctx, "overdraft")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	texts := []string{matches[0].PrimaryText, matches[1].PrimaryText}
	assert.ElementsMatch(t, []string{
		"Overdraft: Overdraft fee is 20 in branch A",
		"Overdraft: Overdraft fee is 30 in branch B",
	}, texts)

	require.NoError(t, c.DeleteDocument(ctx, "a.pdf"))
	matches, err = c.FetchMatches(ctx, "overdraft")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "b.pdf", matches[0].SourceDocument)
}

func TestNewClient_Unreachable(t *testing.T) {
	_, err := NewClient(context.Background(), "neo4j://127.0.0.1:1", "neo4j", "x", model.PolicyProfile())
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrGraphUnavailable))
}
