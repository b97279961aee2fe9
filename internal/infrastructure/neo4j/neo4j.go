package neo4j

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v6/neo4j"
	"github.com/policysage/policysage-api/internal/domain/model"
	"github.com/policysage/policysage-api/internal/domain/repository"
)

// Client implements repository.GraphRepository and repository.GraphWriter
// using the official Neo4j Go driver. Each call runs in its own session,
// acquired and released by neo4j.ExecuteQuery.
type Client struct {
	driver     neo4j.Driver
	profile    model.Profile
	matchQuery string
}

// NewClient creates a new Neo4j client for the given retrieval profile and
// verifies connectivity.
func NewClient(ctx context.Context, uri, user, password string, profile model.Profile) (*Client, error) {
	matchQuery, err := BuildMatchQuery(profile)
	if err != nil {
		return nil, fmt.Errorf("invalid retrieval profile: %w", err)
	}

	driver, err := neo4j.NewDriver(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Neo4j driver for %s: %w", repository.ErrGraphUnavailable, uri, err)
	}

	// Verify connectivity
	if err := driver.VerifyConnectivity(ctx); err != nil {
		if closeErr := driver.Close(ctx); closeErr != nil {
			log.Printf("[Neo4j] Warning: failed to close driver after connectivity check: %v", closeErr)
		}
		return nil, fmt.Errorf("%w: failed to verify Neo4j connectivity at %s: %w", repository.ErrGraphUnavailable, uri, err)
	}

	log.Printf("[Neo4j] Connected to %s as %s (profile %s, label %s)", uri, user, profile.Name, profile.Label)
	return &Client{driver: driver, profile: profile, matchQuery: matchQuery}, nil
}

// FetchMatches runs the profile's match query with the question bound as a
// parameter. Returns at most profile.Limit matches; no matches is an empty
// slice, a failed query wraps repository.ErrGraphUnavailable.
func (c *Client) FetchMatches(ctx context.Context, question string) ([]model.Match, error) {
	result, err := neo4j.ExecuteQuery(ctx, c.driver, c.matchQuery,
		matchParams(c.profile, question),
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(""),
		neo4j.ExecuteQueryWithReadersRouting(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: match query failed: %w", repository.ErrGraphUnavailable, err)
	}

	matches := make([]model.Match, 0, len(result.Records))
	for _, record := range result.Records {
		m, err := decodeMatch(record)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", repository.ErrGraphUnavailable, err)
		}
		if m.PrimaryText == "" {
			continue
		}
		matches = append(matches, m)
	}

	log.Printf("[Neo4j] %d %s matches for question (%d chars)", len(matches), c.profile.Label, len(question))
	return matches, nil
}

// decodeMatch maps one result row (primary, relationship, related, source)
// onto a Match.
func decodeMatch(record *neo4j.Record) (model.Match, error) {
	parts, _, err := neo4j.GetRecordValue[[]any](record, "primary")
	if err != nil {
		return model.Match{}, fmt.Errorf("neo4j result parse failed: %w", err)
	}

	var texts []string
	for _, part := range parts {
		if s, ok := part.(string); ok && strings.TrimSpace(s) != "" {
			texts = append(texts, strings.TrimSpace(s))
		}
	}

	// Null columns decode to "" without error.
	relationship, _, err := neo4j.GetRecordValue[string](record, "relationship")
	if err != nil {
		return model.Match{}, fmt.Errorf("neo4j result parse failed: %w", err)
	}
	related, _, err := neo4j.GetRecordValue[string](record, "related")
	if err != nil {
		return model.Match{}, fmt.Errorf("neo4j result parse failed: %w", err)
	}
	source, _, err := neo4j.GetRecordValue[string](record, "source")
	if err != nil {
		return model.Match{}, fmt.Errorf("neo4j result parse failed: %w", err)
	}

	return model.Match{
		PrimaryText:      strings.Join(texts, ": "),
		RelationshipType: relationship,
		RelatedText:      strings.TrimSpace(related),
		SourceDocument:   strings.TrimSpace(source),
	}, nil
}

// Close closes the underlying Neo4j driver.
func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}
