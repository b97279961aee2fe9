package repository

import (
	"context"
	"errors"

	"github.com/policysage/policysage-api/internal/domain/model"
)

// ErrGraphUnavailable wraps every failure to reach or query the graph store.
// An empty result is not an error.
var ErrGraphUnavailable = errors.New("graph store unavailable")

// GraphRepository retrieves matches for a question from the graph store.
type GraphRepository interface {
	FetchMatches(ctx context.Context, question string) ([]model.Match, error)
	Close(ctx context.Context) error
}

// Record is one entity written to the graph during ingestion.
type Record struct {
	ID         string
	Properties map[string]any
	Related    *RelatedRecord
}

// RelatedRecord is a node reached from a Record by one outgoing relationship.
type RelatedRecord struct {
	Type string
	Name string
}

// GraphWriter loads source documents and their records into the graph store.
type GraphWriter interface {
	UpsertRecords(ctx context.Context, document string, records []Record) error
	DeleteDocument(ctx context.Context, document string) error
}
