package database

import (
	"context"
	"errors"

	"github.com/policysage/policysage-api/internal/database/models"
)

var ErrNotFound = errors.New("record not found")

// DocumentRegistry tracks which source files have been loaded into the graph.
type DocumentRegistry interface {
	GetDocumentByHash(ctx context.Context, hash []byte) (*models.SourceDocument, error)
	GetDocumentByName(ctx context.Context, name string) (*models.SourceDocument, error)
	SaveDocument(ctx context.Context, doc *models.SourceDocument) error
	DeleteDocument(ctx context.Context, id int64) error
	ListDocuments(ctx context.Context) ([]*models.SourceDocument, error)
}
