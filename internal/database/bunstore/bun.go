package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/policysage/policysage-api/internal/database"
	"github.com/policysage/policysage-api/internal/database/models"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/schema"
)

type BunStore struct {
	db *bun.DB
}

// OpenSQLite opens the registry database at dsn using the sqlite shim driver.
func OpenSQLite(ctx context.Context, dsn string) (*BunStore, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry %s: %w", dsn, err)
	}
	store, err := NewBunStore(ctx, sqldb, sqlitedialect.New())
	if err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	return store, nil
}

func NewBunStore(ctx context.Context, db *sql.DB, dialect schema.Dialect) (*BunStore, error) {
	bunDB := bun.NewDB(db, dialect)

	// Create tables if they don't exist
	if _, err := bunDB.NewCreateTable().Model((*models.SourceDocument)(nil)).IfNotExists().Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create source_documents table: %w", err)
	}

	return &BunStore{db: bunDB}, nil
}

func (s *BunStore) GetDocumentByHash(ctx context.Context, hash []byte) (*models.SourceDocument, error) {
	doc := new(models.SourceDocument)
	if err := s.db.NewSelect().Model(doc).Where("file_hash = ?", hash).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (s *BunStore) GetDocumentByName(ctx context.Context, name string) (*models.SourceDocument, error) {
	doc := new(models.SourceDocument)
	if err := s.db.NewSelect().Model(doc).Where("name = ?", name).Order("updated_at DESC").Limit(1).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

// SaveDocument inserts doc, or updates it when it already has an ID.
func (s *BunStore) SaveDocument(ctx context.Context, doc *models.SourceDocument) error {
	if doc.ID == 0 {
		_, err := s.db.NewInsert().Model(doc).Exec(ctx)
		return err
	}
	doc.UpdatedAt = time.Now()
	_, err := s.db.NewUpdate().Model(doc).
		Column("file_hash", "name", "file_path", "profile", "record_count", "updated_at").
		WherePK().
		Exec(ctx)
	return err
}

func (s *BunStore) DeleteDocument(ctx context.Context, id int64) error {
	if _, err := s.db.NewDelete().Model((*models.SourceDocument)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
		return err
	}
	return nil
}

func (s *BunStore) ListDocuments(ctx context.Context) ([]*models.SourceDocument, error) {
	var docs []*models.SourceDocument
	if err := s.db.NewSelect().Model(&docs).Order("name ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *BunStore) Close() error {
	return s.db.Close()
}
