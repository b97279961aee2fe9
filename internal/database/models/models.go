package models

import (
	"time"

	"github.com/uptrace/bun"
)

// SourceDocument records a policy file that has been loaded into the graph.
type SourceDocument struct {
	bun.BaseModel `bun:"table:source_documents,alias:sd"`

	ID          int64     `bun:",pk,autoincrement"`
	FileHash    []byte    `bun:",unique,notnull"`
	Name        string    `bun:",notnull"`
	FilePath    string    `bun:",notnull"`
	Profile     string    `bun:",notnull"`
	RecordCount int       `bun:",notnull"`
	CreatedAt   time.Time `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}
