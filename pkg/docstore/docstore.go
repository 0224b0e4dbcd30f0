package docstore

import (
	"context"

	"github.com/google/uuid"
)

// Document is one record read back from a collection.
type Document struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// Gateway is the document-store surface the back office depends on: one
// create, one update, one equality query, plus id generation. Everything else
// (indexing, consistency, multi-session conflicts) belongs to the hosted
// store; last write wins.
type Gateway interface {
	CreateDocument(ctx context.Context, collection, id string, fields map[string]any) error
	UpdateDocument(ctx context.Context, collection, id string, fields map[string]any) error
	GetDocument(ctx context.Context, collection, id string) (*Document, error)
	QueryByField(ctx context.Context, collection, field string, value any) ([]Document, error)
	ListDocuments(ctx context.Context, collection string, limit int) ([]Document, error)
	DeleteDocument(ctx context.Context, collection, id string) error
}

// NewDocumentID returns a collision-resistant id, generated client-side so the
// payload can reference it before the write happens.
func NewDocumentID() string {
	return uuid.NewString()
}
