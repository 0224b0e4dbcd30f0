package docstore

import (
	"context"
	"sort"
	"sync"

	pkgerrors "github.com/craftora/backoffice/pkg/errors"
)

// MemoryGateway is an in-process Gateway used by tests and local development.
type MemoryGateway struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{collections: make(map[string]map[string]map[string]any)}
}

func (g *MemoryGateway) CreateDocument(_ context.Context, collection, id string, fields map[string]any) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	docs, ok := g.collections[collection]
	if !ok {
		docs = make(map[string]map[string]any)
		g.collections[collection] = docs
	}
	if _, exists := docs[id]; exists {
		return pkgerrors.New(pkgerrors.CodeConflict, "document already exists")
	}
	docs[id] = cloneFields(fields)
	return nil
}

func (g *MemoryGateway) UpdateDocument(_ context.Context, collection, id string, fields map[string]any) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	docs, ok := g.collections[collection]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "document not found")
	}
	if _, ok := docs[id]; !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "document not found")
	}
	docs[id] = cloneFields(fields)
	return nil
}

func (g *MemoryGateway) GetDocument(_ context.Context, collection, id string) (*Document, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	fields, ok := g.collections[collection][id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "document not found")
	}
	return &Document{ID: id, Fields: cloneFields(fields)}, nil
}

func (g *MemoryGateway) QueryByField(_ context.Context, collection, field string, value any) ([]Document, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []Document
	for id, fields := range g.collections[collection] {
		if fields[field] == value {
			out = append(out, Document{ID: id, Fields: cloneFields(fields)})
		}
	}
	sortDocuments(out)
	return out, nil
}

func (g *MemoryGateway) ListDocuments(_ context.Context, collection string, limit int) ([]Document, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []Document
	for id, fields := range g.collections[collection] {
		out = append(out, Document{ID: id, Fields: cloneFields(fields)})
	}
	sortDocuments(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (g *MemoryGateway) DeleteDocument(_ context.Context, collection, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	docs := g.collections[collection]
	if _, ok := docs[id]; !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "document not found")
	}
	delete(docs, id)
	return nil
}

// Ping always succeeds for the in-memory store.
func (g *MemoryGateway) Ping(context.Context) error {
	return nil
}

func cloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func sortDocuments(docs []Document) {
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
}
