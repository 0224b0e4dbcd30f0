package catalog

import (
	"context"
	"fmt"

	"github.com/craftora/backoffice/pkg/auth"
	"github.com/craftora/backoffice/pkg/docstore"
	"github.com/craftora/backoffice/pkg/logger"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Service reads and deletes stored entity documents. Writes go through the
// submission pipeline only.
type Service struct {
	registry *Registry
	gateway  docstore.Gateway
	logg     *logger.Logger
}

// NewService builds the catalog read service.
func NewService(registry *Registry, gateway docstore.Gateway, logg *logger.Logger) (*Service, error) {
	if registry == nil {
		return nil, fmt.Errorf("schema registry required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("document gateway required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{registry: registry, gateway: gateway, logg: logg}, nil
}

// Entities lists the entity types visible to the caller.
func (s *Service) Entities(capability auth.Capability) []string {
	return s.registry.Entities(capability)
}

// List returns up to limit documents of an entity's collection.
func (s *Service) List(ctx context.Context, capability auth.Capability, entity string, limit int) ([]docstore.Document, error) {
	schema, err := s.registry.SchemaFor(entity, capability)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.gateway.ListDocuments(ctx, schema.Collection, limit)
}

// Get returns one stored document.
func (s *Service) Get(ctx context.Context, capability auth.Capability, entity, documentID string) (*docstore.Document, error) {
	schema, err := s.registry.SchemaFor(entity, capability)
	if err != nil {
		return nil, err
	}
	return s.gateway.GetDocument(ctx, schema.Collection, documentID)
}

// Delete removes one stored document. The remote image objects it referenced
// are left behind on the host, same as replaced images during edits.
func (s *Service) Delete(ctx context.Context, capability auth.Capability, entity, documentID string) error {
	schema, err := s.registry.SchemaFor(entity, capability)
	if err != nil {
		return err
	}
	if err := s.gateway.DeleteDocument(ctx, schema.Collection, documentID); err != nil {
		return err
	}
	removed := s.logg.WithEntity(ctx, entity)
	removed = s.logg.WithDocumentID(removed, documentID)
	s.logg.Info(removed, "document deleted")
	return nil
}
