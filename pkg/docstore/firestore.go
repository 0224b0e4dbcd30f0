package docstore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/craftora/backoffice/pkg/config"
	pkgerrors "github.com/craftora/backoffice/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreGateway implements Gateway on Cloud Firestore.
type FirestoreGateway struct {
	client *firestore.Client
}

// NewFirestoreGateway connects to Firestore. With an empty credentials file
// the client falls back to Application Default Credentials.
func NewFirestoreGateway(ctx context.Context, cfg config.FirestoreConfig) (*FirestoreGateway, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("firestore project id required")
	}
	var (
		client *firestore.Client
		err    error
	)
	if cfg.CredentialsFile != "" {
		client, err = firestore.NewClient(ctx, cfg.ProjectID, option.WithCredentialsFile(cfg.CredentialsFile))
	} else {
		client, err = firestore.NewClient(ctx, cfg.ProjectID)
	}
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return &FirestoreGateway{client: client}, nil
}

func (g *FirestoreGateway) CreateDocument(ctx context.Context, collection, id string, fields map[string]any) error {
	_, err := g.client.Collection(collection).Doc(id).Create(ctx, fields)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "document already exists")
		}
		return pkgerrors.Wrap(pkgerrors.CodePersistenceFailed, err, "create document")
	}
	return nil
}

// UpdateDocument replaces an existing document wholesale. Set alone would
// upsert, so existence is checked first to keep update and create distinct.
func (g *FirestoreGateway) UpdateDocument(ctx context.Context, collection, id string, fields map[string]any) error {
	ref := g.client.Collection(collection).Doc(id)
	if _, err := ref.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "document not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodePersistenceFailed, err, "update document")
	}
	if _, err := ref.Set(ctx, fields); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistenceFailed, err, "update document")
	}
	return nil
}

func (g *FirestoreGateway) GetDocument(ctx context.Context, collection, id string) (*Document, error) {
	snap, err := g.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "document not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get document")
	}
	return &Document{ID: snap.Ref.ID, Fields: snap.Data()}, nil
}

func (g *FirestoreGateway) QueryByField(ctx context.Context, collection, field string, value any) ([]Document, error) {
	iter := g.client.Collection(collection).Where(field, "==", value).Documents(ctx)
	defer iter.Stop()

	var out []Document
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query by field")
		}
		out = append(out, Document{ID: snap.Ref.ID, Fields: snap.Data()})
	}
	return out, nil
}

func (g *FirestoreGateway) ListDocuments(ctx context.Context, collection string, limit int) ([]Document, error) {
	query := g.client.Collection(collection).Query
	if limit > 0 {
		query = query.Limit(limit)
	}
	iter := query.Documents(ctx)
	defer iter.Stop()

	var out []Document
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list documents")
		}
		out = append(out, Document{ID: snap.Ref.ID, Fields: snap.Data()})
	}
	return out, nil
}

func (g *FirestoreGateway) DeleteDocument(ctx context.Context, collection, id string) error {
	if _, err := g.client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistenceFailed, err, "delete document")
	}
	return nil
}

// Ping issues a minimal read to verify connectivity. Firestore has no ping
// API, so listing collections stands in for one.
func (g *FirestoreGateway) Ping(ctx context.Context) error {
	if g == nil || g.client == nil {
		return fmt.Errorf("firestore client not initialized")
	}
	if _, err := g.client.Collections(ctx).GetAll(); err != nil {
		return fmt.Errorf("firestore ping: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (g *FirestoreGateway) Close() error {
	if g == nil || g.client == nil {
		return nil
	}
	return g.client.Close()
}
