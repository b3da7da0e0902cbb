// Package documents defines the contract between the entity stores and the
// persistent document layer. The stores never see driver types; they work
// against this interface so a document-store outage degrades to "cache
// unavailable" instead of failing the request.
package documents

import (
	"context"
	"errors"
)

// ErrNoDocument is returned by lookups when no document matches.
var ErrNoDocument = errors.New("document not found")

// Collection is one logical document collection keyed by entity ID.
type Collection interface {
	// FindOne loads the document with the given ID into out.
	// Returns ErrNoDocument when the document does not exist.
	FindOne(ctx context.Context, id string, out any) error

	// FindOneByField loads the first document whose named top-level field
	// equals value. Returns ErrNoDocument when nothing matches.
	FindOneByField(ctx context.Context, field, value string, out any) error

	// UpsertFields merges the given dotted-path fields into the document,
	// creating it if absent. Sibling fields are untouched. setOnInsert
	// fields are only written when the upsert creates the document.
	UpsertFields(ctx context.Context, id string, set map[string]any, setOnInsert map[string]any) error

	// Delete removes the document. Deleting a missing document is not an error.
	Delete(ctx context.Context, id string) error
}

// Provider hands out collections, establishing the underlying connection
// lazily. A Provider error means the persistent layer is unavailable.
type Provider interface {
	Collection(ctx context.Context, name string) (Collection, error)
}

// Collection names, one per entity kind.
const (
	ArticlesCollection = "articles"
	SessionsCollection = "sessions"
	UsersCollection    = "users"
)
