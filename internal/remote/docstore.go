// Package remote defines the collaborator interfaces the core needs from
// the managed backend: a document store with CRUD + query + atomic array
// append, implemented for DynamoDB in the dynamo subpackage.
package remote

import "context"

// Document is the wire-neutral shape of a stored record. Managers produce
// and consume Documents via JSON, so field names match the entities' JSON
// tags.
type Document = map[string]any

// Filter selects documents by field equality. All pairs must match.
type Filter = map[string]any

// DocumentStore is the remote collection backend. Implementations wrap
// transport failures onto the common sentinel errors.
type DocumentStore interface {
	// Query returns all documents in collection matching filter.
	Query(ctx context.Context, collection string, filter Filter) ([]Document, error)

	// Create stores doc under a newly assigned id and returns that id.
	Create(ctx context.Context, collection string, doc Document) (string, error)

	// Set overwrites the full document. Last write wins; there is no
	// version token (see DESIGN.md).
	Set(ctx context.Context, collection, id string, doc Document) error

	// AppendToArray atomically appends value to the named array field, so
	// concurrent appends from two devices do not clobber each other.
	// Returns common.ErrNotFound when the document does not exist.
	AppendToArray(ctx context.Context, collection, id, field string, value any) error

	// Delete removes the document. Deleting an absent id is not an error.
	Delete(ctx context.Context, collection, id string) error

	// Get returns one document or common.ErrNotFound.
	Get(ctx context.Context, collection, id string) (Document, error)
}
