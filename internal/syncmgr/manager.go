// Package syncmgr holds the collection sync managers: each manager owns the
// in-memory authoritative copy of one remote collection for the process
// lifetime, applies mutations against the document store, and writes the
// result through to the local snapshot cache.
//
// A manager is single-writer: all mutating calls on one instance must run
// on one coordination context. Two independent manager instances (e.g. two
// devices) racing on the same backend collection resolve by last write wins.
package syncmgr

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/avolkovs/couplesync/internal/blobcache"
	"github.com/avolkovs/couplesync/internal/common"
	"github.com/avolkovs/couplesync/internal/logging"
	"github.com/avolkovs/couplesync/internal/models"
	"github.com/avolkovs/couplesync/internal/remote"
	"github.com/avolkovs/couplesync/internal/remote/blob"
	"github.com/avolkovs/couplesync/internal/snapshot"
)

// parentField is the document field grouping entities under one couple.
const parentField = "coupleId"

// commentsField is the document array field holding comments.
const commentsField = "comments"

// State tracks where a manager is in its load/mutate cycle.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateMutating
)

// BlobDeleter removes stored blobs best-effort, never aborting the batch.
type BlobDeleter interface {
	DeleteMany(ctx context.Context, keys []string) error
}

// PhotoFetcher downloads one photo, absent on any failure.
type PhotoFetcher interface {
	DownloadImage(ctx context.Context, ref models.BlobReference) ([]byte, bool)
}

// Adapter supplies the entity-specific behavior of a Manager: collection
// name, identity, ordering, and access to the photo/comment fields.
type Adapter[T any] interface {
	Collection() string
	ID(e T) string
	WithID(e T, id string) T
	// Prepare stamps the parent id and creation time on a new entity.
	Prepare(e T, parentID string, now time.Time) T
	Less(a, b T) bool
	PhotoRefs(e T) []string
	Comments(e T) []models.Comment
	WithComments(e T, comments []models.Comment) T
	// CacheKey derives the image-cache key for one of e's photos; each
	// collection uses its own namespace so keys never collide.
	CacheKey(parentID, ref string) string
}

// Manager mirrors one remote collection. Construct with New, then Load.
type Manager[T any] struct {
	adapter Adapter[T]
	docs    remote.DocumentStore
	blobs   BlobDeleter
	photos  PhotoFetcher
	cache   *blobcache.Cache
	snaps   *snapshot.Store
	log     logging.Logger
	now     func() time.Time

	parentID string
	items    []T
	state    State
	errMsg   string
}

func New[T any](
	adapter Adapter[T],
	docs remote.DocumentStore,
	blobs BlobDeleter,
	photos PhotoFetcher,
	cache *blobcache.Cache,
	snaps *snapshot.Store,
	log logging.Logger,
) *Manager[T] {
	return &Manager[T]{
		adapter: adapter,
		docs:    docs,
		blobs:   blobs,
		photos:  photos,
		cache:   cache,
		snaps:   snaps,
		log:     log.With("collection", adapter.Collection()),
		now:     time.Now,
		state:   StateIdle,
	}
}

// Items returns the current in-memory collection. The slice is a copy; the
// entities themselves are value snapshots.
func (m *Manager[T]) Items() []T {
	return append([]T(nil), m.items...)
}

func (m *Manager[T]) State() State { return m.state }

// ErrorMessage reports the failure of the last remote operation, empty when
// it succeeded. It is cleared at the start of every new attempt.
func (m *Manager[T]) ErrorMessage() string { return m.errMsg }

// Load publishes the local snapshot immediately (when one exists), then
// queries the remote store for parentID's entities, replaces the in-memory
// collection with the server truth, and writes the snapshot through. A
// remote failure keeps whatever was already published.
func (m *Manager[T]) Load(ctx context.Context, parentID string) error {
	m.errMsg = ""
	m.parentID = parentID
	key := snapshot.Key(m.adapter.Collection(), parentID)

	var cached []T
	if m.snaps.Load(ctx, key, &cached) {
		m.sortItems(cached)
		m.items = cached
		m.log.Debug(ctx, "published local snapshot", "count", len(cached))
	}
	m.state = StateLoading

	docs, err := m.docs.Query(ctx, m.adapter.Collection(), remote.Filter{parentField: parentID})
	if err != nil {
		m.errMsg = err.Error()
		m.state = StateReady
		return err
	}

	fresh := make([]T, 0, len(docs))
	for _, doc := range docs {
		e, err := fromDocument[T](doc)
		if err != nil {
			m.log.Warn(ctx, "skipping undecodable document", "error", err)
			continue
		}
		fresh = append(fresh, e)
	}
	m.sortItems(fresh)
	m.items = fresh
	m.state = StateReady
	m.snaps.Save(ctx, key, m.items)
	m.log.Info(ctx, "collection loaded", "count", len(m.items))
	return nil
}

// Add creates e remotely and inserts the server-confirmed entity (id
// assigned) into the collection. Not optimistic: on failure local state is
// untouched, because the entity is not addressable without its id.
func (m *Manager[T]) Add(ctx context.Context, e T) (T, error) {
	var zero T
	m.errMsg = ""
	if err := m.checkPhotoCap(e); err != nil {
		m.errMsg = err.Error()
		return zero, err
	}
	m.state = StateMutating
	defer func() { m.state = StateReady }()

	e = m.adapter.Prepare(e, m.parentID, m.now())

	doc, err := toDocument(e)
	if err != nil {
		m.errMsg = err.Error()
		return zero, err
	}
	id, err := m.docs.Create(ctx, m.adapter.Collection(), doc)
	if err != nil {
		m.errMsg = err.Error()
		return zero, err
	}

	e = m.adapter.WithID(e, id)
	m.items = append(m.items, e)
	m.sortItems(m.items)
	m.saveSnapshot(ctx)
	return e, nil
}

// Update writes the full document remotely (last write wins) and replaces
// the matching in-memory entity.
func (m *Manager[T]) Update(ctx context.Context, e T) error {
	m.errMsg = ""
	id := m.adapter.ID(e)
	if id == "" {
		err := fmt.Errorf("%w: update requires an id", common.ErrValidation)
		m.errMsg = err.Error()
		return err
	}
	if err := m.checkPhotoCap(e); err != nil {
		m.errMsg = err.Error()
		return err
	}
	m.state = StateMutating
	defer func() { m.state = StateReady }()

	doc, err := toDocument(e)
	if err != nil {
		m.errMsg = err.Error()
		return err
	}
	if err := m.docs.Set(ctx, m.adapter.Collection(), id, doc); err != nil {
		m.errMsg = err.Error()
		return err
	}

	replaced := false
	for i := range m.items {
		if m.adapter.ID(m.items[i]) == id {
			m.items[i] = e
			replaced = true
			break
		}
	}
	if !replaced {
		m.items = append(m.items, e)
	}
	m.sortItems(m.items)
	m.saveSnapshot(ctx)
	return nil
}

// Delete cascades: first a best-effort delete of every photo blob, then the
// document, then the in-memory entity. Blob failures never block the
// document delete; a document-delete failure leaves the collection as it
// was (rollback by omission).
func (m *Manager[T]) Delete(ctx context.Context, e T) error {
	m.errMsg = ""
	id := m.adapter.ID(e)
	if id == "" {
		err := fmt.Errorf("%w: delete requires an id", common.ErrValidation)
		m.errMsg = err.Error()
		return err
	}
	m.state = StateMutating
	defer func() { m.state = StateReady }()

	refs := m.adapter.PhotoRefs(e)
	if keys := m.storageKeys(ctx, refs); len(keys) > 0 {
		if err := m.blobs.DeleteMany(ctx, keys); err != nil {
			m.log.Warn(ctx, "some blobs not deleted, proceeding", "id", id, "error", err)
		}
	}

	if err := m.docs.Delete(ctx, m.adapter.Collection(), id); err != nil {
		m.errMsg = err.Error()
		return err
	}

	for i := range m.items {
		if m.adapter.ID(m.items[i]) == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			break
		}
	}
	for _, ref := range refs {
		m.cache.Remove(m.adapter.CacheKey(m.parentID, ref))
	}
	m.saveSnapshot(ctx)
	return nil
}

// AppendComment atomically appends c to e's comment array remotely, then to
// the in-memory copy, returning the updated entity. Fails with
// common.ErrLimitExceeded when e already holds models.MaxComments comments,
// leaving the entity unchanged.
func (m *Manager[T]) AppendComment(ctx context.Context, e T, c models.Comment) (T, error) {
	var zero T
	m.errMsg = ""
	id := m.adapter.ID(e)
	if id == "" {
		err := fmt.Errorf("%w: comment requires a persisted entity", common.ErrValidation)
		m.errMsg = err.Error()
		return zero, err
	}
	if len(m.adapter.Comments(e)) >= models.MaxComments {
		err := fmt.Errorf("%w: entity %s already has %d comments", common.ErrLimitExceeded, id, models.MaxComments)
		m.errMsg = err.Error()
		return zero, err
	}
	m.state = StateMutating
	defer func() { m.state = StateReady }()

	value, err := toDocument(c)
	if err != nil {
		m.errMsg = err.Error()
		return zero, err
	}
	if err := m.docs.AppendToArray(ctx, m.adapter.Collection(), id, commentsField, value); err != nil {
		m.errMsg = err.Error()
		return zero, err
	}

	updated := m.adapter.WithComments(e, append(m.adapter.Comments(e), c))
	for i := range m.items {
		if m.adapter.ID(m.items[i]) == id {
			m.items[i] = updated
			break
		}
	}
	m.saveSnapshot(ctx)
	return updated, nil
}

// LoadPhoto returns the image bytes for one of e's photo references,
// consulting the shared image cache first. Absent on any failure.
func (m *Manager[T]) LoadPhoto(ctx context.Context, ref string) ([]byte, bool) {
	key := m.adapter.CacheKey(m.parentID, ref)
	if data, ok := m.cache.Get(key); ok {
		return data, true
	}
	data, ok := m.photos.DownloadImage(ctx, models.ParseBlobRef(ref))
	if !ok {
		return nil, false
	}
	m.cache.Put(key, data)
	return data, true
}

// storageKeys maps stored references to object-store keys, skipping legacy
// URLs that carry no extractable key (logged, not fatal).
func (m *Manager[T]) storageKeys(ctx context.Context, refs []string) []string {
	keys := make([]string, 0, len(refs))
	for _, raw := range refs {
		ref := models.ParseBlobRef(raw)
		if ref.Kind == models.RefKey {
			keys = append(keys, ref.Value)
			continue
		}
		key, err := blob.StorageKeyFromURL(ref.Value)
		if err != nil {
			m.log.Warn(ctx, "skipping unresolvable legacy reference", "ref", raw, "error", err)
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

func (m *Manager[T]) checkPhotoCap(e T) error {
	if n := len(m.adapter.PhotoRefs(e)); n > models.MaxPhotoRefs {
		return fmt.Errorf("%w: entity has %d photos, cap is %d", common.ErrLimitExceeded, n, models.MaxPhotoRefs)
	}
	return nil
}

func (m *Manager[T]) sortItems(items []T) {
	sort.SliceStable(items, func(i, j int) bool {
		return m.adapter.Less(items[i], items[j])
	})
}

func (m *Manager[T]) saveSnapshot(ctx context.Context) {
	key := snapshot.Key(m.adapter.Collection(), m.parentID)
	m.snaps.Save(ctx, key, m.items)
}

func toDocument(v any) (remote.Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding document: %v", common.ErrValidation, err)
	}
	var doc remote.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: encoding document: %v", common.ErrValidation, err)
	}
	return doc, nil
}

func fromDocument[T any](doc remote.Document) (T, error) {
	var out T
	data, err := json.Marshal(doc)
	if err != nil {
		return out, fmt.Errorf("decoding document: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decoding document: %w", err)
	}
	return out, nil
}
