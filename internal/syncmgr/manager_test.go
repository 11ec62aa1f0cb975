package syncmgr

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avolkovs/couplesync/internal/blobcache"
	"github.com/avolkovs/couplesync/internal/common"
	"github.com/avolkovs/couplesync/internal/logging"
	"github.com/avolkovs/couplesync/internal/models"
	"github.com/avolkovs/couplesync/internal/remote"
	"github.com/avolkovs/couplesync/internal/snapshot"
)

// fakeDocStore is an in-memory remote.DocumentStore with switchable
// failures, shared across collections like the real backend.
type fakeDocStore struct {
	docs   map[string]map[string]remote.Document
	nextID int

	queryErr  error
	createErr error
	setErr    error
	deleteErr error
	appendErr error

	deleteCalls []string
	appendCalls []string
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{docs: map[string]map[string]remote.Document{}}
}

func (f *fakeDocStore) coll(name string) map[string]remote.Document {
	if f.docs[name] == nil {
		f.docs[name] = map[string]remote.Document{}
	}
	return f.docs[name]
}

func (f *fakeDocStore) Query(ctx context.Context, collection string, filter remote.Filter) ([]remote.Document, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var out []remote.Document
	for _, doc := range f.coll(collection) {
		match := true
		for k, v := range filter {
			if doc[k] != v {
				match = false
				break
			}
		}
		if match {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (f *fakeDocStore) Create(ctx context.Context, collection string, doc remote.Document) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextID++
	id := fmt.Sprintf("srv-%d", f.nextID)
	clone := remote.Document{}
	for k, v := range doc {
		clone[k] = v
	}
	clone["id"] = id
	f.coll(collection)[id] = clone
	return id, nil
}

func (f *fakeDocStore) Set(ctx context.Context, collection, id string, doc remote.Document) error {
	if f.setErr != nil {
		return f.setErr
	}
	clone := remote.Document{}
	for k, v := range doc {
		clone[k] = v
	}
	clone["id"] = id
	f.coll(collection)[id] = clone
	return nil
}

func (f *fakeDocStore) AppendToArray(ctx context.Context, collection, id, field string, value any) error {
	f.appendCalls = append(f.appendCalls, collection+"/"+id+"/"+field)
	if f.appendErr != nil {
		return f.appendErr
	}
	doc, ok := f.coll(collection)[id]
	if !ok {
		return fmt.Errorf("%w: %s/%s", common.ErrNotFound, collection, id)
	}
	list, _ := doc[field].([]any)
	doc[field] = append(list, value)
	return nil
}

func (f *fakeDocStore) Delete(ctx context.Context, collection, id string) error {
	f.deleteCalls = append(f.deleteCalls, collection+"/"+id)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.coll(collection), id)
	return nil
}

func (f *fakeDocStore) Get(ctx context.Context, collection, id string) (remote.Document, error) {
	doc, ok := f.coll(collection)[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", common.ErrNotFound, collection, id)
	}
	return doc, nil
}

type fakeBlobDeleter struct {
	attempted []string
	failing   map[string]bool
}

func (f *fakeBlobDeleter) DeleteMany(ctx context.Context, keys []string) error {
	var errs []error
	for _, k := range keys {
		f.attempted = append(f.attempted, k)
		if f.failing[k] {
			errs = append(errs, fmt.Errorf("delete %s failed", k))
		}
	}
	return errors.Join(errs...)
}

type fakePhotoFetcher struct {
	payload []byte
	ok      bool
	calls   int
}

func (f *fakePhotoFetcher) DownloadImage(ctx context.Context, ref models.BlobReference) ([]byte, bool) {
	f.calls++
	return f.payload, f.ok
}

type managerDeps struct {
	store   *fakeDocStore
	deleter *fakeBlobDeleter
	fetcher *fakePhotoFetcher
	cache   *blobcache.Cache
	snaps   *snapshot.Store
}

func newDeps(t *testing.T) managerDeps {
	t.Helper()
	snaps, err := snapshot.Open(filepath.Join(t.TempDir(), "snap.db"), logging.NewDiscard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = snaps.Close() })
	return managerDeps{
		store:   newFakeDocStore(),
		deleter: &fakeBlobDeleter{failing: map[string]bool{}},
		fetcher: &fakePhotoFetcher{},
		cache:   blobcache.New(50, time.Hour),
		snaps:   snaps,
	}
}

func newEventManager(t *testing.T, d managerDeps) *EventManager {
	t.Helper()
	return NewEventManager(d.store, d.deleter, d.fetcher, d.cache, d.snaps, logging.NewDiscard())
}

func seedEvent(t *testing.T, d managerDeps, e models.Event) string {
	t.Helper()
	doc := remote.Document{
		"id": "", "coupleId": e.CoupleID, "title": e.Title,
		"date":      e.Date.Format(time.RFC3339),
		"createdAt": e.CreatedAt.Format(time.RFC3339),
	}
	if len(e.PhotoRefs) > 0 {
		refs := make([]any, len(e.PhotoRefs))
		for i, r := range e.PhotoRefs {
			refs[i] = r
		}
		doc["photoRefs"] = refs
	}
	if e.SourceItemID != "" {
		doc["sourceItemId"] = e.SourceItemID
	}
	id, err := d.store.Create(context.Background(), eventsCollection, doc)
	require.NoError(t, err)
	return id
}

func TestLoad_PublishesSnapshotThenServerTruth(t *testing.T) {
	d := newDeps(t)
	ctx := context.Background()

	// stale snapshot on disk
	stale := []models.Event{{ID: "stale-1", CoupleID: "c1", Title: "old"}}
	d.snaps.Save(ctx, snapshot.Key(eventsCollection, "c1"), stale)

	// server truth
	seedEvent(t, d, models.Event{CoupleID: "c1", Title: "fresh", Date: time.Now().UTC()})

	m := newEventManager(t, d)

	// remote failure first: stale data stays published
	d.store.queryErr = fmt.Errorf("%w: offline", common.ErrNetwork)
	err := m.Load(ctx, "c1")
	require.Error(t, err)
	require.NotEmpty(t, m.ErrorMessage())
	require.Len(t, m.Items(), 1)
	require.Equal(t, "old", m.Items()[0].Title)

	// retry clears the error and replaces with server truth
	d.store.queryErr = nil
	require.NoError(t, m.Load(ctx, "c1"))
	require.Empty(t, m.ErrorMessage())
	require.Len(t, m.Items(), 1)
	require.Equal(t, "fresh", m.Items()[0].Title)
	require.Equal(t, StateReady, m.State())

	// the fresh result was written through to the snapshot cache
	var snap []models.Event
	require.True(t, d.snaps.Load(ctx, snapshot.Key(eventsCollection, "c1"), &snap))
	require.Equal(t, "fresh", snap[0].Title)
}

func TestLoad_SortsAscendingByDate(t *testing.T) {
	d := newDeps(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seedEvent(t, d, models.Event{CoupleID: "c1", Title: "later", Date: base.AddDate(0, 2, 0)})
	seedEvent(t, d, models.Event{CoupleID: "c1", Title: "sooner", Date: base})

	m := newEventManager(t, d)
	require.NoError(t, m.Load(context.Background(), "c1"))

	items := m.Items()
	require.Len(t, items, 2)
	require.Equal(t, "sooner", items[0].Title)
	require.Equal(t, "later", items[1].Title)
}

func TestLoad_FiltersByParent(t *testing.T) {
	d := newDeps(t)
	seedEvent(t, d, models.Event{CoupleID: "c1", Title: "ours", Date: time.Now().UTC()})
	seedEvent(t, d, models.Event{CoupleID: "c2", Title: "theirs", Date: time.Now().UTC()})

	m := newEventManager(t, d)
	require.NoError(t, m.Load(context.Background(), "c1"))
	require.Len(t, m.Items(), 1)
	require.Equal(t, "ours", m.Items()[0].Title)
}

func TestAdd_AssignsServerIDWithoutDuplicate(t *testing.T) {
	d := newDeps(t)
	ctx := context.Background()
	m := newEventManager(t, d)
	require.NoError(t, m.Load(ctx, "c1"))

	added, err := m.Add(ctx, models.Event{Title: "picnic"})
	require.NoError(t, err)
	require.NotEmpty(t, added.ID)
	require.Equal(t, "c1", added.CoupleID)

	// reload: exactly the server-confirmed copy, no local-only duplicate
	require.NoError(t, m.Load(ctx, "c1"))
	items := m.Items()
	require.Len(t, items, 1)
	require.Equal(t, added.ID, items[0].ID)
	require.Equal(t, "picnic", items[0].Title)
}

func TestAdd_RemoteFailureLeavesLocalUntouched(t *testing.T) {
	d := newDeps(t)
	ctx := context.Background()
	m := newEventManager(t, d)
	require.NoError(t, m.Load(ctx, "c1"))

	d.store.createErr = fmt.Errorf("%w: offline", common.ErrNetwork)
	_, err := m.Add(ctx, models.Event{Title: "picnic"})
	require.ErrorIs(t, err, common.ErrNetwork)
	require.Empty(t, m.Items())
	require.NotEmpty(t, m.ErrorMessage())
}

func TestAdd_RejectsTooManyPhotos(t *testing.T) {
	d := newDeps(t)
	m := newEventManager(t, d)
	require.NoError(t, m.Load(context.Background(), "c1"))

	refs := make([]string, models.MaxPhotoRefs+1)
	for i := range refs {
		refs[i] = fmt.Sprintf("k%d", i)
	}
	_, err := m.Add(context.Background(), models.Event{Title: "overloaded", PhotoRefs: refs})
	require.ErrorIs(t, err, common.ErrLimitExceeded)
	require.Empty(t, m.Items())
}

func TestUpdate_RequiresID(t *testing.T) {
	d := newDeps(t)
	m := newEventManager(t, d)
	require.NoError(t, m.Load(context.Background(), "c1"))

	err := m.Update(context.Background(), models.Event{Title: "no id"})
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestUpdate_ReplacesAndResorts(t *testing.T) {
	d := newDeps(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	m := newEventManager(t, d)
	require.NoError(t, m.Load(ctx, "c1"))

	first, err := m.Add(ctx, models.Event{Title: "a", Date: base})
	require.NoError(t, err)
	_, err = m.Add(ctx, models.Event{Title: "b", Date: base.AddDate(0, 1, 0)})
	require.NoError(t, err)

	// move "a" after "b"
	first.Date = base.AddDate(0, 2, 0)
	require.NoError(t, m.Update(ctx, first))

	items := m.Items()
	require.Equal(t, "b", items[0].Title)
	require.Equal(t, "a", items[1].Title)
}

func TestDelete_CascadesPastBlobFailure(t *testing.T) {
	d := newDeps(t)
	ctx := context.Background()
	seedEvent(t, d, models.Event{CoupleID: "c1", Title: "trip", Date: time.Now().UTC(),
		PhotoRefs: []string{"k1", "k2"}})

	m := newEventManager(t, d)
	require.NoError(t, m.Load(ctx, "c1"))
	e1 := m.Items()[0]

	d.deleter.failing["k1"] = true
	require.NoError(t, m.Delete(ctx, e1))

	// both keys attempted, document still deleted, entity gone locally
	require.Equal(t, []string{"k1", "k2"}, d.deleter.attempted)
	require.Equal(t, []string{eventsCollection + "/" + e1.ID}, d.store.deleteCalls)
	require.Empty(t, m.Items())
}

func TestDelete_DocumentFailureKeepsEntity(t *testing.T) {
	d := newDeps(t)
	ctx := context.Background()
	seedEvent(t, d, models.Event{CoupleID: "c1", Title: "trip", Date: time.Now().UTC()})

	m := newEventManager(t, d)
	require.NoError(t, m.Load(ctx, "c1"))

	d.store.deleteErr = fmt.Errorf("%w: offline", common.ErrNetwork)
	err := m.Delete(ctx, m.Items()[0])
	require.ErrorIs(t, err, common.ErrNetwork)
	require.Len(t, m.Items(), 1, "rollback by omission")
}

func TestDelete_SkipsUnresolvableLegacyRefs(t *testing.T) {
	d := newDeps(t)
	ctx := context.Background()
	seedEvent(t, d, models.Event{CoupleID: "c1", Title: "trip", Date: time.Now().UTC(),
		PhotoRefs: []string{"https://example.com/not-extractable.jpg", "k2"}})

	m := newEventManager(t, d)
	require.NoError(t, m.Load(ctx, "c1"))
	require.NoError(t, m.Delete(ctx, m.Items()[0]))

	require.Equal(t, []string{"k2"}, d.deleter.attempted)
	require.Empty(t, m.Items())
}

func TestAppendComment_CapIsHardStop(t *testing.T) {
	d := newDeps(t)
	ctx := context.Background()
	m := newEventManager(t, d)
	require.NoError(t, m.Load(ctx, "c1"))

	e, err := m.Add(ctx, models.Event{Title: "picnic"})
	require.NoError(t, err)

	full := make([]models.Comment, models.MaxComments)
	for i := range full {
		full[i] = models.Comment{ID: fmt.Sprintf("cm-%d", i)}
	}
	e.Comments = full
	require.NoError(t, m.Update(ctx, e))
	e = m.Items()[0]

	_, err = m.AppendComment(ctx, e, models.Comment{ID: "one-too-many"})
	require.ErrorIs(t, err, common.ErrLimitExceeded)
	require.Len(t, m.Items()[0].Comments, models.MaxComments, "list unchanged")
	require.Empty(t, d.store.appendCalls, "no remote call past the cap")
}

func TestAppendComment_UsesAtomicArrayAppend(t *testing.T) {
	d := newDeps(t)
	ctx := context.Background()
	m := newEventManager(t, d)
	require.NoError(t, m.Load(ctx, "c1"))

	e, err := m.Add(ctx, models.Event{Title: "picnic"})
	require.NoError(t, err)

	updated, err := m.AppendComment(ctx, e, models.Comment{ID: "cm-1", AuthorID: "u1", Text: "love it"})
	require.NoError(t, err)
	require.Len(t, updated.Comments, 1)
	require.Equal(t, []string{eventsCollection + "/" + e.ID + "/comments"}, d.store.appendCalls)
	require.Len(t, m.Items()[0].Comments, 1)
}

func TestLoadPhoto_CachesAfterFirstFetch(t *testing.T) {
	d := newDeps(t)
	d.fetcher.payload = []byte("jpeg")
	d.fetcher.ok = true

	m := newEventManager(t, d)
	require.NoError(t, m.Load(context.Background(), "c1"))

	for i := 0; i < 3; i++ {
		data, ok := m.LoadPhoto(context.Background(), "couples/c1/p.jpg")
		require.True(t, ok)
		require.Equal(t, []byte("jpeg"), data)
	}
	require.Equal(t, 1, d.fetcher.calls, "served from cache after first fetch")
}

func TestLoadPhoto_AbsentOnFetchFailure(t *testing.T) {
	d := newDeps(t)
	m := newEventManager(t, d)
	require.NoError(t, m.Load(context.Background(), "c1"))

	_, ok := m.LoadPhoto(context.Background(), "couples/c1/p.jpg")
	require.False(t, ok)
}

func TestLinkedEvents_CreateAndDelete(t *testing.T) {
	d := newDeps(t)
	ctx := context.Background()
	m := newEventManager(t, d)
	require.NoError(t, m.Load(ctx, "c1"))

	item := models.BucketItem{ID: "item-1", CoupleID: "c1", Title: "see the aurora",
		PhotoRefs: []string{"k1"}}

	derived, err := m.AddLinkedEvent(ctx, item)
	require.NoError(t, err)
	require.Equal(t, "see the aurora", derived.Title)
	require.Equal(t, "item-1", derived.SourceItemID)
	require.Equal(t, []string{"k1"}, derived.PhotoRefs)

	// unrelated event survives the un-complete
	_, err = m.Add(ctx, models.Event{Title: "unrelated"})
	require.NoError(t, err)

	require.NoError(t, m.DeleteLinkedEvents(ctx, "item-1"))
	items := m.Items()
	require.Len(t, items, 1)
	require.Equal(t, "unrelated", items[0].Title)

	// deleting again is a no-op
	require.NoError(t, m.DeleteLinkedEvents(ctx, "item-1"))
	require.Len(t, m.Items(), 1)
}

func TestBucketManager_CompleteAndUncomplete(t *testing.T) {
	d := newDeps(t)
	ctx := context.Background()

	events := newEventManager(t, d)
	require.NoError(t, events.Load(ctx, "c1"))

	bucket := NewBucketManager(d.store, d.deleter, d.fetcher, d.cache, d.snaps, logging.NewDiscard(), events)
	require.NoError(t, bucket.Load(ctx, "c1"))

	item, err := bucket.Add(ctx, models.BucketItem{Title: "see the aurora"})
	require.NoError(t, err)

	done, err := bucket.Complete(ctx, item)
	require.NoError(t, err)
	require.True(t, done.Completed)
	require.Len(t, events.Items(), 1)
	require.Equal(t, item.ID, events.Items()[0].SourceItemID)

	undone, err := bucket.Uncomplete(ctx, done)
	require.NoError(t, err)
	require.False(t, undone.Completed)
	require.Empty(t, events.Items())
}
