package syncmgr

import (
	"context"
	"time"

	"github.com/avolkovs/couplesync/internal/blobcache"
	"github.com/avolkovs/couplesync/internal/logging"
	"github.com/avolkovs/couplesync/internal/models"
	"github.com/avolkovs/couplesync/internal/remote"
	"github.com/avolkovs/couplesync/internal/snapshot"
)

const eventsCollection = "events"

type eventAdapter struct{}

func (eventAdapter) Collection() string                       { return eventsCollection }
func (eventAdapter) ID(e models.Event) string                 { return e.ID }
func (eventAdapter) PhotoRefs(e models.Event) []string        { return e.PhotoRefs }
func (eventAdapter) Comments(e models.Event) []models.Comment { return e.Comments }

func (eventAdapter) WithID(e models.Event, id string) models.Event {
	e.ID = id
	return e
}

func (eventAdapter) Prepare(e models.Event, parentID string, now time.Time) models.Event {
	e.CoupleID = parentID
	e.CreatedAt = now.UTC()
	if e.Date.IsZero() {
		e.Date = e.CreatedAt
	}
	return e
}

// Events are ordered ascending by date.
func (eventAdapter) Less(a, b models.Event) bool { return a.Date.Before(b.Date) }

func (eventAdapter) WithComments(e models.Event, comments []models.Comment) models.Event {
	out := e.Clone()
	out.Comments = comments
	return out
}

func (eventAdapter) CacheKey(parentID, ref string) string {
	return blobcache.EventKey(parentID, ref)
}

// EventManager mirrors the events collection and owns the derived-event
// operations linking events back to bucket-list items.
type EventManager struct {
	*Manager[models.Event]
}

func NewEventManager(
	docs remote.DocumentStore,
	blobs BlobDeleter,
	photos PhotoFetcher,
	cache *blobcache.Cache,
	snaps *snapshot.Store,
	log logging.Logger,
) *EventManager {
	return &EventManager{Manager: New[models.Event](eventAdapter{}, docs, blobs, photos, cache, snaps, log)}
}

// AddLinkedEvent creates an event seeded from a completed bucket-list item:
// same title and photos, dated now, carrying the item's id as the source
// cross-reference. No duplicate check is made; repeated completion toggles
// are the caller's concern.
func (m *EventManager) AddLinkedEvent(ctx context.Context, item models.BucketItem) (models.Event, error) {
	e := models.Event{
		Title:        item.Title,
		PhotoRefs:    append([]string(nil), item.PhotoRefs...),
		SourceItemID: item.ID,
	}
	return m.Add(ctx, e)
}

// DeleteLinkedEvents removes every event referencing sourceItemID. Zero
// matches is a no-op, not an error.
func (m *EventManager) DeleteLinkedEvents(ctx context.Context, sourceItemID string) error {
	if sourceItemID == "" {
		return nil
	}
	var linked []models.Event
	for _, e := range m.items {
		if e.SourceItemID == sourceItemID {
			linked = append(linked, e)
		}
	}
	for _, e := range linked {
		if err := m.Delete(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
