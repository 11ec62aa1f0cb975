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

const bucketCollection = "bucketlist"

type bucketAdapter struct{}

func (bucketAdapter) Collection() string                            { return bucketCollection }
func (bucketAdapter) ID(b models.BucketItem) string                 { return b.ID }
func (bucketAdapter) PhotoRefs(b models.BucketItem) []string        { return b.PhotoRefs }
func (bucketAdapter) Comments(b models.BucketItem) []models.Comment { return b.Comments }

func (bucketAdapter) WithID(b models.BucketItem, id string) models.BucketItem {
	b.ID = id
	return b
}

func (bucketAdapter) Prepare(b models.BucketItem, parentID string, now time.Time) models.BucketItem {
	b.CoupleID = parentID
	b.CreatedAt = now.UTC()
	return b
}

// Bucket items are ordered by creation time, oldest first.
func (bucketAdapter) Less(a, b models.BucketItem) bool { return a.CreatedAt.Before(b.CreatedAt) }

func (bucketAdapter) WithComments(b models.BucketItem, comments []models.Comment) models.BucketItem {
	out := b.Clone()
	out.Comments = comments
	return out
}

func (bucketAdapter) CacheKey(parentID, ref string) string {
	return blobcache.BucketKey(parentID, ref)
}

// BucketManager mirrors the bucket-list collection. Completing an item
// derives a memory event through the events manager; un-completing removes
// the derived events again.
type BucketManager struct {
	*Manager[models.BucketItem]

	events *EventManager
}

func NewBucketManager(
	docs remote.DocumentStore,
	blobs BlobDeleter,
	photos PhotoFetcher,
	cache *blobcache.Cache,
	snaps *snapshot.Store,
	log logging.Logger,
	events *EventManager,
) *BucketManager {
	return &BucketManager{
		Manager: New[models.BucketItem](bucketAdapter{}, docs, blobs, photos, cache, snaps, log),
		events:  events,
	}
}

// Complete marks item done and creates the linked memory event.
func (m *BucketManager) Complete(ctx context.Context, item models.BucketItem) (models.BucketItem, error) {
	item = item.Clone()
	item.Completed = true
	if err := m.Update(ctx, item); err != nil {
		return models.BucketItem{}, err
	}
	if _, err := m.events.AddLinkedEvent(ctx, item); err != nil {
		return models.BucketItem{}, err
	}
	return item, nil
}

// Uncomplete clears the done flag and removes any events derived from the
// item. No derived events is a no-op.
func (m *BucketManager) Uncomplete(ctx context.Context, item models.BucketItem) (models.BucketItem, error) {
	item = item.Clone()
	item.Completed = false
	if err := m.Update(ctx, item); err != nil {
		return models.BucketItem{}, err
	}
	if err := m.events.DeleteLinkedEvents(ctx, item.ID); err != nil {
		return models.BucketItem{}, err
	}
	return item, nil
}
