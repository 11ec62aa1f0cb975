// Package models defines the document-shaped records the couplesync core
// mirrors locally: events and bucket-list items, their comments, and blob
// references to photos in the object store.
//
// Entities are value snapshots. They are passed by value between layers and
// never mutated in place; producing a changed entity means producing a new
// value (see Clone).
package models

import "time"

const (
	// MaxPhotoRefs caps the photos attached to a single entity.
	MaxPhotoRefs = 10

	// MaxComments caps the comment list of a single entity.
	MaxComments = 50
)

// Event is a shared memory on the couple's timeline. Events derived from a
// completed bucket-list item carry the item's id in SourceItemID.
type Event struct {
	ID           string    `json:"id,omitempty"`
	CoupleID     string    `json:"coupleId"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Date         time.Time `json:"date"`
	PhotoRefs    []string  `json:"photoRefs,omitempty"`
	Comments     []Comment `json:"comments,omitempty"`
	SourceItemID string    `json:"sourceItemId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (e Event) EntityID() string    { return e.ID }
func (e Event) ParentID() string    { return e.CoupleID }
func (e Event) PhotoList() []string { return e.PhotoRefs }

// Clone returns a deep copy; the slices are not shared with the receiver.
func (e Event) Clone() Event {
	out := e
	out.PhotoRefs = append([]string(nil), e.PhotoRefs...)
	out.Comments = append([]Comment(nil), e.Comments...)
	return out
}

// BucketItem is an entry on the couple's bucket list.
type BucketItem struct {
	ID        string    `json:"id,omitempty"`
	CoupleID  string    `json:"coupleId"`
	Title     string    `json:"title"`
	Note      string    `json:"note,omitempty"`
	Completed bool      `json:"completed"`
	PhotoRefs []string  `json:"photoRefs,omitempty"`
	Comments  []Comment `json:"comments,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (b BucketItem) EntityID() string    { return b.ID }
func (b BucketItem) ParentID() string    { return b.CoupleID }
func (b BucketItem) PhotoList() []string { return b.PhotoRefs }

// Clone returns a deep copy; the slices are not shared with the receiver.
func (b BucketItem) Clone() BucketItem {
	out := b
	out.PhotoRefs = append([]string(nil), b.PhotoRefs...)
	out.Comments = append([]Comment(nil), b.Comments...)
	return out
}
