package models

import "time"

// Comment is a short sub-entity attached to an event or bucket-list item.
// The per-entity comment list is capped at MaxComments.
type Comment struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}
