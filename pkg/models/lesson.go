package models

import "time"

// Mode tells whether a queued lesson is a first exposure or a retest.
type Mode int

const (
	ModeTeach Mode = iota
	ModeReview
)

func (m Mode) String() string {
	if m == ModeTeach {
		return "teach"
	}
	return "review"
}

// QueuedLesson is one entry of a user's per-track lesson queue.
type QueuedLesson struct {
	Kind   Kind      `json:"kind" db:"kind"`
	ItemID string    `json:"item_id" db:"item_id"`
	Mode   Mode      `json:"mode" db:"mode"`
	DueAt  time.Time `json:"due_at" db:"due_at"`
}

// Ref returns the identity of the queued item.
func (q QueuedLesson) Ref() ItemRef {
	return ItemRef{Kind: q.Kind, ID: q.ItemID}
}
