// Package queue holds the pure operations on a learner's per-track lesson
// queue. Every function works on a copy and leaves its input untouched.
package queue

import (
	"sort"
	"time"

	"github.com/example/srsbot/pkg/models"
)

// Lookahead is how far a forced session may reach into the future.
const Lookahead = 24 * time.Hour

// WeightFunc returns the capacity cost of an item kind.
type WeightFunc func(models.Kind) int

// Summary describes the state of a queue at a point in time.
type Summary struct {
	DueCount    int
	TotalQueued int
	NextDueAt   time.Time // zero when the queue is empty
}

// Sort returns a copy of q ordered by due time. Entries due at the same time
// keep their relative order.
func Sort(q []models.QueuedLesson) []models.QueuedLesson {
	out := append([]models.QueuedLesson(nil), q...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DueAt.Before(out[j].DueAt)
	})
	return out
}

// Find returns the index of the entry for ref, or -1.
func Find(q []models.QueuedLesson, ref models.ItemRef) int {
	for i, e := range q {
		if e.Kind == ref.Kind && e.ItemID == ref.ID {
			return i
		}
	}
	return -1
}

// Remove returns q without the entry for ref and whether one was present.
func Remove(q []models.QueuedLesson, ref models.ItemRef) ([]models.QueuedLesson, bool) {
	i := Find(q, ref)
	if i < 0 {
		return append([]models.QueuedLesson(nil), q...), false
	}
	out := make([]models.QueuedLesson, 0, len(q)-1)
	out = append(out, q[:i]...)
	return append(out, q[i+1:]...), true
}

// Upsert returns a sorted copy of q holding e in place of any previous entry
// for the same item.
func Upsert(q []models.QueuedLesson, entries ...models.QueuedLesson) []models.QueuedLesson {
	out := append([]models.QueuedLesson(nil), q...)
	for _, e := range entries {
		out, _ = Remove(out, e.Ref())
		out = append(out, e)
	}
	return Sort(out)
}

// SelectDue picks the entries a session may contain. It walks the sorted
// queue and stops at the first entry due after the cutoff (now, or now plus
// Lookahead when lookahead is set) or once the next entry would push the
// accumulated weight over budget. The first due entry is always taken so a
// heavy item cannot starve behind a small budget.
func SelectDue(q []models.QueuedLesson, budget int, now time.Time, lookahead bool, weight WeightFunc) []models.QueuedLesson {
	cutoff := now
	if lookahead {
		cutoff = now.Add(Lookahead)
	}
	var (
		out   []models.QueuedLesson
		spent int
	)
	for _, e := range q {
		if e.DueAt.After(cutoff) {
			break
		}
		w := weight(e.Kind)
		if len(out) > 0 && spent+w > budget {
			break
		}
		spent += w
		out = append(out, e)
	}
	return out
}

// Summarize counts due entries at now.
func Summarize(q []models.QueuedLesson, now time.Time) Summary {
	s := Summary{TotalQueued: len(q)}
	for _, e := range q {
		if !e.DueAt.After(now) {
			s.DueCount++
		}
		if s.NextDueAt.IsZero() || e.DueAt.Before(s.NextDueAt) {
			s.NextDueAt = e.DueAt
		}
	}
	return s
}
