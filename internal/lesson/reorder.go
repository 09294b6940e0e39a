package lesson

import (
	"math/rand"

	"github.com/example/srsbot/pkg/models"
)

// InitialOrder builds the working set: teach entries first in queue order,
// then the review entries shuffled.
func InitialOrder(selected []models.QueuedLesson, rng *rand.Rand) []*Entry {
	var teach, review []*Entry
	for _, l := range selected {
		e := &Entry{Lesson: l}
		if l.Mode == models.ModeTeach {
			teach = append(teach, e)
		} else {
			review = append(review, e)
		}
	}
	rng.Shuffle(len(review), func(i, j int) {
		review[i], review[j] = review[j], review[i]
	})
	return append(teach, review...)
}

// Requeue moves the head of entries to a random later position, uniformly
// chosen so that at least one other entry comes first when there is one.
func Requeue(entries []*Entry, rng *rand.Rand) []*Entry {
	if len(entries) < 2 {
		return entries
	}
	head, rest := entries[0], entries[1:]
	pos := 1 + rng.Intn(len(rest))
	out := make([]*Entry, 0, len(entries))
	out = append(out, rest[:pos]...)
	out = append(out, head)
	return append(out, rest[pos:]...)
}

// MoveToBack moves the head of entries to the end.
func MoveToBack(entries []*Entry) []*Entry {
	if len(entries) < 2 {
		return entries
	}
	out := make([]*Entry, 0, len(entries))
	out = append(out, entries[1:]...)
	return append(out, entries[0])
}

// pickFacet returns a uniformly chosen facet.
func pickFacet(facets []models.Facet, rng *rand.Rand) models.Facet {
	return facets[rng.Intn(len(facets))]
}

func withoutFacet(facets []models.Facet, f models.Facet) []models.Facet {
	out := make([]models.Facet, 0, len(facets))
	for _, x := range facets {
		if x != f {
			out = append(out, x)
		}
	}
	return out
}
