// Package curriculum describes the content kinds of every track and the
// prerequisite graph that gates their tiers.
package curriculum

import (
	"errors"
	"fmt"

	"github.com/example/srsbot/pkg/models"
)

const (
	TrackJapanese models.Track = "jp"
	TrackMandarin models.Track = "hsk"
)

const (
	Radical    models.Kind = "radical"
	Kanji      models.Kind = "kanji"
	Vocabulary models.Kind = "vocab"
	HSKRadical models.Kind = "hskr"
	Hanzi      models.Kind = "sc"
	HSKVocab   models.Kind = "hsk"
)

var (
	ErrUnknownKind  = errors.New("curriculum: unknown kind")
	ErrUnknownTrack = errors.New("curriculum: unknown track")
)

// AcceptFunc reports whether a normalized answer matches one of the
// normalized accepted answers.
type AcceptFunc func(given string, accepted []string) bool

// KindSpec is the capability set of one content kind.
type KindSpec struct {
	Kind   models.Kind
	Track  models.Track
	Name   string // singular display name
	Plural string
	Weight int // session capacity cost

	// Facets are the candidate askable facets in preference order. Only the
	// ones an item carries answers for are asked.
	Facets []models.Facet
	// Askable narrows Facets for one item. Nil asks every facet with answers.
	Askable AskableFunc

	// Unlocks is the dependent kind gated by tiers of this kind: tier n of
	// Unlocks opens once every item of tier n of this kind is mastered.
	Unlocks models.Kind
	// Seeds are kinds whose next tier opens together with Unlocks.
	Seeds []models.Kind

	// Accept overrides exact membership matching.
	Accept AcceptFunc
}

// AskableFunc picks the facets to test for an item from the candidates the
// item carries answers for.
type AskableFunc func(item models.ContentItem, candidates []models.Facet) []models.Facet

// AskableFacets returns the facets a review of item tests.
func (k KindSpec) AskableFacets(item models.ContentItem) []models.Facet {
	candidates := []models.Facet{}
	for _, f := range k.Facets {
		if item.HasFacet(f) {
			candidates = append(candidates, f)
		}
	}
	if k.Askable != nil {
		return k.Askable(item, candidates)
	}
	return candidates
}

// ExclusiveReadings drops on'yomi and kun'yomi when the item has both, so a
// kanji is asked a reading only when it has exactly one kind of reading.
func ExclusiveReadings(item models.ContentItem, candidates []models.Facet) []models.Facet {
	both := item.HasFacet(models.FacetOnyomi) && item.HasFacet(models.FacetKunyomi)
	out := make([]models.Facet, 0, len(candidates))
	for _, f := range candidates {
		if both && (f == models.FacetOnyomi || f == models.FacetKunyomi) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Accepts applies the kind's acceptance predicate.
func (k KindSpec) Accepts(given string, accepted []string) bool {
	if k.Accept != nil {
		return k.Accept(given, accepted)
	}
	return AcceptExact(given, accepted)
}

// AcceptExact is the default predicate: plain membership.
func AcceptExact(given string, accepted []string) bool {
	if given == "" {
		return false
	}
	for _, a := range accepted {
		if a == given {
			return true
		}
	}
	return false
}

// TrackSpec describes a track and the order of its kinds. Kinds[0] is the
// entry kind seeded when a learner starts the track.
type TrackSpec struct {
	Track models.Track
	Name  string
	Kinds []models.Kind
}

// Entry returns the kind seeded on initialization.
func (t TrackSpec) Entry() models.Kind {
	return t.Kinds[0]
}

// Registry holds the kinds and tracks known to the engine.
type Registry struct {
	kinds  map[models.Kind]KindSpec
	tracks map[models.Track]TrackSpec
	order  []models.Track
}

// NewRegistry validates and indexes the given specs.
func NewRegistry(tracks []TrackSpec, kinds []KindSpec) (*Registry, error) {
	r := &Registry{
		kinds:  make(map[models.Kind]KindSpec, len(kinds)),
		tracks: make(map[models.Track]TrackSpec, len(tracks)),
	}
	for _, k := range kinds {
		if k.Weight <= 0 {
			return nil, fmt.Errorf("curriculum: kind %s: weight must be positive", k.Kind)
		}
		if len(k.Facets) == 0 {
			return nil, fmt.Errorf("curriculum: kind %s: no facets", k.Kind)
		}
		r.kinds[k.Kind] = k
	}
	for _, t := range tracks {
		if len(t.Kinds) == 0 {
			return nil, fmt.Errorf("curriculum: track %s has no kinds", t.Track)
		}
		for _, k := range t.Kinds {
			spec, ok := r.kinds[k]
			if !ok {
				return nil, fmt.Errorf("%w: %s in track %s", ErrUnknownKind, k, t.Track)
			}
			if spec.Track != t.Track {
				return nil, fmt.Errorf("curriculum: kind %s belongs to %s, listed in %s", k, spec.Track, t.Track)
			}
		}
		r.tracks[t.Track] = t
		r.order = append(r.order, t.Track)
	}
	for _, k := range kinds {
		for _, dep := range append([]models.Kind{k.Unlocks}, k.Seeds...) {
			if dep == "" {
				continue
			}
			if _, ok := r.kinds[dep]; !ok {
				return nil, fmt.Errorf("%w: %s referenced by %s", ErrUnknownKind, dep, k.Kind)
			}
		}
	}
	return r, nil
}

// Kind returns the spec of kind k.
func (r *Registry) Kind(k models.Kind) (KindSpec, error) {
	spec, ok := r.kinds[k]
	if !ok {
		return KindSpec{}, fmt.Errorf("%w: %s", ErrUnknownKind, k)
	}
	return spec, nil
}

// Track returns the spec of track t.
func (r *Registry) Track(t models.Track) (TrackSpec, error) {
	spec, ok := r.tracks[t]
	if !ok {
		return TrackSpec{}, fmt.Errorf("%w: %s", ErrUnknownTrack, t)
	}
	return spec, nil
}

// Tracks returns the registered tracks in registration order.
func (r *Registry) Tracks() []TrackSpec {
	out := make([]TrackSpec, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, r.tracks[t])
	}
	return out
}

// Weight returns the capacity cost of kind k. Unknown kinds cost 1.
func (r *Registry) Weight(k models.Kind) int {
	if spec, ok := r.kinds[k]; ok {
		return spec.Weight
	}
	return 1
}

// TrackOf returns the track kind k belongs to.
func (r *Registry) TrackOf(k models.Kind) (models.Track, error) {
	spec, err := r.Kind(k)
	if err != nil {
		return "", err
	}
	return spec.Track, nil
}
