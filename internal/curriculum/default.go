package curriculum

import "github.com/example/srsbot/pkg/models"

// DefaultTracks are the Japanese and Mandarin pipelines.
func DefaultTracks() []TrackSpec {
	return []TrackSpec{
		{Track: TrackJapanese, Name: "Japanese", Kinds: []models.Kind{Radical, Kanji, Vocabulary}},
		{Track: TrackMandarin, Name: "Mandarin (HSK)", Kinds: []models.Kind{HSKRadical, Hanzi, HSKVocab}},
	}
}

// DefaultKinds wires radicals → characters → vocabulary for both tracks.
// Mastering a character tier opens the matching vocabulary tier and the next
// radical tier at once.
func DefaultKinds() []KindSpec {
	return []KindSpec{
		{
			Kind:    Radical,
			Track:   TrackJapanese,
			Name:    "Radical",
			Plural:  "Radicals",
			Weight:  1,
			Facets:  []models.Facet{models.FacetMeaning},
			Unlocks: Kanji,
		},
		{
			Kind:    Kanji,
			Track:   TrackJapanese,
			Name:    "Kanji",
			Plural:  "Kanji",
			Weight:  2,
			Facets:  []models.Facet{models.FacetMeaning, models.FacetOnyomi, models.FacetKunyomi},
			Askable: ExclusiveReadings,
			Unlocks: Vocabulary,
			Seeds:   []models.Kind{Radical},
		},
		{
			Kind:   Vocabulary,
			Track:  TrackJapanese,
			Name:   "Vocabulary",
			Plural: "Vocabulary",
			Weight: 2,
			Facets: []models.Facet{models.FacetMeaning, models.FacetReading},
		},
		{
			Kind:    HSKRadical,
			Track:   TrackMandarin,
			Name:    "Radical",
			Plural:  "Radicals",
			Weight:  1,
			Facets:  []models.Facet{models.FacetMeaning},
			Unlocks: Hanzi,
		},
		{
			Kind:    Hanzi,
			Track:   TrackMandarin,
			Name:    "Hanzi",
			Plural:  "Hanzi",
			Weight:  2,
			Facets:  []models.Facet{models.FacetPinyin},
			Unlocks: HSKVocab,
			Seeds:   []models.Kind{HSKRadical},
		},
		{
			Kind:   HSKVocab,
			Track:  TrackMandarin,
			Name:   "Vocabulary",
			Plural: "Vocabulary",
			Weight: 2,
			Facets: []models.Facet{models.FacetMeaning, models.FacetPinyin},
		},
	}
}

// Default returns the registry with both built-in tracks.
func Default() *Registry {
	r, err := NewRegistry(DefaultTracks(), DefaultKinds())
	if err != nil {
		panic(err)
	}
	return r
}
