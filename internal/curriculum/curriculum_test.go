package curriculum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/srsbot/pkg/models"
)

func TestDefaultRegistry(t *testing.T) {
	r := Default()

	jp, err := r.Track(TrackJapanese)
	require.NoError(t, err)
	assert.Equal(t, Radical, jp.Entry())

	hsk, err := r.Track(TrackMandarin)
	require.NoError(t, err)
	assert.Equal(t, HSKRadical, hsk.Entry())

	assert.Equal(t, 1, r.Weight(Radical))
	assert.Equal(t, 2, r.Weight(Kanji))
	assert.Equal(t, 2, r.Weight(HSKVocab))
	assert.Equal(t, 1, r.Weight("unknown"))

	track, err := r.TrackOf(Hanzi)
	require.NoError(t, err)
	assert.Equal(t, TrackMandarin, track)

	kanji, err := r.Kind(Kanji)
	require.NoError(t, err)
	assert.Equal(t, Vocabulary, kanji.Unlocks)
	assert.Equal(t, []models.Kind{Radical}, kanji.Seeds)

	_, err = r.Kind("kana")
	assert.ErrorIs(t, err, ErrUnknownKind)
	_, err = r.Track("ko")
	assert.ErrorIs(t, err, ErrUnknownTrack)
}

func TestNewRegistry_Rejects(t *testing.T) {
	kinds := []KindSpec{{Kind: "a", Track: "t", Weight: 1, Facets: []models.Facet{models.FacetMeaning}, Unlocks: "b"}}

	_, err := NewRegistry([]TrackSpec{{Track: "t", Kinds: []models.Kind{"a"}}}, kinds)
	assert.ErrorIs(t, err, ErrUnknownKind, "dangling unlock")

	_, err = NewRegistry([]TrackSpec{{Track: "t", Kinds: []models.Kind{"z"}}}, nil)
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = NewRegistry(nil, []KindSpec{{Kind: "a", Weight: 0, Facets: []models.Facet{models.FacetMeaning}}})
	assert.Error(t, err)

	_, err = NewRegistry([]TrackSpec{{Track: "u", Kinds: []models.Kind{"a"}}}, []KindSpec{{Kind: "a", Track: "t", Weight: 1, Facets: []models.Facet{models.FacetMeaning}}})
	assert.Error(t, err, "kind listed in the wrong track")
}

func TestAcceptExact(t *testing.T) {
	assert.True(t, AcceptExact("tree", []string{"wood", "tree"}))
	assert.False(t, AcceptExact("", []string{""}))
	assert.False(t, AcceptExact("trees", []string{"tree"}))

	spec := KindSpec{Accept: func(given string, _ []string) bool { return given == "anything" }}
	assert.True(t, spec.Accepts("anything", nil))
}

func TestAskableFacets_KanjiReadings(t *testing.T) {
	kanji, err := Default().Kind(Kanji)
	require.NoError(t, err)

	kanjiWith := func(answers map[models.Facet][]string) models.ContentItem {
		return models.ContentItem{Kind: Kanji, ID: "x", Tier: 1, Answers: answers}
	}
	both := kanjiWith(map[models.Facet][]string{
		models.FacetMeaning: {"sun"}, models.FacetOnyomi: {"にち"}, models.FacetKunyomi: {"ひ"},
	})
	assert.Equal(t, []models.Facet{models.FacetMeaning}, kanji.AskableFacets(both))

	onOnly := kanjiWith(map[models.Facet][]string{models.FacetMeaning: {"think"}, models.FacetOnyomi: {"し"}})
	assert.Equal(t, []models.Facet{models.FacetMeaning, models.FacetOnyomi}, kanji.AskableFacets(onOnly))

	kunOnly := kanjiWith(map[models.Facet][]string{models.FacetMeaning: {"field"}, models.FacetKunyomi: {"はたけ"}})
	assert.Equal(t, []models.Facet{models.FacetMeaning, models.FacetKunyomi}, kanji.AskableFacets(kunOnly))

	vocab, err := Default().Kind(Vocabulary)
	require.NoError(t, err)
	word := models.ContentItem{Kind: Vocabulary, ID: "日本", Answers: map[models.Facet][]string{
		models.FacetMeaning: {"Japan"}, models.FacetReading: {"にほん"},
	}}
	assert.Equal(t, []models.Facet{models.FacetMeaning, models.FacetReading}, vocab.AskableFacets(word))
}

func TestStageLabels(t *testing.T) {
	assert.Equal(t, "α-i", StageLabel(0))
	assert.Equal(t, "α-v", StageLabel(4))
	assert.Equal(t, "β-i", StageLabel(5))
	assert.Equal(t, "γ-iii", StageLabel(12))
	assert.Equal(t, "α-ii", TierLabel(2))

	assert.Equal(t, "Unknown", LevelName(0))
	assert.Equal(t, "Adept", LevelName(5))
	assert.Equal(t, "Mastered", LevelName(9))
	assert.Equal(t, "Mastered", LevelName(12))
}
