package stagegate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/srsbot/internal/curriculum"
	"github.com/example/srsbot/internal/inmem"
	"github.com/example/srsbot/pkg/models"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func item(kind models.Kind, id string, tier int) models.ContentItem {
	return models.ContentItem{Kind: kind, ID: id, Tier: tier}
}

func jpContent() *inmem.Content {
	return inmem.NewContent(
		item(curriculum.Radical, "一", 1),
		item(curriculum.Radical, "丨", 1),
		item(curriculum.Radical, "口", 2),
		item(curriculum.Kanji, "日", 1),
		item(curriculum.Kanji, "月", 1),
		item(curriculum.Kanji, "木", 2),
		item(curriculum.Vocabulary, "日本", 1),
	)
}

func progression(next map[models.Kind]int, levels map[models.ItemRef]int) *models.Progression {
	p := models.NewProgression(1, now)
	for k, v := range next {
		p.Next[k] = v
	}
	for ref, lv := range levels {
		p.Records[ref] = models.SRSRecord{Level: lv, LevelOld: lv}
	}
	return p
}

func ref(kind models.Kind, id string) models.ItemRef {
	return models.ItemRef{Kind: kind, ID: id}
}

func TestTryAdvance_OpensDependentTier(t *testing.T) {
	u := NewUnlocker(curriculum.Default(), jpContent(), 5, nil)
	p := progression(
		map[models.Kind]int{curriculum.Radical: 2, curriculum.Kanji: 1, curriculum.Vocabulary: 1},
		map[models.ItemRef]int{ref(curriculum.Radical, "一"): 5, ref(curriculum.Radical, "丨"): 6},
	)

	res, err := u.TryAdvance(context.Background(), curriculum.Radical, p, now)
	require.NoError(t, err)

	assert.True(t, res.Advanced)
	assert.Equal(t, []models.Kind{curriculum.Kanji}, res.Unlocked)
	assert.Equal(t, map[models.Kind]int{curriculum.Kanji: 2}, res.Next)
	assert.Equal(t, models.SRSRecord{}, res.Records[ref(curriculum.Kanji, "日")])
	require.Len(t, res.Entries, 2)
	for _, e := range res.Entries {
		assert.Equal(t, models.ModeTeach, e.Mode)
		assert.Equal(t, now, e.DueAt)
	}
	assert.Equal(t, "You passed Stage α-i Radicals! (New kanji unlocked!)", res.Announcement)
	assert.Equal(t, 1, p.Next[curriculum.Kanji], "input progression untouched")
}

func TestTryAdvance_AllOrNothing(t *testing.T) {
	u := NewUnlocker(curriculum.Default(), jpContent(), 5, nil)
	next := map[models.Kind]int{curriculum.Radical: 2, curriculum.Kanji: 1, curriculum.Vocabulary: 1}

	cases := map[string]map[models.ItemRef]int{
		"one below threshold": {ref(curriculum.Radical, "一"): 5, ref(curriculum.Radical, "丨"): 4},
		"one missing record":  {ref(curriculum.Radical, "一"): 8},
	}
	for name, levels := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := u.TryAdvance(context.Background(), curriculum.Radical, progression(next, levels), now)
			require.NoError(t, err)
			assert.False(t, res.Advanced)
			assert.Empty(t, res.Records)
			assert.Empty(t, res.Entries)
			assert.Empty(t, res.Next)
		})
	}
}

func TestTryAdvance_CharacterTierSeedsRadicals(t *testing.T) {
	u := NewUnlocker(curriculum.Default(), jpContent(), 5, nil)
	p := progression(
		map[models.Kind]int{curriculum.Radical: 2, curriculum.Kanji: 2, curriculum.Vocabulary: 1},
		map[models.ItemRef]int{ref(curriculum.Kanji, "日"): 5, ref(curriculum.Kanji, "月"): 5},
	)

	res, err := u.TryAdvance(context.Background(), curriculum.Kanji, p, now)
	require.NoError(t, err)

	assert.Equal(t, []models.Kind{curriculum.Vocabulary, curriculum.Radical}, res.Unlocked)
	assert.Equal(t, map[models.Kind]int{curriculum.Vocabulary: 2, curriculum.Radical: 3}, res.Next)
	assert.Contains(t, res.Records, ref(curriculum.Vocabulary, "日本"))
	assert.Contains(t, res.Records, ref(curriculum.Radical, "口"))
	assert.Equal(t, "You passed Stage α-i Kanji! (New vocabulary and radicals unlocked!)", res.Announcement)
}

func TestTryAdvance_EmptyTierChains(t *testing.T) {
	content := jpContent()
	require.NoError(t, content.DeclareTier(context.Background(), curriculum.Radical, 3))
	u := NewUnlocker(curriculum.Default(), content, 5, nil)
	// Radical tier 3 is empty: mastering kanji tier 2 opens it and the empty
	// radical tier then opens kanji tier 3 straight away.
	require.NoError(t, content.DeclareTier(context.Background(), curriculum.Kanji, 3))
	p := progression(
		map[models.Kind]int{curriculum.Radical: 3, curriculum.Kanji: 3, curriculum.Vocabulary: 2},
		map[models.ItemRef]int{ref(curriculum.Kanji, "木"): 5},
	)
	require.NoError(t, content.SaveItems(context.Background(), []models.ContentItem{item(curriculum.Vocabulary, "木曜日", 2)}))

	res, err := u.TryAdvance(context.Background(), curriculum.Kanji, p, now)
	require.NoError(t, err)

	assert.Equal(t, []models.Kind{curriculum.Vocabulary, curriculum.Radical, curriculum.Kanji}, res.Unlocked)
	assert.Equal(t, 4, res.Next[curriculum.Radical])
	assert.Equal(t, 4, res.Next[curriculum.Kanji])
	assert.Equal(t, 3, res.Next[curriculum.Vocabulary])
	assert.Len(t, res.Entries, 1)
	assert.Contains(t, res.Announcement, "Stage α-iii Radicals")
}

func TestTryAdvance_ContentExhausted(t *testing.T) {
	u := NewUnlocker(curriculum.Default(), jpContent(), 5, nil)
	p := progression(
		map[models.Kind]int{curriculum.Radical: 3, curriculum.Kanji: 3, curriculum.Vocabulary: 2},
		map[models.ItemRef]int{ref(curriculum.Kanji, "木"): 5},
	)

	// Kanji tier 2 is mastered but neither vocabulary tier 2 nor radical
	// tier 3 exist, so there is nothing to open.
	res, err := u.TryAdvance(context.Background(), curriculum.Kanji, p, now)
	require.NoError(t, err)
	assert.False(t, res.Advanced)
	assert.Empty(t, res.Next)
}

type failingSource struct{ err error }

func (f failingSource) TierMembers(context.Context, models.Kind, int) ([]string, error) {
	return nil, f.err
}

func TestTryAdvance_RepositoryFailure(t *testing.T) {
	boom := errors.New("connection reset")
	u := NewUnlocker(curriculum.Default(), failingSource{boom}, 5, nil)
	p := progression(map[models.Kind]int{curriculum.Kanji: 1}, nil)

	_, err := u.TryAdvance(context.Background(), curriculum.Radical, p, now)
	assert.ErrorIs(t, err, boom)
}

func TestTryAdvance_LeafKindNeverAdvances(t *testing.T) {
	u := NewUnlocker(curriculum.Default(), jpContent(), 5, nil)
	res, err := u.TryAdvance(context.Background(), curriculum.Vocabulary, progression(nil, nil), now)
	require.NoError(t, err)
	assert.False(t, res.Advanced)
}
