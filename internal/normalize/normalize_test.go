package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example/srsbot/pkg/models"
)

func TestNormalize_Meaning(t *testing.T) {
	n := New()
	cases := []struct{ in, want string }{
		{"  Tree ", "tree"},
		{"(To) Eat", "eat"},
		{"big   dog.", "big dog"},
		{"ＳＵＮ", "sun"},
		{"measure (for) it", "measure it"},
		{"", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, n.Normalize("radical", models.FacetMeaning, c.in), "input %q", c.in)
	}
}

func TestNormalize_ReadingMatchesAcrossScripts(t *testing.T) {
	n := New()
	for _, facet := range []models.Facet{models.FacetReading, models.FacetOnyomi, models.FacetKunyomi} {
		assert.Equal(t, "nichi", n.Normalize("kanji", facet, "ニチ"))
		assert.Equal(t, "nichi", n.Normalize("kanji", facet, "にち"))
		assert.Equal(t, "nichi", n.Normalize("kanji", facet, "Nichi"))
	}
}

func TestRomaji(t *testing.T) {
	cases := []struct{ in, want string }{
		{"きょう", "kyou"},
		{"がっこう", "gakkou"},
		{"まっちゃ", "matcha"},
		{"ひ.く", "hiku"},
		{"-じん", "jin"},
		{"コーヒー", "koohii"},
		{"しんぶん", "shinbun"},
		{"にほんご", "nihongo"},
		{"ジェット", "jetto"},
		{"tabemasu", "tabemasu"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Romaji(c.in), "input %q", c.in)
	}
}

func TestPinyin(t *testing.T) {
	assert.Equal(t, "nihao|33", Pinyin("nǐ hǎo"))
	assert.Equal(t, "nihao|33", Pinyin("ni3 hao3"))
	assert.Equal(t, "nihao|33", Pinyin("Ni3hao3"))
	assert.Equal(t, "lv|4", Pinyin("lǜ"))
	assert.Equal(t, "lv|4", Pinyin("lu:4"))
	assert.Equal(t, "lv|4", Pinyin("lv4"))
	assert.Equal(t, "ma|", Pinyin("ma5"), "neutral tone carries no digit")
	assert.NotEqual(t, Pinyin("ma1"), Pinyin("ma3"))

	n := New()
	assert.Equal(t, Pinyin("zhōng guó"), n.Normalize("sc", models.FacetPinyin, "zhong1guo2"))
}
