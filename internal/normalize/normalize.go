// Package normalize canonicalizes learner answers and accepted answers so
// they can be compared by plain equality.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"

	"github.com/example/srsbot/pkg/models"
)

// Normalizer maps a raw answer for a facet to its canonical form. It is safe
// for concurrent use.
type Normalizer struct{}

// New returns a Normalizer.
func New() *Normalizer {
	return &Normalizer{}
}

// Normalize returns the canonical form of raw. The kind is accepted so that
// callers can route every comparison through one entry point; all kinds share
// the rules of their facet today.
func (n *Normalizer) Normalize(_ models.Kind, facet models.Facet, raw string) string {
	s := width.Fold.String(strings.TrimSpace(raw))
	switch facet {
	case models.FacetReading, models.FacetOnyomi, models.FacetKunyomi:
		return Romaji(cases.Fold().String(s))
	case models.FacetPinyin:
		return Pinyin(s)
	default:
		return n.meaning(s)
	}
}

// meaning drops parenthesized asides, case and redundant whitespace:
// "(To) Eat " and "eat" are the same answer.
func (n *Normalizer) meaning(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case depth > 0:
		default:
			b.WriteRune(r)
		}
	}
	s = strings.TrimRight(cases.Fold().String(b.String()), ".!?")
	return strings.Join(strings.Fields(s), " ")
}

var toneMarks = map[rune]byte{
	'\u0304': '1', // macron
	'\u0301': '2', // acute
	'\u030c': '3', // caron
	'\u0300': '4', // grave
}

// Pinyin reduces tone-marked ("nǐ hǎo") and tone-numbered ("ni3 hao3")
// spellings to one form: the toneless letters with ü written as v, a bar,
// then the tone digits in order. Neutral tones carry no digit.
func Pinyin(raw string) string {
	var letters, tones []byte
	for _, r := range norm.NFD.String(strings.ToLower(raw)) {
		switch {
		case r >= 'a' && r <= 'z':
			letters = append(letters, byte(r))
		case r == '\u0308' || r == ':':
			if n := len(letters); n > 0 && letters[n-1] == 'u' {
				letters[n-1] = 'v'
			}
		case r >= '1' && r <= '4':
			tones = append(tones, byte(r))
		default:
			if t, ok := toneMarks[r]; ok {
				tones = append(tones, t)
			}
		}
	}
	return string(letters) + "|" + string(tones)
}

// Romaji transliterates kana to Hepburn romaji. Latin input passes through
// lowercased; okurigana dots, affix dashes, apostrophes and spaces are dropped.
func Romaji(s string) string {
	rs := []rune(norm.NFC.String(s))
	var b strings.Builder
	double := false
	for i := 0; i < len(rs); i++ {
		r := toHiragana(rs[i])
		switch {
		case r == 'っ':
			double = true
			continue
		case r == 'ー':
			if out := b.String(); out != "" {
				b.WriteByte(out[len(out)-1])
			}
			continue
		case r == '.' || r == '-' || r == '\'' || r == '・' || unicode.IsSpace(r):
			continue
		}

		var syl string
		if i+1 < len(rs) {
			if s, ok := kana[string([]rune{r, toHiragana(rs[i+1])})]; ok {
				syl = s
				i++
			}
		}
		if syl == "" {
			if s, ok := kana[string(r)]; ok {
				syl = s
			} else {
				syl = string(unicode.ToLower(r))
			}
		}
		if double && syl != "" && !strings.ContainsRune("aeiou", rune(syl[0])) {
			if strings.HasPrefix(syl, "ch") {
				b.WriteByte('t')
			} else {
				b.WriteByte(syl[0])
			}
		}
		double = false
		b.WriteString(syl)
	}
	return b.String()
}

func toHiragana(r rune) rune {
	if r >= 'ァ' && r <= 'ヶ' {
		return r - ('ァ' - 'ぁ')
	}
	return r
}
