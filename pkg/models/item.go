package models

// Kind is a category of learnable content within a track (radical, kanji, ...).
type Kind string

// Track is a parallel progression pipeline, one per language being studied.
type Track string

// Facet is an askable attribute of an item.
type Facet string

const (
	FacetMeaning Facet = "meaning"
	FacetReading Facet = "reading"
	FacetOnyomi  Facet = "onyomi"
	FacetKunyomi Facet = "kunyomi"
	FacetPinyin  Facet = "pinyin"
)

// ItemRef identifies a content item.
type ItemRef struct {
	Kind Kind   `json:"kind" db:"kind"`
	ID   string `json:"id" db:"item_id"`
}

func (r ItemRef) String() string {
	return string(r.Kind) + "." + r.ID
}

// ContentItem is an immutable piece of learnable content.
type ContentItem struct {
	Kind    Kind               `json:"kind"`
	ID      string             `json:"id"`
	Tier    int                `json:"tier"`
	Answers map[Facet][]string `json:"answers"` // accepted answers per facet
	Details map[string]string  `json:"details"` // display-only fields (mnemonic, examples, radical...)
}

// Ref returns the identity of the item.
func (c ContentItem) Ref() ItemRef {
	return ItemRef{Kind: c.Kind, ID: c.ID}
}

// HasFacet reports whether the item carries at least one accepted answer for f.
func (c ContentItem) HasFacet(f Facet) bool {
	for _, a := range c.Answers[f] {
		if a != "" {
			return true
		}
	}
	return false
}
