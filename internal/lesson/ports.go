package lesson

import (
	"context"

	"github.com/example/srsbot/pkg/models"
)

// ContentRepository serves immutable content. Missing items and tiers are
// reported with models.ErrNotFound.
type ContentRepository interface {
	GetItem(ctx context.Context, kind models.Kind, id string) (models.ContentItem, error)
	TierMembers(ctx context.Context, kind models.Kind, tier int) ([]string, error)
}

// ProfileStore persists learner progressions. ApplyUserUpdate must apply the
// whole update or nothing.
type ProfileStore interface {
	GetUser(ctx context.Context, userID int64) (*models.Progression, error)
	CreateUser(ctx context.Context, p *models.Progression) error
	ApplyUserUpdate(ctx context.Context, userID int64, u *models.UserUpdate) error
	ListUserIDs(ctx context.Context) ([]int64, error)
}

// Normalizer canonicalizes answers before comparison.
type Normalizer interface {
	Normalize(kind models.Kind, facet models.Facet, raw string) string
}

// Presenter renders session events to the learner. Errors are logged by the
// service and never change session state.
type Presenter interface {
	PresentOverview(ctx context.Context, o Overview) error
	PresentTeach(ctx context.Context, item models.ContentItem) error
	PresentPrompt(ctx context.Context, p Prompt) error
	PresentResult(ctx context.Context, r Result) error
	PresentSummary(ctx context.Context, s Summary) error
	PresentFault(ctx context.Context, f Fault) error
}

// OverviewGroup lists the items of one kind in a session.
type OverviewGroup struct {
	Kind models.Kind
	Name string
	IDs  []string
}

// Overview is shown before the first item.
type Overview struct {
	Track       models.Track
	Groups      []OverviewGroup
	DueCount    int
	TotalQueued int
	Lookahead   bool
}

// Prompt asks one facet of an item.
type Prompt struct {
	Item  models.ContentItem
	Facet models.Facet
	Mode  models.Mode
}

// Result is the outcome of one graded answer.
type Result struct {
	Item     models.ContentItem
	Facet    models.Facet
	Given    string
	Correct  bool
	Solution []string // accepted answers, shown on a miss
	XP       int
	// Concluded is set when the answer finished the item's attempt. Level is
	// the level it reached.
	Concluded    bool
	Level        int
	Announcement string
}

// Summary closes a session.
type Summary struct {
	Track        models.Track
	Attempts     int
	Correct      int
	Accuracy     float64
	XPGained     int
	Bonus        int
	LevelsGained int
	Level        int
	XP           int
	XPMax        int
}

// Fault reports an item the session had to skip.
type Fault struct {
	Ref    models.ItemRef
	Reason string
}
