// Package stagegate opens new content tiers once the tier gating them is
// mastered.
package stagegate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/srsbot/internal/curriculum"
	"github.com/example/srsbot/pkg/models"
)

// DefaultMaxChain bounds the number of gate checks one grading event may run.
const DefaultMaxChain = 16

// TierSource lists the members of a content tier. A tier that does not exist
// yields models.ErrNotFound; an existing tier may be empty.
type TierSource interface {
	TierMembers(ctx context.Context, kind models.Kind, tier int) ([]string, error)
}

// Result is what one TryAdvance call unlocked. The caller merges it into
// the same store update as the grading event that triggered it.
type Result struct {
	Advanced     bool
	Records      map[models.ItemRef]models.SRSRecord
	Entries      []models.QueuedLesson
	Next         map[models.Kind]int
	Unlocked     []models.Kind // one element per opened tier, in order
	Announcement string
}

// Unlocker walks the prerequisite graph of a curriculum.
type Unlocker struct {
	registry  *curriculum.Registry
	content   TierSource
	threshold int
	maxChain  int
	logger    *slog.Logger
}

// NewUnlocker returns an unlocker that treats records at or above threshold
// as mastered.
func NewUnlocker(registry *curriculum.Registry, content TierSource, threshold int, logger *slog.Logger) *Unlocker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Unlocker{
		registry:  registry,
		content:   content,
		threshold: threshold,
		maxChain:  DefaultMaxChain,
		logger:    logger,
	}
}

// TryAdvance checks whether the tier of kind gating its dependent is fully
// mastered in p and, if so, opens the dependent tier plus the seeded tiers.
// Every freshly opened tier is checked again in turn, so an empty tier
// immediately opens whatever it gates. p is not modified. Only repository
// failures are returned; a tier that is not ready simply yields a result
// with Advanced false.
func (u *Unlocker) TryAdvance(ctx context.Context, kind models.Kind, p *models.Progression, now time.Time) (Result, error) {
	work := p.Clone()
	res := Result{
		Records: make(map[models.ItemRef]models.SRSRecord),
		Next:    make(map[models.Kind]int),
	}
	var lines []string

	pending := []models.Kind{kind}
	for steps := 0; len(pending) > 0 && steps < u.maxChain; steps++ {
		gate := pending[0]
		pending = pending[1:]

		spec, err := u.registry.Kind(gate)
		if err != nil || spec.Unlocks == "" {
			continue
		}
		tier := work.Next[spec.Unlocks]
		if tier <= 0 {
			continue
		}
		ready, err := u.mastered(ctx, work, gate, tier)
		if err != nil {
			return Result{}, err
		}
		if !ready {
			continue
		}

		var opened []models.Kind
		for _, target := range append([]models.Kind{spec.Unlocks}, spec.Seeds...) {
			ok, err := u.open(ctx, work, &res, target, now)
			if err != nil {
				return Result{}, err
			}
			if ok {
				opened = append(opened, target)
			}
		}
		if len(opened) == 0 {
			continue
		}
		res.Advanced = true
		res.Unlocked = append(res.Unlocked, opened...)
		pending = append(pending, opened...)
		lines = append(lines, u.announce(spec, tier, opened))
		u.logger.Info("tier passed", "user", p.UserID, "kind", gate, "tier", tier, "opened", opened)
	}
	if len(pending) > 0 {
		u.logger.Warn("unlock chain truncated", "user", p.UserID, "kind", kind, "pending", pending)
	}
	res.Announcement = strings.Join(lines, "\n")
	return res, nil
}

// mastered reports whether every member of the tier has a record at or above
// the threshold. A missing tier is not mastered.
func (u *Unlocker) mastered(ctx context.Context, p *models.Progression, kind models.Kind, tier int) (bool, error) {
	ids, err := u.content.TierMembers(ctx, kind, tier)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stagegate: members of %s tier %d: %w", kind, tier, err)
	}
	for _, id := range ids {
		rec, ok := p.Record(models.ItemRef{Kind: kind, ID: id})
		if !ok || rec.Level < u.threshold {
			return false, nil
		}
	}
	return true, nil
}

// open materializes the next tier of kind into p and res. It reports false
// when the content runs out.
func (u *Unlocker) open(ctx context.Context, p *models.Progression, res *Result, kind models.Kind, now time.Time) (bool, error) {
	tier := p.Next[kind]
	if tier <= 0 {
		return false, nil
	}
	ids, err := u.content.TierMembers(ctx, kind, tier)
	if errors.Is(err, models.ErrNotFound) {
		u.logger.Debug("no content for tier", "kind", kind, "tier", tier)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stagegate: members of %s tier %d: %w", kind, tier, err)
	}
	for _, id := range ids {
		ref := models.ItemRef{Kind: kind, ID: id}
		p.Records[ref] = models.SRSRecord{}
		res.Records[ref] = models.SRSRecord{}
		res.Entries = append(res.Entries, models.QueuedLesson{
			Kind:   kind,
			ItemID: id,
			Mode:   models.ModeTeach,
			DueAt:  now,
		})
	}
	p.Next[kind] = tier + 1
	res.Next[kind] = tier + 1
	return true, nil
}

func (u *Unlocker) announce(gate curriculum.KindSpec, tier int, opened []models.Kind) string {
	names := make([]string, 0, len(opened))
	for _, k := range opened {
		name := string(k)
		if spec, err := u.registry.Kind(k); err == nil {
			name = strings.ToLower(spec.Plural)
		}
		names = append(names, name)
	}
	return fmt.Sprintf("You passed Stage %s %s! (New %s unlocked!)", curriculum.TierLabel(tier), gate.Plural, joinAnd(names))
}

func joinAnd(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}
