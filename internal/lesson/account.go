package lesson

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/srsbot/internal/curriculum"
	"github.com/example/srsbot/internal/queue"
	"github.com/example/srsbot/pkg/models"
)

// skipLevel is where SkipTier puts the items of a skipped tier: one correct
// review short of mastery.
const skipLevel = 4

// Register creates a learner. The daily bonus is available immediately.
func (s *Service) Register(ctx context.Context, userID int64) (*models.Progression, error) {
	p := models.NewProgression(userID, s.now())
	err := s.store.CreateUser(ctx, p)
	if errors.Is(err, models.ErrAlreadyExists) {
		return nil, fmt.Errorf("%w: %d", ErrUserExists, userID)
	}
	if err != nil {
		return nil, storeWriteError(err)
	}
	s.logger.Info("user registered", "user", userID)
	return p, nil
}

// InitTrack starts track for the learner: tier 1 of the entry kind is queued
// for teaching and the counters of the other kinds point at their tier 1.
func (s *Service) InitTrack(ctx context.Context, userID int64, track models.Track) error {
	spec, err := s.registry.Track(track)
	if err != nil {
		return err
	}
	unlock := s.sessions.lock(userID)
	defer unlock()

	p, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	entry := spec.Entry()
	if p.Next[entry] > 0 {
		return fmt.Errorf("%w: %s", ErrTrackInitialized, track)
	}

	now := s.now()
	update := models.NewUserUpdate()
	for _, k := range spec.Kinds {
		update.Next[k] = 1
	}
	update.Next[entry] = 2

	ids, err := s.content.TierMembers(ctx, entry, 1)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("lesson: members of %s tier 1: %w", entry, err)
	}
	var entries []models.QueuedLesson
	for _, id := range ids {
		update.SetRecord(models.ItemRef{Kind: entry, ID: id}, models.SRSRecord{})
		entries = append(entries, models.QueuedLesson{Kind: entry, ItemID: id, Mode: models.ModeTeach, DueAt: now})
	}
	update.Queues[track] = queue.Upsert(p.Queues[track], entries...)

	// An empty first tier is already mastered.
	if _, _, err := s.advanceStage(ctx, p, update, entry, now); err != nil {
		return err
	}
	if err := s.store.ApplyUserUpdate(ctx, userID, update); err != nil {
		return storeWriteError(err)
	}
	s.logger.Info("track initialized", "user", userID, "track", track, "items", len(ids))
	return nil
}

// SkipTier lets a learner who already knows the most recently unlocked tier
// of kind jump its items to level 4, due for review now. It returns the
// number of items moved.
func (s *Service) SkipTier(ctx context.Context, userID int64, kind models.Kind, tier int) (int, error) {
	track, err := s.registry.TrackOf(kind)
	if err != nil {
		return 0, err
	}
	unlock := s.sessions.lock(userID)
	defer unlock()

	if _, ok := s.sessions.get(userID); ok {
		return 0, ErrSessionActive
	}
	p, err := s.loadUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if p.Next[kind] == 0 {
		return 0, fmt.Errorf("%w: %s", ErrTrackNotInitialized, track)
	}
	if latest := p.Next[kind] - 1; tier != latest {
		return 0, fmt.Errorf("%w: %s tier %d, only tier %d can be skipped", ErrTierNotUnlocked, kind, tier, latest)
	}
	ids, err := s.content.TierMembers(ctx, kind, tier)
	if err != nil {
		return 0, fmt.Errorf("lesson: members of %s tier %d: %w", kind, tier, err)
	}

	now := s.now()
	update := models.NewUserUpdate()
	entries := make([]models.QueuedLesson, 0, len(ids))
	for _, id := range ids {
		update.SetRecord(models.ItemRef{Kind: kind, ID: id}, models.SRSRecord{Level: skipLevel, LevelOld: skipLevel})
		entries = append(entries, models.QueuedLesson{Kind: kind, ItemID: id, Mode: models.ModeReview, DueAt: now})
	}
	update.Queues[track] = queue.Upsert(p.Queues[track], entries...)
	if err := s.store.ApplyUserUpdate(ctx, userID, update); err != nil {
		return 0, storeWriteError(err)
	}
	s.logger.Info("tier skipped", "user", userID, "kind", kind, "tier", tier, "items", len(ids))
	return len(ids), nil
}

// SetNotificationHour moves the learner's daily reminder to hour (UTC).
func (s *Service) SetNotificationHour(ctx context.Context, userID int64, hour int) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("%w: %d", ErrInvalidHour, hour)
	}
	unlock := s.sessions.lock(userID)
	defer unlock()

	if _, err := s.loadUser(ctx, userID); err != nil {
		return err
	}
	if err := s.store.ApplyUserUpdate(ctx, userID, &models.UserUpdate{NotificationHour: &hour}); err != nil {
		return storeWriteError(err)
	}
	return nil
}

// ItemLevel is one item of a milestone.
type ItemLevel struct {
	ID        string
	Level     int
	LevelName string
}

// Milestone is the latest unlocked tier of a kind.
type Milestone struct {
	Kind  models.Kind
	Name  string
	Tier  int
	Stage string
	Items []ItemLevel
}

// TrackProgress groups the milestones of one started track.
type TrackProgress struct {
	Track      models.Track
	Name       string
	Milestones []Milestone
}

// Profile is the learner overview.
type Profile struct {
	UserID      int64
	Level       int
	XP          int
	XPMax       int
	ToNextLevel int
	Tracks      []TrackProgress
}

// Profile reports the learner's level and, per started track, the items of
// the latest unlocked tier of every kind.
func (s *Service) Profile(ctx context.Context, userID int64) (Profile, error) {
	p, err := s.loadUser(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	out := Profile{
		UserID:      userID,
		Level:       p.Level,
		XP:          p.XP,
		XPMax:       p.XPMax,
		ToNextLevel: p.XPMax - p.XP,
	}
	for _, track := range s.registry.Tracks() {
		if p.Next[track.Entry()] == 0 {
			continue
		}
		tp := TrackProgress{Track: track.Track, Name: track.Name}
		for _, kind := range track.Kinds {
			m, ok, err := s.milestone(ctx, p, kind)
			if err != nil {
				return Profile{}, err
			}
			if ok {
				tp.Milestones = append(tp.Milestones, m)
			}
		}
		out.Tracks = append(out.Tracks, tp)
	}
	return out, nil
}

func (s *Service) milestone(ctx context.Context, p *models.Progression, kind models.Kind) (Milestone, bool, error) {
	tier := p.Next[kind] - 1
	if tier < 1 {
		return Milestone{}, false, nil
	}
	m := Milestone{Kind: kind, Name: string(kind), Tier: tier, Stage: curriculum.TierLabel(tier)}
	if spec, err := s.registry.Kind(kind); err == nil {
		m.Name = spec.Name
	}
	ids, err := s.content.TierMembers(ctx, kind, tier)
	if errors.Is(err, models.ErrNotFound) {
		return m, true, nil
	}
	if err != nil {
		return Milestone{}, false, fmt.Errorf("lesson: members of %s tier %d: %w", kind, tier, err)
	}
	for _, id := range ids {
		rec, _ := p.Record(models.ItemRef{Kind: kind, ID: id})
		m.Items = append(m.Items, ItemLevel{ID: id, Level: rec.Level, LevelName: curriculum.LevelName(rec.Level)})
	}
	return m, true, nil
}

// Progress returns the learner's record for one item and whether it exists.
func (s *Service) Progress(ctx context.Context, userID int64, kind models.Kind, id string) (models.SRSRecord, bool, error) {
	if _, err := s.registry.Kind(kind); err != nil {
		return models.SRSRecord{}, false, err
	}
	p, err := s.loadUser(ctx, userID)
	if err != nil {
		return models.SRSRecord{}, false, err
	}
	rec, ok := p.Record(models.ItemRef{Kind: kind, ID: id})
	return rec, ok, nil
}
