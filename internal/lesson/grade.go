package lesson

import (
	"context"
	"fmt"
	"time"

	"github.com/example/srsbot/internal/metrics"
	"github.com/example/srsbot/internal/queue"
	"github.com/example/srsbot/internal/spaced_repetition"
	"github.com/example/srsbot/pkg/models"
)

// grade checks the answer to the current prompt and persists the outcome in
// one store update. The session is only changed once the write succeeded.
func (s *Service) grade(ctx context.Context, sess *Session, in Input) (bool, error) {
	start := time.Now()
	e := sess.head()
	if e == nil {
		return false, fmt.Errorf("lesson: session %s has no current item", sess.ID)
	}
	item := sess.current
	if item == nil {
		loaded, err := s.content.GetItem(ctx, e.Lesson.Kind, e.Lesson.ItemID)
		if err != nil {
			return false, fmt.Errorf("lesson: load %s: %w", e.Ref(), err)
		}
		item = &loaded
	}
	spec, err := s.registry.Kind(item.Kind)
	if err != nil {
		return false, err
	}

	accepted := item.Answers[e.Asked]
	given := s.normalizer.Normalize(item.Kind, e.Asked, in.Answer)
	normalized := make([]string, 0, len(accepted))
	for _, a := range accepted {
		normalized = append(normalized, s.normalizer.Normalize(item.Kind, e.Asked, a))
	}
	correct := spec.Accepts(given, normalized)

	p, err := s.loadUser(ctx, sess.UserID)
	if err != nil {
		return false, err
	}
	now := s.now()
	ref := e.Ref()
	rec, ok := p.Record(ref)
	if !ok {
		s.logger.Warn("graded item has no srs record, starting from zero", "user", sess.UserID, "item", ref.String())
	}

	update := models.NewUserUpdate()
	res := Result{Item: *item, Facet: e.Asked, Given: in.Answer, Correct: correct}
	var (
		ups        int
		nextFacets []models.Facet
		nextAsked  models.Facet
		unlocked   []models.Kind
	)
	if correct {
		res.XP = s.rollXP()
		meter := spaced_repetition.Meter{XP: p.XP, XPMax: p.XPMax, Level: p.Level}
		ups = meter.Gain(res.XP)
		update.SetXP(meter.XP, meter.XPMax, meter.Level)

		if nextFacets = withoutFacet(e.Facets, e.Asked); len(nextFacets) > 0 {
			nextAsked = s.pickFacet(nextFacets)
		} else {
			level := s.leveler.NextLevel(rec, !e.Missed)
			update.SetRecord(ref, models.SRSRecord{Level: level, LevelOld: level})
			q, _ := queue.Remove(p.Queues[sess.Track], ref)
			if next, ok := s.leveler.Reschedule(ref, level, now); ok {
				q = queue.Upsert(q, next)
			}
			update.Queues[sess.Track] = q
			res.Concluded, res.Level = true, level

			if level == s.leveler.MasteryThreshold {
				announcement, kinds, err := s.advanceStage(ctx, p, update, ref.Kind, now)
				if err != nil {
					return false, err
				}
				res.Announcement, unlocked = announcement, kinds
			}
		}
	} else {
		rec.Incorrect++
		rec.Level = s.leveler.NextLevel(rec, false)
		update.SetRecord(ref, rec)
		res.Solution = append([]string(nil), accepted...)
		res.Level = rec.Level
	}

	if err := s.store.ApplyUserUpdate(ctx, sess.UserID, update); err != nil {
		metrics.StoreWriteFailures.Inc()
		s.logger.Error("grade write failed", "user", sess.UserID, "item", ref.String(), "paths", update.Paths(), "error", err)
		return false, storeWriteError(err)
	}

	sess.stats.Attempts++
	sess.current = nil
	sess.state = StateReviewGrade
	switch {
	case !correct:
		e.Missed = true
		sess.entries = s.requeue(sess.entries)
		metrics.Answers.WithLabelValues(string(ref.Kind), "incorrect").Inc()
	case res.Concluded:
		sess.dropHead()
	default:
		e.Facets, e.Asked = nextFacets, nextAsked
		sess.entries = s.requeue(sess.entries)
	}
	if correct {
		sess.stats.Correct++
		sess.stats.XPGained += res.XP
		sess.stats.LevelsGained += ups
		metrics.Answers.WithLabelValues(string(ref.Kind), "correct").Inc()
	}
	for _, k := range unlocked {
		metrics.TiersUnlocked.WithLabelValues(string(k)).Inc()
	}
	metrics.GradeLatency.Observe(time.Since(start).Seconds())
	s.logger.Debug("answer graded", "user", sess.UserID, "item", ref.String(), "facet", e.Asked, "correct", correct, "level", res.Level)

	s.presented(sess, "result", sess.presenter.PresentResult(ctx, res))
	return correct, nil
}

// advanceStage runs the stage gate against the progression as it will be
// after update and folds whatever it unlocks into update.
func (s *Service) advanceStage(ctx context.Context, p *models.Progression, update *models.UserUpdate, kind models.Kind, now time.Time) (string, []models.Kind, error) {
	work := p.Clone()
	work.Apply(update)
	res, err := s.unlocker.TryAdvance(ctx, kind, work, now)
	if err != nil {
		return "", nil, fmt.Errorf("lesson: stage gate for %s: %w", kind, err)
	}
	if !res.Advanced {
		return "", nil, nil
	}
	for ref, rec := range res.Records {
		update.SetRecord(ref, rec)
	}
	for k, tier := range res.Next {
		update.Next[k] = tier
	}
	byTrack := make(map[models.Track][]models.QueuedLesson)
	for _, l := range res.Entries {
		track, err := s.registry.TrackOf(l.Kind)
		if err != nil {
			return "", nil, err
		}
		byTrack[track] = append(byTrack[track], l)
	}
	for track, entries := range byTrack {
		update.Queues[track] = queue.Upsert(work.Queues[track], entries...)
	}
	s.logger.Info("stage advanced", "user", p.UserID, "kind", kind, "unlocked", res.Unlocked)
	return res.Announcement, res.Unlocked, nil
}
