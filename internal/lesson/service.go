// Package lesson runs lesson sessions: it selects due items, teaches and
// reviews them, grades answers and persists the resulting progression.
package lesson

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/srsbot/internal/curriculum"
	"github.com/example/srsbot/internal/metrics"
	"github.com/example/srsbot/internal/queue"
	"github.com/example/srsbot/internal/spaced_repetition"
	"github.com/example/srsbot/internal/stagegate"
	"github.com/example/srsbot/pkg/models"
)

// DefaultCapacity is the weight budget of a session when none is given.
const DefaultCapacity = 20

// bonusWindow is how long a daily bonus blocks the next one.
const bonusWindow = 24 * time.Hour

// Config tunes a Service. Zero fields take defaults.
type Config struct {
	Capacity int
	Leveler  *spaced_repetition.Leveler
	Now      func() time.Time
	Rand     *rand.Rand
	Logger   *slog.Logger
}

// StartOptions override the session defaults.
type StartOptions struct {
	Capacity  int  // weight budget; DefaultCapacity or the configured one when <= 0
	Lookahead bool // include items due within the next 24 hours
}

// Service owns the live sessions and drives their state machine.
type Service struct {
	registry   *curriculum.Registry
	content    ContentRepository
	store      ProfileStore
	normalizer Normalizer
	leveler    *spaced_repetition.Leveler
	unlocker   *stagegate.Unlocker
	capacity   int
	now        func() time.Time
	logger     *slog.Logger
	sessions   *sessions

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewService wires a Service.
func NewService(registry *curriculum.Registry, content ContentRepository, store ProfileStore, normalizer Normalizer, cfg Config) (*Service, error) {
	if cfg.Leveler == nil {
		cfg.Leveler = spaced_repetition.NewLeveler()
	}
	if err := cfg.Leveler.Validate(); err != nil {
		return nil, err
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	logger := cfg.Logger.With("component", "lesson")
	return &Service{
		registry:   registry,
		content:    content,
		store:      store,
		normalizer: normalizer,
		leveler:    cfg.Leveler,
		unlocker:   stagegate.NewUnlocker(registry, content, cfg.Leveler.MasteryThreshold, logger),
		capacity:   cfg.Capacity,
		now:        cfg.Now,
		logger:     logger,
		sessions:   newSessions(),
		rng:        cfg.Rand,
	}, nil
}

// DueSummary reports how much of the track is due now.
func (s *Service) DueSummary(ctx context.Context, userID int64, track models.Track) (queue.Summary, error) {
	if _, err := s.registry.Track(track); err != nil {
		return queue.Summary{}, err
	}
	p, err := s.loadUser(ctx, userID)
	if err != nil {
		return queue.Summary{}, err
	}
	return queue.Summarize(p.Queues[track], s.now()), nil
}

// ActiveSession returns the live session of userID, if any.
func (s *Service) ActiveSession(userID int64) (*Session, bool) {
	return s.sessions.get(userID)
}

// ActiveSessions returns the number of live sessions.
func (s *Service) ActiveSessions() int {
	return s.sessions.count()
}

// StartSession selects the due items of track and shows the overview. The
// returned session waits for an acknowledgement before the first item.
func (s *Service) StartSession(ctx context.Context, userID int64, track models.Track, presenter Presenter, opts StartOptions) (*Session, error) {
	trackSpec, err := s.registry.Track(track)
	if err != nil {
		return nil, err
	}
	unlock := s.sessions.lock(userID)
	defer unlock()

	if _, ok := s.sessions.get(userID); ok {
		return nil, ErrSessionActive
	}
	p, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	budget := opts.Capacity
	if budget <= 0 {
		budget = s.capacity
	}
	now := s.now()
	q := queue.Sort(p.Queues[track])
	summary := queue.Summarize(q, now)
	selected := queue.SelectDue(q, budget, now, opts.Lookahead, s.registry.Weight)
	if len(selected) == 0 {
		return nil, &NothingDueError{NextDueAt: summary.NextDueAt}
	}

	s.rngMu.Lock()
	entries := InitialOrder(selected, s.rng)
	s.rngMu.Unlock()

	sess := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Track:     track,
		StartedAt: now,
		Lookahead: opts.Lookahead,
		state:     StateNotStarted,
		entries:   entries,
		presenter: presenter,
	}
	s.sessions.put(sess)
	metrics.SessionsStarted.WithLabelValues(string(track), strconv.FormatBool(opts.Lookahead)).Inc()
	metrics.ActiveSessions.Inc()
	s.logger.Info("session started", "user", userID, "track", track, "session", sess.ID, "items", len(entries))

	overview := Overview{
		Track:       track,
		Groups:      s.groups(trackSpec, selected),
		DueCount:    summary.DueCount,
		TotalQueued: summary.TotalQueued,
		Lookahead:   opts.Lookahead,
	}
	s.presented(sess, "overview", presenter.PresentOverview(ctx, overview))
	return sess, nil
}

func (s *Service) groups(track curriculum.TrackSpec, selected []models.QueuedLesson) []OverviewGroup {
	var out []OverviewGroup
	for _, kind := range track.Kinds {
		g := OverviewGroup{Kind: kind, Name: string(kind)}
		if spec, err := s.registry.Kind(kind); err == nil {
			g.Name = spec.Plural
		}
		for _, l := range selected {
			if l.Kind == kind {
				g.IDs = append(g.IDs, l.ItemID)
			}
		}
		if len(g.IDs) > 0 {
			out = append(out, g)
		}
	}
	return out
}

// AdvanceSession feeds one learner input into the session and returns the
// state it settled in. On a retryable error the session is unchanged and
// the same input may be sent again. An answer outside a prompt, or an ack
// while a prompt waits, fails with ErrUnexpectedInput and changes nothing.
func (s *Service) AdvanceSession(ctx context.Context, sess *Session, in Input) (State, error) {
	unlock := s.sessions.lock(sess.UserID)
	defer unlock()

	if sess.state.Done() {
		return sess.state, ErrSessionClosed
	}
	if cur, ok := s.sessions.get(sess.UserID); !ok || cur != sess {
		return sess.state, ErrNoSession
	}

	// Only a prompt takes an answer and only a prompt refuses an ack. A stale
	// button press or text sent after a result leaves the session alone.
	if in.Ack == (sess.state == StateReviewPrompt) {
		return sess.state, fmt.Errorf("%w: %s in state %s", ErrUnexpectedInput, in.kind(), sess.state)
	}
	if sess.state == StateReviewPrompt {
		correct, err := s.grade(ctx, sess, in)
		if err != nil || !correct {
			return sess.state, err
		}
	}
	err := s.advance(ctx, sess)
	return sess.state, err
}

// AbortSession discards the session. Progress already persisted stays; the
// item in flight is left untouched.
func (s *Service) AbortSession(_ context.Context, sess *Session) error {
	unlock := s.sessions.lock(sess.UserID)
	defer unlock()

	if sess.state.Done() {
		return ErrSessionClosed
	}
	if !s.sessions.remove(sess) {
		return ErrNoSession
	}
	sess.state = StateAborted
	metrics.ActiveSessions.Dec()
	metrics.SessionsFinished.WithLabelValues(string(sess.Track), "aborted").Inc()
	s.logger.Info("session aborted", "user", sess.UserID, "session", sess.ID, "remaining", len(sess.entries))
	return nil
}

// advance moves to the next item, or completes the session when the working
// set is empty.
func (s *Service) advance(ctx context.Context, sess *Session) error {
	for {
		e := sess.head()
		if e == nil {
			return s.complete(ctx, sess)
		}
		item, err := s.content.GetItem(ctx, e.Lesson.Kind, e.Lesson.ItemID)
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Warn("queued item has no content, skipping", "user", sess.UserID, "item", e.Ref().String())
			sess.dropHead()
			continue
		}
		if err != nil {
			return fmt.Errorf("lesson: load %s: %w", e.Ref(), err)
		}

		if e.Lesson.Mode == models.ModeTeach {
			s.presented(sess, "teach", sess.presenter.PresentTeach(ctx, item))
			e.Lesson.Mode = models.ModeReview
			sess.entries = MoveToBack(sess.entries)
			sess.current = nil
			sess.state = StateTeach
			return nil
		}

		if e.Facets == nil {
			e.Facets = s.askable(item)
			if len(e.Facets) == 0 {
				s.presented(sess, "fault", sess.presenter.PresentFault(ctx, Fault{Ref: e.Ref(), Reason: "no askable facet"}))
				s.logger.Warn("item has no askable facet, skipping", "user", sess.UserID, "item", e.Ref().String())
				sess.dropHead()
				continue
			}
			e.Asked = s.pickFacet(e.Facets)
		}
		sess.current = &item
		s.presented(sess, "prompt", sess.presenter.PresentPrompt(ctx, Prompt{Item: item, Facet: e.Asked, Mode: e.Lesson.Mode}))
		sess.state = StateReviewPrompt
		return nil
	}
}

// askable lists the facets the item's kind tests for this item.
func (s *Service) askable(item models.ContentItem) []models.Facet {
	spec, err := s.registry.Kind(item.Kind)
	if err != nil {
		return nil
	}
	return spec.AskableFacets(item)
}

func (s *Service) complete(ctx context.Context, sess *Session) error {
	p, err := s.loadUser(ctx, sess.UserID)
	if err != nil {
		return err
	}
	now := s.now()
	meter := spaced_repetition.Meter{XP: p.XP, XPMax: p.XPMax, Level: p.Level}
	bonus, ups := 0, 0
	if sess.stats.XPGained > 0 && !now.Before(p.NextBonus) {
		bonus = spaced_repetition.DailyBonus(sess.stats.XPGained)
		ups = meter.Gain(bonus)
		next := now.Add(bonusWindow)
		update := models.NewUserUpdate()
		update.SetXP(meter.XP, meter.XPMax, meter.Level)
		update.NextBonus = &next
		if err := s.store.ApplyUserUpdate(ctx, sess.UserID, update); err != nil {
			metrics.StoreWriteFailures.Inc()
			s.logger.Error("daily bonus write failed", "user", sess.UserID, "error", err)
			return storeWriteError(err)
		}
	}

	sess.stats.LevelsGained += ups
	sess.state = StateComplete
	s.sessions.remove(sess)
	metrics.ActiveSessions.Dec()
	metrics.SessionsFinished.WithLabelValues(string(sess.Track), "complete").Inc()
	s.logger.Info("session complete", "user", sess.UserID, "session", sess.ID,
		"attempts", sess.stats.Attempts, "correct", sess.stats.Correct, "xp", sess.stats.XPGained, "bonus", bonus)

	summary := Summary{
		Track:        sess.Track,
		Attempts:     sess.stats.Attempts,
		Correct:      sess.stats.Correct,
		Accuracy:     sess.stats.Accuracy(),
		XPGained:     sess.stats.XPGained,
		Bonus:        bonus,
		LevelsGained: sess.stats.LevelsGained,
		Level:        meter.Level,
		XP:           meter.XP,
		XPMax:        meter.XPMax,
	}
	s.presented(sess, "summary", sess.presenter.PresentSummary(ctx, summary))
	return nil
}

func (s *Service) loadUser(ctx context.Context, userID int64) (*models.Progression, error) {
	p, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownUser, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("lesson: load user %d: %w", userID, err)
	}
	return p, nil
}

func (s *Service) presented(sess *Session, what string, err error) {
	if err != nil {
		s.logger.Warn("presenter failed", "user", sess.UserID, "event", what, "error", err)
	}
}

func (s *Service) pickFacet(facets []models.Facet) models.Facet {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return pickFacet(facets, s.rng)
}

func (s *Service) requeue(entries []*Entry) []*Entry {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return Requeue(entries, s.rng)
}

func (s *Service) rollXP() int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return spaced_repetition.CorrectAnswerXP(s.rng)
}
