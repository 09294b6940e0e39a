// Package scheduler sends periodic due-lesson reminders.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"golang.org/x/sync/errgroup"

	"github.com/example/srsbot/internal/curriculum"
	"github.com/example/srsbot/internal/metrics"
	"github.com/example/srsbot/internal/queue"
	"github.com/example/srsbot/pkg/models"
)

// Default notification settings
const (
	DefaultNotificationStartHour = 8  // first hour reminders may go out
	DefaultNotificationEndHour   = 22 // reminders stop at this hour
	DefaultInterval              = time.Hour

	// remindGap keeps a learner at one reminder per day.
	remindGap = 23 * time.Hour
	fanOut    = 8
)

// Due is the reminder payload for one track.
type Due struct {
	Track models.Track
	Name  string
	Count int
}

// Notifier delivers reminders.
type Notifier interface {
	SendReminder(ctx context.Context, userID int64, due []Due) error
}

// Store is the part of the profile store the scheduler reads.
type Store interface {
	ListUserIDs(ctx context.Context) ([]int64, error)
	GetUser(ctx context.Context, userID int64) (*models.Progression, error)
}

// Config tunes a Scheduler. Zero fields take defaults.
type Config struct {
	StartHour int
	EndHour   int
	Interval  time.Duration
	Now       func() time.Time
	Logger    *slog.Logger
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	registry  *curriculum.Registry
	store     Store
	notifier  Notifier
	cfg       Config
	logger    *slog.Logger

	mu   sync.Mutex
	sent map[int64]time.Time
}

// New creates a new scheduler instance
func New(registry *curriculum.Registry, store Store, notifier Notifier, cfg Config) *Scheduler {
	if cfg.StartHour == 0 && cfg.EndHour == 0 {
		cfg.StartHour, cfg.EndHour = DefaultNotificationStartHour, DefaultNotificationEndHour
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		registry:  registry,
		store:     store,
		notifier:  notifier,
		cfg:       cfg,
		logger:    cfg.Logger.With("component", "scheduler"),
		sent:      make(map[int64]time.Time),
	}
}

// Start begins running all scheduled tasks. The jobs stop when ctx is done
// or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.scheduler.Every(s.cfg.Interval).Do(func() {
		if err := s.CheckAndSendReminders(ctx); err != nil {
			s.logger.Error("reminder run failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule reminders: %w", err)
	}
	s.scheduler.StartAsync()
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// CheckAndSendReminders reminds every learner whose notification hour is the
// current hour and who has due lessons. Outside the notification window it
// does nothing.
func (s *Scheduler) CheckAndSendReminders(ctx context.Context) error {
	now := s.cfg.Now().UTC()
	hour := now.Hour()
	if hour < s.cfg.StartHour || hour >= s.cfg.EndHour {
		s.logger.Debug("outside notification hours, skipping reminders",
			"hour", hour, "start", s.cfg.StartHour, "end", s.cfg.EndHour)
		return nil
	}

	ids, err := s.store.ListUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOut)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			p, err := s.store.GetUser(gctx, id)
			if err != nil {
				s.logger.Warn("load user for reminder", "user", id, "error", err)
				return nil
			}
			if p.NotificationHour != hour || !s.due(id, now) {
				return nil
			}
			if _, err := s.remind(gctx, p, now); err != nil {
				s.logger.Warn("send reminder", "user", id, "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// RunManualCheck reminds one learner now, ignoring the notification window
// and the daily gap. It returns what was due; nothing is sent when that is
// empty.
func (s *Scheduler) RunManualCheck(ctx context.Context, userID int64) ([]Due, error) {
	p, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.remind(ctx, p, s.cfg.Now())
}

// DueLessons returns the tracks of p with lessons due at now.
func (s *Scheduler) DueLessons(p *models.Progression, now time.Time) []Due {
	var out []Due
	for _, track := range s.registry.Tracks() {
		sum := queue.Summarize(p.Queues[track.Track], now)
		if sum.DueCount > 0 {
			out = append(out, Due{Track: track.Track, Name: track.Name, Count: sum.DueCount})
		}
	}
	return out
}

func (s *Scheduler) remind(ctx context.Context, p *models.Progression, now time.Time) ([]Due, error) {
	due := s.DueLessons(p, now)
	if len(due) == 0 {
		return nil, nil
	}
	if err := s.notifier.SendReminder(ctx, p.UserID, due); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.sent[p.UserID] = now
	s.mu.Unlock()
	for _, d := range due {
		metrics.RemindersSent.WithLabelValues(string(d.Track)).Inc()
	}
	return due, nil
}

func (s *Scheduler) due(userID int64, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.sent[userID]
	return !ok || now.Sub(last) >= remindGap
}
