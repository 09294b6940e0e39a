package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/srsbot/internal/curriculum"
	"github.com/example/srsbot/internal/inmem"
	"github.com/example/srsbot/pkg/models"
)

type fakeNotifier struct {
	mu    sync.Mutex
	calls map[int64][]Due
	err   error
}

func (n *fakeNotifier) SendReminder(_ context.Context, userID int64, due []Due) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	if n.calls == nil {
		n.calls = make(map[int64][]Due)
	}
	n.calls[userID] = due
	return nil
}

func (n *fakeNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = nil
}

// 09:30 UTC, the default notification hour of a new learner.
var t0 = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func addUser(t *testing.T, store *inmem.Store, id int64, hour int, queues map[models.Track][]models.QueuedLesson) {
	t.Helper()
	p := models.NewProgression(id, t0)
	p.NotificationHour = hour
	p.Queues = queues
	require.NoError(t, store.CreateUser(context.Background(), p))
}

func lessons(kind models.Kind, due ...time.Duration) []models.QueuedLesson {
	out := make([]models.QueuedLesson, len(due))
	for i, d := range due {
		out[i] = models.QueuedLesson{Kind: kind, ItemID: string(rune('a' + i)), Mode: models.ModeReview, DueAt: t0.Add(d)}
	}
	return out
}

func newScheduler(store *inmem.Store, n Notifier, now *time.Time) *Scheduler {
	return New(curriculum.Default(), store, n, Config{Now: func() time.Time { return *now }})
}

func TestCheckAndSendReminders(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()
	addUser(t, store, 1, 9, map[models.Track][]models.QueuedLesson{
		curriculum.TrackJapanese: lessons(curriculum.Kanji, -time.Hour, 0, time.Hour),
		curriculum.TrackMandarin: lessons(curriculum.Hanzi, -time.Minute),
	})
	addUser(t, store, 2, 9, map[models.Track][]models.QueuedLesson{
		curriculum.TrackJapanese: lessons(curriculum.Kanji, time.Hour),
	})
	addUser(t, store, 3, 15, map[models.Track][]models.QueuedLesson{
		curriculum.TrackJapanese: lessons(curriculum.Kanji, -time.Hour),
	})

	n := &fakeNotifier{}
	now := t0
	s := newScheduler(store, n, &now)

	require.NoError(t, s.CheckAndSendReminders(ctx))
	require.Len(t, n.calls, 1, "only learners at their hour with due lessons")
	assert.Equal(t, []Due{
		{Track: curriculum.TrackJapanese, Name: "Japanese", Count: 2},
		{Track: curriculum.TrackMandarin, Name: "Mandarin (HSK)", Count: 1},
	}, n.calls[1])

	n.reset()
	now = t0.Add(10 * time.Minute)
	require.NoError(t, s.CheckAndSendReminders(ctx))
	assert.Empty(t, n.calls, "one reminder per day")

	now = t0.Add(24 * time.Hour)
	require.NoError(t, s.CheckAndSendReminders(ctx))
	assert.Contains(t, n.calls, int64(1))
	assert.Contains(t, n.calls, int64(2), "lesson became due overnight")
}

func TestCheckAndSendReminders_OutsideWindow(t *testing.T) {
	store := inmem.NewStore()
	addUser(t, store, 1, 23, map[models.Track][]models.QueuedLesson{
		curriculum.TrackJapanese: lessons(curriculum.Kanji, -time.Hour),
	})
	n := &fakeNotifier{}
	now := time.Date(2026, 3, 1, 23, 5, 0, 0, time.UTC)

	require.NoError(t, newScheduler(store, n, &now).CheckAndSendReminders(context.Background()))
	assert.Empty(t, n.calls)
}

func TestCheckAndSendReminders_FailedDeliveryRetries(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()
	addUser(t, store, 1, 9, map[models.Track][]models.QueuedLesson{
		curriculum.TrackJapanese: lessons(curriculum.Kanji, -time.Hour),
	})
	n := &fakeNotifier{err: errors.New("blocked by user")}
	now := t0
	s := newScheduler(store, n, &now)

	require.NoError(t, s.CheckAndSendReminders(ctx), "delivery errors are logged")

	n.err = nil
	now = t0.Add(20 * time.Minute)
	require.NoError(t, s.CheckAndSendReminders(ctx))
	assert.Contains(t, n.calls, int64(1))
}

func TestRunManualCheck(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()
	addUser(t, store, 1, 3, map[models.Track][]models.QueuedLesson{
		curriculum.TrackMandarin: lessons(curriculum.HSKVocab, -time.Hour, -time.Minute),
	})
	n := &fakeNotifier{}
	now := t0
	s := newScheduler(store, n, &now)

	want := []Due{{Track: curriculum.TrackMandarin, Name: "Mandarin (HSK)", Count: 2}}
	due, err := s.RunManualCheck(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, want, due)
	assert.Equal(t, want, n.calls[1])

	addUser(t, store, 2, 3, nil)
	due, err = s.RunManualCheck(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, due)
	assert.NotContains(t, n.calls, int64(2))

	_, err = s.RunManualCheck(ctx, 99)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
