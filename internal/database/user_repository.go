package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/srsbot/pkg/models"
)

// UserRepository stores learner progressions. It implements the profile
// store of the lesson service; every update runs in one transaction.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new repository instance
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetUser loads the whole progression of a user.
func (r *UserRepository) GetUser(ctx context.Context, userID int64) (*models.Progression, error) {
	var u userRow
	err := r.db.GetContext(ctx, &u, r.db.Rebind(`
		SELECT id, xp, xp_max, level, next_bonus, notification_hour, created_at
		FROM users WHERE id = ?`), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", userID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}

	p := &models.Progression{
		UserID:           u.ID,
		Records:          make(map[models.ItemRef]models.SRSRecord),
		Next:             make(map[models.Kind]int),
		Queues:           make(map[models.Track][]models.QueuedLesson),
		XP:               u.XP,
		XPMax:            u.XPMax,
		Level:            u.Level,
		NextBonus:        fromMillis(u.NextBonus),
		NotificationHour: u.NotificationHour,
		CreatedAt:        fromMillis(u.CreatedAt),
	}

	var counters []counterRow
	if err := r.db.SelectContext(ctx, &counters, r.db.Rebind(
		`SELECT kind, next_tier FROM tier_counters WHERE user_id = ?`), userID); err != nil {
		return nil, fmt.Errorf("failed to get tier counters: %w", err)
	}
	for _, c := range counters {
		p.Next[models.Kind(c.Kind)] = c.NextTier
	}

	var records []recordRow
	if err := r.db.SelectContext(ctx, &records, r.db.Rebind(
		`SELECT kind, item_id, level, level_old, incorrect FROM srs_records WHERE user_id = ?`), userID); err != nil {
		return nil, fmt.Errorf("failed to get srs records: %w", err)
	}
	for _, rec := range records {
		p.Records[models.ItemRef{Kind: models.Kind(rec.Kind), ID: rec.ItemID}] = models.SRSRecord{
			Level:     rec.Level,
			LevelOld:  rec.LevelOld,
			Incorrect: rec.Incorrect,
		}
	}

	var lessons []queueRow
	if err := r.db.SelectContext(ctx, &lessons, r.db.Rebind(`
		SELECT track, kind, item_id, mode, due_at FROM lesson_queue
		WHERE user_id = ? ORDER BY track, due_at, position`), userID); err != nil {
		return nil, fmt.Errorf("failed to get lesson queue: %w", err)
	}
	for _, l := range lessons {
		track := models.Track(l.Track)
		p.Queues[track] = append(p.Queues[track], models.QueuedLesson{
			Kind:   models.Kind(l.Kind),
			ItemID: l.ItemID,
			Mode:   models.Mode(l.Mode),
			DueAt:  fromMillis(l.DueAt),
		})
	}
	return p, nil
}

// CreateUser inserts a new progression with everything it already holds.
func (r *UserRepository) CreateUser(ctx context.Context, p *models.Progression) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		var n int
		if err := tx.GetContext(ctx, &n, tx.Rebind(`SELECT COUNT(*) FROM users WHERE id = ?`), p.UserID); err != nil {
			return fmt.Errorf("failed to check user: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("user %d: %w", p.UserID, models.ErrAlreadyExists)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO users (id, xp, xp_max, level, next_bonus, notification_hour, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`),
			p.UserID, p.XP, p.XPMax, p.Level, toMillis(p.NextBonus), p.NotificationHour, toMillis(p.CreatedAt),
		); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		u := models.NewUserUpdate()
		for ref, rec := range p.Records {
			u.SetRecord(ref, rec)
		}
		for kind, tier := range p.Next {
			u.Next[kind] = tier
		}
		for track, q := range p.Queues {
			u.Queues[track] = q
		}
		return r.writeParts(ctx, tx, p.UserID, u)
	})
}

// ApplyUserUpdate writes u atomically. It fails with models.ErrNotFound for
// an unknown user and writes nothing.
func (r *UserRepository) ApplyUserUpdate(ctx context.Context, userID int64, u *models.UserUpdate) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		var bonus any
		if u.NextBonus != nil {
			bonus = toMillis(*u.NextBonus)
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(`
			UPDATE users SET
				xp = COALESCE(?, xp),
				xp_max = COALESCE(?, xp_max),
				level = COALESCE(?, level),
				next_bonus = COALESCE(?, next_bonus),
				notification_hour = COALESCE(?, notification_hour)
			WHERE id = ?`),
			nullInt(u.XP), nullInt(u.XPMax), nullInt(u.Level), bonus, nullInt(u.NotificationHour), userID)
		if err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("user %d: %w", userID, models.ErrNotFound)
		}
		return r.writeParts(ctx, tx, userID, u)
	})
}

func (r *UserRepository) writeParts(ctx context.Context, tx *sqlx.Tx, userID int64, u *models.UserUpdate) error {
	for kind, tier := range u.Next {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO tier_counters (user_id, kind, next_tier) VALUES (?, ?, ?)
			ON CONFLICT (user_id, kind) DO UPDATE SET next_tier = excluded.next_tier`),
			userID, string(kind), tier); err != nil {
			return fmt.Errorf("failed to set next.%s: %w", kind, err)
		}
	}

	for ref, rec := range u.Records {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO srs_records (user_id, kind, item_id, level, level_old, incorrect)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (user_id, kind, item_id) DO UPDATE SET
				level = excluded.level,
				level_old = excluded.level_old,
				incorrect = excluded.incorrect`),
			userID, string(ref.Kind), ref.ID, rec.Level, rec.LevelOld, rec.Incorrect); err != nil {
			return fmt.Errorf("failed to set srs.%s: %w", ref, err)
		}
	}

	tracks := make([]string, 0, len(u.Queues))
	for track := range u.Queues {
		tracks = append(tracks, string(track))
	}
	sort.Strings(tracks)
	for _, track := range tracks {
		if _, err := tx.ExecContext(ctx, tx.Rebind(
			`DELETE FROM lesson_queue WHERE user_id = ? AND track = ?`), userID, track); err != nil {
			return fmt.Errorf("failed to clear lessons.%s: %w", track, err)
		}
		for i, l := range u.Queues[models.Track(track)] {
			if _, err := tx.ExecContext(ctx, tx.Rebind(`
				INSERT INTO lesson_queue (user_id, track, kind, item_id, mode, due_at, position)
				VALUES (?, ?, ?, ?, ?, ?, ?)`),
				userID, track, string(l.Kind), l.ItemID, int(l.Mode), toMillis(l.DueAt), i); err != nil {
				return fmt.Errorf("failed to write lessons.%s: %w", track, err)
			}
		}
	}
	return nil
}

// ListUserIDs returns every registered user id, ascending.
func (r *UserRepository) ListUserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM users ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return ids, nil
}

func (r *UserRepository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
