package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/srsbot/pkg/models"
)

// ContentRepository handles the content catalogue: items and the tiers they
// belong to.
type ContentRepository struct {
	db *sqlx.DB
}

// NewContentRepository creates a new repository instance
func NewContentRepository(db *sqlx.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// GetItem returns one item by kind and id.
func (r *ContentRepository) GetItem(ctx context.Context, kind models.Kind, id string) (models.ContentItem, error) {
	var row itemRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`
		SELECT kind, item_id, tier, answers, details FROM content_items
		WHERE kind = ? AND item_id = ?`), string(kind), id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ContentItem{}, fmt.Errorf("item %s.%s: %w", kind, id, models.ErrNotFound)
	}
	if err != nil {
		return models.ContentItem{}, fmt.Errorf("failed to get item %s.%s: %w", kind, id, err)
	}
	return row.toModel()
}

// TierMembers lists the item ids of a tier in import order. A tier that was
// never declared yields models.ErrNotFound.
func (r *ContentRepository) TierMembers(ctx context.Context, kind models.Kind, tier int) ([]string, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, r.db.Rebind(
		`SELECT COUNT(*) FROM tiers WHERE kind = ? AND tier = ?`), string(kind), tier); err != nil {
		return nil, fmt.Errorf("failed to check tier: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("tier %s %d: %w", kind, tier, models.ErrNotFound)
	}
	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, r.db.Rebind(`
		SELECT item_id FROM content_items WHERE kind = ? AND tier = ?
		ORDER BY position, item_id`), string(kind), tier); err != nil {
		return nil, fmt.Errorf("failed to get tier members: %w", err)
	}
	return ids, nil
}

// Tiers returns the declared tiers of kind, ascending.
func (r *ContentRepository) Tiers(ctx context.Context, kind models.Kind) ([]int, error) {
	var tiers []int
	if err := r.db.SelectContext(ctx, &tiers, r.db.Rebind(
		`SELECT tier FROM tiers WHERE kind = ? ORDER BY tier`), string(kind)); err != nil {
		return nil, fmt.Errorf("failed to list tiers: %w", err)
	}
	return tiers, nil
}

// DeclareTier makes a tier exist even without members.
func (r *ContentRepository) DeclareTier(ctx context.Context, kind models.Kind, tier int) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO tiers (kind, tier) VALUES (?, ?)
		ON CONFLICT (kind, tier) DO NOTHING`), string(kind), tier); err != nil {
		return fmt.Errorf("failed to declare tier: %w", err)
	}
	return nil
}

// SaveItems inserts or replaces items in one transaction. New members are
// appended to the end of their tier.
func (r *ContentRepository) SaveItems(ctx context.Context, items []models.ContentItem) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, item := range items {
		answers, err := json.Marshal(item.Answers)
		if err != nil {
			return fmt.Errorf("failed to encode answers of %s: %w", item.Ref(), err)
		}
		details, err := json.Marshal(item.Details)
		if err != nil {
			return fmt.Errorf("failed to encode details of %s: %w", item.Ref(), err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO tiers (kind, tier) VALUES (?, ?)
			ON CONFLICT (kind, tier) DO NOTHING`), string(item.Kind), item.Tier); err != nil {
			return fmt.Errorf("failed to declare tier: %w", err)
		}
		var pos int
		if err := tx.GetContext(ctx, &pos, tx.Rebind(`
			SELECT COALESCE(MAX(position), -1) + 1 FROM content_items WHERE kind = ? AND tier = ?`),
			string(item.Kind), item.Tier); err != nil {
			return fmt.Errorf("failed to read tier position: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO content_items (kind, item_id, tier, position, answers, details)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (kind, item_id) DO UPDATE SET
				tier = excluded.tier,
				position = excluded.position,
				answers = excluded.answers,
				details = excluded.details`),
			string(item.Kind), item.ID, item.Tier, pos, string(answers), string(details)); err != nil {
			return fmt.Errorf("failed to save item %s: %w", item.Ref(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func (row itemRow) toModel() (models.ContentItem, error) {
	item := models.ContentItem{
		Kind: models.Kind(row.Kind),
		ID:   row.ItemID,
		Tier: row.Tier,
	}
	if err := json.Unmarshal([]byte(row.Answers), &item.Answers); err != nil {
		return models.ContentItem{}, fmt.Errorf("failed to parse answers of %s: %w", item.Ref(), err)
	}
	if err := json.Unmarshal([]byte(row.Details), &item.Details); err != nil {
		return models.ContentItem{}, fmt.Errorf("failed to parse details of %s: %w", item.Ref(), err)
	}
	return item, nil
}
