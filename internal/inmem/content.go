// Package inmem holds map-backed implementations of the content repository
// and the profile store. They back DB_TYPE=memory and the engine tests.
package inmem

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/example/srsbot/pkg/models"
)

type tierKey struct {
	kind models.Kind
	tier int
}

// Content is an in-memory content repository.
type Content struct {
	mu    sync.RWMutex
	items map[models.ItemRef]models.ContentItem
	tiers map[tierKey][]string
}

// NewContent returns a repository holding items.
func NewContent(items ...models.ContentItem) *Content {
	c := &Content{
		items: make(map[models.ItemRef]models.ContentItem),
		tiers: make(map[tierKey][]string),
	}
	_ = c.SaveItems(context.Background(), items)
	return c
}

// DeclareTier makes a tier exist even if it has no members.
func (c *Content) DeclareTier(_ context.Context, kind models.Kind, tier int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := tierKey{kind, tier}
	if _, ok := c.tiers[key]; !ok {
		c.tiers[key] = []string{}
	}
	return nil
}

// SaveItems inserts or replaces items and their tier membership.
func (c *Content) SaveItems(_ context.Context, items []models.ContentItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range items {
		if old, ok := c.items[item.Ref()]; ok {
			c.dropMember(old)
		}
		c.items[item.Ref()] = item
		key := tierKey{item.Kind, item.Tier}
		c.tiers[key] = append(c.tiers[key], item.ID)
	}
	return nil
}

func (c *Content) dropMember(item models.ContentItem) {
	key := tierKey{item.Kind, item.Tier}
	ids := c.tiers[key]
	for i, id := range ids {
		if id == item.ID {
			c.tiers[key] = append(ids[:i:i], ids[i+1:]...)
			return
		}
	}
}

// GetItem returns one item.
func (c *Content) GetItem(_ context.Context, kind models.Kind, id string) (models.ContentItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[models.ItemRef{Kind: kind, ID: id}]
	if !ok {
		return models.ContentItem{}, fmt.Errorf("item %s.%s: %w", kind, id, models.ErrNotFound)
	}
	return item, nil
}

// TierMembers returns the ids of a tier in insertion order.
func (c *Content) TierMembers(_ context.Context, kind models.Kind, tier int) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids, ok := c.tiers[tierKey{kind, tier}]
	if !ok {
		return nil, fmt.Errorf("tier %s %d: %w", kind, tier, models.ErrNotFound)
	}
	return append([]string(nil), ids...), nil
}

// Tiers returns the existing tier numbers of kind, ascending.
func (c *Content) Tiers(_ context.Context, kind models.Kind) ([]int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []int
	for key := range c.tiers {
		if key.kind == kind {
			out = append(out, key.tier)
		}
	}
	sort.Ints(out)
	return out, nil
}
