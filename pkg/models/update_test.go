package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserUpdate_Paths(t *testing.T) {
	u := NewUserUpdate()
	assert.True(t, u.Empty())
	assert.Empty(t, u.Paths())

	u.SetRecord(ItemRef{Kind: "kanji", ID: "日"}, SRSRecord{Level: 2})
	u.Next["vocab"] = 3
	u.Queues["jp"] = nil
	u.SetXP(4, 10, 1)
	hour := 6
	u.NotificationHour = &hour

	assert.False(t, u.Empty())
	assert.Equal(t, []string{"lessons.jp", "level", "next.vocab", "notificationHour", "srs.kanji.日", "xp", "xpMax"}, u.Paths())
}

func TestProgression_CloneAndApply(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)
	p := NewProgression(1, now)
	p.Queues["jp"] = []QueuedLesson{{Kind: "radical", ItemID: "一", DueAt: now}}

	c := p.Clone()
	u := NewUserUpdate()
	u.SetRecord(ItemRef{Kind: "radical", ID: "一"}, SRSRecord{Level: 1, LevelOld: 1})
	u.Queues["jp"] = nil
	bonus := now.Add(24 * time.Hour)
	u.NextBonus = &bonus
	c.Apply(u)

	assert.Empty(t, p.Records, "clone is independent")
	assert.Len(t, p.Queues["jp"], 1)
	assert.Empty(t, c.Queues["jp"])
	assert.Equal(t, 1, c.Records[ItemRef{Kind: "radical", ID: "一"}].Level)
	assert.Equal(t, bonus, c.NextBonus)
	assert.Equal(t, p.XPMax, c.XPMax, "nil pointers leave fields alone")
}
