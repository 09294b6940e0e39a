package models

import (
	"sort"
	"time"
)

// UserUpdate is a partial update of a Progression. Stores apply it atomically.
type UserUpdate struct {
	Records          map[ItemRef]SRSRecord
	Next             map[Kind]int
	Queues           map[Track][]QueuedLesson // replaces the whole queue of the track
	XP               *int
	XPMax            *int
	Level            *int
	NextBonus        *time.Time
	NotificationHour *int
}

// NewUserUpdate returns an empty update.
func NewUserUpdate() *UserUpdate {
	return &UserUpdate{
		Records: make(map[ItemRef]SRSRecord),
		Next:    make(map[Kind]int),
		Queues:  make(map[Track][]QueuedLesson),
	}
}

// SetRecord upserts one SRS record.
func (u *UserUpdate) SetRecord(ref ItemRef, rec SRSRecord) {
	u.Records[ref] = rec
}

// SetXP sets the XP meter fields together.
func (u *UserUpdate) SetXP(xp, xpMax, level int) {
	u.XP, u.XPMax, u.Level = &xp, &xpMax, &level
}

// Empty reports whether the update touches nothing.
func (u *UserUpdate) Empty() bool {
	return len(u.Records) == 0 && len(u.Next) == 0 && len(u.Queues) == 0 &&
		u.XP == nil && u.XPMax == nil && u.Level == nil && u.NextBonus == nil &&
		u.NotificationHour == nil
}

// Paths lists the dotted field paths the update writes, sorted.
func (u *UserUpdate) Paths() []string {
	var paths []string
	for ref := range u.Records {
		paths = append(paths, "srs."+ref.String())
	}
	for kind := range u.Next {
		paths = append(paths, "next."+string(kind))
	}
	for track := range u.Queues {
		paths = append(paths, "lessons."+string(track))
	}
	if u.XP != nil {
		paths = append(paths, "xp")
	}
	if u.XPMax != nil {
		paths = append(paths, "xpMax")
	}
	if u.Level != nil {
		paths = append(paths, "level")
	}
	if u.NextBonus != nil {
		paths = append(paths, "nextBonus")
	}
	if u.NotificationHour != nil {
		paths = append(paths, "notificationHour")
	}
	sort.Strings(paths)
	return paths
}
