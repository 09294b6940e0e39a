package models

import "time"

// Progression is everything the engine knows about one learner.
type Progression struct {
	UserID           int64                    `json:"user_id"`
	Records          map[ItemRef]SRSRecord    `json:"records"`
	Next             map[Kind]int             `json:"next"` // next tier to unlock per kind
	Queues           map[Track][]QueuedLesson `json:"queues"`
	XP               int                      `json:"xp"`
	XPMax            int                      `json:"xp_max"`
	Level            int                      `json:"level"`
	NextBonus        time.Time                `json:"next_bonus"`
	NotificationHour int                      `json:"notification_hour"`
	CreatedAt        time.Time                `json:"created_at"`
}

// NewProgression returns the state of a freshly registered learner.
func NewProgression(userID int64, now time.Time) *Progression {
	return &Progression{
		UserID:           userID,
		Records:          make(map[ItemRef]SRSRecord),
		Next:             make(map[Kind]int),
		Queues:           make(map[Track][]QueuedLesson),
		XP:               0,
		XPMax:            10,
		Level:            1,
		NextBonus:        now,
		NotificationHour: 9,
		CreatedAt:        now,
	}
}

// Record returns the SRS record for ref and whether it exists.
func (p *Progression) Record(ref ItemRef) (SRSRecord, bool) {
	r, ok := p.Records[ref]
	return r, ok
}

// Clone returns a deep copy of p.
func (p *Progression) Clone() *Progression {
	c := *p
	c.Records = make(map[ItemRef]SRSRecord, len(p.Records))
	for k, v := range p.Records {
		c.Records[k] = v
	}
	c.Next = make(map[Kind]int, len(p.Next))
	for k, v := range p.Next {
		c.Next[k] = v
	}
	c.Queues = make(map[Track][]QueuedLesson, len(p.Queues))
	for k, v := range p.Queues {
		c.Queues[k] = append([]QueuedLesson(nil), v...)
	}
	return &c
}

// Apply merges a partial update into p.
func (p *Progression) Apply(u *UserUpdate) {
	for ref, rec := range u.Records {
		p.Records[ref] = rec
	}
	for kind, tier := range u.Next {
		p.Next[kind] = tier
	}
	for track, q := range u.Queues {
		p.Queues[track] = append([]QueuedLesson(nil), q...)
	}
	if u.XP != nil {
		p.XP = *u.XP
	}
	if u.XPMax != nil {
		p.XPMax = *u.XPMax
	}
	if u.Level != nil {
		p.Level = *u.Level
	}
	if u.NextBonus != nil {
		p.NextBonus = *u.NextBonus
	}
	if u.NotificationHour != nil {
		p.NotificationHour = *u.NotificationHour
	}
}
