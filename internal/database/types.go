package database

// Row types scanned by sqlx. Times are stored as unix milliseconds so both
// drivers round-trip them identically.

type userRow struct {
	ID               int64 `db:"id"`
	XP               int   `db:"xp"`
	XPMax            int   `db:"xp_max"`
	Level            int   `db:"level"`
	NextBonus        int64 `db:"next_bonus"`
	NotificationHour int   `db:"notification_hour"`
	CreatedAt        int64 `db:"created_at"`
}

type counterRow struct {
	Kind     string `db:"kind"`
	NextTier int    `db:"next_tier"`
}

type recordRow struct {
	Kind      string `db:"kind"`
	ItemID    string `db:"item_id"`
	Level     int    `db:"level"`
	LevelOld  int    `db:"level_old"`
	Incorrect int    `db:"incorrect"`
}

type queueRow struct {
	Track  string `db:"track"`
	Kind   string `db:"kind"`
	ItemID string `db:"item_id"`
	Mode   int    `db:"mode"`
	DueAt  int64  `db:"due_at"`
}

type itemRow struct {
	Kind    string `db:"kind"`
	ItemID  string `db:"item_id"`
	Tier    int    `db:"tier"`
	Answers string `db:"answers"`
	Details string `db:"details"`
}
