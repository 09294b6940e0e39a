package models

// SRSRecord is a user's mastery state for a single item.
type SRSRecord struct {
	Level     int `json:"level" db:"level"`
	LevelOld  int `json:"level_old" db:"level_old"` // level at the start of the current grading attempt
	Incorrect int `json:"incorrect" db:"incorrect"` // misses since the last concluded attempt
}
