package lesson

import (
	"time"

	"github.com/example/srsbot/pkg/models"
)

// State is the position of a session in its state machine.
type State int

const (
	// StateNotStarted: overview shown, waiting for an acknowledgement.
	StateNotStarted State = iota
	// StateTeach: an item was taught, waiting for an acknowledgement.
	StateTeach
	// StateReviewPrompt: a facet was asked, waiting for an answer.
	StateReviewPrompt
	// StateReviewGrade: an answer was graded, waiting to move on.
	StateReviewGrade
	StateComplete
	StateAborted
)

var stateNames = map[State]string{
	StateNotStarted:   "not_started",
	StateTeach:        "teach",
	StateReviewPrompt: "review_prompt",
	StateReviewGrade:  "review_grade",
	StateComplete:     "complete",
	StateAborted:      "aborted",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Done reports whether the session has ended.
func (s State) Done() bool {
	return s == StateComplete || s == StateAborted
}

// Input is what the learner sent: an acknowledgement or a free-text answer.
type Input struct {
	Ack    bool
	Answer string
}

// Ack returns an acknowledgement input.
func Ack() Input { return Input{Ack: true} }

// Answer returns a free-text answer input.
func Answer(text string) Input { return Input{Answer: text} }

func (in Input) kind() string {
	if in.Ack {
		return "ack"
	}
	return "answer"
}

// Entry is one item of the working set.
type Entry struct {
	Lesson models.QueuedLesson
	// Facets still to be tested; chosen when the item is first prompted.
	Facets []models.Facet
	Asked  models.Facet
	// Missed records a miss during this session, which blocks promotion.
	Missed bool
}

func (e *Entry) Ref() models.ItemRef { return e.Lesson.Ref() }

// Stats accumulate over a session.
type Stats struct {
	Attempts     int
	Correct      int
	XPGained     int
	LevelsGained int
}

// Accuracy is Correct/Attempts, zero when nothing was answered.
func (s Stats) Accuracy() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Attempts)
}

// Session is one learner's run through a batch of due items. It is owned by
// the Service; all access goes through Service methods.
type Session struct {
	ID        string
	UserID    int64
	Track     models.Track
	StartedAt time.Time
	Lookahead bool

	state     State
	entries   []*Entry
	current   *models.ContentItem
	stats     Stats
	presenter Presenter
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// Stats returns the running totals.
func (s *Session) Stats() Stats { return s.stats }

// Remaining returns the number of items left in the working set.
func (s *Session) Remaining() int { return len(s.entries) }

func (s *Session) head() *Entry {
	if len(s.entries) == 0 {
		return nil
	}
	return s.entries[0]
}

func (s *Session) dropHead() {
	s.entries = s.entries[1:]
	s.current = nil
}
