package duel

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/dyluth/hecto/internal/puzzle"
	"github.com/dyluth/hecto/internal/scoring"
)

// MaxParticipants is the size of a full match.
const MaxParticipants = 2

// State is a match lifecycle state.
type State string

const (
	StateOpen      State = "OPEN"
	StateCountdown State = "COUNTDOWN"
	StateActive    State = "ACTIVE"
	StateResolved  State = "RESOLVED"
	StateAbandoned State = "ABANDONED"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateResolved || s == StateAbandoned
}

// Variant selects the match rules.
type Variant string

const (
	// TurnBased matches alternate opaque moves between participants.
	TurnBased Variant = "turn-based"
	// PuzzleDuel matches race both participants on one puzzle.
	PuzzleDuel Variant = "puzzle-duel"
)

// ParseVariant maps a label onto a variant. An empty string yields PuzzleDuel.
func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case "", PuzzleDuel:
		return PuzzleDuel, nil
	case TurnBased:
		return TurnBased, nil
	default:
		return "", fmt.Errorf("unknown variant: %q (must be 'turn-based' or 'puzzle-duel')", s)
	}
}

// Resolution reasons carried by game-end.
const (
	ReasonSolved    = "solved"
	ReasonTimeout   = "timeout"
	ReasonEnded     = "ended"
	ReasonAbandoned = "abandoned"
	// ReasonDisconnected ends a match whose participant stopped sending
	// heartbeats.
	ReasonDisconnected = "disconnected"
)

// Submission is a participant's latest puzzle-duel attempt.
type Submission struct {
	Solution    string    `json:"solution"`
	SubmittedAt time.Time `json:"submittedAt"`
	Correct     bool      `json:"correct"`
	Attempts    int       `json:"attempts"`
}

// Match is the authoritative record of one duel.
type Match struct {
	ID               string                `json:"id"`
	Variant          Variant               `json:"variant"`
	Participants     []string              `json:"participants"`
	State            State                 `json:"state"`
	Puzzle           puzzle.Sequence       `json:"puzzle"`
	Difficulty       puzzle.Difficulty     `json:"difficulty"`
	TimeLimitSeconds int                   `json:"timeLimit"`
	Submissions      map[string]Submission `json:"submissions,omitempty"`
	TurnHolder       string                `json:"turnHolder,omitempty"`
	Moves            int                   `json:"moves"`
	Winner           string                `json:"winnerId,omitempty"`
	Reason           string                `json:"reason,omitempty"`
	Points           int                   `json:"points,omitempty"`
	Spectators       []string              `json:"spectators"`
	LastSeen         map[string]time.Time  `json:"lastSeen,omitempty"`
	Progress         map[string]int        `json:"progress,omitempty"`
	Seq              uint64                `json:"seq"`
	CreatedAt        time.Time             `json:"createdAt"`
	StartedAt        time.Time             `json:"startedAt,omitzero"`
	ResolvedAt       time.Time             `json:"resolvedAt,omitzero"`
}

// TimeLimit is the match-wide puzzle-duel timeout.
func (m *Match) TimeLimit() time.Duration {
	return time.Duration(m.TimeLimitSeconds) * time.Second
}

// Deadline is when an active puzzle duel times out. Zero before start.
func (m *Match) Deadline() time.Time {
	if m.StartedAt.IsZero() {
		return time.Time{}
	}
	return m.StartedAt.Add(m.TimeLimit())
}

// IsParticipant reports whether id has joined.
func (m *Match) IsParticipant(id string) bool {
	return m.indexOf(id) >= 0
}

func (m *Match) indexOf(id string) int {
	for i, p := range m.Participants {
		if p == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy.
func (m *Match) Clone() *Match {
	c := *m
	c.Participants = append([]string(nil), m.Participants...)
	if m.Spectators != nil {
		c.Spectators = append([]string(nil), m.Spectators...)
	}
	c.Submissions = maps.Clone(m.Submissions)
	c.LastSeen = maps.Clone(m.LastSeen)
	c.Progress = maps.Clone(m.Progress)
	return &c
}

// IsSpectator reports whether id is watching the match.
func (m *Match) IsSpectator(id string) bool {
	return slices.Contains(m.Spectators, id)
}

// touch records activity by participant id.
func (m *Match) touch(id string, now time.Time) {
	if m.LastSeen == nil {
		m.LastSeen = make(map[string]time.Time)
	}
	m.LastSeen[id] = now
}

// stale reports whether participant id has been silent for longer than
// timeout. A participant never seen counts from match creation.
func (m *Match) stale(id string, now time.Time, timeout time.Duration) bool {
	seen, ok := m.LastSeen[id]
	if !ok {
		seen = m.CreatedAt
	}
	return now.Sub(seen) > timeout
}

// SolveTime is how long the winner took, zero unless the match was solved.
func (m *Match) SolveTime() time.Duration {
	if m.Reason != ReasonSolved || m.StartedAt.IsZero() {
		return 0
	}
	return m.ResolvedAt.Sub(m.StartedAt)
}

// Result is the rating view of a terminal match.
func (m *Match) Result() scoring.MatchResult {
	return scoring.MatchResult{
		MatchID:      m.ID,
		Participants: append([]string(nil), m.Participants...),
		Winner:       m.Winner,
		Reason:       m.Reason,
		Abandoned:    m.State == StateAbandoned,
		Points:       m.Points,
		SolveTime:    m.SolveTime(),
	}
}

func (m *Match) resolve(state State, winner, reason string, now time.Time) {
	m.State = state
	m.Winner = winner
	m.Reason = reason
	m.ResolvedAt = now
}
