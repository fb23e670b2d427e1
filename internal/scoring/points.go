// Package scoring turns puzzle and match outcomes into points, streaks,
// ratings and ranks.
package scoring

import (
	"math"
	"time"

	"github.com/dyluth/hecto/internal/puzzle"
)

const (
	basePoints = 100

	// streakBonusFrom is the streak length at which the bonus starts.
	streakBonusFrom = 3
	streakBonusRate = 0.2

	// levelEvery consecutive correct answers raise the level by one.
	levelEvery = 3
)

// RoundPoints scores a correct answer given the time left on the clock:
// floor((100 + floor(seconds*0.5)) * multiplier).
func RoundPoints(timeLeft time.Duration, d puzzle.Difficulty) int {
	secs := math.Floor(timeLeft.Seconds())
	if secs < 0 {
		secs = 0
	}
	raw := float64(basePoints) + math.Floor(secs*0.5)
	return int(math.Floor(raw * d.Multiplier()))
}

// RoundOutcome reports what one correct answer earned.
type RoundOutcome struct {
	Points  int  `json:"points"`
	Bonus   int  `json:"bonus"`
	Streak  int  `json:"streak"`
	Level   int  `json:"level"`
	LevelUp bool `json:"level_up"` // celebrate
}

// Session tracks one player's single-player run.
type Session struct {
	Difficulty puzzle.Difficulty `json:"difficulty"`
	Score      int               `json:"score"`
	Streak     int               `json:"streak"`
	Level      int               `json:"level"`
	Solved     int               `json:"solved"`
}

// NewSession starts a run at level 1.
func NewSession(d puzzle.Difficulty) *Session {
	return &Session{Difficulty: d, Level: 1}
}

// Correct records a correct answer. The streak is incremented before the
// bonus is evaluated, so the third consecutive answer already earns it.
func (s *Session) Correct(timeLeft time.Duration) RoundOutcome {
	s.Streak++
	s.Solved++

	out := RoundOutcome{Points: RoundPoints(timeLeft, s.Difficulty), Streak: s.Streak}
	if s.Streak >= streakBonusFrom {
		out.Bonus = int(math.Floor(float64(out.Points) * streakBonusRate))
	}
	if s.Streak%levelEvery == 0 {
		s.Level++
		out.LevelUp = true
	}
	s.Score += out.Points + out.Bonus
	out.Level = s.Level
	return out
}

// Fail records a timeout or an incorrect final submission.
func (s *Session) Fail() {
	s.Streak = 0
}
