package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dyluth/hecto/internal/puzzle"
)

func TestRoundPoints(t *testing.T) {
	tests := []struct {
		name     string
		timeLeft time.Duration
		d        puzzle.Difficulty
		want     int
	}{
		{"easy full clock", 120 * time.Second, puzzle.Easy, 160},
		{"easy odd seconds floor", 45 * time.Second, puzzle.Easy, 122},
		{"partial seconds floor", 45900 * time.Millisecond, puzzle.Easy, 122},
		{"medium", 90 * time.Second, puzzle.Medium, 217},
		{"hard", 60 * time.Second, puzzle.Hard, 260},
		{"expert", 45 * time.Second, puzzle.Expert, 366},
		{"no time left", 0, puzzle.Hard, 200},
		{"negative clamps", -5 * time.Second, puzzle.Easy, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RoundPoints(tt.timeLeft, tt.d))
		})
	}
}

func TestSession(t *testing.T) {
	s := NewSession(puzzle.Easy)
	assert.Equal(t, 1, s.Level)

	first := s.Correct(0)
	assert.Equal(t, RoundOutcome{Points: 100, Streak: 1, Level: 1}, first)

	second := s.Correct(0)
	assert.Equal(t, 0, second.Bonus)
	assert.False(t, second.LevelUp)

	third := s.Correct(0)
	assert.Equal(t, 3, third.Streak)
	assert.Equal(t, 20, third.Bonus, "bonus applies once the streak reaches 3")
	assert.True(t, third.LevelUp)
	assert.Equal(t, 2, third.Level)
	assert.Equal(t, 320, s.Score)

	fourth := s.Correct(10 * time.Second)
	assert.Equal(t, 105, fourth.Points)
	assert.Equal(t, 21, fourth.Bonus)
	assert.False(t, fourth.LevelUp)

	s.Fail()
	assert.Equal(t, 0, s.Streak)
	assert.Equal(t, 2, s.Level, "level survives a broken streak")

	after := s.Correct(0)
	assert.Equal(t, 1, after.Streak)
	assert.Equal(t, 0, after.Bonus)
	assert.Equal(t, 5, s.Solved)
}
