package puzzle

import (
	"fmt"
	"strings"
	"time"
)

// Difficulty is the tier a puzzle is generated for. It drives the digit
// distribution as well as externally visible parameters (time limits and the
// scoring multiplier).
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
	Expert Difficulty = "expert"
)

// Difficulties lists every tier from easiest to hardest.
var Difficulties = []Difficulty{Easy, Medium, Hard, Expert}

// ParseDifficulty maps a user supplied label onto a tier.
// An empty string yields Easy.
func ParseDifficulty(s string) (Difficulty, error) {
	switch Difficulty(strings.ToLower(strings.TrimSpace(s))) {
	case "", Easy:
		return Easy, nil
	case Medium:
		return Medium, nil
	case Hard:
		return Hard, nil
	case Expert:
		return Expert, nil
	default:
		return "", fmt.Errorf("unknown difficulty: %q (must be 'easy', 'medium', 'hard' or 'expert')", s)
	}
}

// Validate checks that d is one of the known tiers.
func (d Difficulty) Validate() error {
	switch d {
	case Easy, Medium, Hard, Expert:
		return nil
	default:
		return fmt.Errorf("unknown difficulty: %q", string(d))
	}
}

// Multiplier is the round-points multiplier for the tier.
func (d Difficulty) Multiplier() float64 {
	switch d {
	case Medium:
		return 1.5
	case Hard:
		return 2
	case Expert:
		return 3
	default:
		return 1
	}
}

// RoundTime is the single-player countdown for one puzzle.
func (d Difficulty) RoundTime() time.Duration {
	switch d {
	case Medium:
		return 90 * time.Second
	case Hard:
		return 60 * time.Second
	case Expert:
		return 45 * time.Second
	default:
		return 120 * time.Second
	}
}

// DuelTimeLimit is the match-wide timeout for a puzzle duel.
func (d Difficulty) DuelTimeLimit() time.Duration {
	switch d {
	case Medium:
		return 60 * time.Second
	case Hard:
		return 45 * time.Second
	case Expert:
		return 30 * time.Second
	default:
		return 90 * time.Second
	}
}
