package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dyluth/hecto/internal/storage"
)

// Outcome is one participant's result in a resolved match.
type Outcome string

const (
	Win  Outcome = "win"
	Draw Outcome = "draw"
	Loss Outcome = "loss"
)

// RatingDelta is the rating change for an outcome.
func RatingDelta(o Outcome) int {
	switch o {
	case Win:
		return 25
	case Loss:
		return -15
	default:
		return 0
	}
}

// ApplyRating applies the outcome's delta, never dropping below the floor.
func ApplyRating(rating int, o Outcome) int {
	next := rating + RatingDelta(o)
	if next < storage.InitialRating {
		return storage.InitialRating
	}
	return next
}

// MatchResult is what a resolved or abandoned duel reports for rating.
// Points and SolveTime describe the winner's solution, when there was one.
type MatchResult struct {
	MatchID      string        `json:"match_id"`
	Participants []string      `json:"participants"`
	Winner       string        `json:"winner,omitempty"`
	Reason       string        `json:"reason,omitempty"`
	Abandoned    bool          `json:"abandoned,omitempty"`
	Points       int           `json:"points,omitempty"`
	SolveTime    time.Duration `json:"solve_time,omitempty"`
}

// OutcomeFor returns the outcome of participant id. Matches without a winner,
// abandoned ones included, are draws.
func (r MatchResult) OutcomeFor(id string) Outcome {
	switch {
	case r.Abandoned || r.Winner == "":
		return Draw
	case r.Winner == id:
		return Win
	default:
		return Loss
	}
}

// Ratings persists match outcomes into participant profiles.
type Ratings struct {
	profiles *storage.Profiles
	logger   *slog.Logger
}

// NewRatings creates a Ratings engine over profiles.
func NewRatings(profiles *storage.Profiles, logger *slog.Logger) *Ratings {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ratings{profiles: profiles, logger: logger.With("component", "ratings")}
}

// RecordMatch updates every participant's rating and record. Matches that
// never had two participants are ignored.
func (r *Ratings) RecordMatch(ctx context.Context, res MatchResult) error {
	if len(res.Participants) < 2 {
		r.logger.Debug("match_ignored", "match_id", res.MatchID, "participants", len(res.Participants))
		return nil
	}

	for _, id := range res.Participants {
		outcome := res.OutcomeFor(id)
		prof, err := r.profiles.Update(ctx, id, func(p *storage.Profile) error {
			applyOutcome(p, outcome, res)
			for _, b := range earnedBadges(p, outcome, res) {
				if p.Award(b) {
					r.logger.Info("badge_awarded", "player_id", id, "badge", b)
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("record %s for %s in match %s: %w", outcome, id, res.MatchID, err)
		}
		r.logger.Info("rating_updated",
			"match_id", res.MatchID,
			"player_id", id,
			"outcome", string(outcome),
			"rating", prof.Rating,
			"rank", Rank(prof.Rating),
		)
	}
	return nil
}

// Badges awarded by RecordMatch.
const (
	BadgeNewcomer    = "newcomer"
	BadgeVeteran     = "veteran"
	BadgeQuickSolver = "quick_solver"
	BadgeMathGenius  = "math_genius"
	BadgeWinStreak   = "win_streak"
)

const (
	veteranWins      = 10
	quickSolveUnder  = 20 * time.Second
	mathGeniusPoints = 500
	winStreakFrom    = 3
)

// applyOutcome updates rating and record. Any result other than a win ends
// the duel streak.
func applyOutcome(p *storage.Profile, o Outcome, res MatchResult) {
	p.Rating = ApplyRating(p.Rating, o)
	switch o {
	case Win:
		p.Wins++
		p.CurrentStreak++
		p.Points += res.Points
		if p.CurrentStreak%levelEvery == 0 {
			p.Level++
		}
	case Loss:
		p.Losses++
		p.CurrentStreak = 0
	default:
		if res.Abandoned {
			p.Abandoned++
		} else {
			p.Draws++
		}
		p.CurrentStreak = 0
	}
}

// earnedBadges lists every badge the updated profile qualifies for.
func earnedBadges(p *storage.Profile, o Outcome, res MatchResult) []string {
	badges := []string{BadgeNewcomer}
	if p.Wins >= veteranWins {
		badges = append(badges, BadgeVeteran)
	}
	if o == Win && res.SolveTime > 0 && res.SolveTime < quickSolveUnder {
		badges = append(badges, BadgeQuickSolver)
	}
	if p.Points > mathGeniusPoints {
		badges = append(badges, BadgeMathGenius)
	}
	if p.CurrentStreak >= winStreakFrom {
		badges = append(badges, BadgeWinStreak)
	}
	return badges
}
