package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// InitialRating is both the starting rating and the floor.
const InitialRating = 1000

// Profile is a participant's persistent record.
type Profile struct {
	ID            string    `json:"id"`
	DisplayName   string    `json:"display_name,omitempty"`
	Rating        int       `json:"rating"`
	CurrentStreak int       `json:"current_streak"`
	Wins          int       `json:"wins"`
	Losses        int       `json:"losses"`
	Draws         int       `json:"draws"`
	Abandoned     int       `json:"abandoned"`
	Level         int       `json:"level"`
	Points        int       `json:"points"`
	Badges        []string  `json:"badges"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewProfile returns the record of a participant who has never played.
func NewProfile(id string) Profile {
	now := time.Now().UTC()
	return Profile{ID: id, Rating: InitialRating, Level: 1, Badges: []string{}, CreatedAt: now, UpdatedAt: now}
}

// HasBadge reports whether the profile holds badge.
func (p *Profile) HasBadge(badge string) bool {
	for _, b := range p.Badges {
		if b == badge {
			return true
		}
	}
	return false
}

// Award adds badge unless it is already held, and reports whether it was new.
func (p *Profile) Award(badge string) bool {
	if p.HasBadge(badge) {
		return false
	}
	p.Badges = append(p.Badges, badge)
	return true
}

// Profiles persists participant profiles.
type Profiles struct {
	db *DB
}

// Profiles returns the profile table of db.
func (db *DB) Profiles() *Profiles {
	return &Profiles{db: db}
}

const profileColumns = `id, display_name, rating, current_streak, wins, losses, draws, abandoned, level, points, badges, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (Profile, error) {
	var p Profile
	var createdAt, updatedAt int64
	var badges string
	if err := row.Scan(&p.ID, &p.DisplayName, &p.Rating, &p.CurrentStreak,
		&p.Wins, &p.Losses, &p.Draws, &p.Abandoned, &p.Level, &p.Points, &badges,
		&createdAt, &updatedAt); err != nil {
		return Profile{}, err
	}
	p.Badges = []string{}
	if badges != "" {
		p.Badges = strings.Split(badges, ",")
	}
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return p, nil
}

// Get loads a profile or ErrNotFound.
func (p *Profiles) Get(ctx context.Context, id string) (Profile, error) {
	row := p.db.sqlDB.QueryRowContext(ctx, p.db.rebind(`SELECT `+profileColumns+` FROM profiles WHERE id = ?`), id)
	prof, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, fmt.Errorf("profile %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Profile{}, fmt.Errorf("get profile %q: %w", id, err)
	}
	return prof, nil
}

// Upsert writes prof, replacing any existing record with the same id.
func (p *Profiles) Upsert(ctx context.Context, prof Profile) error {
	if strings.TrimSpace(prof.ID) == "" {
		return fmt.Errorf("profile id is required")
	}
	return upsertProfile(ctx, p.db, p.db.sqlDB, prof)
}

// Update loads the profile (or a fresh one if absent), applies fn and
// writes the result in one transaction. The stored profile is returned.
func (p *Profiles) Update(ctx context.Context, id string, fn func(*Profile) error) (Profile, error) {
	if strings.TrimSpace(id) == "" {
		return Profile{}, fmt.Errorf("profile id is required")
	}
	var out Profile
	err := p.db.inTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, p.db.rebind(`SELECT `+profileColumns+` FROM profiles WHERE id = ?`+p.db.forUpdate()), id)
		prof, err := scanProfile(row)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			prof = NewProfile(id)
		case err != nil:
			return fmt.Errorf("get profile %q: %w", id, err)
		}

		if err := fn(&prof); err != nil {
			return err
		}
		prof.ID = id
		prof.UpdatedAt = time.Now().UTC()
		if err := upsertProfile(ctx, p.db, tx, prof); err != nil {
			return err
		}
		out = prof
		return nil
	})
	return out, err
}

func upsertProfile(ctx context.Context, db *DB, ex execer, prof Profile) error {
	if prof.CreatedAt.IsZero() {
		prof.CreatedAt = time.Now().UTC()
	}
	if prof.UpdatedAt.IsZero() {
		prof.UpdatedAt = prof.CreatedAt
	}
	_, err := ex.ExecContext(ctx, db.rebind(
		`INSERT INTO profiles (`+profileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
			display_name = excluded.display_name,
			rating = excluded.rating,
			current_streak = excluded.current_streak,
			wins = excluded.wins,
			losses = excluded.losses,
			draws = excluded.draws,
			abandoned = excluded.abandoned,
			level = excluded.level,
			points = excluded.points,
			badges = excluded.badges,
			updated_at = excluded.updated_at`),
		prof.ID, prof.DisplayName, prof.Rating, prof.CurrentStreak,
		prof.Wins, prof.Losses, prof.Draws, prof.Abandoned, prof.Level,
		prof.Points, strings.Join(prof.Badges, ","),
		toMillis(prof.CreatedAt), toMillis(prof.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert profile %q: %w", prof.ID, err)
	}
	return nil
}
