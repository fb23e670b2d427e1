package scoring

import "github.com/dyluth/hecto/internal/storage"

// rankWidth is the rating span of one tier.
const rankWidth = 100

var rankNames = []string{
	"Bronze I", "Bronze II", "Bronze III",
	"Silver I", "Silver II", "Silver III",
	"Gold I", "Gold II", "Gold III",
	"Platinum I", "Platinum II", "Platinum III",
	"Diamond I", "Diamond II", "Diamond III",
	"Master",
	"Grandmaster",
}

// Tier is one step of the rank ladder. MaxRating is 0 for the open-ended top
// tier.
type Tier struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	MinRating int    `json:"min_rating"`
	MaxRating int    `json:"max_rating,omitempty"`
}

// Ladder returns every tier from lowest to highest.
func Ladder() []Tier {
	tiers := make([]Tier, len(rankNames))
	for i, name := range rankNames {
		t := Tier{Index: i, Name: name, MinRating: storage.InitialRating + i*rankWidth}
		if i < len(rankNames)-1 {
			t.MaxRating = t.MinRating + rankWidth - 1
		}
		tiers[i] = t
	}
	return tiers
}

// RankIndex maps a rating onto the ladder. Ratings below the floor map to the
// first tier; everything from the top tier's minimum up maps to the last.
func RankIndex(rating int) int {
	if rating < storage.InitialRating {
		return 0
	}
	i := (rating - storage.InitialRating) / rankWidth
	if i >= len(rankNames) {
		return len(rankNames) - 1
	}
	return i
}

// Rank returns the tier name for rating.
func Rank(rating int) string {
	return rankNames[RankIndex(rating)]
}
