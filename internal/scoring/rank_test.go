package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRank(t *testing.T) {
	tests := []struct {
		rating int
		want   string
	}{
		{0, "Bronze I"},
		{999, "Bronze I"},
		{1000, "Bronze I"},
		{1099, "Bronze I"},
		{1100, "Bronze II"},
		{1250, "Bronze III"},
		{1300, "Silver I"},
		{1600, "Gold I"},
		{1950, "Platinum II"},
		{2200, "Diamond I"},
		{2499, "Diamond III"},
		{2500, "Master"},
		{2599, "Master"},
		{2600, "Grandmaster"},
		{9000, "Grandmaster"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Rank(tt.rating), "rating %d", tt.rating)
	}
}

func TestLadder(t *testing.T) {
	ladder := Ladder()
	assert.Len(t, ladder, 17)
	assert.Equal(t, Tier{Index: 0, Name: "Bronze I", MinRating: 1000, MaxRating: 1099}, ladder[0])
	assert.Equal(t, Tier{Index: 16, Name: "Grandmaster", MinRating: 2600}, ladder[16])

	for i := 1; i < len(ladder); i++ {
		assert.Equal(t, ladder[i-1].MaxRating+1, ladder[i].MinRating)
		assert.Equal(t, ladder[i].Name, Rank(ladder[i].MinRating))
	}
}
