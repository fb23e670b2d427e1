package puzzle

import (
	"math"
	"strings"
)

// Progress estimates, from 0 to 100, how far a partial expression is from a
// full solution. Digits already placed in puzzle order weigh most; operators,
// balanced parentheses and a value near the target add smaller amounts.
func Progress(seq Sequence, draft string) int {
	normalized := Normalize(draft)
	if strings.TrimSpace(normalized) == "" {
		return 0
	}

	want := seq.Digits.String()
	got := StripDigits(normalized)
	placed := 0
	for placed < len(got) && placed < len(want) && got[placed] == want[placed] {
		placed++
	}
	progress := placed * 70 / Size

	ops := 0
	for _, r := range normalized {
		if strings.ContainsRune("+-×÷*/^()", r) {
			ops++
		}
	}
	progress += min(ops*5, 20)

	open, closed := strings.Count(normalized, "("), strings.Count(normalized, ")")
	if open > 0 && open == closed {
		progress += 5
	}

	if v, err := Evaluate(normalized); err == nil {
		distance := math.Abs(float64(seq.target()) - v)
		if distance < 50 {
			progress += 5
		}
		if distance < 20 {
			progress += 5
		}
	}
	return min(progress, 100)
}
