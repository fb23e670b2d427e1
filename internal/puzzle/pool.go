package puzzle

// PoolEntry is a curated, known-solvable puzzle with a hand-checked solution.
type PoolEntry struct {
	Digits   string `json:"digits"`
	Solution string `json:"solution"`
}

// pool is the fallback served when the generator cannot prove a fresh
// candidate solvable within its retry budget.
var pool = map[Difficulty][]PoolEntry{
	Easy: {
		{"123456", "1+(2+3+4)×(5+6)"},
		{"111111", "1×111-11"},
		{"234561", "2×(3^4-(5×6+1))"},
		{"671549", "67+(1+5)×4+9"},
		{"236754", "2×(3+67-5×4)"},
	},
	Medium: {
		{"134956", "1×3-4+95+6"},
		{"967234", "9+6-7+23×4"},
		{"325568", "3+2+5×(5+6+8)"},
		{"549387", "5-4+9+3+87"},
		{"431985", "4+3-1+9+85"},
	},
	Hard: {
		{"729846", "7+29+(8÷4)^6"},
		{"923458", "92-(3-4)^5×8"},
		{"187539", "1×8×(7÷(5-3)+9)"},
		{"382574", "3×8×(2÷(5+7)+4)"},
		{"246935", "2-4+6×(9+3+5)"},
	},
	Expert: {
		{"425639", "4÷(2÷(5+6+39))"},
		{"526397", "5÷(2÷(6+3×9+7))"},
		{"842653", "8÷(4÷(2+6×(5+3)))"},
		{"714698", "7+1+4×(6+9+8)"},
		{"942786", "9-4+2+7+86"},
	},
}

// Pool returns a copy of the curated entries for a tier.
func Pool(d Difficulty) []PoolEntry {
	entries := pool[d]
	out := make([]PoolEntry, len(entries))
	copy(out, entries)
	return out
}

// KnownSolution returns the curated solution for digits, if any.
func KnownSolution(digits Digits) (string, bool) {
	s := digits.String()
	for _, entries := range pool {
		for _, e := range entries {
			if e.Digits == s {
				return e.Solution, true
			}
		}
	}
	return "", false
}
