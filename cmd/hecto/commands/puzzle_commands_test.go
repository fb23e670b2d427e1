package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/hecto/internal/puzzle"
)

func TestGenerate_JSON(t *testing.T) {
	out, err := executeCommand(t, context.Background(), "generate", "-d", "hard", "-n", "3", "--seed", "42", "-o", "json")
	require.NoError(t, err)

	scanner := bufio.NewScanner(strings.NewReader(out))
	count := 0
	for scanner.Scan() {
		var g puzzle.Generated
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &g))
		assert.Equal(t, puzzle.Hard, g.Sequence.Difficulty)
		assert.True(t, puzzle.Check(g.Sequence, g.Witness), "witness %q for %s", g.Witness, g.Sequence)
		count++
	}
	assert.Equal(t, 3, count)
}

func TestGenerate_SeedIsDeterministic(t *testing.T) {
	first, err := executeCommand(t, context.Background(), "generate", "--seed", "9", "-n", "2", "-o", "json")
	require.NoError(t, err)
	second, err := executeCommand(t, context.Background(), "generate", "--seed", "9", "-n", "2", "-o", "json")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerate_Text(t *testing.T) {
	out, err := executeCommand(t, context.Background(), "generate", "--seed", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "easy")
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestGenerate_Curated(t *testing.T) {
	out, err := executeCommand(t, context.Background(), "generate", "--curated", "-d", "medium", "-o", "json")
	require.NoError(t, err)

	var entries []puzzle.PoolEntry
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		var e puzzle.PoolEntry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		entries = append(entries, e)
	}
	assert.Equal(t, puzzle.Pool(puzzle.Medium), entries)
	for _, e := range entries {
		seq := puzzle.NewSequence(mustDigits(t, e.Digits), puzzle.Medium)
		assert.True(t, puzzle.Check(seq, e.Solution), "%s: %s", e.Digits, e.Solution)
	}

	text, err := executeCommand(t, context.Background(), "generate", "--curated")
	require.NoError(t, err)
	assert.Equal(t, len(puzzle.Pool(puzzle.Easy)), strings.Count(text, "\n"))
	assert.Contains(t, text, "1+(2+3+4)×(5+6)")
}

func TestGenerate_InvalidFlags(t *testing.T) {
	_, err := executeCommand(t, context.Background(), "generate", "-d", "nightmare")
	require.Error(t, err)
	assert.Equal(t, "invalid difficulty", err.Error())

	_, err = executeCommand(t, context.Background(), "generate", "-o", "xml")
	require.Error(t, err)
	assert.Equal(t, "invalid output format", err.Error())

	_, err = executeCommand(t, context.Background(), "generate", "-n", "0")
	require.Error(t, err)
	assert.Equal(t, "invalid count", err.Error())
}

func TestSolve(t *testing.T) {
	t.Run("solvable", func(t *testing.T) {
		out, err := executeCommand(t, context.Background(), "solve", "999999", "-o", "json")
		require.NoError(t, err)
		var res puzzle.Result
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		assert.True(t, res.Solvable)

		seq := puzzle.NewSequence(mustDigits(t, "999999"), "")
		assert.True(t, puzzle.Check(seq, res.Witness))
	})

	t.Run("text verdict", func(t *testing.T) {
		out, err := executeCommand(t, context.Background(), "solve", "123456")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, "✓ "), out)
		assert.Contains(t, out, "= 100")
	})

	t.Run("unsolvable", func(t *testing.T) {
		out, err := executeCommand(t, context.Background(), "solve", "000000")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, "✗ "), out)
	})

	t.Run("invalid digits", func(t *testing.T) {
		_, err := executeCommand(t, context.Background(), "solve", "12a456")
		require.Error(t, err)
		assert.Equal(t, "invalid digits", err.Error())
	})
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name     string
		digits   string
		solution string
		wantOut  string
		wantErr  string
	}{
		{"correct", "123456", "1+(2+3+4)×(5+6)", "✓ 1+(2+3+4)×(5+6) = 100", ""},
		{"concatenation", "123456", "1×(2+3)×4×5÷6×6", "", "incorrect solution"},
		{"wrong value", "123456", "1+2+3+4+5+6", "✗ 1+2+3+4+5+6 = 21, not 100", "incorrect solution"},
		{"digits unchanged", "123456", "123456", "= 123456, not 100", "incorrect solution"},
		{"reordered", "123456", "2+1+3+4+5+6", "digit order violation", "incorrect solution"},
		{"division by zero", "100000", "1÷(0+0)+0×0×0", "division by zero", "incorrect solution"},
		{"invalid digits", "1234", "1+2+3+4", "", "invalid digits"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeCommand(t, context.Background(), "check", tt.digits, tt.solution)
			if tt.wantErr == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.Error())
			}
			if tt.wantOut != "" {
				assert.Contains(t, out, tt.wantOut)
			}
		})
	}
}

func TestRanks_JSONGolden(t *testing.T) {
	out, err := executeCommand(t, context.Background(), "ranks", "--output", "json")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "ranks", []byte(out))
}

func TestRanks_Table(t *testing.T) {
	out, err := executeCommand(t, context.Background(), "ranks")
	require.NoError(t, err)
	for _, want := range []string{"Bronze I", "Diamond III", "Grandmaster", "2600", "1099"} {
		assert.Contains(t, out, want)
	}
}

func mustDigits(t *testing.T, s string) puzzle.Digits {
	t.Helper()
	d, err := puzzle.ParseDigits(s)
	require.NoError(t, err)
	return d
}
