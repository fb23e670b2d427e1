package puzzle

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// DefaultMaxAttempts bounds how many fresh candidates the generator tries
// before falling back to the curated pool.
const DefaultMaxAttempts = 20

// Generated is a released puzzle together with the evidence that it is
// solvable.
type Generated struct {
	Sequence Sequence `json:"puzzle"`
	Witness  string   `json:"witness"`
	Attempts int      `json:"attempts"`
	FromPool bool     `json:"from_pool,omitempty"`
}

// Generator produces difficulty-tiered puzzles. Every puzzle it returns has
// been proven solvable, either by the Solver or by curation.
// A Generator is safe for concurrent use.
type Generator struct {
	solver      *Solver
	maxAttempts int
	logger      *slog.Logger

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithSeed makes the generator deterministic.
func WithSeed(seed int64) GeneratorOption {
	return func(g *Generator) { g.rng = rand.New(rand.NewSource(seed)) }
}

// WithMaxAttempts overrides DefaultMaxAttempts. Values < 1 are ignored.
func WithMaxAttempts(n int) GeneratorOption {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithLogger sets the logger used for fallback reporting.
func WithLogger(l *slog.Logger) GeneratorOption {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGenerator wires a generator that uses solver for solvability proofs.
// A nil solver gets the default budget.
func NewGenerator(solver *Solver, opts ...GeneratorOption) *Generator {
	if solver == nil {
		solver = NewSolver()
	}
	g := &Generator{
		solver:      solver,
		maxAttempts: DefaultMaxAttempts,
		logger:      slog.Default(),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "generator")
	return g
}

// Generate returns a solvable puzzle for the tier.
func (g *Generator) Generate(ctx context.Context, d Difficulty) (Sequence, error) {
	gen, err := g.GenerateDetailed(ctx, d)
	if err != nil {
		return Sequence{}, err
	}
	return gen.Sequence, nil
}

// GenerateDetailed is Generate plus the witness and attempt count. Errors are
// limited to an invalid tier or a cancelled context; exhausting the attempt
// budget falls back to the curated pool.
func (g *Generator) GenerateDetailed(ctx context.Context, d Difficulty) (Generated, error) {
	if err := d.Validate(); err != nil {
		return Generated{}, err
	}

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		digits := g.draw(d)
		res, err := g.solver.Solve(ctx, digits)
		if err != nil {
			return Generated{}, fmt.Errorf("solvability search: %w", err)
		}
		if res.Solvable {
			return Generated{
				Sequence: NewSequence(digits, d),
				Witness:  res.Witness,
				Attempts: attempt,
			}, nil
		}
		g.logger.Debug("candidate_rejected",
			"digits", digits.String(),
			"difficulty", string(d),
			"nodes", res.Nodes,
			"exhausted", res.Exhausted,
		)
	}

	entry := g.pick(d)
	g.logger.Warn("pool_fallback",
		"difficulty", string(d),
		"attempts", g.maxAttempts,
		"error", ErrUnsolvableAfterRetries.Error(),
		"digits", entry.Digits,
	)
	digits, err := ParseDigits(entry.Digits)
	if err != nil {
		return Generated{}, fmt.Errorf("corrupt pool entry %q: %w", entry.Digits, err)
	}
	return Generated{
		Sequence: NewSequence(digits, d),
		Witness:  entry.Solution,
		Attempts: g.maxAttempts,
		FromPool: true,
	}, nil
}

// Hint returns one solution for digits: the curated one when known,
// otherwise a fresh search witness. ok is false if none was found within
// budget.
func (g *Generator) Hint(ctx context.Context, digits Digits) (solution string, ok bool, err error) {
	if s, found := KnownSolution(digits); found {
		return s, true, nil
	}
	res, err := g.solver.Solve(ctx, digits)
	if err != nil {
		return "", false, err
	}
	return res.Witness, res.Solvable, nil
}

func (g *Generator) pick(d Difficulty) PoolEntry {
	entries := pool[d]
	g.mu.Lock()
	defer g.mu.Unlock()
	return entries[g.rng.Intn(len(entries))]
}

// easyWeights biases easy puzzles toward small digits, which admit many
// solutions. Index 0 is the digit 1.
var easyWeights = [9]int{3, 3, 3, 3, 3, 3, 1, 1, 1}

// draw picks digits according to the tier distribution:
//
//	easy:   1-9 weighted toward 1-6
//	medium: 1-9 uniform
//	hard:   1-9 uniform, at least two of {7,8,9}
//	expert: 0-9 uniform, at least two of {0,7,8,9}
func (g *Generator) draw(d Difficulty) Digits {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out Digits
	switch d {
	case Easy:
		total := 0
		for _, w := range easyWeights {
			total += w
		}
		for i := range out {
			n := g.rng.Intn(total)
			for digit, w := range easyWeights {
				if n < w {
					out[i] = uint8(digit + 1)
					break
				}
				n -= w
			}
		}
	case Medium:
		for i := range out {
			out[i] = uint8(1 + g.rng.Intn(9))
		}
	case Hard:
		for i := range out {
			out[i] = uint8(1 + g.rng.Intn(9))
		}
		g.seedHeavy(&out, []uint8{7, 8, 9})
	case Expert:
		for i := range out {
			out[i] = uint8(g.rng.Intn(10))
		}
		g.seedHeavy(&out, []uint8{0, 7, 8, 9})
	}
	return out
}

// seedHeavy forces two distinct positions to hold digits from heavy.
func (g *Generator) seedHeavy(out *Digits, heavy []uint8) {
	positions := g.rng.Perm(Size)[:2]
	for _, p := range positions {
		out[p] = heavy[g.rng.Intn(len(heavy))]
	}
}
