package puzzle

import (
	"context"
	"math"
	"time"
)

const (
	// DefaultMaxNodes bounds the number of operand combinations one search
	// may try.
	DefaultMaxNodes = 2_000_000

	// DefaultSearchTimeout bounds the wall-clock time of one search.
	DefaultSearchTimeout = 250 * time.Millisecond

	// maxMagnitude drops intermediate values no six-digit solution needs.
	maxMagnitude = 1e7

	// maxExponent keeps ^ from producing values that are pruned anyway.
	maxExponent = 16

	// keyScale quantizes values for memoization.
	keyScale = 1e6
)

// Result is the outcome of a solvability search.
type Result struct {
	Solvable  bool          `json:"solvable"`
	Witness   string        `json:"witness,omitempty"`
	Nodes     int           `json:"nodes"`
	Duration  time.Duration `json:"duration"`
	Exhausted bool          `json:"exhausted,omitempty"` // budget ran out before the space was covered
}

// Solver proves digit sequences solvable by exploring every operator
// assignment to the gaps between digits (including concatenation) and every
// parenthesization, within a node and time budget.
type Solver struct {
	MaxNodes int
	Timeout  time.Duration
}

// SolverOption configures a Solver.
type SolverOption func(*Solver)

// WithMaxNodes overrides DefaultMaxNodes. Values < 1 are ignored.
func WithMaxNodes(n int) SolverOption {
	return func(s *Solver) {
		if n > 0 {
			s.MaxNodes = n
		}
	}
}

// WithSearchTimeout overrides DefaultSearchTimeout. Values <= 0 are ignored.
func WithSearchTimeout(d time.Duration) SolverOption {
	return func(s *Solver) {
		if d > 0 {
			s.Timeout = d
		}
	}
}

// NewSolver creates a Solver with the default budget.
func NewSolver(opts ...SolverOption) *Solver {
	s := &Solver{MaxNodes: DefaultMaxNodes, Timeout: DefaultSearchTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Solve searches for an expression over d that evaluates to Target.
// It returns ctx.Err() if the context is cancelled; running out of budget is
// reported through Result.Exhausted instead.
func (s *Solver) Solve(ctx context.Context, d Digits) (Result, error) {
	start := time.Now()
	st := &search{
		ctx:      ctx,
		seq:      NewSequence(d, ""),
		digits:   d.String(),
		target:   Target,
		maxNodes: s.MaxNodes,
		deadline: start.Add(s.Timeout),
		memo:     make(map[[2]int]valueSet),
	}

	witness := st.top()
	res := Result{
		Nodes:     st.nodes,
		Duration:  time.Since(start),
		Exhausted: st.exhausted && witness == nil,
	}
	if err := ctx.Err(); err != nil && witness == nil {
		return res, err
	}
	if witness != nil {
		res.Solvable = true
		res.Witness = witness.String()
	}
	return res, nil
}

type entry struct {
	value float64
	node  Node
}

type valueSet map[int64]entry

type search struct {
	ctx       context.Context
	seq       Sequence
	digits    string
	target    float64
	maxNodes  int
	deadline  time.Time
	nodes     int
	exhausted bool
	memo      map[[2]int]valueSet
}

func valueKey(v float64) int64 {
	return int64(math.Round(v * keyScale))
}

// tick counts one unit of work and reports whether the budget still allows
// more.
func (s *search) tick() bool {
	if s.exhausted {
		return false
	}
	s.nodes++
	if s.nodes > s.maxNodes {
		s.exhausted = true
		return false
	}
	if s.nodes&1023 == 0 && (time.Now().After(s.deadline) || s.ctx.Err() != nil) {
		s.exhausted = true
		return false
	}
	return true
}

// values returns every reachable value of digits[i:j], memoized per range.
func (s *search) values(i, j int) valueSet {
	key := [2]int{i, j}
	if vs, ok := s.memo[key]; ok {
		return vs
	}

	vs := make(valueSet)
	lit := &Number{Text: s.digits[i:j]}
	if v, err := lit.Eval(); err == nil && math.Abs(v) <= maxMagnitude {
		vs[valueKey(v)] = entry{value: v, node: lit}
	}

	for k := i + 1; k < j && !s.exhausted; k++ {
		left, right := s.values(i, k), s.values(k, j)
		for _, l := range left {
			for _, r := range right {
				for _, op := range Operators {
					if !s.tick() {
						s.memo[key] = vs
						return vs
					}
					if op == OpPow && math.Abs(r.value) > maxExponent {
						continue
					}
					v, err := op.Apply(l.value, r.value)
					if err != nil || math.Abs(v) > maxMagnitude {
						continue
					}
					vk := valueKey(v)
					if _, seen := vs[vk]; !seen {
						vs[vk] = entry{value: v, node: &Binary{Op: op, Left: l.node, Right: r.node}}
					}
				}
			}
		}
	}

	s.memo[key] = vs
	return vs
}

// top searches the full range without materializing its value set: for each
// split and left value the right operand needed to hit the target is derived
// by inverting the operator and looked up in the right-hand set.
func (s *search) top() Node {
	n := len(s.digits)
	whole := &Number{Text: s.digits}
	if s.accept(whole) {
		return whole
	}

	for k := 1; k < n && !s.exhausted; k++ {
		left, right := s.values(0, k), s.values(k, n)
		for _, l := range left {
			for _, op := range Operators {
				if !s.tick() {
					return nil
				}
				for _, need := range s.inverse(op, l.value) {
					if math.Abs(need) > maxMagnitude {
						continue
					}
					r, ok := right[valueKey(need)]
					if !ok {
						continue
					}
					candidate := &Binary{Op: op, Left: l.node, Right: r.node}
					if s.accept(candidate) {
						return candidate
					}
				}
			}
		}
	}
	return nil
}

// inverse returns the right operands b for which a op b == target.
func (s *search) inverse(op Operator, a float64) []float64 {
	t := s.target
	switch op {
	case OpAdd:
		return []float64{t - a}
	case OpSub:
		return []float64{a - t}
	case OpMul:
		if a == 0 {
			return nil
		}
		return []float64{t / a}
	case OpDiv:
		return []float64{a / t}
	case OpPow:
		abs := math.Abs(a)
		if abs == 0 || abs == 1 {
			return nil
		}
		b := math.Log(t) / math.Log(abs)
		if a > 0 {
			return []float64{b}
		}
		// A negative base only reaches a positive target through an even
		// integer exponent.
		if rb := math.Round(b); math.Abs(b-rb) < Tolerance && math.Mod(rb, 2) == 0 {
			return []float64{rb}
		}
	}
	return nil
}

// accept re-verifies a candidate through the same path players use, so a
// reported witness always passes Check.
func (s *search) accept(n Node) bool {
	v, err := Verify(s.seq, n.String())
	return err == nil && Matches(v, Target)
}
