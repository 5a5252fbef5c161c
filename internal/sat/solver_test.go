package sat

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestSolver returns a solver loaded with the given DIMACS-style clauses
// (1-based signed literals).
func newTestSolver(t *testing.T, nVars int, clauses [][]int) *Solver {
	t.Helper()
	s := NewDefaultSolver()
	for i := 0; i < nVars; i++ {
		s.AddVariable()
	}
	for _, c := range clauses {
		lits := make([]Literal, len(c))
		for i, l := range c {
			lits[i] = FromDIMACS(l)
		}
		require.NoError(t, s.AddClause(lits))
	}
	return s
}

// satisfies reports whether the model satisfies every clause.
func satisfies(model []bool, clauses [][]int) bool {
	for _, c := range clauses {
		ok := false
		for _, l := range c {
			v := l
			if v < 0 {
				v = -v
			}
			if model[v-1] == (l > 0) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func TestLuby(t *testing.T) {
	want := []int64{1, 1, 2, 1, 1, 2, 4, 1, 1, 2, 1, 1, 2, 4, 8}
	for k, w := range want {
		if got := Luby(int64(k)); got != w {
			t.Errorf("Luby(%d): want %d, got %d", k, w, got)
		}
	}
}

func TestSolve_emptyFormula(t *testing.T) {
	s := newTestSolver(t, 0, nil)
	assert.Equal(t, True, s.Solve())
	require.Len(t, s.Models, 1)
	assert.Empty(t, s.Models[0])
}

func TestSolve_emptyClause(t *testing.T) {
	s := newTestSolver(t, 2, nil)
	require.NoError(t, s.AddClause(nil))
	assert.Equal(t, False, s.Solve())
}

func TestSolve_unitClause(t *testing.T) {
	s := newTestSolver(t, 1, [][]int{{1}})
	require.Equal(t, True, s.Solve())
	assert.Equal(t, []bool{true}, s.Models[0])
	assert.Zero(t, s.TotalConflicts)
}

func TestSolve_contradictoryUnits(t *testing.T) {
	s := newTestSolver(t, 1, [][]int{{1}, {-1}})
	assert.Equal(t, False, s.Solve())
}

func TestSolve_propagationChain(t *testing.T) {
	// Satisfied by unit propagation alone, without a single decision.
	clauses := [][]int{{1}, {-1, 2}, {-2, 3}, {-3, 4}}
	s := newTestSolver(t, 4, clauses)

	require.Equal(t, True, s.Solve())
	assert.Equal(t, []bool{true, true, true, true}, s.Models[0])
	assert.Zero(t, s.TotalConflicts)
}

func TestSolve_rootConflictChain(t *testing.T) {
	// The unit fact !3 forces !1 and !2 which falsifies {1, 2}.
	s := newTestSolver(t, 3, [][]int{{1, 2}, {-1, 3}, {-2, 3}, {-3}})
	assert.Equal(t, False, s.Solve())
}

func TestSolve_smallFormulas(t *testing.T) {
	tests := []struct {
		name    string
		nVars   int
		clauses [][]int
		want    LBool
	}{
		{
			name:    "sat_implication_cycle",
			nVars:   3,
			clauses: [][]int{{1, -2}, {-1, 2}, {2, 3}, {-3}},
			want:    True,
		},
		{
			name:    "sat_forced_x2_x3",
			nVars:   3,
			clauses: [][]int{{1, 2}, {-1, 2}, {-2, 3}},
			want:    True,
		},
		{
			name:    "unsat_all_polarities",
			nVars:   2,
			clauses: [][]int{{1, 2}, {1, -2}, {-1, 2}, {-1, -2}},
			want:    False,
		},
		{
			name:  "unsat_xor_chain",
			nVars: 4,
			clauses: [][]int{
				{1, 2}, {-1, -2}, {2, 3}, {-2, -3},
				{3, 4}, {-3, -4}, {1, 4}, {-1, -4}, {1, 3}, {-1, -3},
			},
			want: False,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSolver(t, tt.nVars, tt.clauses)
			got := s.Solve()
			require.Equal(t, tt.want, got)
			if got == True {
				assert.True(t, satisfies(s.Models[0], tt.clauses),
					"model %v does not satisfy %v", s.Models[0], tt.clauses)
			}
		})
	}
}

// TestSolve_forcedX2X3 pins the values that every model of the formula must
// contain, regardless of the branching order.
func TestSolve_forcedX2X3(t *testing.T) {
	s := newTestSolver(t, 3, [][]int{{1, 2}, {-1, 2}, {-2, 3}})
	require.Equal(t, True, s.Solve())
	model := s.Models[0]
	assert.True(t, model[1], "x2 must be true")
	assert.True(t, model[2], "x3 must be true")
}

func TestTrailInvariants(t *testing.T) {
	clauses := [][]int{{1}, {-1, 2}, {-2, 3}, {-3, 4}}
	s := newTestSolver(t, 4, clauses)

	require.Nil(t, s.Propagate())

	trail := s.Trail()
	require.Len(t, trail, 4)

	seen := map[int]bool{}
	for _, l := range trail {
		v := l.VarID()
		require.False(t, seen[v], "variable %d appears twice on the trail", v)
		seen[v] = true

		assert.Equal(t, True, s.LitValue(l), "trail literal %v must be true", l)
		assert.Equal(t, 0, s.VarLevel(v))

		c := s.Reason(v)
		if c == nil {
			continue // decision or unit fact
		}
		found := false
		for _, q := range c.Literals() {
			if q.VarID() == v {
				found = true
				assert.Equal(t, True, s.LitValue(q), "asserting literal must be true")
			} else {
				assert.Equal(t, False, s.LitValue(q), "non-asserting literal must be false")
				assert.LessOrEqual(t, s.VarLevel(q.VarID()), s.VarLevel(v))
			}
		}
		assert.True(t, found, "antecedent of %d must contain its asserting literal", v)
	}
}

// TestSolve_backjumping runs the learn-and-backjump path on a satisfiable
// formula whose conflicts come from the chain below, and checks that the
// solver still reports SAT with a model satisfying every clause. It checks
// the final verdict and model only, not the level the solver backjumps to.
func TestSolve_backjumping(t *testing.T) {
	// x1 and x2 are free; deciding x3 forces a conflict through the chain
	// below whatever was decided before.
	clauses := [][]int{
		{1, 2, 3},
		{-3, 4}, {-3, 5}, {-4, -5, 6}, {-4, -6},
	}
	s := newTestSolver(t, 6, clauses)
	require.Equal(t, True, s.Solve())
	assert.True(t, satisfies(s.Models[0], clauses))
}

func TestSolve_reduceDB(t *testing.T) {
	// A tight learnt budget forces reductions mid-search; the result must be
	// unaffected. The formula is the pigeonhole principle PHP(4, 3).
	clauses := [][]int{}
	varOf := func(p, h int) int { return (p-1)*3 + h }
	for p := 1; p <= 4; p++ {
		clauses = append(clauses, []int{varOf(p, 1), varOf(p, 2), varOf(p, 3)})
	}
	for p := 1; p <= 4; p++ {
		for q := p + 1; q <= 4; q++ {
			for h := 1; h <= 3; h++ {
				clauses = append(clauses, []int{-varOf(p, h), -varOf(q, h)})
			}
		}
	}

	ops := DefaultOptions
	ops.MaxLearnts = 8
	ops.ReduceFloor = 2

	s := NewSolver(ops)
	for i := 0; i < 12; i++ {
		s.AddVariable()
	}
	for _, c := range clauses {
		lits := make([]Literal, len(c))
		for i, l := range c {
			lits[i] = FromDIMACS(l)
		}
		require.NoError(t, s.AddClause(lits))
	}

	assert.Equal(t, False, s.Solve())
}

func TestSolve_timeout(t *testing.T) {
	// PHP(8, 7) is far out of reach in 10ms; the solver must stop with
	// Unknown instead of misreporting UNSAT.
	ops := DefaultOptions
	ops.Timeout = 10 * time.Millisecond

	s := NewSolver(ops)
	for i := 0; i < 8*7; i++ {
		s.AddVariable()
	}
	varOf := func(p, h int) int { return (p-1)*7 + h }
	addClause := func(c []int) {
		lits := make([]Literal, len(c))
		for i, l := range c {
			lits[i] = FromDIMACS(l)
		}
		require.NoError(t, s.AddClause(lits))
	}
	for p := 1; p <= 8; p++ {
		c := []int{}
		for h := 1; h <= 7; h++ {
			c = append(c, varOf(p, h))
		}
		addClause(c)
	}
	for p := 1; p <= 8; p++ {
		for q := p + 1; q <= 8; q++ {
			for h := 1; h <= 7; h++ {
				addClause([]int{-varOf(p, h), -varOf(q, h)})
			}
		}
	}

	assert.Equal(t, Unknown, s.Solve())
}

func TestSolve_maxConflicts(t *testing.T) {
	ops := DefaultOptions
	ops.MaxConflicts = 0

	// UNSAT, but proving it requires at least one conflict.
	s := NewSolver(ops)
	for i := 0; i < 2; i++ {
		s.AddVariable()
	}
	for _, c := range [][]int{{1, 2}, {1, -2}, {-1, 2}, {-1, -2}} {
		lits := make([]Literal, len(c))
		for i, l := range c {
			lits[i] = FromDIMACS(l)
		}
		require.NoError(t, s.AddClause(lits))
	}

	assert.Equal(t, Unknown, s.Solve())
}

func TestVarOrder_phaseSaving(t *testing.T) {
	s := NewDefaultSolver()
	v := s.AddVariable()

	// Never-assigned variables default to the negative polarity.
	assert.Equal(t, NegativeLiteral(v), s.order.NextDecision(s))

	s.order.Reinsert(v, True)
	assert.Equal(t, PositiveLiteral(v), s.order.NextDecision(s))
}

func TestVarOrder_noPhaseSaving(t *testing.T) {
	ops := DefaultOptions
	ops.PhaseSaving = false

	s := NewSolver(ops)
	v := s.AddVariable()

	s.order.Reinsert(v, True)
	assert.Equal(t, NegativeLiteral(v), s.order.NextDecision(s))
}

func TestVarOrder_bumpOrder(t *testing.T) {
	s := NewDefaultSolver()
	a := s.AddVariable()
	b := s.AddVariable()

	s.BumpVarActivity(PositiveLiteral(b))
	assert.Equal(t, b, s.order.NextDecision(s).VarID())

	s.order.Reinsert(a, Unknown)
	s.order.Reinsert(b, Unknown)
	s.BumpVarActivity(PositiveLiteral(a))
	s.BumpVarActivity(PositiveLiteral(a))
	assert.Equal(t, a, s.order.NextDecision(s).VarID())
}

// randomThreeSAT returns a random 3-SAT formula over n variables at the given
// clause/variable ratio.
func randomThreeSAT(rng *rand.Rand, n int, ratio float64) [][]int {
	nClauses := int(float64(n) * ratio)
	clauses := make([][]int, 0, nClauses)
	for len(clauses) < nClauses {
		vars := rng.Perm(n)[:3]
		clause := make([]int, 3)
		for i, v := range vars {
			clause[i] = v + 1
			if rng.Intn(2) == 0 {
				clause[i] = -clause[i]
			}
		}
		clauses = append(clauses, clause)
	}
	return clauses
}

// TestSolve_randomAgainstBruteForce cross-checks the solver on small random
// instances where exhaustive enumeration is still affordable.
func TestSolve_randomAgainstBruteForce(t *testing.T) {
	const n = 10

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 100; i++ {
		clauses := randomThreeSAT(rng, n, 4.25)

		want := False
		for bits := 0; bits < 1<<n; bits++ {
			model := make([]bool, n)
			for v := 0; v < n; v++ {
				model[v] = bits&(1<<v) != 0
			}
			if satisfies(model, clauses) {
				want = True
				break
			}
		}

		s := newTestSolver(t, n, clauses)
		got := s.Solve()
		require.Equal(t, want, got, "instance %d: %v", i, clauses)
		if got == True {
			require.True(t, satisfies(s.Models[0], clauses))
		}
	}
}

func TestSolve_lubyRestarts(t *testing.T) {
	// A restart base of 1 makes the first windows end after a single
	// conflict each; PHP(4, 3) produces more than enough conflicts.
	ops := DefaultOptions
	ops.RestartBase = 1

	varOf := func(p, h int) int { return (p-1)*3 + h }
	clauses := [][]int{}
	for p := 1; p <= 4; p++ {
		clauses = append(clauses, []int{varOf(p, 1), varOf(p, 2), varOf(p, 3)})
	}
	for p := 1; p <= 4; p++ {
		for q := p + 1; q <= 4; q++ {
			for h := 1; h <= 3; h++ {
				clauses = append(clauses, []int{-varOf(p, h), -varOf(q, h)})
			}
		}
	}

	s := NewSolver(ops)
	for i := 0; i < 12; i++ {
		s.AddVariable()
	}
	for _, c := range clauses {
		lits := make([]Literal, len(c))
		for i, l := range c {
			lits[i] = FromDIMACS(l)
		}
		require.NoError(t, s.AddClause(lits))
	}

	require.Equal(t, False, s.Solve())
	assert.NotZero(t, s.TotalRestarts)
	assert.NotZero(t, s.TotalConflicts)
}
