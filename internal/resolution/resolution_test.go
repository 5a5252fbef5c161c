package resolution

import (
	"math/rand"
	"testing"
	"time"

	"github.com/avanrossum/flint/internal/sat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProve(t *testing.T) {
	tests := []struct {
		name    string
		clauses [][]int
		want    sat.LBool
	}{
		{name: "empty_formula", clauses: nil, want: sat.True},
		{name: "empty_clause", clauses: [][]int{{}}, want: sat.False},
		{name: "single_unit", clauses: [][]int{{1}}, want: sat.True},
		{name: "contradictory_units", clauses: [][]int{{1}, {-1}}, want: sat.False},
		{name: "tautology_only", clauses: [][]int{{1, -1}}, want: sat.True},
		{
			name:    "unsat_all_polarities",
			clauses: [][]int{{1, 2}, {1, -2}, {-1, 2}, {-1, -2}},
			want:    sat.False,
		},
		{
			name:    "sat_forced_x2_x3",
			clauses: [][]int{{1, 2}, {-1, 2}, {-2, 3}},
			want:    sat.True,
		},
		{
			name:    "unsat_chain",
			clauses: [][]int{{1, 2}, {-1, 3}, {-2, 3}, {-3}},
			want:    sat.False,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Prove(tt.clauses, DefaultOptions))
		})
	}
}

func TestProve_timeout(t *testing.T) {
	// PHP(4, 3) saturates far too slowly for a 1ns budget.
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

	ops := Options{Timeout: time.Nanosecond}
	assert.Equal(t, sat.Unknown, Prove(clauses, ops))
}

// TestProve_againstCDCL cross-checks the prover against the CDCL engine on
// small random instances, where saturation is still affordable.
func TestProve_againstCDCL(t *testing.T) {
	const n = 6

	rng := rand.New(rand.NewSource(13))
	for i := 0; i < 25; i++ {
		nClauses := 2 + rng.Intn(10)
		clauses := make([][]int, nClauses)
		for j := range clauses {
			vars := rng.Perm(n)[:2]
			clause := make([]int, 2)
			for k, v := range vars {
				clause[k] = v + 1
				if rng.Intn(2) == 0 {
					clause[k] = -clause[k]
				}
			}
			clauses[j] = clause
		}

		s := sat.NewDefaultSolver()
		for v := 0; v < n; v++ {
			s.AddVariable()
		}
		for _, c := range clauses {
			lits := make([]sat.Literal, len(c))
			for k, l := range c {
				lits[k] = sat.FromDIMACS(l)
			}
			require.NoError(t, s.AddClause(lits))
		}

		want := s.Solve()
		got := Prove(clauses, DefaultOptions)
		require.Equal(t, want, got, "instance %d: %v", i, clauses)
	}
}
