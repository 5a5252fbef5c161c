// Package dpll implements a classical DPLL solver over clause sets in
// conjunctive normal form. It is the simpler sibling of the CDCL engine in
// internal/sat and shares its data model at the boundary: clauses are slices
// of signed 1-based DIMACS literals and results are lifted booleans.
//
// The solver rewrites the clause set as it goes: unit propagation deletes
// satisfied clauses and strips falsified literals, pure literal elimination
// drops every clause containing a literal whose complement no longer occurs,
// and the remaining formula is split on a literal chosen by the configured
// branching heuristic.
package dpll

import (
	"time"

	"github.com/avanrossum/flint/internal/sat"
)

// Options configures a Solver at construction time.
type Options struct {
	// Heuristic selects the branching literal at each split.
	Heuristic Heuristic

	// MOMsExponent is the m parameter of the MOMs score
	// (n+ + n-)*2^m + n+*n-.
	MOMsExponent int

	// VSIDSDecay is applied to the VSIDS-lite counters before each
	// decision. Must be in (0, 1].
	VSIDSDecay float64

	// Timeout stops the search; negative values disable it. A stopped
	// solver returns Unknown.
	Timeout time.Duration
}

var DefaultOptions = Options{
	Heuristic:    JeroslowWang,
	MOMsExponent: 1,
	VSIDSDecay:   0.95,
	Timeout:      -1,
}

// Solver is a recursive DPLL solver. A Solver is single use: Solve must be
// called at most once per instance.
type Solver struct {
	heuristic Heuristic
	momsExp   int
	decay     float64
	timeout   time.Duration

	startTime  time.Time
	assignment map[int]bool
	scores     map[int]float64

	// Search statistics.
	Decisions        int64
	Propagations     int64
	PureEliminations int64
}

// NewDefaultSolver returns a solver configured with default options.
func NewDefaultSolver() *Solver {
	return NewSolver(DefaultOptions)
}

func NewSolver(ops Options) *Solver {
	return &Solver{
		heuristic:  ops.Heuristic,
		momsExp:    ops.MOMsExponent,
		decay:      ops.VSIDSDecay,
		timeout:    ops.Timeout,
		assignment: map[int]bool{},
		scores:     map[int]float64{},
	}
}

// Solve decides the satisfiability of the given formula. On True the returned
// assignment (variable -> value) satisfies every clause; variables absent
// from the map can take either value. Unknown is returned if the timeout
// fired before a verdict.
func (s *Solver) Solve(clauses [][]int) (sat.LBool, map[int]bool) {
	s.startTime = time.Now()

	simplified := make([][]int, 0, len(clauses))
	for _, c := range clauses {
		if len(c) == 0 {
			return sat.False, nil
		}
		if c, ok := normalize(c); ok {
			simplified = append(simplified, c)
		}
	}

	status := s.solve(simplified)
	if status != sat.True {
		return status, nil
	}
	return status, s.assignment
}

// normalize removes duplicated literals and reports whether the clause should
// be kept (tautologies are dropped).
func normalize(clause []int) ([]int, bool) {
	seen := make(map[int]struct{}, len(clause))
	out := make([]int, 0, len(clause))
	for _, l := range clause {
		if _, ok := seen[-l]; ok {
			return nil, false // always true
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out, true
}

func (s *Solver) expired() bool {
	return s.timeout >= 0 && s.timeout <= time.Since(s.startTime)
}

func (s *Solver) solve(clauses [][]int) sat.LBool {
	if s.expired() {
		return sat.Unknown
	}

	clauses, ok := s.unitPropagate(clauses)
	if !ok {
		return sat.False
	}

	clauses = s.pureLiteralElimination(clauses)
	if len(clauses) == 0 {
		return sat.True
	}

	s.Decisions++
	lit := s.chooseLiteral(clauses)

	saved := s.snapshot()
	if status := s.solve(append(clauses, []int{lit})); status != sat.False {
		return status
	}
	s.restore(saved)

	return s.solve(append(clauses, []int{-lit}))
}

func (s *Solver) snapshot() map[int]bool {
	saved := make(map[int]bool, len(s.assignment))
	for v, b := range s.assignment {
		saved[v] = b
	}
	return saved
}

func (s *Solver) restore(saved map[int]bool) {
	s.assignment = saved
}

// unitPropagate applies the unit rule to a fixed point: each unit clause {L}
// deletes every clause containing L and strips the complement of L from the
// rest. It returns false if an empty clause was derived.
func (s *Solver) unitPropagate(clauses [][]int) ([][]int, bool) {
	for {
		var unit int
		for _, c := range clauses {
			if len(c) == 1 {
				unit = c[0]
				break
			}
		}
		if unit == 0 {
			return clauses, true
		}

		s.Propagations++
		s.assign(unit)
		s.scores[abs(unit)]++

		next := make([][]int, 0, len(clauses))
		for _, c := range clauses {
			if contains(c, unit) {
				continue // satisfied
			}
			if contains(c, -unit) {
				reduced := remove(c, -unit)
				if len(reduced) == 0 {
					return nil, false
				}
				next = append(next, reduced)
			} else {
				next = append(next, c)
			}
		}
		clauses = next
	}
}

// pureLiteralElimination deletes, to a fixed point, every clause containing a
// pure literal. A literal is pure if and only if its complement occurs in
// zero remaining clauses.
func (s *Solver) pureLiteralElimination(clauses [][]int) [][]int {
	for {
		counts := map[int]int{}
		for _, c := range clauses {
			for _, l := range c {
				counts[l]++
			}
		}

		pure := map[int]struct{}{}
		for l := range counts {
			if counts[-l] == 0 {
				pure[l] = struct{}{}
			}
		}
		if len(pure) == 0 {
			return clauses
		}

		next := make([][]int, 0, len(clauses))
		for _, c := range clauses {
			kept := true
			for _, l := range c {
				if _, ok := pure[l]; ok {
					kept = false
					break
				}
			}
			if kept {
				next = append(next, c)
			}
		}

		for l := range pure {
			s.assign(l)
			s.PureEliminations++
		}

		if len(next) == len(clauses) {
			return next
		}
		clauses = next
	}
}

func (s *Solver) assign(lit int) {
	s.assignment[abs(lit)] = lit > 0
}

func abs(l int) int {
	if l < 0 {
		return -l
	}
	return l
}

func contains(clause []int, lit int) bool {
	for _, l := range clause {
		if l == lit {
			return true
		}
	}
	return false
}

func remove(clause []int, lit int) []int {
	out := make([]int, 0, len(clause)-1)
	for _, l := range clause {
		if l != lit {
			out = append(out, l)
		}
	}
	return out
}
