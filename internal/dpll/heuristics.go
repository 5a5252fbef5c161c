package dpll

import (
	"fmt"
	"math"
	"sort"
)

// Heuristic identifies the branching rule used to pick the splitting literal.
type Heuristic int

const (
	// JeroslowWang maximizes the sum of 2^-|C| over the clauses containing
	// the literal.
	JeroslowWang Heuristic = iota

	// MOMs picks the variable occurring most often in the minimum-size
	// clauses, scored as (n+ + n-)*2^m + n+*n-.
	MOMs

	// VSIDSLite picks the variable with the highest propagation counter.
	// Counters are bumped each time a literal of the variable is unit
	// propagated and decayed before each decision.
	VSIDSLite
)

func (h Heuristic) String() string {
	switch h {
	case JeroslowWang:
		return "jw"
	case MOMs:
		return "moms"
	case VSIDSLite:
		return "vsids"
	default:
		return fmt.Sprintf("Heuristic(%d)", int(h))
	}
}

// ParseHeuristic converts a heuristic name ("jw", "moms", "vsids") to its
// Heuristic value.
func ParseHeuristic(name string) (Heuristic, error) {
	switch name {
	case "jw":
		return JeroslowWang, nil
	case "moms":
		return MOMs, nil
	case "vsids":
		return VSIDSLite, nil
	default:
		return 0, fmt.Errorf("unknown heuristic %q", name)
	}
}

// chooseLiteral returns the splitting literal for the given non-empty clause
// set. Ties are broken deterministically so that runs are reproducible: by the
// smallest variable for MOMs and VSIDS-lite, and by the smallest signed literal
// for Jeroslow-Wang.
func (s *Solver) chooseLiteral(clauses [][]int) int {
	switch s.heuristic {
	case MOMs:
		return s.chooseMOMs(clauses)
	case VSIDSLite:
		return s.chooseVSIDSLite(clauses)
	default:
		return s.chooseJeroslowWang(clauses)
	}
}

func (s *Solver) chooseJeroslowWang(clauses [][]int) int {
	weights := map[int]float64{}
	for _, c := range clauses {
		w := math.Pow(2, -float64(len(c)))
		for _, l := range c {
			weights[l] += w
		}
	}

	best, bestWeight := 0, math.Inf(-1)
	for _, l := range sortedKeys(weights) {
		if w := weights[l]; w > bestWeight {
			best, bestWeight = l, w
		}
	}
	return best
}

func (s *Solver) chooseMOMs(clauses [][]int) int {
	minSize := len(clauses[0])
	for _, c := range clauses[1:] {
		if len(c) < minSize {
			minSize = len(c)
		}
	}

	pos := map[int]int{}
	neg := map[int]int{}
	for _, c := range clauses {
		if len(c) != minSize {
			continue
		}
		for _, l := range c {
			if l > 0 {
				pos[l]++
			} else {
				neg[-l]++
			}
		}
	}

	vars := map[int]struct{}{}
	for v := range pos {
		vars[v] = struct{}{}
	}
	for v := range neg {
		vars[v] = struct{}{}
	}

	scale := 1 << s.momsExp
	best, bestScore := 0, -1
	for _, v := range sortedVars(vars) {
		score := (pos[v]+neg[v])*scale + pos[v]*neg[v]
		if score > bestScore {
			best, bestScore = v, score
		}
	}

	// Branch first on the polarity with the most occurrences.
	if neg[best] > pos[best] {
		return -best
	}
	return best
}

func (s *Solver) chooseVSIDSLite(clauses [][]int) int {
	for v := range s.scores {
		s.scores[v] *= s.decay
	}

	vars := map[int]struct{}{}
	for _, c := range clauses {
		for _, l := range c {
			vars[abs(l)] = struct{}{}
		}
	}

	best, bestScore := 0, math.Inf(-1)
	for _, v := range sortedVars(vars) {
		if score := s.scores[v]; score > bestScore {
			best, bestScore = v, score
		}
	}
	return best
}

func sortedKeys(m map[int]float64) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func sortedVars(m map[int]struct{}) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
