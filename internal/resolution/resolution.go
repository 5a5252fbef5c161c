// Package resolution implements a naive saturation prover: all pairs of
// clauses are resolved until the empty clause is derived or no new resolvent
// can be produced. It has no completeness guarantee in bounded time and can
// blow up memory on non-trivial inputs; it only serves as an oracle for
// small instances in tests.
package resolution

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/avanrossum/flint/internal/sat"
)

// Options configures a proof attempt.
type Options struct {
	// Timeout bounds the saturation; negative values disable it. An
	// expired prover returns Unknown.
	Timeout time.Duration
}

var DefaultOptions = Options{
	Timeout: 5 * time.Second,
}

// clause is a set of literals keyed by their value.
type clause map[int]struct{}

// key returns a canonical representation of the clause, used to deduplicate
// clauses across iterations.
func (c clause) key() string {
	lits := make([]int, 0, len(c))
	for l := range c {
		lits = append(lits, l)
	}
	sort.Ints(lits)

	sb := strings.Builder{}
	for i, l := range lits {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.Itoa(l))
	}
	return sb.String()
}

// tautological returns true if the clause contains a literal and its
// complement.
func (c clause) tautological() bool {
	for l := range c {
		if _, ok := c[-l]; ok {
			return true
		}
	}
	return false
}

// resolve returns the resolvent of a and b on literal l (which must be in a,
// with its complement in b).
func resolve(a, b clause, l int) clause {
	r := make(clause, len(a)+len(b)-2)
	for q := range a {
		if q != l {
			r[q] = struct{}{}
		}
	}
	for q := range b {
		if q != -l {
			r[q] = struct{}{}
		}
	}
	return r
}

// Prove saturates the clause set by resolution. It returns False if the
// empty clause was derived (the formula is unsatisfiable), True if a fixed
// point was reached without deriving it, and Unknown if the deadline
// expired first.
func Prove(clauses [][]int, ops Options) sat.LBool {
	start := time.Now()
	expired := func() bool {
		return ops.Timeout >= 0 && ops.Timeout <= time.Since(start)
	}

	set := map[string]clause{}
	for _, lits := range clauses {
		if len(lits) == 0 {
			return sat.False
		}
		c := make(clause, len(lits))
		for _, l := range lits {
			c[l] = struct{}{}
		}
		if c.tautological() {
			continue
		}
		set[c.key()] = c
	}

	for {
		resolvents := map[string]clause{}

		all := make([]clause, 0, len(set))
		for _, c := range set {
			all = append(all, c)
		}

		for i, ci := range all {
			for _, cj := range all[i+1:] {
				if expired() {
					return sat.Unknown
				}
				for l := range ci {
					if _, ok := cj[-l]; !ok {
						continue
					}
					r := resolve(ci, cj, l)
					if len(r) == 0 {
						return sat.False
					}
					if r.tautological() {
						continue
					}
					resolvents[r.key()] = r
				}
			}
		}

		fresh := false
		for k, c := range resolvents {
			if _, ok := set[k]; !ok {
				set[k] = c
				fresh = true
			}
		}
		if !fresh {
			return sat.True
		}
	}
}
