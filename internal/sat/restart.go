package sat

// restarter schedules solver restarts on the Luby sequence: the k-th search
// window ends after base*Luby(k) conflicts.
type restarter struct {
	base      int64
	windows   int64
	conflicts int64 // conflicts since the last restart
}

func newRestarter(base int64) *restarter {
	return &restarter{base: base}
}

// OnConflict records one conflict in the current window.
func (r *restarter) OnConflict() {
	r.conflicts++
}

// ShouldRestart returns true if the current window's conflict budget is
// exhausted. A non-positive base disables restarts.
func (r *restarter) ShouldRestart() bool {
	return r.base > 0 && r.conflicts >= r.base*Luby(r.windows)
}

// OnRestart closes the current window and resets its conflict counter.
// Variable activities, saved phases, and learnt clauses are untouched: only
// the solver's trail is affected by a restart (see Solver.Search).
func (r *restarter) OnRestart() {
	r.windows++
	r.conflicts = 0
}

// Luby returns the k-th element (0-based) of the Luby restart sequence
//
//	1, 1, 2, 1, 1, 2, 4, 1, 1, 2, 1, 1, 2, 4, 8, ...
//
// where element 2^i-2 is 2^(i-1) and the prefix before it repeats the
// sequence itself.
func Luby(k int64) int64 {
	// Size of the smallest full subsequence 1, ..., 2^seq containing
	// index k, i.e. size = 2^(seq+1) - 1.
	size, seq := int64(1), 0
	for size < k+1 {
		seq++
		size = 2*size + 1
	}

	for size-1 != k {
		size = (size - 1) / 2
		seq--
		k = k % size
	}

	return 1 << seq
}
