// Package pigeonhole generates CNF encodings of the pigeonhole principle
// PHP(p, h): p pigeons must each sit in one of h holes, no hole holding two
// pigeons. Instances with p > h are unsatisfiable and classically hard for
// resolution-based solvers, which makes them useful benchmark inputs.
package pigeonhole

import (
	"fmt"

	"github.com/avanrossum/flint/internal/dimacs"
)

// Generate returns the PHP(pigeons, holes) instance. Variable x_{i,j}
// ("pigeon i sits in hole j") is encoded as 10*i + j, which requires
// holes <= 9 to stay unambiguous.
func Generate(pigeons, holes int) (*dimacs.Instance, error) {
	if pigeons < 1 || holes < 1 {
		return nil, fmt.Errorf("pigeonhole: need at least one pigeon and one hole")
	}
	if holes > 9 {
		return nil, fmt.Errorf("pigeonhole: the 10*i+j encoding supports at most 9 holes, got %d", holes)
	}

	instance := &dimacs.Instance{Variables: 10*pigeons + holes}

	// Each pigeon must go into at least one hole.
	for i := 1; i <= pigeons; i++ {
		clause := make([]int, holes)
		for j := 1; j <= holes; j++ {
			clause[j-1] = 10*i + j
		}
		instance.Clauses = append(instance.Clauses, clause)
	}

	// No two pigeons can go into the same hole.
	for i := 1; i <= pigeons; i++ {
		for j := i + 1; j <= pigeons; j++ {
			for k := 1; k <= holes; k++ {
				instance.Clauses = append(instance.Clauses, []int{
					-(10*i + k),
					-(10*j + k),
				})
			}
		}
	}

	return instance, nil
}

// WriteFile generates PHP(pigeons, holes) and writes it in DIMACS format.
func WriteFile(filename string, pigeons, holes int) error {
	instance, err := Generate(pigeons, holes)
	if err != nil {
		return err
	}
	return dimacs.WriteFile(filename, instance)
}
