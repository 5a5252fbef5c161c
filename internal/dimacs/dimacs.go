// Package dimacs reads and writes CNF formulas in the DIMACS format, with
// the lenient dialect found in benchmark sets: the problem line is optional,
// clauses may span lines, and `%`, `;`, and `*` truncate a line as inline
// comment markers.
package dimacs

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/avanrossum/flint/internal/sat"
)

// Instance is a parsed CNF formula. Clauses hold signed 1-based literals,
// exactly as they appear in the file.
type Instance struct {
	Variables int
	Clauses   [][]int
}

// ParseError reports malformed DIMACS input. Parse errors are surfaced
// before any solver is invoked.
type ParseError struct {
	File string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}

// ParseFile reads the instance contained in the given file. Files with a
// ".gz" extension are transparently decompressed.
func ParseFile(filename string) (*Instance, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := io.Reader(file)
	if strings.HasSuffix(filename, ".gz") {
		gz, err := gzip.NewReader(reader)
		if err != nil {
			return nil, fmt.Errorf("error reading file %q: %s", filename, err)
		}
		defer gz.Close()
		reader = gz
	}

	instance, err := Parse(reader)
	if err != nil {
		if pe, ok := err.(*ParseError); ok {
			pe.File = filename
		}
		return nil, err
	}
	return instance, nil
}

// Parse reads an instance from r. The number of variables is the maximum of
// the problem line's declaration (if any) and the largest index observed.
func Parse(r io.Reader) (*Instance, error) {
	instance := &Instance{}
	clause := []int{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		// Inline comment markers truncate the rest of the line.
		if i := strings.IndexAny(line, "%;*"); i >= 0 {
			line = line[:i]
		}

		line = strings.TrimSpace(line)
		if line == "" || line[0] == 'c' {
			continue
		}

		if line[0] == 'p' {
			// The problem line is informational only.
			parts := strings.Fields(line)
			if len(parts) < 4 || parts[1] != "cnf" {
				return nil, &ParseError{Line: lineNo, Msg: fmt.Sprintf("invalid problem line %q", line)}
			}
			nVars, err := strconv.Atoi(parts[2])
			if err != nil {
				return nil, &ParseError{Line: lineNo, Msg: fmt.Sprintf("invalid problem line %q", line)}
			}
			if nVars > instance.Variables {
				instance.Variables = nVars
			}
			continue
		}

		for _, tok := range strings.Fields(line) {
			l, err := strconv.Atoi(tok)
			if err != nil {
				return nil, &ParseError{Line: lineNo, Msg: fmt.Sprintf("invalid literal %q", tok)}
			}
			if l == 0 {
				instance.Clauses = append(instance.Clauses, clause)
				clause = []int{}
				continue
			}
			if v := abs(l); v > instance.Variables {
				instance.Variables = v
			}
			clause = append(clause, l)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(clause) != 0 {
		return nil, &ParseError{Line: lineNo, Msg: "unterminated clause"}
	}

	return instance, nil
}

// Instantiate loads the instance's variables and clauses in the given solver.
// Tautological clauses are dropped silently by the solver.
func Instantiate(s *sat.Solver, instance *Instance) error {
	for range instance.Variables {
		s.AddVariable()
	}

	litBuffer := make([]sat.Literal, 0, 32)
	for _, clause := range instance.Clauses {
		litBuffer = litBuffer[:0]
		for _, l := range clause {
			litBuffer = append(litBuffer, sat.FromDIMACS(l))
		}
		if err := s.AddClause(litBuffer); err != nil {
			return err
		}
	}
	return nil
}

// Write emits the instance in DIMACS format: a problem line followed by one
// clause per line.
func Write(w io.Writer, instance *Instance) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "p cnf %d %d\n", instance.Variables, len(instance.Clauses))
	for _, clause := range instance.Clauses {
		for _, l := range clause {
			fmt.Fprintf(bw, "%d ", l)
		}
		fmt.Fprintln(bw, "0")
	}

	return bw.Flush()
}

// WriteFile writes the instance to the given file.
func WriteFile(filename string, instance *Instance) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := Write(file, instance); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func abs(l int) int {
	if l < 0 {
		return -l
	}
	return l
}
