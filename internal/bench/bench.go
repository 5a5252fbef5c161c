// Package bench runs a solver over every DIMACS instance of a directory and
// reports per-file results as CSV rows. Each instance is solved by a fresh
// solver under a per-file time limit; parse failures are recorded as ERROR
// rows and do not abort the batch.
package bench

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/avanrossum/flint/internal/dimacs"
	"github.com/avanrossum/flint/internal/dpll"
	"github.com/avanrossum/flint/internal/sat"
)

// EngineCDCL selects the CDCL engine; any other engine name must be a DPLL
// heuristic accepted by dpll.ParseHeuristic.
const EngineCDCL = "cdcl"

// Result is one CSV row of a batch run.
type Result struct {
	Filename string
	Clauses  int
	Status   string // SAT, UNSAT, TIMEOUT, or ERROR
	Seconds  float64
	MemoryMB float64
	Engine   string
}

// Options configures a batch run.
type Options struct {
	// Timeout is the per-file time limit.
	Timeout time.Duration

	// Engine is EngineCDCL or a DPLL heuristic name.
	Engine string

	Logger *logrus.Logger
}

var DefaultOptions = Options{
	Timeout: 30 * time.Second,
	Engine:  EngineCDCL,
}

// Run solves every "*.cnf" file of dir (in lexical order) and returns one
// result per file.
func Run(dir string, ops Options) ([]Result, error) {
	if ops.Logger == nil {
		ops.Logger = logrus.New()
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.cnf"))
	if err != nil {
		return nil, errors.Wrapf(err, "listing instances in %q", dir)
	}
	if files == nil {
		if _, err := os.Stat(dir); err != nil {
			return nil, errors.Wrapf(err, "listing instances in %q", dir)
		}
	}
	sort.Strings(files)

	results := make([]Result, 0, len(files))
	for i, file := range files {
		log := ops.Logger.WithFields(logrus.Fields{
			"instance": filepath.Base(file),
			"progress": fmt.Sprintf("%d/%d", i+1, len(files)),
		})

		r := solveFile(file, ops)
		results = append(results, r)

		log.WithFields(logrus.Fields{
			"result":  r.Status,
			"seconds": fmt.Sprintf("%.4f", r.Seconds),
		}).Info("instance solved")
	}

	return results, nil
}

func solveFile(file string, ops Options) Result {
	result := Result{
		Filename: filepath.Base(file),
		Engine:   ops.Engine,
	}

	instance, err := dimacs.ParseFile(file)
	if err != nil {
		ops.Logger.WithError(err).Error("parse error")
		result.Status = "ERROR"
		return result
	}
	result.Clauses = len(instance.Clauses)

	memBefore := heapMB()
	start := time.Now()

	status, err := solveInstance(instance, ops)
	result.Seconds = time.Since(start).Seconds()
	result.MemoryMB = heapMB() - memBefore
	if result.MemoryMB < 0 {
		result.MemoryMB = 0
	}

	switch {
	case err != nil:
		ops.Logger.WithError(err).Error("solver error")
		result.Status = "ERROR"
	case status == sat.True:
		result.Status = "SAT"
	case status == sat.False:
		result.Status = "UNSAT"
	default:
		result.Status = "TIMEOUT"
	}
	return result
}

func solveInstance(instance *dimacs.Instance, ops Options) (sat.LBool, error) {
	if ops.Engine == EngineCDCL {
		solverOps := sat.DefaultOptions
		solverOps.Timeout = ops.Timeout

		s := sat.NewSolver(solverOps)
		if err := dimacs.Instantiate(s, instance); err != nil {
			return sat.Unknown, errors.Wrap(err, "loading instance")
		}
		return s.Solve(), nil
	}

	heuristic, err := dpll.ParseHeuristic(ops.Engine)
	if err != nil {
		return sat.Unknown, err
	}

	solverOps := dpll.DefaultOptions
	solverOps.Heuristic = heuristic
	solverOps.Timeout = ops.Timeout

	status, _ := dpll.NewSolver(solverOps).Solve(instance.Clauses)
	return status, nil
}

// WriteCSV writes the results with the header
// filename, clauses, result, solving_time_seconds, memory_mb, heuristic.
func WriteCSV(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)

	header := []string{
		"filename", "clauses", "result",
		"solving_time_seconds", "memory_mb", "heuristic",
	}
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "writing CSV header")
	}

	for _, r := range results {
		row := []string{
			r.Filename,
			fmt.Sprintf("%d", r.Clauses),
			r.Status,
			fmt.Sprintf("%.6f", r.Seconds),
			fmt.Sprintf("%.2f", r.MemoryMB),
			r.Engine,
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "writing CSV row for %s", r.Filename)
		}
	}

	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing CSV")
}

// WriteCSVFile writes the results to the given file.
func WriteCSVFile(filename string, results []Result) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "creating %s", filename)
	}
	if err := WriteCSV(file, results); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func heapMB() float64 {
	stats := runtime.MemStats{}
	runtime.ReadMemStats(&stats)
	return float64(stats.HeapAlloc) / (1024 * 1024)
}
