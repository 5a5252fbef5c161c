package main

import (
	"fmt"
	"os"
	"runtime/pprof"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/avanrossum/flint/internal/bench"
	"github.com/avanrossum/flint/internal/dimacs"
	"github.com/avanrossum/flint/internal/dpll"
	"github.com/avanrossum/flint/internal/pigeonhole"
	"github.com/avanrossum/flint/internal/sat"
)

var log = logrus.New()

var (
	flagTimeout time.Duration
	flagEngine  string

	flagCPUProfile bool
	flagMemProfile bool
	flagVerbose    bool

	flagOutput string
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "flint",
		Short:         "A CDCL/DPLL SAT solver for DIMACS CNF instances",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().DurationVar(&flagTimeout, "timeout", 30*time.Second,
		"per-instance time limit")
	root.PersistentFlags().StringVar(&flagEngine, "engine", bench.EngineCDCL,
		"solving engine: cdcl, jw, moms, or vsids")

	solve := &cobra.Command{
		Use:   "solve <instance.cnf>",
		Short: "Solve a single instance",
		Args:  cobra.ExactArgs(1),
		RunE:  runSolve,
	}
	solve.Flags().BoolVar(&flagCPUProfile, "cpuprof", false,
		"save pprof CPU profile in cpuprof")
	solve.Flags().BoolVar(&flagMemProfile, "memprof", false,
		"save pprof memory profile in memprof")
	solve.Flags().BoolVar(&flagVerbose, "verbose", false,
		"print the search-progress table")

	benchCmd := &cobra.Command{
		Use:   "bench <directory>",
		Short: "Solve every *.cnf instance of a directory and write a results CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  runBench,
	}
	benchCmd.Flags().StringVar(&flagOutput, "output", "results.csv",
		"path of the results CSV")

	php := &cobra.Command{
		Use:   "pigeonhole <pigeons> <holes>",
		Short: "Generate a pigeonhole-principle instance in DIMACS format",
		Args:  cobra.ExactArgs(2),
		RunE:  runPigeonhole,
	}
	php.Flags().StringVar(&flagOutput, "output", "",
		"output file (default pigeonhole_<p>_<h>.cnf)")

	root.AddCommand(solve, benchCmd, php)
	return root
}

func runSolve(cmd *cobra.Command, args []string) error {
	if flagCPUProfile {
		f, err := os.Create("cpuprof")
		if err != nil {
			return err
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	instance, err := dimacs.ParseFile(args[0])
	if err != nil {
		return fmt.Errorf("could not parse instance: %s", err)
	}

	fmt.Printf("c variables:  %d\n", instance.Variables)
	fmt.Printf("c clauses:    %d\n", len(instance.Clauses))

	status, model, err := solveInstance(instance)
	if err != nil {
		return err
	}

	fmt.Printf("s %s\n", status)
	if status == sat.True {
		printModel(model)
	}

	if flagMemProfile {
		f, err := os.Create("memprof")
		if err != nil {
			return err
		}
		pprof.WriteHeapProfile(f)
		f.Close()
	}
	return nil
}

func solveInstance(instance *dimacs.Instance) (sat.LBool, []bool, error) {
	if flagEngine == bench.EngineCDCL {
		ops := sat.DefaultOptions
		ops.Timeout = flagTimeout
		ops.Verbose = flagVerbose

		s := sat.NewSolver(ops)
		if err := dimacs.Instantiate(s, instance); err != nil {
			return sat.Unknown, nil, err
		}

		t := time.Now()
		status := s.Solve()
		elapsed := time.Since(t)

		fmt.Printf("c time (sec): %f\n", elapsed.Seconds())
		fmt.Printf("c conflicts:  %d (%.2f /sec)\n",
			s.TotalConflicts, float64(s.TotalConflicts)/elapsed.Seconds())

		var model []bool
		if status == sat.True {
			model = s.Models[len(s.Models)-1]
		}
		return status, model, nil
	}

	heuristic, err := dpll.ParseHeuristic(flagEngine)
	if err != nil {
		return sat.Unknown, nil, err
	}

	ops := dpll.DefaultOptions
	ops.Heuristic = heuristic
	ops.Timeout = flagTimeout

	t := time.Now()
	status, assignment := dpll.NewSolver(ops).Solve(instance.Clauses)
	fmt.Printf("c time (sec): %f\n", time.Since(t).Seconds())

	var model []bool
	if status == sat.True {
		model = make([]bool, instance.Variables)
		for v, b := range assignment {
			model[v-1] = b
		}
	}
	return status, model, nil
}

func printModel(model []bool) {
	fmt.Print("v")
	for i, b := range model {
		l := i + 1
		if !b {
			l = -l
		}
		fmt.Printf(" %d", l)
	}
	fmt.Println(" 0")
}

func runBench(cmd *cobra.Command, args []string) error {
	ops := bench.DefaultOptions
	ops.Timeout = flagTimeout
	ops.Engine = flagEngine
	ops.Logger = log

	results, err := bench.Run(args[0], ops)
	if err != nil {
		return err
	}

	if err := bench.WriteCSVFile(flagOutput, results); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"instances": len(results),
		"output":    flagOutput,
	}).Info("batch completed")
	return nil
}

func runPigeonhole(cmd *cobra.Command, args []string) error {
	pigeons, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid pigeon count %q", args[0])
	}
	holes, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid hole count %q", args[1])
	}

	output := flagOutput
	if output == "" {
		output = fmt.Sprintf("pigeonhole_%d_%d.cnf", pigeons, holes)
	}

	if err := pigeonhole.WriteFile(output, pigeons, holes); err != nil {
		return err
	}
	log.WithField("output", output).Info("instance generated")
	return nil
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Fatal(err)
	}
}
