package main

import (
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/pkg/malloc"
)

var (
	recycleIterations int
	recycleMaxSize    int
	recycleSeed       int64
)

func init() {
	cmd := newRecycleCmd()
	cmd.Flags().IntVar(&recycleIterations, "iterations", 10, "Number of resize/alloc/free rounds")
	cmd.Flags().IntVar(&recycleMaxSize, "max-size", 1024, "Upper bound (exclusive) for request sizes")
	cmd.Flags().Int64Var(&recycleSeed, "seed", 0, "Random seed (0 picks one from the clock)")
	rootCmd.AddCommand(cmd)
}

func newRecycleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recycle",
		Short: "Measure how well freed space is reused",
		Long: `The recycle command keeps one block alive while resizing it to random
sizes, allocating and releasing a second block of the same size each round.
It reports the bytes serviced against the arena extent they needed.

Example:
  heapctl recycle --iterations 20
  heapctl recycle --iterations 1000 --max-size 256 --seed 7 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecycle()
		},
	}
}

func runRecycle() error {
	seed := recycleSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	printVerbose("Seed: %d\n", seed)

	arena, err := newArena()
	if err != nil {
		return err
	}
	defer arena.Close()

	a, err := newAllocator(arena, nil)
	if err != nil {
		return err
	}

	res, err := malloc.Recycle(a, recycleIterations, recycleMaxSize, rand.New(rand.NewSource(seed)))
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(struct {
			malloc.RecycleResult
			Seed int64 `json:"seed"`
		}{res, seed})
	}

	printInfo("%s\n", headerStyle().Render(
		numbers.Sprintf("Recycling report for %d iterations", res.Iterations)))
	printInfo("%s\n", numbers.Sprintf("Serviced requests totaling %d bytes, heap extent is %d bytes. Recycled %d%%",
		res.Serviced, res.Extent, res.Percent))
	return nil
}
