package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/memkit/mem/reuse"
	"github.com/joshuapare/memkit/stack"
)

var (
	churnRounds int
	churnDepth  int
)

func init() {
	cmd := newChurnCmd()
	cmd.Flags().IntVar(&churnRounds, "rounds", 10, "Number of fill/drain rounds")
	cmd.Flags().IntVar(&churnDepth, "depth", 100, "Elements pushed per round")
	rootCmd.AddCommand(cmd)
}

func newChurnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "churn",
		Short: "Fill and drain stacks repeatedly to show block reuse",
		Long: `The churn command fills a fresh stack to --depth elements and drains it,
--rounds times, on one allocator. After the first round every node block
comes from the free set, so reservations stay at --depth.

Example:
  memctl churn
  memctl churn --rounds 100 --depth 1000 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChurn()
		},
	}
	return cmd
}

type churnResult struct {
	Rounds int         `json:"rounds"`
	Depth  int         `json:"depth"`
	InUse  int         `json:"in_use"`
	Free   int         `json:"free"`
	Stats  reuse.Stats `json:"stats"`
}

func runChurn() (err error) {
	if churnRounds < 0 || churnDepth < 0 {
		return fmt.Errorf("rounds and depth must be >= 0")
	}
	a, err := newAllocator()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeAllocator(a); cerr != nil && err == nil {
			err = cerr
		}
	}()

	for r := range churnRounds {
		s := stack.New[int](a)
		for i := range churnDepth {
			if err := s.Push(i); err != nil {
				s.Close()
				return fmt.Errorf("round %d: %w", r, err)
			}
		}
		if err := s.Close(); err != nil {
			return fmt.Errorf("round %d: %w", r, err)
		}
		printVerbose("round %d: in_use=%d free=%d\n", r, a.InUseCount(), a.FreeCount())
	}

	res := churnResult{
		Rounds: churnRounds,
		Depth:  churnDepth,
		InUse:  a.InUseCount(),
		Free:   a.FreeCount(),
		Stats:  a.Stats(),
	}
	if jsonOut {
		return printJSON(res)
	}
	printInfo("rounds=%d depth=%d allocations=%d reused=%d reserved=%d in_use=%d free=%d\n",
		res.Rounds, res.Depth, res.Stats.AllocCalls, res.Stats.Hits, res.Stats.Misses,
		res.InUse, res.Free)
	return nil
}
