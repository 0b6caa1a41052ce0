package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/memkit/mem/reuse"
	"github.com/joshuapare/memkit/stack"
	"github.com/joshuapare/memkit/text"
)

var demoCount int

func init() {
	cmd := newDemoCmd()
	cmd.Flags().IntVar(&demoCount, "count", 5, "Number of integers to push")
	rootCmd.AddCommand(cmd)
}

func newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the integer and person stack demos",
		Long: `The demo command pushes integers and person records onto stacks that
share one recycling allocator, printing contents in LIFO order and the
allocator's in-use/free block counts after each stack goes away.

Example:
  memctl demo
  memctl demo --count 10
  memctl demo --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo()
		},
	}
	return cmd
}

// person is the demo record; its name lives in allocator-backed text.
type person struct {
	ID    int
	Name  text.Text
	Score float64
}

func (p *person) Destroy() error {
	return p.Name.Destroy()
}

type blockCounts struct {
	InUse int `json:"in_use"`
	Free  int `json:"free"`
}

type personView struct {
	ID    int     `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

type demoResult struct {
	Ints         []int        `json:"ints"`
	IntsAfterPop int          `json:"ints_after_pop"`
	AfterInts    blockCounts  `json:"after_ints"`
	People       []personView `json:"people"`
	AtEnd        blockCounts  `json:"at_end"`
	Stats        reuse.Stats  `json:"stats"`
}

func runDemo() (err error) {
	a, err := newAllocator()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeAllocator(a); cerr != nil && err == nil {
			err = cerr
		}
	}()

	var res demoResult

	printInfo("--- Integer stack demo ---\n")
	if err := intDemo(a, &res); err != nil {
		return err
	}
	res.AfterInts = blockCounts{InUse: a.InUseCount(), Free: a.FreeCount()}
	printInfo("free blocks after int stack out of scope: in_use=%d free=%d\n",
		res.AfterInts.InUse, res.AfterInts.Free)

	printInfo("--- Complex type demo (Person) ---\n")
	if err := personDemo(a, &res); err != nil {
		return err
	}
	res.AtEnd = blockCounts{InUse: a.InUseCount(), Free: a.FreeCount()}
	res.Stats = a.Stats()
	printInfo("At end: in_use=%d free=%d\n", res.AtEnd.InUse, res.AtEnd.Free)

	if jsonOut {
		return printJSON(res)
	}
	printVerbose("Allocations: %d (reused %d, reserved %d)\n",
		res.Stats.AllocCalls, res.Stats.Hits, res.Stats.Misses)
	return nil
}

func intDemo(a *reuse.Allocator, res *demoResult) error {
	s := stack.New[int](a)
	defer s.Close()

	for i := 1; i <= demoCount; i++ {
		if err := s.Push(i * 10); err != nil {
			return err
		}
	}
	printInfo("stack size: %d\n", s.Len())
	for v := range s.Values() {
		res.Ints = append(res.Ints, v)
		printInfo("%d ", v)
	}
	printInfo("\nPop two\n")
	if err := s.Pop(); err != nil {
		return err
	}
	if err := s.Pop(); err != nil {
		return err
	}
	res.IntsAfterPop = s.Len()
	printInfo("stack size: %d\n", s.Len())
	return s.Close()
}

func personDemo(a *reuse.Allocator, res *demoResult) error {
	ps := stack.New[person](a)
	defer ps.Close()

	people := []struct {
		id    int
		name  string
		score float64
	}{
		{1, "Alice", 10.5},
		{2, "Bob", 20.25},
		{3, "Carol", 15.75},
	}
	for _, p := range people {
		name, err := text.New(a, p.name)
		if err != nil {
			return err
		}
		err = ps.Emplace(func(dst *person) error {
			n, err := name.Clone()
			if err != nil {
				return err
			}
			*dst = person{ID: p.id, Name: n, Score: p.score}
			return nil
		})
		if derr := name.Destroy(); err == nil {
			err = derr
		}
		if err != nil {
			return fmt.Errorf("emplace %s: %w", p.name, err)
		}
	}

	printInfo("person stack size: %d\n", ps.Len())
	for p := range ps.All() {
		res.People = append(res.People, personView{ID: p.ID, Name: p.Name.String(), Score: p.Score})
		printInfo("id=%d name=%s score=%g\n", p.ID, p.Name.String(), p.Score)
	}
	return ps.Close()
}
