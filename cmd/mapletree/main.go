// cmd/mapletree/main.go
//
// mapletree - an interactive shell over a single in-memory maple tree.
//
// Usage:
//
//	mapletree [-alloc] [-rcu]
//
// Commands (one per line):
//
//	store  <lo> <hi> <value>
//	insert <lo> <hi> <value>
//	erase  <lo> <hi>
//	load   <index>
//	next   <index>
//	prev   <index>
//	alloc  <lo> <hi> <size> <value>
//	allocrev <lo> <hi> <size> <value>
//	iterate
//	stats
//	.exit
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"maple/pkg/maple"
)

func main() {
	allocMode := flag.Bool("alloc", false, "maintain the gap index for Alloc/AllocRev")
	rcu := flag.Bool("rcu", false, "reader-visible mode (disables in-place reuse)")
	flag.Parse()

	sh := newShell(os.Stdin, os.Stdout, os.Stderr, maple.Config{AllocMode: *allocMode, RCU: *rcu})
	defer sh.close()
	sh.run()
}

// shell is a tiny line-oriented command dispatcher, in the same spirit as
// the teacher's pkg/cli.REPL but scoped to the handful of tree
// operations this repo exposes instead of a SQL grammar.
type shell struct {
	tree   *maple.Tree
	in     *bufio.Scanner
	out    io.Writer
	errOut io.Writer
}

func newShell(in io.Reader, out, errOut io.Writer, cfg maple.Config) *shell {
	return &shell{
		tree:   maple.NewTree(cfg),
		in:     bufio.NewScanner(in),
		out:    out,
		errOut: errOut,
	}
}

func (s *shell) close() error {
	return s.tree.Destroy()
}

func (s *shell) run() {
	fmt.Fprintln(s.out, "mapletree - type .exit to quit")
	for {
		fmt.Fprint(s.out, "maple> ")
		if !s.in.Scan() {
			return
		}
		line := strings.TrimSpace(s.in.Text())
		if line == "" {
			continue
		}
		if line == ".exit" {
			return
		}
		if err := s.dispatch(line); err != nil {
			fmt.Fprintf(s.errOut, "error: %v\n", err)
		}
	}
}

func (s *shell) dispatch(line string) error {
	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case "store":
		return s.cmdStore(args, true)
	case "insert":
		return s.cmdStore(args, false)
	case "erase":
		return s.cmdErase(args)
	case "load":
		return s.cmdLoad(args)
	case "next":
		return s.cmdFind(args, s.tree.FindNext)
	case "prev":
		return s.cmdFind(args, s.tree.FindPrev)
	case "alloc":
		return s.cmdAlloc(args, s.tree.Alloc)
	case "allocrev":
		return s.cmdAlloc(args, s.tree.AllocRev)
	case "iterate":
		return s.cmdIterate()
	case "stats":
		return s.cmdStats()
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (s *shell) cmdStore(args []string, overwrite bool) error {
	lo, hi, value, err := parseLoHiValue(args)
	if err != nil {
		return err
	}
	if overwrite {
		return s.tree.StoreRange(lo, hi, value)
	}
	return s.tree.InsertRange(lo, hi, value)
}

func (s *shell) cmdErase(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: erase <lo> <hi>")
	}
	lo, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return err
	}
	hi, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return err
	}
	return s.tree.Erase(lo, hi)
}

func (s *shell) cmdLoad(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: load <index>")
	}
	idx, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return err
	}
	v, ok := s.tree.Load(idx)
	if !ok {
		fmt.Fprintln(s.out, "absent")
		return nil
	}
	fmt.Fprintf(s.out, "%d\n", uint64(v))
	return nil
}

type findFunc func(index uint64) (lo, hi uint64, value maple.Value, ok bool)

func (s *shell) cmdFind(args []string, find findFunc) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: next|prev <index>")
	}
	idx, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return err
	}
	lo, hi, v, ok := find(idx)
	if !ok {
		fmt.Fprintln(s.out, "none")
		return nil
	}
	fmt.Fprintf(s.out, "[%d,%d]=%d\n", lo, hi, uint64(v))
	return nil
}

type allocFunc func(lo, hi, size uint64, value maple.Value) (uint64, error)

func (s *shell) cmdAlloc(args []string, alloc allocFunc) error {
	if len(args) != 4 {
		return fmt.Errorf("usage: alloc|allocrev <lo> <hi> <size> <value>")
	}
	lo, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return err
	}
	hi, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return err
	}
	size, err := strconv.ParseUint(args[2], 10, 64)
	if err != nil {
		return err
	}
	value, err := strconv.ParseUint(args[3], 10, 64)
	if err != nil {
		return err
	}
	offset, err := alloc(lo, hi, size, maple.Value(value))
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%d\n", offset)
	return nil
}

func (s *shell) cmdIterate() error {
	c := s.tree.Cursor()
	defer c.Close()
	for ok := c.First(); ok; ok = c.Next() {
		lo, hi := c.Range()
		fmt.Fprintf(s.out, "[%d,%d]=%d\n", lo, hi, uint64(c.Value()))
	}
	return nil
}

func (s *shell) cmdStats() error {
	st := s.tree.StatsSnapshot()
	fmt.Fprintf(s.out, "height=%d store=%d erase=%d load=%d alloc=%d\n",
		st.Height, st.StoreCount, st.EraseCount, st.LoadCount, st.AllocCount)
	return nil
}

func parseLoHiValue(args []string) (lo, hi uint64, value maple.Value, err error) {
	if len(args) != 3 {
		return 0, 0, 0, fmt.Errorf("usage: store|insert <lo> <hi> <value>")
	}
	lo, err = strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return 0, 0, 0, err
	}
	hi, err = strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return 0, 0, 0, err
	}
	v, err := strconv.ParseUint(args[2], 10, 64)
	if err != nil {
		return 0, 0, 0, err
	}
	return lo, hi, maple.Value(v), nil
}
