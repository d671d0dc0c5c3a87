package main

import (
	"fmt"
	"io"
	"os"

	"github.com/colorfulnotion/elfvm/elfcode"
	"github.com/colorfulnotion/elfvm/elfcode/report"
	"github.com/spf13/cobra"
)

type historyFlags struct {
	machineFlags
	at    uint64
	reg   int
	limit int
	cycle bool
	out   string
}

func newHistoryCmd() *cobra.Command {
	var f historyFlags
	cmd := &cobra.Command{
		Use:   "history <program>",
		Short: "Record the values of a register at an instruction and chart them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.cycle && !cmd.Flags().Changed("limit") {
				// a cycle can be arbitrarily long; only an explicit --limit bounds it
				f.limit = 0
			}
			return registerHistory(cmd.OutOrStdout(), args[0], &f)
		},
	}
	f.bind(cmd)
	cmd.Flags().Uint64Var(&f.at, "at", 0, "instruction index to sample before")
	cmd.Flags().IntVar(&f.reg, "reg", 0, "register to sample")
	cmd.Flags().IntVar(&f.limit, "limit", 1000, "stop after this many samples (0 = unbounded, the default with --cycle)")
	cmd.Flags().BoolVar(&f.cycle, "cycle", false, "stop at the first repeated value and report the last new one")
	cmd.Flags().StringVar(&f.out, "out", "", "write an HTML chart")
	return cmd
}

func registerHistory(out io.Writer, path string, f *historyFlags) error {
	p, initial, err := f.load(path)
	if err != nil {
		return err
	}
	if f.reg < 0 || f.reg >= p.Registers {
		return fmt.Errorf("--reg %d: program has %d registers", f.reg, p.Registers)
	}
	vm := loadVM(p, initial)
	var cd *elfcode.CycleDetector
	if f.cycle {
		cd = &elfcode.CycleDetector{Register: f.reg}
		vm.AddBreakpoint(f.at, cd)
	}
	h := &elfcode.RegisterHistory{Register: f.reg, Limit: f.limit}
	vm.AddBreakpoint(f.at, h)
	final := vm.Execute()

	fmt.Fprintf(out, "samples:   %d\n", len(h.Values))
	fmt.Fprintf(out, "halt:      %s after %d instructions\n", vm.HaltReason(), final.Executed)
	if len(h.Values) > 0 {
		fmt.Fprintf(out, "first:     %d\n", h.Values[0])
	}
	subtitle := fmt.Sprintf("%d samples", len(h.Values))
	if cd != nil {
		fmt.Fprintf(out, "distinct:  %d\n", cd.Seen())
		if last, _ := cd.Last(); cd.Repeated() && vm.HaltReason() == elfcode.HaltBreakpoint {
			fmt.Fprintf(out, "last new:  %d\n", last)
			subtitle = fmt.Sprintf("%d distinct values, last new %d", cd.Seen(), last)
		} else {
			fmt.Fprintln(out, "last new:  none, no value repeated")
		}
	}
	if f.out == "" {
		return nil
	}
	w, err := os.Create(f.out)
	if err != nil {
		return err
	}
	defer w.Close()
	title := fmt.Sprintf("r%d before instruction %d", f.reg, f.at)
	if err := report.RenderHistory(w, title, subtitle, report.Series{Name: fmt.Sprintf("r%d", f.reg), Values: h.Values}); err != nil {
		return err
	}
	fmt.Fprintf(out, "chart:     %s\n", f.out)
	return nil
}
