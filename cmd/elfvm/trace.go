package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/colorfulnotion/elfvm/elfcode/trace"
	"github.com/colorfulnotion/elfvm/log"
	"github.com/spf13/cobra"
)

var errTraceDiverged = errors.New("trace diverged")

func newTraceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect and replay execution traces",
	}

	var limit int
	showCmd := &cobra.Command{
		Use:   "show <trace>",
		Short: "Print a JSON Lines trace (.zst is decompressed)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := trace.ReadStepsFile(args[0])
			if err != nil {
				return err
			}
			if limit > 0 && len(steps) > limit {
				steps = steps[len(steps)-limit:]
			}
			printSteps(cmd.OutOrStdout(), steps)
			return nil
		},
	}
	showCmd.Flags().IntVar(&limit, "tail", 0, "only print the last n steps")

	var f machineFlags
	verifyCmd := &cobra.Command{
		Use:   "verify <program> <trace>",
		Short: "Re-execute a program and compare every step with a recorded trace",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return verifyTrace(cmd.OutOrStdout(), args[0], args[1], &f)
		},
	}
	f.bind(verifyCmd)

	cmd.AddCommand(showCmd, verifyCmd)
	return cmd
}

func printSteps(out io.Writer, steps []*trace.TraceStep) {
	for _, s := range steps {
		ins := s.Instruction
		fmt.Fprintf(out, "#%-8d %4d  %-5s %d %d %d  -> ip=%d %v %s\n",
			s.Step, s.IP, s.OpcodeStr, ins.A, ins.B, ins.C, s.PostIP, s.PostRegisters, s.Digest.Short())
	}
}

func verifyTrace(out io.Writer, programPath, tracePath string, f *machineFlags) error {
	p, initial, err := f.load(programPath)
	if err != nil {
		return err
	}
	want, err := trace.ReadStepsFile(tracePath)
	if err != nil {
		return err
	}

	vm := loadVM(p, initial)
	var got trace.Recorder
	vm.SetTracer(&got)
	// a trace recorded under --break or --max-steps ends before the program
	// does, so replay stops where the trace stops
	for len(got.Steps) < len(want) && !vm.Step() {
		n := len(got.Steps)
		g, w := got.Steps[n-1], want[n-1]
		if g.Digest != w.Digest || g.IP != w.IP {
			log.Debug(log.CLIMonitoring, "divergence", "step", w.Step, "want", w.Digest.Short(), "got", g.Digest.Short())
			fmt.Fprintln(out, "recorded:")
			printSteps(out, []*trace.TraceStep{w})
			fmt.Fprintln(out, "replayed:")
			printSteps(out, []*trace.TraceStep{g})
			return fmt.Errorf("%w at step %d", errTraceDiverged, w.Step)
		}
	}
	if len(got.Steps) != len(want) {
		return fmt.Errorf("%w: replay executed %d steps, trace holds %d", errTraceDiverged, len(got.Steps), len(want))
	}
	if ip := vm.State().IP; !vm.Halted() && ip < uint64(p.Len()) {
		fmt.Fprintf(out, "%d steps verified, trace ends at ip %d before the program halts\n", len(want), ip)
	} else {
		fmt.Fprintf(out, "%d steps verified\n", len(want))
	}
	return nil
}
