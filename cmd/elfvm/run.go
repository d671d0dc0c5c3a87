package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/colorfulnotion/elfvm/elfcode"
	"github.com/colorfulnotion/elfvm/elfcode/report"
	"github.com/colorfulnotion/elfvm/elfcode/script"
	"github.com/colorfulnotion/elfvm/elfcode/trace"
	"github.com/colorfulnotion/elfvm/log"
	"github.com/spf13/cobra"
)

var errStateMismatch = errors.New("final state differs from expected")

type runFlags struct {
	machineFlags
	breaks   []string
	breakJS  []string
	maxSteps uint64
	trace    string
	expect   string
	json     bool
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run <program>",
		Short: "Execute a program until it halts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgram(cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], &f)
		},
	}
	f.bind(cmd)
	cmd.Flags().StringArrayVar(&f.breaks, "break", nil, "halt before this instruction index (repeatable)")
	cmd.Flags().StringArrayVar(&f.breakJS, "break-js", nil, "halt when a JavaScript expression holds, e.g. '28:r[3]==r[0]' (repeatable)")
	cmd.Flags().Uint64Var(&f.maxSteps, "max-steps", 0, "halt after this many instructions (0 = unbounded)")
	cmd.Flags().StringVar(&f.trace, "trace", "", "write a JSON Lines trace (.zst compresses, - streams to stdout)")
	cmd.Flags().StringVar(&f.expect, "expect", "", "compare the final state with a JSON state file")
	cmd.Flags().BoolVar(&f.json, "json", false, "print the final state as JSON")
	return cmd
}

// runProgram prints the final state to out, or to errOut when the trace is
// streamed to out.
func runProgram(out, errOut io.Writer, path string, f *runFlags) (err error) {
	p, initial, err := f.load(path)
	if err != nil {
		return err
	}
	vm := loadVM(p, initial)

	for _, b := range f.breaks {
		idx, err := strconv.ParseUint(b, 10, 64)
		if err != nil {
			return fmt.Errorf("--break %q: %w", b, err)
		}
		vm.AddBreakpoint(idx, elfcode.HaltAlways())
	}
	for _, spec := range f.breakJS {
		idx, expr, err := script.ParseSpec(spec)
		if err != nil {
			return err
		}
		pred, err := script.Compile(expr)
		if err != nil {
			return err
		}
		vm.AddBreakpoint(idx, pred)
	}
	if f.maxSteps > 0 {
		limit := elfcode.StepLimit(f.maxSteps)
		for idx := range p.Instructions {
			vm.AddBreakpoint(uint64(idx), limit)
		}
	}
	if f.trace != "" {
		var w *trace.JSONLTraceWriter
		if f.trace == "-" {
			w = trace.NewJSONLTraceWriterStream(out)
			out = errOut
		} else {
			var werr error
			if w, werr = trace.NewJSONLTraceWriterFile(f.trace); werr != nil {
				return werr
			}
		}
		defer func() {
			if cerr := w.Close(); err == nil {
				err = cerr
			}
		}()
		vm.SetTracer(w)
	}

	final := vm.Execute()
	log.Info(log.CLIMonitoring, "halted", "reason", vm.HaltReason(), "executed", final.Executed)

	if f.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(final); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "program:   %s\n", p.Hash().Short())
		fmt.Fprintf(out, "halt:      %s\n", vm.HaltReason())
		fmt.Fprintf(out, "ip:        %d\n", final.IP)
		fmt.Fprintf(out, "executed:  %d\n", final.Executed)
		fmt.Fprintf(out, "registers: %s\n", final.Registers)
	}

	if f.expect != "" {
		return expectState(out, f.expect, final)
	}
	return nil
}

func expectState(out io.Writer, path string, final elfcode.MachineState) error {
	ef, err := os.Open(path)
	if err != nil {
		return err
	}
	defer ef.Close()
	expected, err := report.LoadState(ef)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	diff, differ, err := report.DiffStates(expected, final, false)
	if err != nil {
		return err
	}
	if differ {
		fmt.Fprintln(out, diff)
		return errStateMismatch
	}
	fmt.Fprintln(out, "state matches", path)
	return nil
}
