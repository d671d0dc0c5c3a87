package main

import (
	"fmt"
	"io"
	"os"

	"github.com/colorfulnotion/elfvm/elfcode"
	"github.com/colorfulnotion/elfvm/elfcode/samples"
	"github.com/spf13/cobra"
)

func newOpcodesCmd() *cobra.Command {
	var minMatches int
	cmd := &cobra.Command{
		Use:   "opcodes <samples>",
		Short: "Resolve numeric opcodes from Before/After samples and run the trailing program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return resolveOpcodes(cmd.OutOrStdout(), args[0], minMatches)
		},
	}
	cmd.Flags().IntVar(&minMatches, "min", 3, "report samples matching at least this many opcodes")
	return cmd
}

func resolveOpcodes(out io.Writer, path string, minMatches int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	obs, raw, err := samples.Parse(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	fmt.Fprintf(out, "samples:            %d\n", len(obs))
	fmt.Fprintf(out, "matching >= %d:      %d\n", minMatches, samples.CountAmbiguous(obs, minMatches))

	mapping, err := samples.Resolve(obs)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "mapping:            %s\n", mapping)
	if len(raw) == 0 {
		return nil
	}
	p, err := mapping.Translate(raw)
	if err != nil {
		return err
	}
	final := elfcode.Run(p)
	fmt.Fprintf(out, "program registers:  %s\n", final.Registers)
	return nil
}
