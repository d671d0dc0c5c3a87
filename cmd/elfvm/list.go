package main

import (
	"fmt"

	"github.com/colorfulnotion/elfvm/elfcode/disasm"
	"github.com/colorfulnotion/elfvm/elfcode/program"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	var registers int
	cmd := &cobra.Command{
		Use:   "list <program>",
		Short: "List a program by basic block with pseudo-code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProgram(args[0], registers)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, disasm.Tree(p).String())
			fmt.Fprint(out, disasm.Stats(p))
			return nil
		},
	}
	cmd.Flags().IntVar(&registers, "registers", program.DefaultRegisters, "register file size")
	return cmd
}
