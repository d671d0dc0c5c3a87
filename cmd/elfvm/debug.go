package main

import (
	"github.com/colorfulnotion/elfvm/elfcode/debugger"
	"github.com/spf13/cobra"
)

func newDebugCmd() *cobra.Command {
	var (
		f           machineFlags
		historyFile string
	)
	cmd := &cobra.Command{
		Use:   "debug <program>",
		Short: "Step through a program interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, initial, err := f.load(args[0])
			if err != nil {
				return err
			}
			return debugger.New(p, cmd.OutOrStdout(), initial...).Run(historyFile)
		},
	}
	f.bind(cmd)
	cmd.Flags().StringVar(&historyFile, "history-file", "", "readline history file")
	return cmd
}
