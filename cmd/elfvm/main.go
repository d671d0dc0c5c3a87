// elfvm runs, lists and debugs elfcode register machine programs.
package main

import (
	"fmt"
	"os"

	"github.com/colorfulnotion/elfvm/common"
	"github.com/colorfulnotion/elfvm/elferrors"
	"github.com/colorfulnotion/elfvm/log"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

func newRootCmd() *cobra.Command {
	var (
		logLevel     string
		debugModules string
		logJSON      bool
	)
	rootCmd := &cobra.Command{
		Use:   "elfvm",
		Short: "elfcode register machine toolchain",
		Long: `elfvm executes elfcode programs: a six register machine with sixteen
opcodes and an optional instruction pointer binding. Besides running a program
it can list it, chart a register at a breakpoint, resolve opcode numbers from
Before/After samples and step through it interactively.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := log.ParseLevel(logLevel); err != nil {
				return err
			}
			if logJSON {
				log.InitJSONLogger(logLevel)
			} else {
				log.InitLogger(logLevel)
			}
			log.EnableModules(debugModules)
			return nil
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&debugModules, "debug", "", "comma separated modules to enable trace/debug logs for (elfvm,debugger,samples,trace,cli)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "write logs as JSON")

	rootCmd.AddCommand(
		newRunCmd(),
		newListCmd(),
		newOpcodesCmd(),
		newHistoryCmd(),
		newDebugCmd(),
		newTraceCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				commit := Commit
				if commit == "none" {
					commit = common.GetCommitHash()
				}
				fmt.Fprintf(cmd.OutOrStdout(), "elfvm %s (commit %s, built %s)\n", Version, commit, BuildTime)
			},
		},
	)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if code := elferrors.GetErrorCodeWithName(err); code != "" {
			log.Error(log.CLIMonitoring, "failed", "code", code, "detail", elferrors.GetErrorDesc(err))
		}
		os.Exit(1)
	}
}
