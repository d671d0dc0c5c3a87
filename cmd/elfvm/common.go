package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/colorfulnotion/elfvm/elfcode"
	"github.com/colorfulnotion/elfvm/elfcode/program"
	"github.com/colorfulnotion/elfvm/log"
	"github.com/spf13/cobra"
)

// machineFlags are shared by every command that loads a program.
type machineFlags struct {
	registers int
	set       []string
}

func (f *machineFlags) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.registers, "registers", program.DefaultRegisters, "register file size")
	cmd.Flags().StringArrayVar(&f.set, "set", nil, "starting register value, e.g. --set r0=1 (repeatable)")
}

func (f *machineFlags) load(path string) (*program.Program, []uint64, error) {
	p, err := loadProgram(path, f.registers)
	if err != nil {
		return nil, nil, err
	}
	initial, err := parseAssignments(f.set, p.Registers)
	if err != nil {
		return nil, nil, err
	}
	return p, initial, nil
}

func loadProgram(path string, registers int) (*program.Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p, err := program.Parse(f, registers)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Debug(log.CLIMonitoring, "program loaded", "path", path, "instructions", p.Len(), "hash", p.Hash().Short())
	return p, nil
}

// parseAssignments turns ["r0=1", "r3=7"] into a starting register file.
func parseAssignments(assignments []string, registers int) ([]uint64, error) {
	if len(assignments) == 0 {
		return nil, nil
	}
	initial := make([]uint64, registers)
	for _, a := range assignments {
		reg, val, ok := strings.Cut(a, "=")
		if !ok || !strings.HasPrefix(reg, "r") {
			return nil, fmt.Errorf("--set %q: want r<i>=<value>", a)
		}
		i, err := strconv.Atoi(reg[1:])
		if err != nil || i < 0 || i >= registers {
			return nil, fmt.Errorf("--set %q: register out of range", a)
		}
		v, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("--set %q: %w", a, err)
		}
		initial[i] = v
	}
	return initial, nil
}

func loadVM(p *program.Program, initial []uint64) *elfcode.VM {
	vm := elfcode.Load(p)
	for i, v := range initial {
		vm.SetRegister(i, v)
	}
	return vm
}
