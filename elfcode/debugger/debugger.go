package debugger

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/colorfulnotion/elfvm/elfcode"
	"github.com/colorfulnotion/elfvm/elfcode/disasm"
	"github.com/colorfulnotion/elfvm/elfcode/program"
	"github.com/colorfulnotion/elfvm/elfcode/trace"
	"github.com/colorfulnotion/elfvm/elferrors"
	"github.com/colorfulnotion/elfvm/log"
)

const historyDepth = 64

// tail keeps the last few executed steps.
type tail struct {
	steps []*trace.TraceStep
}

func (t *tail) WriteStep(step *trace.TraceStep) error {
	if len(t.steps) == historyDepth {
		copy(t.steps, t.steps[1:])
		t.steps = t.steps[:historyDepth-1]
	}
	t.steps = append(t.steps, step)
	return nil
}

// Debugger drives one engine interactively. Pause points only interrupt
// "continue"; unlike engine breakpoints they never halt the machine.
type Debugger struct {
	prog   *program.Program
	vm     *elfcode.VM
	ipReg  int
	pauses map[uint64]bool
	recent *tail
	init   elfcode.Registers

	out io.Writer
}

// New loads p with the given starting registers.
func New(p *program.Program, out io.Writer, initial ...uint64) *Debugger {
	d := &Debugger{
		prog:   p,
		ipReg:  -1,
		pauses: make(map[uint64]bool),
		init:   append(elfcode.Registers(nil), initial...),
		out:    out,
	}
	if r, ok := p.BoundIP(); ok {
		d.ipReg = r
	}
	d.reset()
	return d
}

func (d *Debugger) reset() {
	d.vm = elfcode.Load(d.prog)
	for i, v := range d.init {
		d.vm.SetRegister(i, v)
	}
	d.recent = &tail{}
	d.vm.SetTracer(d.recent)
}

// State returns the current machine state.
func (d *Debugger) State() elfcode.MachineState {
	return d.vm.State()
}

type command struct {
	usage string
	run   func(d *Debugger, args []string) (bool, error)
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"break":    {"break <i>          pause before instruction i", (*Debugger).cmdBreak},
		"delete":   {"delete <i>         remove the pause at i", (*Debugger).cmdDelete},
		"step":     {"step [n]           execute n instructions (default 1)", (*Debugger).cmdStep},
		"continue": {"continue           run to the next pause or halt", (*Debugger).cmdContinue},
		"regs":     {"regs               show the register file", (*Debugger).cmdRegs},
		"set":      {"set r<i> <v>       write a register", (*Debugger).cmdSet},
		"list":     {"list               show the program", (*Debugger).cmdList},
		"state":    {"state              show ip, counters and digest", (*Debugger).cmdState},
		"history":  {"history [n]        show the last n executed steps", (*Debugger).cmdHistory},
		"restart":  {"restart            reload the program", (*Debugger).cmdRestart},
		"help":     {"help               this text", (*Debugger).cmdHelp},
		"quit":     {"quit               leave the debugger", (*Debugger).cmdQuit},
	}
	aliases := map[string]string{"b": "break", "s": "step", "c": "continue", "r": "regs", "l": "list", "q": "quit", "exit": "quit"}
	for alias, name := range aliases {
		commands[alias] = commands[name]
	}
}

// Exec runs one command line and reports whether the debugger should exit.
func (d *Debugger) Exec(line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, ok := commands[fields[0]]
	if !ok {
		return false, fmt.Errorf("%w: %q", elferrors.ErrDUnknownCommand, fields[0])
	}
	log.Trace(log.DebuggerMonitoring, "exec", "line", line)
	return cmd.run(d, fields[1:])
}

func parseIndex(args []string) (uint64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: want one instruction index", elferrors.ErrDBadArgument)
	}
	idx, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", elferrors.ErrDBadArgument, args[0])
	}
	return idx, nil
}

func (d *Debugger) cmdBreak(args []string) (bool, error) {
	idx, err := parseIndex(args)
	if err != nil {
		return false, err
	}
	if idx >= uint64(d.prog.Len()) {
		return false, fmt.Errorf("%w: program has %d instructions", elferrors.ErrDBadArgument, d.prog.Len())
	}
	d.pauses[idx] = true
	fmt.Fprintf(d.out, "pause at %d\n", idx)
	return false, nil
}

func (d *Debugger) cmdDelete(args []string) (bool, error) {
	idx, err := parseIndex(args)
	if err != nil {
		return false, err
	}
	if !d.pauses[idx] {
		return false, fmt.Errorf("%w: no pause at %d", elferrors.ErrDBadArgument, idx)
	}
	delete(d.pauses, idx)
	return false, nil
}

func (d *Debugger) executable() error {
	if d.vm.Halted() {
		return fmt.Errorf("%w (%s)", elferrors.ErrDHalted, d.vm.HaltReason())
	}
	return nil
}

func (d *Debugger) cmdStep(args []string) (bool, error) {
	n := uint64(1)
	if len(args) > 1 {
		return false, fmt.Errorf("%w: step takes at most one count", elferrors.ErrDBadArgument)
	}
	if len(args) == 1 {
		v, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil || v == 0 {
			return false, fmt.Errorf("%w: %q", elferrors.ErrDBadArgument, args[0])
		}
		n = v
	}
	if err := d.executable(); err != nil {
		return false, err
	}
	for i := uint64(0); i < n; i++ {
		if d.vm.Step() {
			break
		}
		if n == 1 {
			d.printLast()
		}
	}
	d.printPosition()
	return false, nil
}

func (d *Debugger) cmdContinue(args []string) (bool, error) {
	if err := d.executable(); err != nil {
		return false, err
	}
	start := d.vm.State().Executed
	for first := true; ; first = false {
		if !first && d.pauses[d.vm.State().IP] {
			break
		}
		if d.vm.Step() {
			break
		}
	}
	log.Debug(log.DebuggerMonitoring, "continue", "steps", d.vm.State().Executed-start)
	d.printPosition()
	return false, nil
}

func (d *Debugger) cmdRegs(args []string) (bool, error) {
	for i, v := range d.vm.State().Registers {
		name := fmt.Sprintf("r%d", i)
		if i == d.ipReg {
			name += " (ip)"
		}
		fmt.Fprintf(d.out, "%-8s %d\n", name, v)
	}
	return false, nil
}

func (d *Debugger) cmdSet(args []string) (bool, error) {
	if len(args) != 2 || !strings.HasPrefix(args[0], "r") {
		return false, fmt.Errorf("%w: want set r<i> <value>", elferrors.ErrDBadArgument)
	}
	reg, err := strconv.Atoi(args[0][1:])
	if err != nil || reg < 0 || reg >= d.prog.Registers {
		return false, fmt.Errorf("%w: register %q", elferrors.ErrDBadArgument, args[0])
	}
	v, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return false, fmt.Errorf("%w: value %q", elferrors.ErrDBadArgument, args[1])
	}
	d.vm.SetRegister(reg, v)
	return false, nil
}

func (d *Debugger) cmdList(args []string) (bool, error) {
	ip := d.vm.State().IP
	for idx, ins := range d.prog.Instructions {
		marker := "  "
		if uint64(idx) == ip && !d.vm.Halted() {
			marker = "=>"
		}
		pause := " "
		if d.pauses[uint64(idx)] {
			pause = "*"
		}
		fmt.Fprintf(d.out, "%s%s%s\n", marker, pause, disasm.Line(idx, ins, d.ipReg))
	}
	return false, nil
}

func (d *Debugger) cmdState(args []string) (bool, error) {
	s := d.vm.State()
	fmt.Fprintf(d.out, "%s digest=%s\n", s, s.Digest().Short())
	if d.vm.Halted() {
		fmt.Fprintf(d.out, "halted: %s\n", d.vm.HaltReason())
	}
	return false, nil
}

func (d *Debugger) cmdHistory(args []string) (bool, error) {
	n := 10
	if len(args) == 1 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			return false, fmt.Errorf("%w: %q", elferrors.ErrDBadArgument, args[0])
		}
		n = v
	}
	steps := d.recent.steps
	if len(steps) > n {
		steps = steps[len(steps)-n:]
	}
	for _, s := range steps {
		fmt.Fprintf(d.out, "#%-6d %3d  %-5s %v\n", s.Step, s.IP, s.OpcodeStr, s.PostRegisters)
	}
	return false, nil
}

func (d *Debugger) cmdRestart(args []string) (bool, error) {
	d.reset()
	d.printPosition()
	return false, nil
}

func (d *Debugger) cmdHelp(args []string) (bool, error) {
	names := make([]string, 0, len(commands))
	seen := make(map[string]bool)
	for name, cmd := range commands {
		if seen[cmd.usage] || !strings.HasPrefix(cmd.usage, name+" ") {
			continue
		}
		seen[cmd.usage] = true
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintln(d.out, commands[name].usage)
	}
	return false, nil
}

func (d *Debugger) cmdQuit(args []string) (bool, error) {
	return true, nil
}

func (d *Debugger) printLast() {
	if len(d.recent.steps) == 0 {
		return
	}
	s := d.recent.steps[len(d.recent.steps)-1]
	fmt.Fprintf(d.out, "%s\n", disasm.Line(int(s.IP), d.prog.Instructions[s.IP], d.ipReg))
}

func (d *Debugger) printPosition() {
	s := d.vm.State()
	if d.vm.Halted() {
		fmt.Fprintf(d.out, "halted (%s) after %d instructions, ip=%d regs=%s\n", d.vm.HaltReason(), s.Executed, s.IP, s.Registers)
		return
	}
	fmt.Fprintf(d.out, "ip=%d executed=%d regs=%s\n", s.IP, s.Executed, s.Registers)
}

// Run reads commands with readline until quit or EOF.
func (d *Debugger) Run(historyFile string) error {
	completer := readline.NewPrefixCompleter(
		readline.PcItem("break"), readline.PcItem("delete"), readline.PcItem("step"),
		readline.PcItem("continue"), readline.PcItem("regs"), readline.PcItem("set"),
		readline.PcItem("list"), readline.PcItem("state"), readline.PcItem("history"),
		readline.PcItem("restart"), readline.PcItem("help"), readline.PcItem("quit"),
	)
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "(elfvm) ",
		HistoryFile:     historyFile,
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()
	d.out = rl.Stdout()

	fmt.Fprintf(d.out, "program %s, %d instructions. Type 'help' for commands.\n", d.prog.Hash().Short(), d.prog.Len())
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				return nil
			}
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		quit, err := d.Exec(line)
		if err != nil {
			fmt.Fprintln(d.out, "error:", err)
			continue
		}
		if quit {
			return nil
		}
	}
}
