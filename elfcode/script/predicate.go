package script

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/colorfulnotion/elfvm/elfcode"
	"github.com/colorfulnotion/elfvm/log"
	"github.com/dop251/goja"
)

// Predicate is a JavaScript breakpoint. The script sees the register file as
// the array r and the counters ip and executed; a truthy completion value
// halts the machine. Assignments to r[i] are written back. Register values
// travel as JavaScript numbers: they stay non-negative and ordered, but values
// above 2^53 are rounded. A register the script does not assign keeps its
// exact value.
type Predicate struct {
	Source string

	prog *goja.Program
	vm   *goja.Runtime
	hits uint64
}

// Compile parses src once; every hit reruns the compiled program.
func Compile(src string) (*Predicate, error) {
	prog, err := goja.Compile("breakpoint", src, false)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", src, err)
	}
	vm := goja.New()
	vm.Set("print", func(args ...goja.Value) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = a.String()
		}
		log.Info(log.VMMonitoring, strings.Join(parts, " "))
	})
	return &Predicate{Source: src, prog: prog, vm: vm}, nil
}

// Hit implements elfcode.Breakpoint. Script errors panic.
func (p *Predicate) Hit(state elfcode.MachineState) (elfcode.MachineState, bool) {
	p.hits++
	r := make([]interface{}, len(state.Registers))
	for i, v := range state.Registers {
		r[i] = float64(v)
	}
	p.vm.Set("r", r)
	p.vm.Set("ip", float64(state.IP))
	p.vm.Set("executed", float64(state.Executed))
	p.vm.Set("hits", float64(p.hits))

	res, err := p.vm.RunProgram(p.prog)
	if err != nil {
		panic(fmt.Errorf("breakpoint %q at ip %d: %w", p.Source, state.IP, err))
	}
	for i, v := range r {
		if f, ok := v.(float64); ok && f == float64(state.Registers[i]) {
			continue
		}
		state.Registers[i] = toRegister(v)
	}
	halt := res != nil && res.ToBoolean()
	if halt {
		log.Debug(log.VMMonitoring, "script breakpoint halted", "src", p.Source, "ip", state.IP, "hits", p.hits)
	}
	return state, halt
}

func toRegister(v interface{}) uint64 {
	switch n := v.(type) {
	case int64:
		return uint64(n)
	case uint64:
		return n
	case int:
		return uint64(n)
	case float64:
		switch {
		case n < 0:
			return uint64(int64(n))
		case n >= 1<<64:
			return math.MaxUint64
		}
		return uint64(n)
	case bool:
		if n {
			return 1
		}
		return 0
	default:
		panic(fmt.Sprintf("breakpoint wrote %T (%v) to a register", v, v))
	}
}

// ParseSpec splits "28:r[3] == r[0]" into the instruction index and the
// expression.
func ParseSpec(spec string) (uint64, string, error) {
	idx, expr, ok := strings.Cut(spec, ":")
	if !ok || strings.TrimSpace(expr) == "" {
		return 0, "", fmt.Errorf("breakpoint %q: want <index>:<expression>", spec)
	}
	n, err := strconv.ParseUint(strings.TrimSpace(idx), 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("breakpoint %q: %w", spec, err)
	}
	return n, strings.TrimSpace(expr), nil
}
