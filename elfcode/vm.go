package elfcode

import (
	"fmt"
	"math"

	"github.com/colorfulnotion/elfvm/elfcode/interpreter"
	"github.com/colorfulnotion/elfvm/elfcode/program"
	"github.com/colorfulnotion/elfvm/elfcode/trace"
	"github.com/colorfulnotion/elfvm/log"
)

type HaltReason uint8

const (
	Running HaltReason = iota
	HaltEndOfProgram
	HaltBreakpoint
)

func (r HaltReason) String() string {
	switch r {
	case Running:
		return "running"
	case HaltEndOfProgram:
		return "end of program"
	case HaltBreakpoint:
		return "breakpoint"
	default:
		return fmt.Sprintf("HaltReason(%d)", uint8(r))
	}
}

// VM runs one program once. Create a fresh VM per execution.
type VM struct {
	program *program.Program
	ipReg   int
	bound   bool

	regs     Registers
	ip       uint64
	executed uint64

	breakpoints map[uint64][]Breakpoint
	reason      HaltReason
	tracer      trace.Writer
}

// Load returns an engine with a zeroed register file and ip 0.
func Load(p *program.Program) *VM {
	vm := &VM{
		program:     p,
		regs:        make(Registers, p.Registers),
		breakpoints: make(map[uint64][]Breakpoint),
	}
	vm.ipReg, vm.bound = p.BoundIP()
	return vm
}

func (vm *VM) Program() *program.Program {
	return vm.program
}

func (vm *VM) SetRegister(i int, v uint64) {
	vm.regs[i] = v
}

func (vm *VM) SetIP(ip uint64) {
	vm.ip = ip
}

// AddBreakpoint registers bp before the instruction at index. Breakpoints
// sharing an index run in registration order.
func (vm *VM) AddBreakpoint(index uint64, bp Breakpoint) {
	vm.breakpoints[index] = append(vm.breakpoints[index], bp)
}

// SetTracer records a TraceStep after every executed instruction.
func (vm *VM) SetTracer(w trace.Writer) {
	vm.tracer = w
}

func (vm *VM) Halted() bool {
	return vm.reason != Running
}

func (vm *VM) HaltReason() HaltReason {
	return vm.reason
}

// State returns a copy of the live machine state.
func (vm *VM) State() MachineState {
	return MachineState{Registers: vm.regs, IP: vm.ip, Executed: vm.executed}.Clone()
}

func (vm *VM) setState(s MachineState) {
	if len(s.Registers) != len(vm.regs) {
		panic(fmt.Sprintf("elfcode: breakpoint returned %d registers, program has %d", len(s.Registers), len(vm.regs)))
	}
	copy(vm.regs, s.Registers)
	vm.ip = s.IP
	vm.executed = s.Executed
}

func (vm *VM) halt(reason HaltReason) {
	vm.reason = reason
	log.Debug(log.VMMonitoring, "halted", "reason", reason, "ip", vm.ip, "executed", vm.executed, "regs", vm.regs)
}

// Step runs one iteration of the fetch/execute loop and reports whether the
// engine is halted.
func (vm *VM) Step() bool {
	if vm.Halted() {
		return true
	}
	if vm.ip >= uint64(vm.program.Len()) {
		vm.halt(HaltEndOfProgram)
		return true
	}
	if vm.bound {
		vm.regs[vm.ipReg] = vm.ip
	}
	if bps := vm.breakpoints[vm.ip]; len(bps) > 0 {
		state := vm.State()
		for _, bp := range bps {
			var stop bool
			state, stop = bp.Hit(state.Clone())
			if stop {
				vm.setState(state)
				vm.halt(HaltBreakpoint)
				return true
			}
		}
		vm.setState(state)
		// a breakpoint may have moved ip
		if vm.ip >= uint64(vm.program.Len()) {
			vm.halt(HaltEndOfProgram)
			return true
		}
	}

	pc := vm.ip
	ins := vm.program.Instructions[pc]
	interpreter.Apply(ins, vm.regs)
	if vm.bound {
		vm.ip = vm.regs[vm.ipReg]
	}
	// ip saturates instead of wrapping to 0; the next step halts
	if vm.ip != math.MaxUint64 {
		vm.ip++
	}
	vm.executed++

	if vm.tracer != nil {
		vm.writeTrace(pc, ins)
	}
	return false
}

func (vm *VM) writeTrace(pc uint64, ins program.Instruction) {
	step := trace.NewTraceStep(vm.executed-1, pc, ins)
	step.SetPostRegisters(vm.regs)
	step.SetPostState(vm.ip, MachineState{Registers: vm.regs, IP: vm.ip}.Digest())
	if err := vm.tracer.WriteStep(step); err != nil {
		panic(fmt.Errorf("elfcode: trace step %d: %w", step.Step, err))
	}
}

// Execute runs until the program falls off the end or a breakpoint halts it.
func (vm *VM) Execute() MachineState {
	for !vm.Step() {
	}
	return vm.State()
}

// Run loads p, applies the starting registers and executes it.
func Run(p *program.Program, initial ...uint64) MachineState {
	vm := Load(p)
	for i, v := range initial {
		vm.SetRegister(i, v)
	}
	return vm.Execute()
}
