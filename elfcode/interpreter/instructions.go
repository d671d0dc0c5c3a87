package interpreter

import (
	"fmt"

	"github.com/colorfulnotion/elfvm/elfcode/program"
)

// Import all instruction constants from the unified elfcode/program package
const (
	ADDR = program.ADDR
	ADDI = program.ADDI
	MULR = program.MULR
	MULI = program.MULI
	BANR = program.BANR
	BANI = program.BANI
	BORR = program.BORR
	BORI = program.BORI
	SETR = program.SETR
	SETI = program.SETI
	GTIR = program.GTIR
	GTRI = program.GTRI
	GTRR = program.GTRR
	EQIR = program.EQIR
	EQRI = program.EQRI
	EQRR = program.EQRR
)

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// Eval computes the value an instruction stores into its target register.
// Arithmetic wraps at 64 bits. Register-mode operands index regs directly; an
// index outside the register file panics.
func Eval(op program.Opcode, a, b uint64, regs []uint64) uint64 {
	switch op {
	case ADDR:
		return regs[a] + regs[b]
	case ADDI:
		return regs[a] + b
	case MULR:
		return regs[a] * regs[b]
	case MULI:
		return regs[a] * b
	case BANR:
		return regs[a] & regs[b]
	case BANI:
		return regs[a] & b
	case BORR:
		return regs[a] | regs[b]
	case BORI:
		return regs[a] | b
	case SETR:
		return regs[a]
	case SETI:
		return a
	case GTIR:
		return b2u(a > regs[b])
	case GTRI:
		return b2u(regs[a] > b)
	case GTRR:
		return b2u(regs[a] > regs[b])
	case EQIR:
		return b2u(a == regs[b])
	case EQRI:
		return b2u(regs[a] == b)
	case EQRR:
		return b2u(regs[a] == regs[b])
	default:
		panic(fmt.Sprintf("elfcode: unknown opcode %d", op))
	}
}

// Apply executes ins against regs in place and returns the stored value.
func Apply(ins program.Instruction, regs []uint64) uint64 {
	v := Eval(ins.Opcode, ins.A, ins.B, regs)
	regs[ins.C] = v
	return v
}

// Matches reports whether executing ins on a copy of before yields after.
func Matches(ins program.Instruction, before, after []uint64) bool {
	if len(before) != len(after) || ins.C < 0 || ins.C >= len(before) {
		return false
	}
	if ins.Opcode.AIsRegister() && ins.A >= uint64(len(before)) {
		return false
	}
	if ins.Opcode.BIsRegister() && ins.B >= uint64(len(before)) {
		return false
	}
	regs := append([]uint64(nil), before...)
	Apply(ins, regs)
	for i := range regs {
		if regs[i] != after[i] {
			return false
		}
	}
	return true
}
