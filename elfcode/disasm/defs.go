package disasm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/colorfulnotion/elfvm/elfcode/program"
)

// ArgType represents how an operand is rendered
type ArgType int

const (
	ArgTypeReg ArgType = iota
	ArgTypeImm
)

// Argument represents a single instruction operand
type Argument struct {
	Name string
	Type ArgType
}

// InstructionSpec is the pseudo-code template of one opcode
type InstructionSpec struct {
	Opcode program.Opcode
	Name   string
	Args   []Argument
	Format string
}

// InstrSpecs holds the templates of all 16 opcodes.
var InstrSpecs = make(map[program.Opcode]*InstructionSpec)

// DSL helper functions
func Reg(name string) Argument {
	return Argument{Name: name, Type: ArgTypeReg}
}

func Imm(name string) Argument {
	return Argument{Name: name, Type: ArgTypeImm}
}

// InstructionBuilder provides a fluent interface for defining instructions
type InstructionBuilder struct {
	spec *InstructionSpec
}

// RegisterInstr creates the specification for opcode, named by its mnemonic.
func RegisterInstr(opcode program.Opcode) *InstructionBuilder {
	spec := &InstructionSpec{
		Opcode: opcode,
		Name:   opcode.String(),
	}
	InstrSpecs[opcode] = spec
	return &InstructionBuilder{spec: spec}
}

func (b *InstructionBuilder) Args(args ...Argument) *InstructionBuilder {
	b.spec.Args = args
	return b
}

func (b *InstructionBuilder) Format(format string) *InstructionBuilder {
	b.spec.Format = format
	return b
}

// regName writes "ip" for the register bound to the instruction pointer.
func regName(idx uint64, ipReg int) string {
	if ipReg >= 0 && idx == uint64(ipReg) {
		return "ip"
	}
	return fmt.Sprintf("r%d", idx)
}

// Format renders ins as pseudo-code. ipReg is the bound register, or -1.
func Format(ins program.Instruction, ipReg int) string {
	spec, exists := InstrSpecs[ins.Opcode]
	if !exists {
		return fmt.Sprintf("unknown_opcode_%02x", uint8(ins.Opcode))
	}
	values := map[string]uint64{"a": ins.A, "b": ins.B}

	result := strings.Replace(spec.Format, "{c}", regName(uint64(ins.C), ipReg), -1)
	for _, arg := range spec.Args {
		var formatted string
		switch arg.Type {
		case ArgTypeReg:
			formatted = regName(values[arg.Name], ipReg)
		case ArgTypeImm:
			formatted = strconv.FormatUint(values[arg.Name], 10)
		}
		result = strings.Replace(result, "{"+arg.Name+"}", formatted, -1)
	}
	return result
}

func init() {
	// arithmetic
	RegisterInstr(program.ADDR).Args(Reg("a"), Reg("b")).Format("{c} = {a} + {b}")
	RegisterInstr(program.ADDI).Args(Reg("a"), Imm("b")).Format("{c} = {a} + {b}")
	RegisterInstr(program.MULR).Args(Reg("a"), Reg("b")).Format("{c} = {a} * {b}")
	RegisterInstr(program.MULI).Args(Reg("a"), Imm("b")).Format("{c} = {a} * {b}")

	// bitwise
	RegisterInstr(program.BANR).Args(Reg("a"), Reg("b")).Format("{c} = {a} & {b}")
	RegisterInstr(program.BANI).Args(Reg("a"), Imm("b")).Format("{c} = {a} & {b}")
	RegisterInstr(program.BORR).Args(Reg("a"), Reg("b")).Format("{c} = {a} | {b}")
	RegisterInstr(program.BORI).Args(Reg("a"), Imm("b")).Format("{c} = {a} | {b}")

	// assignment
	RegisterInstr(program.SETR).Args(Reg("a")).Format("{c} = {a}")
	RegisterInstr(program.SETI).Args(Imm("a")).Format("{c} = {a}")

	// comparison
	RegisterInstr(program.GTIR).Args(Imm("a"), Reg("b")).Format("{c} = {a} > {b}")
	RegisterInstr(program.GTRI).Args(Reg("a"), Imm("b")).Format("{c} = {a} > {b}")
	RegisterInstr(program.GTRR).Args(Reg("a"), Reg("b")).Format("{c} = {a} > {b}")
	RegisterInstr(program.EQIR).Args(Imm("a"), Reg("b")).Format("{c} = {a} == {b}")
	RegisterInstr(program.EQRI).Args(Reg("a"), Imm("b")).Format("{c} = {a} == {b}")
	RegisterInstr(program.EQRR).Args(Reg("a"), Reg("b")).Format("{c} = {a} == {b}")
}
