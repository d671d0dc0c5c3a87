package program

import "fmt"

// Instruction is a decoded elfcode instruction. C is the target register.
type Instruction struct {
	Opcode Opcode
	A      uint64
	B      uint64
	C      int
}

// String renders the instruction in program text form.
func (i Instruction) String() string {
	return fmt.Sprintf("%s %d %d %d", i.Opcode, i.A, i.B, i.C)
}

// Registers returns every register index the instruction touches, target first.
func (i Instruction) Registers() []uint64 {
	regs := []uint64{uint64(i.C)}
	if i.Opcode.AIsRegister() {
		regs = append(regs, i.A)
	}
	if i.Opcode.BIsRegister() {
		regs = append(regs, i.B)
	}
	return regs
}
