package program

import (
	"fmt"
	"strings"

	"github.com/colorfulnotion/elfvm/common"
	"github.com/colorfulnotion/elfvm/elferrors"
)

// DefaultRegisters is the register file size of the puzzle machines.
const DefaultRegisters = 6

// Program is an immutable instruction sequence with its register file size and
// optional instruction pointer binding.
type Program struct {
	Instructions []Instruction
	Registers    int
	IPBinding    *int
}

// Option configures a Program under construction.
type Option func(*Program)

// WithIPBinding binds the instruction pointer to register r.
func WithIPBinding(r int) Option {
	return func(p *Program) {
		reg := r
		p.IPBinding = &reg
	}
}

// New validates every register reference against registers and returns the
// program. Register indices are checked here once so the engine never has to.
func New(instructions []Instruction, registers int, opts ...Option) (*Program, error) {
	p := &Program{
		Instructions: append([]Instruction(nil), instructions...),
		Registers:    registers,
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Program) validate() error {
	if p.Registers <= 0 {
		return fmt.Errorf("%w: %d", elferrors.ErrPInvalidRegisterCount, p.Registers)
	}
	if p.IPBinding != nil && (*p.IPBinding < 0 || *p.IPBinding >= p.Registers) {
		return fmt.Errorf("%w: ip bound to r%d with %d registers", elferrors.ErrPRegisterOutOfRange, *p.IPBinding, p.Registers)
	}
	n := uint64(p.Registers)
	for idx, ins := range p.Instructions {
		if !ins.Opcode.Valid() {
			return fmt.Errorf("%w: opcode %d at instruction %d", elferrors.ErrPUnknownOpcode, ins.Opcode, idx)
		}
		if ins.C < 0 || ins.C >= p.Registers {
			return fmt.Errorf("%w: instruction %d (%s) targets r%d", elferrors.ErrPRegisterOutOfRange, idx, ins, ins.C)
		}
		if ins.Opcode.AIsRegister() && ins.A >= n {
			return fmt.Errorf("%w: instruction %d (%s) reads r%d", elferrors.ErrPRegisterOutOfRange, idx, ins, ins.A)
		}
		if ins.Opcode.BIsRegister() && ins.B >= n {
			return fmt.Errorf("%w: instruction %d (%s) reads r%d", elferrors.ErrPRegisterOutOfRange, idx, ins, ins.B)
		}
	}
	return nil
}

// BoundIP returns the register mirroring the instruction pointer.
func (p *Program) BoundIP() (int, bool) {
	if p.IPBinding == nil {
		return 0, false
	}
	return *p.IPBinding, true
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return len(p.Instructions)
}

// String renders the program in the text format accepted by Parse.
func (p *Program) String() string {
	var sb strings.Builder
	if r, ok := p.BoundIP(); ok {
		fmt.Fprintf(&sb, "#ip %d\n", r)
	}
	for _, ins := range p.Instructions {
		sb.WriteString(ins.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Hash identifies the program by the blake2b digest of its canonical text and
// register count.
func (p *Program) Hash() common.Hash {
	return common.Blake2Hash(append([]byte(p.String()), common.Uint64ToBytes(uint64(p.Registers))...))
}
