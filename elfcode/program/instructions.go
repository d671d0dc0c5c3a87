package program

// Elfcode Instructions - Unified Definition
// All other packages should import and use these constants instead of defining their own.

// Opcode identifies one of the 16 fixed elfcode operations.
type Opcode uint8

// Arithmetic and bitwise, register/register and register/immediate.
const (
	ADDR Opcode = iota
	ADDI
	MULR
	MULI
	BANR
	BANI
	BORR
	BORI
)

// Assignment.
const (
	SETR Opcode = iota + 8
	SETI
)

// Comparison, result is 1 or 0.
const (
	GTIR Opcode = iota + 10
	GTRI
	GTRR
	EQIR
	EQRI
	EQRR
)

// NumOpcodes is the size of the opcode table.
const NumOpcodes = 16

var opcodeNames = [NumOpcodes]string{
	ADDR: "addr",
	ADDI: "addi",
	MULR: "mulr",
	MULI: "muli",
	BANR: "banr",
	BANI: "bani",
	BORR: "borr",
	BORI: "bori",
	SETR: "setr",
	SETI: "seti",
	GTIR: "gtir",
	GTRI: "gtri",
	GTRR: "gtrr",
	EQIR: "eqir",
	EQRI: "eqri",
	EQRR: "eqrr",
}

var opcodeByName = func() map[string]Opcode {
	m := make(map[string]Opcode, NumOpcodes)
	for i, name := range opcodeNames {
		m[name] = Opcode(i)
	}
	return m
}()

// Opcodes returns the table in its fixed order.
func Opcodes() []Opcode {
	ops := make([]Opcode, NumOpcodes)
	for i := range ops {
		ops[i] = Opcode(i)
	}
	return ops
}

// LookupOpcode maps a mnemonic to its opcode.
func LookupOpcode(name string) (Opcode, bool) {
	op, ok := opcodeByName[name]
	return op, ok
}

func (op Opcode) Valid() bool {
	return op < NumOpcodes
}

func (op Opcode) String() string {
	if !op.Valid() {
		return "unknown"
	}
	return opcodeNames[op]
}

// AIsRegister reports whether operand a names a register.
func (op Opcode) AIsRegister() bool {
	switch op {
	case SETI, GTIR, EQIR:
		return false
	}
	return op.Valid()
}

// BIsRegister reports whether operand b names a register. setr and seti
// ignore b entirely.
func (op Opcode) BIsRegister() bool {
	switch op {
	case ADDR, MULR, BANR, BORR, GTIR, GTRR, EQIR, EQRR:
		return true
	}
	return false
}

// IsComparison is true for the gt* and eq* families.
func (op Opcode) IsComparison() bool {
	return op >= GTIR && op <= EQRR
}
