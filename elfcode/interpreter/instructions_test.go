package interpreter

import (
	"testing"

	"github.com/colorfulnotion/elfvm/elfcode/program"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplySample(t *testing.T) {
	regs := []uint64{3, 2, 1, 1}
	Apply(program.Instruction{Opcode: MULR, A: 2, B: 1, C: 2}, regs)
	assert.Equal(t, []uint64{3, 2, 2, 1}, regs)
}

func TestEvalTable(t *testing.T) {
	regs := []uint64{12, 10, 7, 0}
	tests := []struct {
		op   program.Opcode
		a, b uint64
		want uint64
	}{
		{ADDR, 0, 1, 22},
		{ADDI, 0, 5, 17},
		{MULR, 0, 1, 120},
		{MULI, 2, 3, 21},
		{BANR, 0, 1, 8},
		{BANI, 0, 6, 4},
		{BORR, 0, 2, 15},
		{BORI, 1, 5, 15},
		{SETR, 2, 99, 7},
		{SETI, 42, 99, 42},
		{GTIR, 11, 1, 1},
		{GTIR, 10, 1, 0},
		{GTRI, 0, 11, 1},
		{GTRI, 0, 12, 0},
		{GTRR, 0, 1, 1},
		{GTRR, 1, 0, 0},
		{EQIR, 7, 2, 1},
		{EQIR, 8, 2, 0},
		{EQRI, 3, 0, 1},
		{EQRI, 3, 1, 0},
		{EQRR, 3, 3, 1},
		{EQRR, 0, 1, 0},
	}
	for _, tc := range tests {
		t.Run(tc.op.String(), func(t *testing.T) {
			assert.Equal(t, tc.want, Eval(tc.op, tc.a, tc.b, regs))
		})
	}
}

func TestEvalWidensPast32Bits(t *testing.T) {
	regs := []uint64{1 << 31, 1 << 33}
	assert.Equal(t, uint64(1<<32), Eval(ADDR, 0, 0, regs))
	assert.Equal(t, uint64(1<<34), Eval(MULI, 1, 2, regs))
	// wraps rather than failing
	assert.Equal(t, uint64(0), Eval(MULR, 1, 1, []uint64{1 << 32, 1 << 32}))
}

// Register/register and register/immediate forms agree when the immediate
// equals the register the r-form would have read.
func TestRegisterImmediateAgreement(t *testing.T) {
	pairs := [][2]program.Opcode{{ADDR, ADDI}, {MULR, MULI}, {BANR, BANI}, {BORR, BORI}}
	contents := [][]uint64{
		{0, 0, 0, 0},
		{3, 2, 1, 1},
		{5, 9, 1 << 40, 12345},
		{^uint64(0), 1, 2, 3},
	}
	for _, pair := range pairs {
		for _, regs := range contents {
			for a := uint64(0); a < 4; a++ {
				for b := uint64(0); b < 4; b++ {
					r := Eval(pair[0], a, b, regs)
					i := Eval(pair[1], a, regs[b], regs)
					require.Equal(t, r, i, "%s/%s a=%d b=%d regs=%v", pair[0], pair[1], a, b, regs)
				}
			}
		}
	}
}

func TestComparisonsAreBoolean(t *testing.T) {
	contents := [][]uint64{
		{0, 0, 0, 0},
		{3, 2, 1, 1},
		{^uint64(0), 0, 1 << 63, 7},
	}
	operands := []uint64{0, 1, 2, 3}
	for _, op := range program.Opcodes() {
		if !op.IsComparison() {
			continue
		}
		for _, regs := range contents {
			for _, a := range operands {
				for _, b := range operands {
					v := Eval(op, a, b, regs)
					require.True(t, v == 0 || v == 1, "%s(%d,%d) = %d", op, a, b, v)
				}
			}
		}
	}
}

func TestEvalUnknownOpcodePanics(t *testing.T) {
	assert.Panics(t, func() { Eval(program.Opcode(16), 0, 0, []uint64{0}) })
}

func TestMatches(t *testing.T) {
	before := []uint64{3, 2, 1, 1}
	after := []uint64{3, 2, 2, 1}
	var matching []string
	for _, op := range program.Opcodes() {
		if Matches(program.Instruction{Opcode: op, A: 2, B: 1, C: 2}, before, after) {
			matching = append(matching, op.String())
		}
	}
	assert.ElementsMatch(t, []string{"mulr", "addi", "seti"}, matching)

	// out of range operands never match instead of panicking
	assert.False(t, Matches(program.Instruction{Opcode: ADDR, A: 9, B: 1, C: 2}, before, after))
	assert.False(t, Matches(program.Instruction{Opcode: SETI, A: 2, B: 1, C: 4}, before, after))
}
