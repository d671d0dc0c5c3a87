package trace

import (
	"github.com/colorfulnotion/elfvm/common"
	"github.com/colorfulnotion/elfvm/elfcode/program"
)

type SimpleInstruction struct {
	Opcode  uint8  `json:"opcode"`
	A       uint64 `json:"a"`
	B       uint64 `json:"b"`
	C       int    `json:"c"`
	SrcRegs []int  `json:"srcRegs,omitempty"`
}

// TraceStep is the record written after each executed instruction.
type TraceStep struct {
	Step        uint64            `json:"step"`
	IP          uint64            `json:"ip"`
	Instruction SimpleInstruction `json:"instruction"`
	OpcodeStr   string            `json:"opcodeStr,omitempty"`

	PostRegisters []uint64    `json:"postRegisters"`
	PostIP        uint64      `json:"postIp"`
	Digest        common.Hash `json:"digest"`
}

// Writer receives one TraceStep per executed instruction.
type Writer interface {
	WriteStep(step *TraceStep) error
}

func NewSimpleInstruction(ins program.Instruction) SimpleInstruction {
	si := SimpleInstruction{
		Opcode: uint8(ins.Opcode),
		A:      ins.A,
		B:      ins.B,
		C:      ins.C,
	}
	// Registers lists the target first
	for _, r := range ins.Registers()[1:] {
		si.SrcRegs = append(si.SrcRegs, int(r))
	}
	return si
}

func NewTraceStep(step, ip uint64, ins program.Instruction) *TraceStep {
	return &TraceStep{
		Step:        step,
		IP:          ip,
		Instruction: NewSimpleInstruction(ins),
		OpcodeStr:   ins.Opcode.String(),
	}
}

func (ts *TraceStep) SetPostRegisters(regs []uint64) {
	ts.PostRegisters = append([]uint64(nil), regs...)
}

func (ts *TraceStep) SetPostState(ip uint64, digest common.Hash) {
	ts.PostIP = ip
	ts.Digest = digest
}

// Recorder keeps steps in memory; used by tests and the debugger.
type Recorder struct {
	Steps []*TraceStep
}

func (r *Recorder) WriteStep(step *TraceStep) error {
	r.Steps = append(r.Steps, step)
	return nil
}
