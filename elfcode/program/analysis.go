package program

import (
	"golang.org/x/exp/slices"
)

// ProgramStats contains statistics about an elfcode program
type ProgramStats struct {
	InstructionCount   int            // Total number of instructions
	BasicBlockCount    int            // Total number of basic blocks
	OpcodeDistribution map[Opcode]int // Distribution of opcodes
	Jumps              []int          // Instructions that write the bound ip register
	Leaders            []int          // First instruction of every basic block
	Targets            map[int]int    // Jump instruction -> constant destination, when known
}

// Analyze returns instruction, opcode and control flow statistics. Without an
// ip binding the program is a single straight-line block.
func (p *Program) Analyze() *ProgramStats {
	stats := &ProgramStats{
		InstructionCount:   len(p.Instructions),
		OpcodeDistribution: make(map[Opcode]int),
		Targets:            make(map[int]int),
	}
	if len(p.Instructions) == 0 {
		return stats
	}
	for _, ins := range p.Instructions {
		stats.OpcodeDistribution[ins.Opcode]++
	}

	leaders := []int{0}
	ipReg, bound := p.BoundIP()
	if bound {
		for idx, ins := range p.Instructions {
			if ins.C != ipReg {
				continue
			}
			stats.Jumps = append(stats.Jumps, idx)
			if idx+1 < len(p.Instructions) {
				leaders = append(leaders, idx+1)
			}
			if dst, ok := constantTarget(idx, ins, ipReg, len(p.Instructions)); ok {
				stats.Targets[idx] = dst
				if dst < len(p.Instructions) {
					leaders = append(leaders, dst)
				}
			}
		}
	}
	slices.Sort(leaders)
	stats.Leaders = slices.Compact(leaders)
	stats.BasicBlockCount = len(stats.Leaders)
	return stats
}

// constantTarget resolves the next instruction index for jumps whose
// destination does not depend on run time register contents. The engine adds
// one after reading the bound register back, hence resume. Register arithmetic
// wraps at 64 bits like the engine's.
func constantTarget(idx int, ins Instruction, ipReg, n int) (int, bool) {
	ip, at := uint64(ipReg), uint64(idx)
	switch ins.Opcode {
	case SETI:
		return resume(ins.A, n), true
	case SETR:
		if ins.A == ip {
			return resume(at, n), true
		}
	case ADDI:
		if ins.A == ip {
			return resume(at+ins.B, n), true
		}
	case MULI:
		if ins.A == ip {
			return resume(at*ins.B, n), true
		}
	}
	return 0, false
}

// resume is the index executed after the bound register holds v. Anything
// past the last instruction is reported as n, the end of the program.
func resume(v uint64, n int) int {
	if v >= uint64(n) {
		return n
	}
	return int(v) + 1
}

// BlockOf returns the leader of the basic block containing idx.
func (s *ProgramStats) BlockOf(idx int) int {
	i, found := slices.BinarySearch(s.Leaders, idx)
	if found {
		return s.Leaders[i]
	}
	if i == 0 {
		return 0
	}
	return s.Leaders[i-1]
}
