package disasm

import (
	"fmt"
	"strings"

	"github.com/colorfulnotion/elfvm/elfcode/program"
	"github.com/xlab/treeprint"
)

// Line renders one listing row: index, canonical text and pseudo-code.
func Line(idx int, ins program.Instruction, ipReg int) string {
	return fmt.Sprintf("%3d  %-16s %s", idx, ins.String(), Format(ins, ipReg))
}

// Tree lists p grouped by basic block. Jumps with a constant destination are
// annotated with the index execution resumes at.
func Tree(p *program.Program) treeprint.Tree {
	stats := p.Analyze()
	ipReg := -1
	if r, ok := p.BoundIP(); ok {
		ipReg = r
	}

	tree := treeprint.New()
	tree.SetValue(fmt.Sprintf("program %s (%d instructions, %d blocks, %d registers)",
		p.Hash().Short(), stats.InstructionCount, stats.BasicBlockCount, p.Registers))

	var block treeprint.Tree
	for idx, ins := range p.Instructions {
		if stats.BlockOf(idx) == idx {
			block = tree.AddBranch(fmt.Sprintf("block %d", idx))
		}
		line := Line(idx, ins, ipReg)
		if dst, ok := stats.Targets[idx]; ok && dst == len(p.Instructions) {
			line += "  -> exit"
		} else if ok {
			line += fmt.Sprintf("  -> %d", dst)
		} else if ipReg >= 0 && ins.C == ipReg {
			line += "  -> ?"
		}
		block.AddNode(line)
	}
	return tree
}

// Stats renders the opcode distribution in table order.
func Stats(p *program.Program) string {
	stats := p.Analyze()
	var sb strings.Builder
	fmt.Fprintf(&sb, "instructions: %d\n", stats.InstructionCount)
	fmt.Fprintf(&sb, "basic blocks: %d\n", stats.BasicBlockCount)
	fmt.Fprintf(&sb, "jumps:        %d\n", len(stats.Jumps))
	for _, op := range program.Opcodes() {
		if n := stats.OpcodeDistribution[op]; n > 0 {
			fmt.Fprintf(&sb, "  %-5s %d\n", op, n)
		}
	}
	return sb.String()
}
