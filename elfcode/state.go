package elfcode

import (
	"fmt"
	"strings"

	"github.com/colorfulnotion/elfvm/common"
)

// Registers is the machine's register file. Its length is fixed by the program.
type Registers []uint64

func (r Registers) String() string {
	parts := make([]string, len(r))
	for i, v := range r {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// MachineState is a snapshot of an engine. It is a value: breakpoints receive
// a copy and hand a (possibly modified) copy back.
type MachineState struct {
	Registers Registers `json:"registers"`
	IP        uint64    `json:"ip"`
	Executed  uint64    `json:"executed"`
}

// Clone deep copies the register file.
func (s MachineState) Clone() MachineState {
	s.Registers = append(Registers(nil), s.Registers...)
	return s
}

// Digest is the blake3 hash of the instruction pointer followed by the registers.
func (s MachineState) Digest() common.Hash {
	words := make([]uint64, 0, len(s.Registers)+1)
	words = append(words, s.IP)
	words = append(words, s.Registers...)
	return common.Blake3Words(words...)
}

func (s MachineState) String() string {
	return fmt.Sprintf("ip=%d executed=%d regs=%s", s.IP, s.Executed, s.Registers)
}
