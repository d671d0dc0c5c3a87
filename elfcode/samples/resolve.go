package samples

import (
	"fmt"
	"sort"
	"strings"

	"github.com/colorfulnotion/elfvm/elfcode/interpreter"
	"github.com/colorfulnotion/elfvm/elfcode/program"
	"github.com/colorfulnotion/elfvm/elferrors"
	"github.com/colorfulnotion/elfvm/log"
	"golang.org/x/exp/slices"
)

// Matching returns every opcode that turns Before into After when run with
// the sample's operands.
func Matching(s Sample) []program.Opcode {
	var out []program.Opcode
	for _, op := range program.Opcodes() {
		ins := program.Instruction{Opcode: op, A: s.Instruction.A, B: s.Instruction.B, C: s.Instruction.C}
		if interpreter.Matches(ins, s.Before, s.After) {
			out = append(out, op)
		}
	}
	return out
}

// CountAmbiguous counts samples consistent with at least min opcodes.
func CountAmbiguous(samples []Sample, min int) int {
	n := 0
	for _, s := range samples {
		if len(Matching(s)) >= min {
			n++
		}
	}
	return n
}

// Mapping assigns each numeric code its opcode.
type Mapping map[uint8]program.Opcode

// Resolve intersects the candidates of every sample per code, then repeatedly
// pins codes left with a single candidate and strikes that opcode from the
// others.
func Resolve(samples []Sample) (Mapping, error) {
	candidates := make(map[uint8]map[program.Opcode]struct{})
	for _, s := range samples {
		code := s.Instruction.Code
		matched := Matching(s)
		cur, ok := candidates[code]
		if !ok {
			cur = make(map[program.Opcode]struct{}, len(matched))
			for _, op := range matched {
				cur[op] = struct{}{}
			}
			candidates[code] = cur
			continue
		}
		for op := range cur {
			if !slices.Contains(matched, op) {
				delete(cur, op)
			}
		}
	}

	mapping := make(Mapping, len(candidates))
	for len(candidates) > 0 {
		progress := false
		for _, code := range sortedCodes(candidates) {
			set := candidates[code]
			if len(set) == 0 {
				return nil, fmt.Errorf("%w: code %d matches no opcode", elferrors.ErrSUnresolvedMapping, code)
			}
			if len(set) != 1 {
				continue
			}
			op := only(set)
			mapping[code] = op
			delete(candidates, code)
			for _, other := range candidates {
				delete(other, op)
			}
			progress = true
			log.Trace(log.SamplesMonitoring, "resolved", "code", code, "opcode", op)
		}
		if !progress {
			return nil, fmt.Errorf("%w: %s", elferrors.ErrSUnresolvedMapping, describe(candidates))
		}
	}
	log.Debug(log.SamplesMonitoring, "mapping resolved", "codes", len(mapping), "samples", len(samples))
	return mapping, nil
}

func describe(candidates map[uint8]map[program.Opcode]struct{}) string {
	codes := sortedCodes(candidates)
	parts := make([]string, 0, len(codes))
	for _, code := range codes {
		names := make([]string, 0, len(candidates[code]))
		for op := range candidates[code] {
			names = append(names, op.String())
		}
		sort.Strings(names)
		parts = append(parts, fmt.Sprintf("%d:{%s}", code, strings.Join(names, ",")))
	}
	return strings.Join(parts, " ")
}

// Translate rewrites raw into a program over the sample register file.
func (m Mapping) Translate(raw []RawInstruction) (*program.Program, error) {
	instructions := make([]program.Instruction, 0, len(raw))
	for idx, r := range raw {
		op, ok := m[r.Code]
		if !ok {
			return nil, fmt.Errorf("%w: code %d at instruction %d", elferrors.ErrSUnknownCode, r.Code, idx)
		}
		instructions = append(instructions, program.Instruction{Opcode: op, A: r.A, B: r.B, C: r.C})
	}
	return program.New(instructions, SampleRegisters)
}

// String lists the mapping ordered by code.
func (m Mapping) String() string {
	codes := sortedCodes(m)
	parts := make([]string, 0, len(codes))
	for _, code := range codes {
		parts = append(parts, fmt.Sprintf("%d=%s", code, m[code]))
	}
	return strings.Join(parts, " ")
}

func sortedCodes[V any](m map[uint8]V) []uint8 {
	codes := make([]uint8, 0, len(m))
	for code := range m {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}

func only(set map[program.Opcode]struct{}) program.Opcode {
	for op := range set {
		return op
	}
	panic("samples: empty candidate set")
}
