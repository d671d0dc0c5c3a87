package samples

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/colorfulnotion/elfvm/elferrors"
)

// SampleRegisters is the register file width of the sample machine.
const SampleRegisters = 4

// RawInstruction is an instruction whose opcode is still a numeric code.
type RawInstruction struct {
	Code uint8
	A, B uint64
	C    int
}

// Sample is one observed Before/instruction/After triple.
type Sample struct {
	Before      []uint64
	Instruction RawInstruction
	After       []uint64
}

// Parse reads sample blocks followed by an optional program of numeric
// instructions.
func Parse(r io.Reader) ([]Sample, []RawInstruction, error) {
	scanner := bufio.NewScanner(r)
	var (
		samples []Sample
		program []RawInstruction
		lineNo  int
	)
	next := func() (string, bool) {
		for scanner.Scan() {
			lineNo++
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				return line, true
			}
		}
		return "", false
	}

	for {
		line, ok := next()
		if !ok {
			break
		}
		if !strings.HasPrefix(line, "Before:") {
			ins, err := parseRaw(line)
			if err != nil {
				return nil, nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			program = append(program, ins)
			continue
		}
		if len(program) > 0 {
			return nil, nil, fmt.Errorf("line %d: %w: sample after program", lineNo, elferrors.ErrSMalformedSample)
		}
		s, err := parseSample(line, next)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		samples = append(samples, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return samples, program, nil
}

func parseSample(before string, next func() (string, bool)) (Sample, error) {
	var s Sample
	var err error
	if s.Before, err = parseRegisters(before, "Before:"); err != nil {
		return s, err
	}
	line, ok := next()
	if !ok {
		return s, fmt.Errorf("%w: missing instruction", elferrors.ErrSMalformedSample)
	}
	if s.Instruction, err = parseRaw(line); err != nil {
		return s, err
	}
	line, ok = next()
	if !ok {
		return s, fmt.Errorf("%w: missing After", elferrors.ErrSMalformedSample)
	}
	if s.After, err = parseRegisters(line, "After:"); err != nil {
		return s, err
	}
	if len(s.Before) != len(s.After) {
		return s, fmt.Errorf("%w: %d before, %d after", elferrors.ErrSRegisterWidth, len(s.Before), len(s.After))
	}
	return s, nil
}

// parseRegisters parses "Before: [3, 2, 1, 1]".
func parseRegisters(line, prefix string) ([]uint64, error) {
	rest, ok := strings.CutPrefix(line, prefix)
	if !ok {
		return nil, fmt.Errorf("%w: expected %q in %q", elferrors.ErrSMalformedSample, prefix, line)
	}
	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, "[") || !strings.HasSuffix(rest, "]") {
		return nil, fmt.Errorf("%w: %q", elferrors.ErrSMalformedSample, line)
	}
	var regs []uint64
	for _, f := range strings.Split(rest[1:len(rest)-1], ",") {
		v, err := strconv.ParseUint(strings.TrimSpace(f), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", elferrors.ErrSMalformedSample, line)
		}
		regs = append(regs, v)
	}
	return regs, nil
}

func parseRaw(line string) (RawInstruction, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return RawInstruction{}, fmt.Errorf("%w: %q", elferrors.ErrPMalformedInstruction, line)
	}
	var v [4]uint64
	for i, f := range fields {
		n, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return RawInstruction{}, fmt.Errorf("%w: %q", elferrors.ErrPMalformedInstruction, line)
		}
		v[i] = n
	}
	if v[0] > 255 || v[3] > 1<<31-1 {
		return RawInstruction{}, fmt.Errorf("%w: %q", elferrors.ErrPMalformedInstruction, line)
	}
	return RawInstruction{Code: uint8(v[0]), A: v[1], B: v[2], C: int(v[3])}, nil
}
