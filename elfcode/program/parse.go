package program

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/colorfulnotion/elfvm/elferrors"
)

const ipDirective = "#ip"

// Parse reads a program: an optional "#ip <r>" first line followed by one
// "<mnemonic> <a> <b> <c>" instruction per non-empty line.
func Parse(r io.Reader, registers int) (*Program, error) {
	var (
		instructions []Instruction
		opts         []Option
		lineNo       int
		seen         bool
	)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if seen {
				return nil, fmt.Errorf("line %d: %w: directive after first instruction", lineNo, elferrors.ErrPMalformedBinding)
			}
			reg, err := parseBinding(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			opts = append(opts, WithIPBinding(reg))
			seen = true
			continue
		}
		seen = true
		ins, err := ParseInstruction(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		instructions = append(instructions, ins)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(instructions) == 0 {
		return nil, elferrors.ErrPEmptyProgram
	}
	return New(instructions, registers, opts...)
}

// ParseString is Parse over a string.
func ParseString(src string, registers int) (*Program, error) {
	return Parse(strings.NewReader(src), registers)
}

func parseBinding(line string) (int, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 || fields[0] != ipDirective {
		return 0, fmt.Errorf("%w: %q", elferrors.ErrPMalformedBinding, line)
	}
	reg, err := strconv.ParseUint(fields[1], 10, 31)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", elferrors.ErrPMalformedBinding, line)
	}
	return int(reg), nil
}

// ParseInstruction parses a single "<mnemonic> <a> <b> <c>" line.
func ParseInstruction(line string) (Instruction, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return Instruction{}, fmt.Errorf("%w: %q has %d tokens", elferrors.ErrPMalformedInstruction, line, len(fields))
	}
	op, ok := LookupOpcode(fields[0])
	if !ok {
		return Instruction{}, fmt.Errorf("%w: %q", elferrors.ErrPUnknownOpcode, fields[0])
	}
	var operands [3]uint64
	for i, f := range fields[1:] {
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return Instruction{}, fmt.Errorf("%w: operand %q in %q", elferrors.ErrPMalformedInstruction, f, line)
		}
		operands[i] = v
	}
	if operands[2] > 1<<31-1 {
		return Instruction{}, fmt.Errorf("%w: target %d in %q", elferrors.ErrPRegisterOutOfRange, operands[2], line)
	}
	return Instruction{Opcode: op, A: operands[0], B: operands[1], C: int(operands[2])}, nil
}
