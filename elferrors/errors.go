package elferrors

import (
	"errors"
	"strings"
)

// Program (P) Errors
var (
	ErrPUnknownOpcode        = errors.New("P1|UnknownOpcode: Instruction names an opcode outside the 16 fixed mnemonics.")
	ErrPMalformedInstruction = errors.New("P2|MalformedInstruction: Instruction line does not have exactly four tokens of mnemonic and non-negative integers.")
	ErrPMalformedBinding     = errors.New("P3|MalformedBinding: Instruction pointer directive is not of the form '#ip <register>'.")
	ErrPRegisterOutOfRange   = errors.New("P4|RegisterOutOfRange: Target, register operand or ip binding is not below the register count.")
	ErrPInvalidRegisterCount = errors.New("P5|InvalidRegisterCount: Register file must hold at least one register.")
	ErrPEmptyProgram         = errors.New("P6|EmptyProgram: Program text holds no instructions.")
)

// Sample (S) Errors
var (
	ErrSMalformedSample   = errors.New("S1|MalformedSample: Sample block is not Before/instruction/After.")
	ErrSRegisterWidth     = errors.New("S2|RegisterWidth: Sample register lists differ in width.")
	ErrSUnresolvedMapping = errors.New("S3|UnresolvedMapping: Samples do not pin every opcode code to a single mnemonic.")
	ErrSUnknownCode       = errors.New("S4|UnknownCode: Program uses an opcode code absent from the mapping.")
)

// Trace (T) Errors
var (
	ErrTTraceWriterClosed = errors.New("T1|TraceWriterClosed: Trace writer used after Close.")
)

// Debugger (D) Errors
var (
	ErrDUnknownCommand = errors.New("D1|UnknownCommand: Debugger command not recognised.")
	ErrDBadArgument    = errors.New("D2|BadArgument: Debugger command argument could not be parsed.")
	ErrDHalted         = errors.New("D3|Halted: Machine has halted; load the program again to restart.")
)

var catalogue = []error{
	ErrPUnknownOpcode, ErrPMalformedInstruction, ErrPMalformedBinding, ErrPRegisterOutOfRange,
	ErrPInvalidRegisterCount, ErrPEmptyProgram,
	ErrSMalformedSample, ErrSRegisterWidth, ErrSUnresolvedMapping, ErrSUnknownCode,
	ErrTTraceWriterClosed,
	ErrDUnknownCommand, ErrDBadArgument, ErrDHalted,
}

// root finds the catalogue error wrapped by err, if any.
func root(err error) error {
	for _, e := range catalogue {
		if errors.Is(err, e) {
			return e
		}
	}
	return err
}

// GetErrorName extracts the error name from the error message.
func GetErrorName(err error) string {
	if err == nil {
		return "No Error"
	}
	errStr := root(err).Error()
	if !strings.Contains(errStr, "|") || !strings.Contains(errStr, ":") {
		return errStr
	}
	parts := strings.SplitN(errStr, "|", 2)
	nameParts := strings.SplitN(parts[1], ":", 2)
	return strings.TrimSpace(nameParts[0])
}

// GetErrorCode extracts the error code from the error message.
func GetErrorCode(err error) string {
	if err == nil {
		return ""
	}
	errStr := root(err).Error()
	if !strings.Contains(errStr, "|") {
		return ""
	}
	parts := strings.SplitN(errStr, "|", 2)
	return strings.TrimSpace(parts[0])
}

// GetErrorCodeWithName returns the error code and name in the format "Code_ErrorName".
func GetErrorCodeWithName(err error) string {
	code := GetErrorCode(err)
	name := GetErrorName(err)
	if code == "" || name == "" {
		return ""
	}
	return code + "_" + name
}

// GetErrorDesc extracts the error description from the error message.
func GetErrorDesc(err error) string {
	if err == nil {
		return ""
	}
	errStr := root(err).Error()
	parts := strings.SplitN(errStr, ":", 2)
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
