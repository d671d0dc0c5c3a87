package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/colorfulnotion/elfvm/elfcode"
	"github.com/colorfulnotion/elfvm/elfcode/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleProgram = `#ip 0
seti 5 0 1
seti 6 0 2
addi 0 1 0
addr 1 2 3
setr 1 0 0
seti 8 0 4
seti 9 0 5
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRun(t *testing.T) {
	path := writeFile(t, "sample.elf", sampleProgram)
	out, err := execute(t, "run", path)
	require.NoError(t, err)
	assert.Contains(t, out, "halt:      end of program")
	assert.Contains(t, out, "executed:  5")
	assert.Contains(t, out, "registers: [6, 5, 6, 0, 0, 9]")
}

func TestRunJSONAndExpect(t *testing.T) {
	path := writeFile(t, "sample.elf", sampleProgram)
	out, err := execute(t, "run", "--json", path)
	require.NoError(t, err)
	var s elfcode.MachineState
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, elfcode.MachineState{Registers: elfcode.Registers{6, 5, 6, 0, 0, 9}, IP: 7, Executed: 5}, s)

	expect := writeFile(t, "state.json", out)
	out, err = execute(t, "run", "--expect", expect, path)
	require.NoError(t, err)
	assert.Contains(t, out, "state matches")

	// a different start produces a mismatch with a diff
	_, err = execute(t, "run", "--set", "r4=1", "--expect", expect, "--break", "6", path)
	assert.True(t, errors.Is(err, errStateMismatch), "%v", err)
}

func TestRunBreakpoints(t *testing.T) {
	path := writeFile(t, "sample.elf", sampleProgram)
	out, err := execute(t, "run", "--break", "4", path)
	require.NoError(t, err)
	assert.Contains(t, out, "halt:      breakpoint")
	assert.Contains(t, out, "ip:        4")
	assert.Contains(t, out, "executed:  3")

	out, err = execute(t, "run", "--break-js", "6: r[1] == 5", path)
	require.NoError(t, err)
	assert.Contains(t, out, "ip:        6")

	out, err = execute(t, "run", "--max-steps", "2", path)
	require.NoError(t, err)
	assert.Contains(t, out, "executed:  2")

	_, err = execute(t, "run", "--break", "x", path)
	assert.Error(t, err)
	_, err = execute(t, "run", "--break-js", "6:r[", path)
	assert.Error(t, err)
	_, err = execute(t, "run", "--set", "r9=1", path)
	assert.Error(t, err)
}

func TestRunTrace(t *testing.T) {
	path := writeFile(t, "sample.elf", sampleProgram)
	tracePath := filepath.Join(t.TempDir(), "run.jsonl.zst")
	_, err := execute(t, "run", "--trace", tracePath, path)
	require.NoError(t, err)
	steps, err := trace.ReadStepsFile(tracePath)
	require.NoError(t, err)
	require.Len(t, steps, 5)
	assert.Equal(t, uint64(6), steps[4].IP)
}

func TestRunTraceStdout(t *testing.T) {
	path := writeFile(t, "sample.elf", sampleProgram)
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"run", "--trace", "-", path})
	require.NoError(t, cmd.Execute())

	steps, err := trace.ReadSteps(&out)
	require.NoError(t, err)
	require.Len(t, steps, 5)
	assert.Equal(t, "seti", steps[4].OpcodeStr)
	assert.Contains(t, errOut.String(), "executed:  5")
	_, err = os.Stat("-")
	assert.True(t, os.IsNotExist(err))
}

func TestRunMalformedProgram(t *testing.T) {
	path := writeFile(t, "bad.elf", "#ip 0\nseti 5 0 1\nfoo 1 2 3\n")
	_, err := execute(t, "run", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}

func TestList(t *testing.T) {
	path := writeFile(t, "sample.elf", sampleProgram)
	out, err := execute(t, "list", path)
	require.NoError(t, err)
	assert.Contains(t, out, "7 instructions")
	assert.Contains(t, out, "ip = ip + 1")
	assert.Contains(t, out, "basic blocks:")
}

func TestHistory(t *testing.T) {
	src := "#ip 5\naddi 1 0 1\naddi 0 1 0\nbani 0 3 2\nseti 0 0 5\n"
	path := writeFile(t, "loop.elf", src)
	chart := filepath.Join(t.TempDir(), "chart.html")
	out, err := execute(t, "history", "--at", "2", "--reg", "2", "--cycle", "--out", chart, path)
	require.NoError(t, err)
	assert.Contains(t, out, "distinct:  4")
	assert.Contains(t, out, "last new:  3")
	html, err := os.ReadFile(chart)
	require.NoError(t, err)
	assert.Contains(t, string(html), "r2 before instruction 2")

	out, err = execute(t, "history", "--at", "2", "--reg", "0", "--limit", "3", path)
	require.NoError(t, err)
	assert.Contains(t, out, "samples:   3")

	_, err = execute(t, "history", "--reg", "9", path)
	assert.Error(t, err)
}

func TestHistoryLongCycle(t *testing.T) {
	// r2 walks 1..2047 then 0 before repeating, well past the default limit
	src := "#ip 5\nseti 0 0 0\naddi 0 1 0\nbani 0 2047 2\nseti 0 0 5\n"
	path := writeFile(t, "long.elf", src)
	out, err := execute(t, "history", "--at", "3", "--reg", "2", "--cycle", path)
	require.NoError(t, err)
	assert.Contains(t, out, "samples:   2048")
	assert.Contains(t, out, "distinct:  2048")
	assert.Contains(t, out, "last new:  0\n")

	// an explicit limit still bounds the run, and no repeat is claimed
	out, err = execute(t, "history", "--at", "3", "--reg", "2", "--cycle", "--limit", "1000", path)
	require.NoError(t, err)
	assert.Contains(t, out, "samples:   1000")
	assert.Contains(t, out, "last new:  none")
	assert.NotContains(t, out, "last new:  999")
}

func TestOpcodes(t *testing.T) {
	src := `Before: [3, 2, 1, 1]
9 2 1 2
After:  [3, 2, 2, 1]

Before: [0, 0, 0, 0]
9 5 0 0
After:  [5, 0, 0, 0]

9 7 0 0
9 3 0 1
`
	path := writeFile(t, "samples.txt", src)
	out, err := execute(t, "opcodes", path)
	require.NoError(t, err)
	assert.Contains(t, out, "samples:            2")
	assert.Contains(t, out, "matching >= 3:      1")
	assert.Contains(t, out, "mapping:            9=seti")
	assert.Contains(t, out, "program registers:  [7, 3, 0, 0]")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "elfvm dev")
}

func TestParseAssignments(t *testing.T) {
	regs, err := parseAssignments([]string{"r0=1", "r3=7"}, 6)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 0, 0, 7, 0, 0}, regs)

	regs, err = parseAssignments(nil, 6)
	require.NoError(t, err)
	assert.Nil(t, regs)

	for _, bad := range []string{"r0", "x0=1", "r6=1", "r0=-1"} {
		_, err := parseAssignments([]string{bad}, 6)
		assert.Error(t, err, bad)
	}
}

func TestTraceShowAndVerify(t *testing.T) {
	path := writeFile(t, "sample.elf", sampleProgram)
	tracePath := filepath.Join(t.TempDir(), "run.jsonl")
	_, err := execute(t, "run", "--trace", tracePath, path)
	require.NoError(t, err)

	out, err := execute(t, "trace", "show", "--tail", "1", tracePath)
	require.NoError(t, err)
	assert.Contains(t, out, "seti  9 0 5")
	assert.NotContains(t, out, "seti  5 0 1")

	out, err = execute(t, "trace", "verify", path, tracePath)
	require.NoError(t, err)
	assert.Equal(t, "5 steps verified\n", out)

	out, err = execute(t, "trace", "verify", "--set", "r2=1", path, tracePath)
	assert.True(t, errors.Is(err, errTraceDiverged), "%v", err)
	assert.Contains(t, out, "replayed:")

	short := writeFile(t, "short.elf", "#ip 0\nseti 5 0 1\n")
	_, err = execute(t, "trace", "verify", short, tracePath)
	assert.True(t, errors.Is(err, errTraceDiverged))
}

func TestTraceVerifyStoppedRun(t *testing.T) {
	path := writeFile(t, "sample.elf", sampleProgram)
	dir := t.TempDir()

	broken := filepath.Join(dir, "break.jsonl")
	_, err := execute(t, "run", "--break", "2", "--trace", broken, path)
	require.NoError(t, err)
	out, err := execute(t, "trace", "verify", path, broken)
	require.NoError(t, err)
	assert.Contains(t, out, "2 steps verified, trace ends at ip 2")

	capped := filepath.Join(dir, "capped.jsonl")
	_, err = execute(t, "run", "--max-steps", "3", "--trace", capped, path)
	require.NoError(t, err)
	out, err = execute(t, "trace", "verify", path, capped)
	require.NoError(t, err)
	assert.Contains(t, out, "3 steps verified")
}
