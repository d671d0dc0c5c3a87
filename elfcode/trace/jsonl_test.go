package trace

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/colorfulnotion/elfvm/common"
	"github.com/colorfulnotion/elfvm/elfcode/program"
	"github.com/colorfulnotion/elfvm/elferrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSteps() []*TraceStep {
	a := NewTraceStep(0, 0, program.Instruction{Opcode: program.SETI, A: 5, C: 1})
	a.SetPostRegisters([]uint64{0, 5, 0, 0, 0, 0})
	a.SetPostState(1, common.Blake3Words(1, 0, 5, 0, 0, 0, 0))
	b := NewTraceStep(1, 1, program.Instruction{Opcode: program.ADDR, A: 1, B: 2, C: 3})
	b.SetPostRegisters([]uint64{1, 5, 6, 11, 0, 0})
	b.SetPostState(2, common.Blake3Words(2, 1, 5, 6, 11, 0, 0))
	return []*TraceStep{a, b}
}

func TestJSONLRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLTraceWriter(&buf)
	for _, s := range sampleSteps() {
		require.NoError(t, w.WriteStep(s))
	}
	require.NoError(t, w.Close())
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("\n")))

	got, err := ReadSteps(&buf)
	require.NoError(t, err)
	assert.Equal(t, sampleSteps(), got)
	assert.Equal(t, []int{1, 2}, got[1].Instruction.SrcRegs)
	assert.Equal(t, "addr", got[1].OpcodeStr)
}

func TestSimpleInstructionSources(t *testing.T) {
	assert.Equal(t, []int{2}, NewSimpleInstruction(program.Instruction{Opcode: program.GTIR, A: 9, B: 2}).SrcRegs)
	assert.Equal(t, []int{4}, NewSimpleInstruction(program.Instruction{Opcode: program.SETR, A: 4, B: 7, C: 1}).SrcRegs)
	assert.Nil(t, NewSimpleInstruction(program.Instruction{Opcode: program.SETI, A: 4, B: 7, C: 1}).SrcRegs)
}

func TestStreamWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLTraceWriterStream(&buf)
	require.NoError(t, w.WriteStep(sampleSteps()[0]))
	require.NoError(t, w.Close())
	got, err := ReadSteps(&buf)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "seti", got[0].OpcodeStr)
}

func TestWriteAfterClose(t *testing.T) {
	w := NewJSONLTraceWriter(&bytes.Buffer{})
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	err := w.WriteStep(sampleSteps()[0])
	assert.True(t, errors.Is(err, elferrors.ErrTTraceWriterClosed))
	assert.True(t, errors.Is(w.Flush(), elferrors.ErrTTraceWriterClosed))
}

func TestFileTraces(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"run.jsonl", "run.jsonl.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			w, err := NewJSONLTraceWriterFile(path)
			require.NoError(t, err)
			for _, s := range sampleSteps() {
				require.NoError(t, w.WriteStep(s))
			}
			require.NoError(t, w.Close())

			got, err := ReadStepsFile(path)
			require.NoError(t, err)
			assert.Equal(t, sampleSteps(), got)
		})
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	var w Writer = &r
	for _, s := range sampleSteps() {
		require.NoError(t, w.WriteStep(s))
	}
	assert.Len(t, r.Steps, 2)
}
