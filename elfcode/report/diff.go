package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/colorfulnotion/elfvm/elfcode"
	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"
)

// LoadState decodes a MachineState written by "elfvm run --json".
func LoadState(r io.Reader) (elfcode.MachineState, error) {
	var s elfcode.MachineState
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return s, fmt.Errorf("decode machine state: %w", err)
	}
	return s, nil
}

// DiffStates compares two machine states as JSON. It returns the ASCII delta
// and whether they differ.
func DiffStates(expected, actual elfcode.MachineState, coloring bool) (string, bool, error) {
	expJSON, err := json.Marshal(expected)
	if err != nil {
		return "", false, err
	}
	actJSON, err := json.Marshal(actual)
	if err != nil {
		return "", false, err
	}

	differ := gojsondiff.New()
	delta, err := differ.Compare(expJSON, actJSON)
	if err != nil {
		return "", false, fmt.Errorf("diffing states: %w", err)
	}
	if !delta.Modified() {
		return "", false, nil
	}

	var leftObj interface{}
	if err := json.Unmarshal(expJSON, &leftObj); err != nil {
		return "", true, err
	}
	cfg := formatter.AsciiFormatterConfig{
		ShowArrayIndex: true,
		Coloring:       coloring,
	}
	asciiDiff, err := formatter.NewAsciiFormatter(leftObj, cfg).Format(delta)
	if err != nil {
		return "", true, fmt.Errorf("formatting diff: %w", err)
	}
	return asciiDiff, true, nil
}
