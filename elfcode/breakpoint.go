package elfcode

// Breakpoint is invoked before the instruction at its index executes. The
// returned state replaces the engine's live state; returning true halts.
type Breakpoint interface {
	Hit(state MachineState) (MachineState, bool)
}

// BreakpointFunc adapts a closure to Breakpoint.
type BreakpointFunc func(state MachineState) (MachineState, bool)

func (f BreakpointFunc) Hit(state MachineState) (MachineState, bool) {
	return f(state)
}

// HaltAlways halts the first time its index is reached.
func HaltAlways() Breakpoint {
	return BreakpointFunc(func(state MachineState) (MachineState, bool) {
		return state, true
	})
}

// StepLimit halts once n instructions have executed.
func StepLimit(n uint64) Breakpoint {
	return BreakpointFunc(func(state MachineState) (MachineState, bool) {
		return state, state.Executed >= n
	})
}

// CycleDetector records the value of Register on each hit and halts the first
// time a value repeats.
type CycleDetector struct {
	Register int

	seen     map[uint64]struct{}
	last     uint64
	any      bool
	repeated bool
}

func (c *CycleDetector) Hit(state MachineState) (MachineState, bool) {
	if c.seen == nil {
		c.seen = make(map[uint64]struct{})
	}
	v := state.Registers[c.Register]
	if _, ok := c.seen[v]; ok {
		c.repeated = true
		return state, true
	}
	c.seen[v] = struct{}{}
	c.last = v
	c.any = true
	return state, false
}

// Last returns the last value recorded before the first repeat.
func (c *CycleDetector) Last() (uint64, bool) {
	return c.last, c.any
}

// Repeated reports whether the detector halted the machine. Until then Last
// is only the most recent value, not the last new one before a cycle.
func (c *CycleDetector) Repeated() bool {
	return c.repeated
}

// Seen is the number of distinct values recorded.
func (c *CycleDetector) Seen() int {
	return len(c.seen)
}

// RegisterHistory records every value of Register at its index. With Limit > 0
// it halts after Limit samples.
type RegisterHistory struct {
	Register int
	Limit    int

	Values []uint64
}

func (h *RegisterHistory) Hit(state MachineState) (MachineState, bool) {
	h.Values = append(h.Values, state.Registers[h.Register])
	return state, h.Limit > 0 && len(h.Values) >= h.Limit
}
