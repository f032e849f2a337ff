package stack

import (
	"github.com/wippyai/wasm-engine/container"
	"github.com/wippyai/wasm-engine/errors"
)

// LabelKind says what structure a control label belongs to.
type LabelKind uint8

const (
	LabelBlock LabelKind = iota
	LabelLoop
	LabelIf
	// LabelFunc marks the implicit label at a function body's root.
	LabelFunc
)

// Label is one entry on the control stack. Continuation is the pc a
// branch to this label transfers to: the loop head for loops, the
// instruction after End for everything else. Arity is the number of
// operands a branch carries to the continuation; loops have arity 0.
type Label struct {
	Kind         LabelKind
	Arity        int
	OperandBase  int
	Continuation uint32
}

// Frame is one call record. Locals hold parameters followed by
// declared locals. OperandBase and LabelBase mark where this call's
// regions start, so returning truncates both to the caller's view.
type Frame struct {
	Func        uint32
	PC          uint32
	Locals      []Value
	OperandBase int
	LabelBase   int
	Results     int
}

// Limits bounds the three stack regions.
type Limits struct {
	Operands int
	Frames   int
	Labels   int
}

// Stack owns the operand, frame, and label regions of one execution.
// It is single-owner state; nothing here locks.
type Stack struct {
	operands *container.Vec[Value]
	frames   *container.Vec[Frame]
	labels   *container.Vec[Label]
	limits   Limits
}

// New creates a stack with growable storage bounded by limits.
func New(limits Limits) *Stack {
	return &Stack{
		operands: container.NewVec[Value](limits.Operands),
		frames:   container.NewVec[Frame](limits.Frames),
		labels:   container.NewVec[Label](limits.Labels),
		limits:   limits,
	}
}

// NewFixed creates a stack whose storage is fully allocated now.
func NewFixed(limits Limits) *Stack {
	return &Stack{
		operands: container.NewFixedVec[Value](limits.Operands),
		frames:   container.NewFixedVec[Frame](limits.Frames),
		labels:   container.NewFixedVec[Label](limits.Labels),
		limits:   limits,
	}
}

// Limits returns the configured bounds.
func (s *Stack) Limits() Limits { return s.limits }

// Push adds an operand. At the bound it fails with the depth that was
// attempted and the limit, leaving the stack unchanged.
func (s *Stack) Push(v Value) error {
	if err := s.operands.Push(v); err != nil {
		return errors.StackOverflow(s.operands.Len()+1, s.limits.Operands)
	}
	return nil
}

// Pop removes and returns the top operand. Validated code never
// underflows; if it happens the state is corrupt.
func (s *Stack) Pop() (Value, error) {
	v, ok := s.operands.Pop()
	if !ok {
		return Value{}, errors.InvalidState("operand stack underflow")
	}
	return v, nil
}

// Peek returns the top operand without removing it.
func (s *Stack) Peek() (Value, error) {
	v, ok := s.operands.Peek()
	if !ok {
		return Value{}, errors.InvalidState("operand stack underflow")
	}
	return v, nil
}

// PopN removes the top n operands and returns them in push order.
func (s *Stack) PopN(n int) ([]Value, error) {
	if n > s.operands.Len() {
		return nil, errors.InvalidState("operand stack underflow")
	}
	out := make([]Value, n)
	for i := n - 1; i >= 0; i-- {
		out[i], _ = s.operands.Pop()
	}
	return out, nil
}

// Depth returns the operand count.
func (s *Stack) Depth() int { return s.operands.Len() }

// Truncate discards operands at index n and above.
func (s *Stack) Truncate(n int) { s.operands.Truncate(n) }

// Operands returns a view of the operand region, bottom first. The
// view is invalidated by any mutation.
func (s *Stack) Operands() []Value { return s.operands.Slice() }

// PushFrame records a call. At the frame bound it fails with the depth
// that was attempted and the limit.
func (s *Stack) PushFrame(f Frame) error {
	if err := s.frames.Push(f); err != nil {
		return errors.StackOverflow(s.frames.Len()+1, s.limits.Frames)
	}
	return nil
}

// PopFrame removes the top call record and restores the caller's
// operand and label bases.
func (s *Stack) PopFrame() (Frame, error) {
	f, ok := s.frames.Pop()
	if !ok {
		return Frame{}, errors.InvalidState("call stack underflow")
	}
	return f, nil
}

// Frame returns a pointer to the innermost call record, valid until
// the next frame push or pop.
func (s *Stack) Frame() (*Frame, bool) {
	n := s.frames.Len()
	if n == 0 {
		return nil, false
	}
	return &s.frames.Slice()[n-1], true
}

// FrameDepth returns the call depth.
func (s *Stack) FrameDepth() int { return s.frames.Len() }

// Frames returns a view of the call records, outermost first.
func (s *Stack) Frames() []Frame { return s.frames.Slice() }

// EnterBlock pushes a control label for a structure whose branches
// carry arity operands to continuation. The label's base is the current
// operand depth.
func (s *Stack) EnterBlock(kind LabelKind, arity int, continuation uint32) error {
	return s.EnterBlockAt(kind, arity, s.operands.Len(), continuation)
}

// EnterBlockAt pushes a control label with an explicit operand base.
// Blocks with parameters sit above a base below the current depth, so
// the parameters belong to the block.
func (s *Stack) EnterBlockAt(kind LabelKind, arity, base int, continuation uint32) error {
	l := Label{
		Kind:         kind,
		Arity:        arity,
		OperandBase:  base,
		Continuation: continuation,
	}
	if err := s.labels.Push(l); err != nil {
		return errors.StackOverflow(s.labels.Len()+1, s.limits.Labels)
	}
	return nil
}

// ExitBlock pops the innermost label when control falls off its end.
// Operands are left alone; validated code has already arranged the
// block's results on top.
func (s *Stack) ExitBlock() (Label, error) {
	l, ok := s.labels.Pop()
	if !ok {
		return Label{}, errors.InvalidState("label stack underflow")
	}
	return l, nil
}

// Label returns the label relDepth levels out from the innermost.
func (s *Stack) Label(relDepth int) (Label, error) {
	idx := s.labels.Len() - 1 - relDepth
	l, ok := s.labels.Get(idx)
	if !ok {
		return Label{}, errors.InvalidState("branch depth %d exceeds label depth %d", relDepth, s.labels.Len())
	}
	return l, nil
}

// Branch unwinds to the label relDepth levels out. It pops exactly
// relDepth labels, keeps exactly the target's arity worth of operands
// immediately above the target's base, discards the rest, and returns
// the target. The target label itself stays; the caller pops it with
// ExitBlock when control actually leaves the structure (branches to a
// loop re-enter it, so its label must survive).
func (s *Stack) Branch(relDepth int) (Label, error) {
	target, err := s.Label(relDepth)
	if err != nil {
		return Label{}, err
	}
	for i := 0; i < relDepth; i++ {
		if _, err := s.ExitBlock(); err != nil {
			return Label{}, err
		}
	}

	kept, err := s.PopN(target.Arity)
	if err != nil {
		return Label{}, err
	}
	s.operands.Truncate(target.OperandBase)
	for _, v := range kept {
		// Cannot overflow: the region just shrank below this point.
		s.operands.Push(v)
	}
	return target, nil
}

// LabelDepth returns the label count.
func (s *Stack) LabelDepth() int { return s.labels.Len() }

// TruncateLabels discards labels at index n and above. Used when a
// frame returns.
func (s *Stack) TruncateLabels(n int) { s.labels.Truncate(n) }

// Labels returns a view of the label region, outermost first.
func (s *Stack) Labels() []Label { return s.labels.Slice() }

// Restore replaces all three regions with the given contents, bottom
// first. It fails without modifying the stack when any region exceeds
// its limit.
func (s *Stack) Restore(operands []Value, frames []Frame, labels []Label) error {
	if len(operands) > s.limits.Operands {
		return errors.StackOverflow(len(operands), s.limits.Operands)
	}
	if len(frames) > s.limits.Frames {
		return errors.StackOverflow(len(frames), s.limits.Frames)
	}
	if len(labels) > s.limits.Labels {
		return errors.StackOverflow(len(labels), s.limits.Labels)
	}
	s.Reset()
	for _, v := range operands {
		s.operands.Push(v)
	}
	for _, f := range frames {
		s.frames.Push(f)
	}
	for _, l := range labels {
		s.labels.Push(l)
	}
	return nil
}

// Reset clears all three regions. Capacity is retained.
func (s *Stack) Reset() {
	s.operands.Truncate(0)
	s.frames.Truncate(0)
	s.labels.Truncate(0)
}
