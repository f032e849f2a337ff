// Package stack provides the execution stack: typed operand values,
// call frames, and control labels, each held in a bounded vector.
//
// All three regions have a capacity fixed at construction. Overflow is
// a recoverable error carrying the depth that was attempted and the
// limit; it never grows the stack past its bound. Underflow, by
// contrast, cannot happen in validated code, so it is reported as a
// state invariant violation rather than tolerated.
//
// Labels implement structured control flow. Entering a block pushes a
// label recording its branch arity and continuation pc; Branch unwinds
// to a label by relative depth, keeping exactly the label's arity
// worth of operands and discarding everything else above its base.
package stack
