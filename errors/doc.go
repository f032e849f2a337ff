// Package errors provides the closed, structured error taxonomy used
// throughout the engine.
//
// Errors are categorized by Category (which subsystem failed) and Kind
// (what failed). The Error type carries typed context fields instead of
// preformatted strings, so callers can branch on exact failure data:
//
//	err := errors.OutOfBounds(1024, 1)
//	var e *errors.Error
//	if stderrors.As(err, &e) && e.Kind == errors.KindOutOfBounds {
//	    log.Printf("offset %d length %d", e.Offset, e.Length)
//	}
//
// Use the Builder for structured construction:
//
//	err := errors.New(errors.CategoryRuntime, errors.KindTypeMismatch).
//		Expected("(i32) -> i32").
//		Actual("(i64) -> i64").
//		Detail("indirect call signature check").
//		Build()
//
// As an error crosses the engine boundary it is annotated with execution
// location via At, which preserves the original category, kind, and
// context fields. The taxonomy is closed: no panic or ad-hoc error value
// crosses the public API.
//
// All errors implement the standard error interface and support
// errors.Is/As.
package errors
