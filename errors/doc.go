// Package errors provides standardized error handling patterns for cachestats components.
//
// # Overview
//
// Errors are sorted into three classes: Transient (the condition may clear on its own),
// Invalid (bad input or programmer error, do not repeat the call unchanged) and Fatal
// (unrecoverable, stop processing). The class tells the caller what kind of failure it
// received; pkg/retry repeats only calls that did not fail Invalid or Fatal.
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions attach a class while keeping the chain intact:
//
//	errors.WrapTransient(err, "Component", "Method", "action")
//	errors.WrapInvalid(err, "Component", "Method", "action")
//	errors.WrapFatal(err, "Component", "Method", "action")
//
// # Management Errors
//
// The management registry reports three conditions:
//
//   - ErrAlreadyRegistered (Invalid): the (namespace, name) identity is taken.
//   - ErrNotFound (Transient): no live registration answers for the identity; a polling
//     consumer should stop.
//   - ErrUnknownAttribute (Invalid): the attribute name is outside the fixed set.
//
// They are always returned wrapped, so test with the standard library:
//
//	if stderrors.Is(err, errors.ErrNotFound) {
//	    // registration is gone
//	}
//
// # Thread Safety
//
// Error variables are immutable and the ClassifiedError type is safe to share across
// goroutines after creation.
package errors
