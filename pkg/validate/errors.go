// Package validate enforces the schema spec §4.3 requires on untrusted,
// LLM-produced memory metadata and timestamps before anything is persisted.
package validate

import "fmt"

// FieldError names one rejected field and why.
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Error aggregates every FieldError found while validating one metadata
// object. A non-empty Errors slice means the candidate was rejected.
type Error struct {
	Errors []FieldError
}

func (e *Error) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d metadata validation errors (first: %s)", len(e.Errors), e.Errors[0].Error())
}

func newErrors(errs []FieldError) error {
	if len(errs) == 0 {
		return nil
	}
	return &Error{Errors: errs}
}

// CombineErrors aggregates field errors collected outside Validate (e.g.
// shape errors caught while parsing a sub-object into its typed form)
// alongside Validate's own findings into a single *Error.
func CombineErrors(errs ...[]FieldError) error {
	var all []FieldError
	for _, e := range errs {
		all = append(all, e...)
	}
	return newErrors(all)
}
