package txn

import "fmt"

// ErrorKind is the fixed diagnostic taxonomy of §4.6/§7. Every fatal
// transaction failure carries exactly one of these.
type ErrorKind string

const (
	ErrNilValue               ErrorKind = "nil-value"
	ErrInvalidOp              ErrorKind = "invalid-op"
	ErrInvalidEntityID        ErrorKind = "invalid-entity-id"
	ErrAssertionRetraction    ErrorKind = "assertion-retraction-conflict"
	ErrCardinalityOneConflict ErrorKind = "cardinality-one-conflict"
	ErrUniqueConflict         ErrorKind = "unique-conflict"
	ErrComponentConflict      ErrorKind = "component-conflict"
	ErrRetractedEntity        ErrorKind = "retracted-entity-conflict"
	ErrRefResolution          ErrorKind = "ref-resolution-error"
	ErrInvalidNestedEntity    ErrorKind = "invalid-nested-entity"
	ErrInvalidLookupRef       ErrorKind = "invalid-lookup-ref"
)

// TxError is the tagged diagnostic every fatal transaction failure
// surfaces as (§7: "a diagnostic code plus the offending form"): a stable
// Kind for programmatic branching plus a human-readable Message, here
// additionally carrying the form at fault.
type TxError struct {
	Kind    ErrorKind
	Message string
	Form    *Form
}

func (e *TxError) Error() string {
	if e.Form != nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newErr(kind ErrorKind, form *Form, format string, args ...any) *TxError {
	return &TxError{Kind: kind, Message: fmt.Sprintf(format, args...), Form: form}
}
