package glottoguess

import (
	"errors"
	"fmt"
)

// ErrRecordNotFound is returned by a RecordSource when no record exists for
// the requested glottocode. The verifier treats it as "try the local catalog",
// not as a failure.
var ErrRecordNotFound = errors.New("record not found")

// InvalidGeometryError reports malformed or empty spatial input. It is raised
// during geometry construction or filter validation, before any network call.
type InvalidGeometryError struct {
	Reason string
}

func (e *InvalidGeometryError) Error() string {
	return fmt.Sprintf("invalid geometry: %s", e.Reason)
}

// InvalidLevelError reports a level token outside
// {language, dialect, family, all}.
type InvalidLevelError struct {
	Level string
}

func (e *InvalidLevelError) Error() string {
	return fmt.Sprintf("invalid level %q: must be one of 'all', 'language', 'dialect', 'family'", e.Level)
}

// UnknownIdentifierError reports a glottocode that resolves neither in the
// local catalog nor in the external record source. Distinct from a false
// verification result.
type UnknownIdentifierError struct {
	ID string
}

func (e *UnknownIdentifierError) Error() string {
	return fmt.Sprintf("unknown glottocode %q", e.ID)
}

// ExternalServiceError wraps a failure of an external collaborator (record
// fetch, encyclopedic lookup, LLM call). It is always surfaced to the caller
// so a transport failure cannot be mistaken for "found nothing".
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}
