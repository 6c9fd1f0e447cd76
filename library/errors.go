package library

import (
	"errors"
	"fmt"
)

// Error kinds. Concrete errors wrap one of these so callers can match on
// the kind with errors.Is.
var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrIllegalState  = errors.New("illegal state")
)

var (
	// ErrBookNotFound is returned when no book has the requested id.
	ErrBookNotFound = fmt.Errorf("book %w", ErrNotFound)

	// ErrUserNotFound is returned when no reader has the requested id.
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)

	// ErrLoanNotFound is returned when the reader holds no active loan for the book.
	ErrLoanNotFound = fmt.Errorf("active loan of this book by this user %w", ErrNotFound)

	// ErrUserAlreadyExists is returned when a reader with the same name and email is registered.
	ErrUserAlreadyExists = fmt.Errorf("user %w", ErrAlreadyExists)

	// ErrDuplicateLoan is returned when the reader already holds this book.
	ErrDuplicateLoan = fmt.Errorf("%w: user already has this book on loan", ErrIllegalState)

	// ErrQuotaExceeded is returned when the reader already holds MaxActiveLoans books.
	ErrQuotaExceeded = fmt.Errorf("loan limit exceeded: user already has %d books on loan", MaxActiveLoans)

	// ErrNoCopiesAvailable is returned when every copy of a book is out.
	ErrNoCopiesAvailable = errors.New("no copies of the book available")

	// ErrMalformedRecord is returned when a persisted line cannot be parsed.
	ErrMalformedRecord = errors.New("malformed record")
)

// ValidationError describes a rejected field value or copy-count change.
type ValidationError struct {
	Reason string
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string { return e.Reason }

// Is reports ErrValidation as the kind of every ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
