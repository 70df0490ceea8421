package sluggable

import (
	"github.com/rotisserie/eris"
)

var (
	// ErrConfiguration marks a missing or invalid slug setting.
	ErrConfiguration = eris.New("invalid slug configuration")
	// ErrNotFound is returned by the finders when no row carries the requested slug.
	ErrNotFound = eris.New("slugged record not found")
)

// StorageError wraps a failure reported by the Store. The cause is kept as is.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// SubstitutionError wraps a failure reported by the Substitutor.
type SubstitutionError struct {
	Pattern string
	Err     error
}

func (e *SubstitutionError) Error() string {
	return "substituting pattern " + e.Pattern + ": " + e.Err.Error()
}

func (e *SubstitutionError) Unwrap() error {
	return e.Err
}

func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
