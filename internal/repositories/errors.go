package repositories

import "fmt"

type repoError struct {
	msg         string
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *repoError) Error() string       { return e.msg }
func (e *repoError) IsNotFound() bool    { return e != nil && e.notFound }
func (e *repoError) IsConflict() bool    { return e != nil && e.conflict }
func (e *repoError) IsUnavailable() bool { return e != nil && e.unavailable }

// NewNotFound builds a RepositoryError for a missing record.
func NewNotFound(format string, args ...any) RepositoryError {
	return &repoError{msg: fmt.Sprintf(format, args...), notFound: true}
}

// NewConflict builds a RepositoryError for a rejected state change.
func NewConflict(format string, args ...any) RepositoryError {
	return &repoError{msg: fmt.Sprintf(format, args...), conflict: true}
}

// NewUnavailable builds a RepositoryError for a transient backend failure.
func NewUnavailable(format string, args ...any) RepositoryError {
	return &repoError{msg: fmt.Sprintf(format, args...), unavailable: true}
}
