package service

import (
	"errors"

	"github.com/umputun/jobboard/app/access"
	"github.com/umputun/jobboard/app/web/enums"
)

// Error is a service failure classified by kind, Msg is safe to show to clients
type Error struct {
	Kind enums.ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns kind of the error, internal for errors not made by the service
func KindOf(err error) enums.ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return enums.ErrorKindInternal
}

func newError(kind enums.ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// denied converts access decision error to service error, msg used for role mismatches
func denied(err error, msg string) error {
	var de *access.DeniedError
	if !errors.As(err, &de) {
		return internal(err)
	}
	switch de.Reason {
	case access.ReasonUnauthenticated:
		return newError(enums.ErrorKindUnauthenticated, "Authentication required", err)
	case access.ReasonDuplicateApplication:
		return newError(enums.ErrorKindConflict, "You have already applied to this job", err)
	default:
		return newError(enums.ErrorKindForbidden, msg, err)
	}
}

func internal(err error) error {
	return newError(enums.ErrorKindInternal, "Internal error", err)
}
