package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeAlreadyExists   ErrorCode = "ALREADY_EXISTS"
	CodeUnavailable     ErrorCode = "UNAVAILABLE"
	CodeFailedPrecond   ErrorCode = "FAILED_PRECONDITION"
	CodeInternal        ErrorCode = "INTERNAL"
	CodeCanceled        ErrorCode = "CANCELED"
)

var (
	ErrInvalidVersionFormat  = errors.New("invalid version format")
	ErrSourceFetchFailed     = errors.New("source fetch failed")
	ErrSourceListFetchFailed = errors.New("source list fetch failed")
	ErrInvalidPayload        = errors.New("invalid payload")
	ErrInvalidLocator        = errors.New("invalid source locator")
	ErrNotFound              = errors.New("not found")
	ErrAlreadyAdded          = errors.New("already added")
	ErrProfileNotFound       = errors.New("profile not found")
)

type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Op == "" {
		if msg == "" {
			return string(e.Code)
		}
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	if msg == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func E(code ErrorCode, op, msg string, cause error) *Error {
	if msg == "" && cause != nil {
		msg = cause.Error()
	}
	return &Error{
		Code:    code,
		Op:      op,
		Message: msg,
		Cause:   cause,
	}
}

func Wrap(code ErrorCode, op string, err error) *Error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		if existing.Op != "" || op == "" {
			return existing
		}
		scoped := *existing
		scoped.Op = op
		return &scoped
	}
	return E(code, op, "", err)
}

func CodeFrom(err error) (ErrorCode, bool) {
	if err == nil {
		return "", false
	}
	var domainErr *Error
	if errors.As(err, &domainErr) && domainErr.Code != "" {
		return domainErr.Code, true
	}
	switch {
	case errors.Is(err, ErrInvalidVersionFormat), errors.Is(err, ErrInvalidPayload), errors.Is(err, ErrInvalidLocator):
		return CodeInvalidArgument, true
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrProfileNotFound):
		return CodeNotFound, true
	case errors.Is(err, ErrAlreadyAdded):
		return CodeAlreadyExists, true
	case errors.Is(err, ErrSourceFetchFailed), errors.Is(err, ErrSourceListFetchFailed):
		return CodeUnavailable, true
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCanceled, true
	default:
		return "", false
	}
}

// SourceError is one per-source failure surfaced next to the catalog. ID is
// empty when the list of sources itself failed to load.
type SourceError struct {
	Kind SourceKind `json:"kind"`
	ID   string     `json:"id,omitempty"`
	Err  error      `json:"-"`
}

func (e SourceError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s list: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Kind, e.ID, e.Err)
}

func (e SourceError) Unwrap() error {
	return e.Err
}

// MarshalJSON renders the cause as a message string.
func (e SourceError) MarshalJSON() ([]byte, error) {
	type wire struct {
		Kind  SourceKind `json:"kind"`
		ID    string     `json:"id,omitempty"`
		Error string     `json:"error"`
	}
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return json.Marshal(wire{Kind: e.Kind, ID: e.ID, Error: msg})
}
