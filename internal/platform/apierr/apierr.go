package apierr

import (
	"fmt"
	"net/http"
)

// Error is a transport-level failure that never reaches the services layer,
// e.g. an oversized upload or an unsupported file type.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	return fmt.Sprintf("api error (%d)", e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func TooLarge(limit int64) *Error {
	return New(http.StatusRequestEntityTooLarge, "upload_too_large", fmt.Errorf("upload exceeds %d bytes", limit))
}

func Unsupported(kind string) *Error {
	return New(http.StatusUnsupportedMediaType, "unsupported_format", fmt.Errorf("unsupported file type %q; use csv, json or txt", kind))
}

func BadRequest(code string, err error) *Error {
	return New(http.StatusBadRequest, code, err)
}
