package services

import (
	"errors"
	"net/http"
	"strings"
)

// Markers classify failures. Test with errors.Is.
var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTransient     = errors.New("transient failure")
)

// Error is a classified failure raised by one pipeline stage.
type Error struct {
	Marker error
	Stage  string
	Op     string
	Msg    string
	Err    error
}

// Wrap returns an *Error tagged with marker (ErrTransient when nil). Blank
// stage, op and msg parts are left out of the message.
func Wrap(marker error, stage, op, msg string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &Error{
		Marker: marker,
		Stage:  strings.TrimSpace(stage),
		Op:     strings.TrimSpace(op),
		Msg:    strings.TrimSpace(msg),
		Err:    err,
	}
}

func (e *Error) Error() string {
	return e.Marker.Error() + ": " + e.detail()
}

// Unwrap exposes both the marker and the underlying cause to errors.Is.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Marker}
	}
	return []error{e.Marker, e.Err}
}

// detail is the message without the marker prefix.
func (e *Error) detail() string {
	var parts []string
	for _, p := range []string{e.Stage, e.Op, e.Msg} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "service failure")
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

// Cause renders err for users: the innermost-classified *Error loses its
// marker prefix, anything else is returned verbatim.
func Cause(err error) string {
	if err == nil {
		return ""
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.detail()
	}
	return err.Error()
}

// HTTPStatus maps a failure onto the status code the API answers with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
