package backend

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a single-row read matches no rows.
var ErrNotFound = errors.New("row not found")

// APIError is a structured error from the backend: the HTTP status, the
// backend's own error code when it supplies one, and its verbatim message.
// The message is what gets surfaced to the user on auth and write failures.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("backend error %d: %s", e.Status, e.Message)
}

// errNoRowsCode is the data API's code for "zero rows where one was expected".
const errNoRowsCode = "PGRST116"

// parseAPIError turns a non-2xx response into an *APIError, or ErrNotFound
// for the single-row miss case. The auth and data services use different
// error body shapes, so probe the known fields.
func parseAPIError(status int, body []byte) error {
	var payload struct {
		// data API shape
		Code    string `json:"code"`
		Message string `json:"message"`
		// auth API shapes
		Msg              string `json:"msg"`
		ErrorField       string `json:"error"`
		ErrorCode        string `json:"error_code"`
		ErrorDescription string `json:"error_description"`
	}
	apiErr := &APIError{Status: status}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Message != "":
			apiErr.Code = payload.Code
			apiErr.Message = payload.Message
		case payload.Msg != "":
			apiErr.Code = payload.ErrorCode
			apiErr.Message = payload.Msg
		case payload.ErrorDescription != "":
			apiErr.Code = payload.ErrorField
			apiErr.Message = payload.ErrorDescription
		case payload.ErrorField != "":
			apiErr.Message = payload.ErrorField
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = string(body)
	}
	if apiErr.Code == errNoRowsCode || status == 406 {
		return ErrNotFound
	}
	return apiErr
}

// IsNotFound reports whether err represents a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
