package backend

import (
	"fmt"
	"net/http"
)

// Error is a non-2xx backend response.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("backend %d: %s", e.Status, e.Message)
}

func (e *Error) StatusCode() int {
	return e.Status
}

func (e *Error) ErrorCode() string {
	return e.Code
}

// ErrJWTExpired builds the error the rest API returns for an expired credential.
func ErrJWTExpired() *Error {
	return &Error{Status: http.StatusUnauthorized, Code: CodeJWTExpired, Message: "JWT expired"}
}
