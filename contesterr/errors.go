package contesterr

import "errors"

// Error is a coded domain error.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Internal message (for logs)
	Cause   error  // Wrapped underlying error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// ErrorCode exposes the code to callers that only know the interface.
func (e *Error) ErrorCode() string {
	return string(e.Code)
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Sentinels usable with errors.Is.
var (
	ErrMissingCodes               = New(CodeMissingCodes, "")
	ErrParticipantSessionExpired  = New(CodeParticipantSessionExpired, "")
	ErrParticipantSessionRequired = New(CodeParticipantSessionRequired, "")
)

// CodeOf extracts the code from the first *Error in err's chain.
func CodeOf(err error) (Code, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code, true
	}
	return "", false
}

// UserMessage returns the message a user should see for err.
func UserMessage(err error) string {
	if code, ok := CodeOf(err); ok {
		return Message(code)
	}
	return GenericMessage
}
