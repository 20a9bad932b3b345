// Package contesterr defines the error codes shared between the backend's
// participant endpoints and the client, and the messages shown for them.
package contesterr

// Code is a machine-readable error code as returned by the backend.
type Code string

const (
	// Session entry errors returned by the backend
	CodeInvalidCodes           Code = "INVALID_CODES"
	CodeContestNotFound        Code = "CONTEST_NOT_FOUND"
	CodeContestNotAccepting    Code = "CONTEST_NOT_ACCEPTING"
	CodeInvalidParticipantCode Code = "INVALID_PARTICIPANT_CODE"
	CodeParticipantInactive    Code = "PARTICIPANT_INACTIVE"
	CodeMissingCodes           Code = "MISSING_CODES"

	// Client side session errors
	CodeParticipantSessionExpired  Code = "PARTICIPANT_SESSION_EXPIRED"
	CodeParticipantSessionRequired Code = "PARTICIPANT_SESSION_REQUIRED"
)

// GenericMessage is shown for codes the client does not know about.
const GenericMessage = "Something went wrong. Please try again."

var allCodes = [...]Code{
	CodeInvalidCodes,
	CodeContestNotFound,
	CodeContestNotAccepting,
	CodeInvalidParticipantCode,
	CodeParticipantInactive,
	CodeMissingCodes,
	CodeParticipantSessionExpired,
	CodeParticipantSessionRequired,
}

var codeMessages = [...]struct {
	code    Code
	message string
}{
	{CodeInvalidCodes, "Invalid contest code or participant code"},
	{CodeContestNotFound, "Contest not found"},
	{CodeContestNotAccepting, "This contest is not currently accepting submissions"},
	{CodeInvalidParticipantCode, "Invalid participant code"},
	{CodeParticipantInactive, "This participant code is no longer active"},
	{CodeMissingCodes, "Please enter both a contest code and a participant code"},
	{CodeParticipantSessionExpired, "Your session has expired. Please enter your codes again"},
	{CodeParticipantSessionRequired, "Please enter your contest and participant codes to continue"},
}

// Both arrays must have the same length; a code added without a message
// (or the reverse) fails to compile.
var (
	_ [len(allCodes) - len(codeMessages)]struct{}
	_ [len(codeMessages) - len(allCodes)]struct{}
)

var messages = func() map[Code]string {
	m := make(map[Code]string, len(codeMessages))
	for _, cm := range codeMessages {
		m[cm.code] = cm.message
	}
	return m
}()

// AllCodes returns every known code.
func AllCodes() []Code {
	codes := make([]Code, len(allCodes))
	copy(codes, allCodes[:])
	return codes
}

// Known reports whether c is one of the defined codes.
func (c Code) Known() bool {
	_, ok := messages[c]
	return ok
}

// Message returns the user-facing message for code, or GenericMessage.
func Message(code Code) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return GenericMessage
}
