package interview

// Error carries a stable wire code so the hub and the REST handlers map
// domain failures to the same error{code,message} shape.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

var (
	ErrSessionNotFound     = newError("NOT_FOUND", "Session not found")
	ErrQuestionNotFound    = newError("QUESTION_NOT_FOUND", "Question not found or not awaiting an answer")
	ErrPoolNotFound        = newError("NOT_FOUND", "Question pool not found")
	ErrAccessDenied        = newError("ACCESS_DENIED", "Access denied")
	ErrNotInProgress       = newError("INVALID_STATE", "Session is not in progress")
	ErrSessionTerminated   = newError("INVALID_STATE", "Session was terminated for conduct violations")
	ErrDuplicateSubmission = newError("DUPLICATE_SUBMISSION", "An answer for this question is already being processed")
	ErrActiveSessionExists = newError("ACTIVE_SESSION_EXISTS", "Another interview is already in progress")
	ErrHintNotAllowed      = newError("ACCESS_DENIED", "Hints are only available for the current question")
	ErrSessionNotScheduled = newError("INVALID_STATE", "Session has already started or finished")
	ErrUpstreamUnavailable = newError("UPSTREAM_UNAVAILABLE", "An upstream service is unavailable")
)
