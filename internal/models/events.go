package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

// WebSocket message envelope, both directions.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ClientEvent is the inbound envelope; the payload stays raw until the
// hub knows which shape to decode into.
type ClientEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Inbound event types.
const (
	EventJoin                 = "join"
	EventRequestFirstQuestion = "request_first_question"
	EventSubmitAnswer         = "submit_answer"
	EventLeave                = "leave"
	EventUpdateProctoring     = "update_proctoring"
	EventGetTimeRemaining     = "get_time_remaining"
	EventRevealHint           = "reveal_hint"
)

// Outbound event types.
const (
	EventJoined            = "joined"
	EventFirstQuestion     = "first_question"
	EventAnswerAnalyzing   = "answer_analyzing"
	EventAnswerSubmitted   = "answer_submitted"
	EventWarningIssued     = "warning_issued"
	EventNextQuestion      = "next_question"
	EventInterviewComplete = "interview_complete"
	EventTimerUpdate       = "timer_update"
	EventInterviewExpired  = "interview_expired"
	EventReconnected       = "reconnected"
	EventHintRevealed      = "hint_revealed"
	EventError             = "error"
)

type JoinPayload struct {
	SessionID uuid.UUID `json:"session_id"`
}

type SubmitAnswerPayload struct {
	SessionID  uuid.UUID        `json:"session_id"`
	QuestionID uuid.UUID        `json:"question_id"`
	Answer     string           `json:"answer"`
	Proctoring *ProctoringPatch `json:"proctoring,omitempty"`
}

type RevealHintPayload struct {
	SessionID  uuid.UUID `json:"session_id"`
	QuestionID uuid.UUID `json:"question_id"`
}

type UpdateProctoringPayload struct {
	SessionID uuid.UUID       `json:"session_id"`
	Patch     ProctoringPatch `json:"patch"`
}

type JoinedEvent struct {
	SessionID   uuid.UUID     `json:"session_id"`
	Status      SessionStatus `json:"status"`
	Connections int           `json:"connections"`
}

type FirstQuestionEvent struct {
	Question CandidateQuestion `json:"question"`
}

type AnswerAnalyzingEvent struct {
	QuestionID uuid.UUID `json:"question_id"`
}

type AnswerSubmittedEvent struct {
	QuestionID    uuid.UUID `json:"question_id"`
	WarningIssued bool      `json:"warning_issued"`
	WarningCount  int       `json:"warning_count"`
	IsTerminated  bool      `json:"is_terminated"`
	CanContinue   bool      `json:"can_continue"`
	Sentiment     Sentiment `json:"sentiment"`
}

type WarningIssuedEvent struct {
	WarningCount int    `json:"warning_count"`
	Message      string `json:"message"`
}

type NextQuestionEvent struct {
	Question       *CandidateQuestion `json:"question,omitempty"`
	QuestionNumber int                `json:"question_number"`
	IsComplete     bool               `json:"is_complete"`
}

type InterviewCompleteEvent struct {
	Reason CompletionReason `json:"reason"`
}

type TimerUpdateEvent struct {
	Remaining int  `json:"remaining"`
	Elapsed   int  `json:"elapsed"`
	IsExpired bool `json:"is_expired"`
}

type ReconnectedEvent struct {
	SessionID       uuid.UUID          `json:"session_id"`
	CurrentQuestion *CandidateQuestion `json:"current_question,omitempty"`
	ChatHistory     []ChatEntry        `json:"chat_history"`
	TimeRemaining   int                `json:"time_remaining"`
	WarningCount    int                `json:"warning_count"`
	Proctoring      Proctoring         `json:"proctoring"`
}

type HintRevealedEvent struct {
	QuestionID     uuid.UUID `json:"question_id"`
	ExpectedAnswer string    `json:"expected_answer"`
}

type WSErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
