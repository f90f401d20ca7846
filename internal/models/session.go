package models

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	StatusScheduled  SessionStatus = "scheduled"
	StatusInProgress SessionStatus = "in_progress"
	StatusPaused     SessionStatus = "paused"
	StatusCompleted  SessionStatus = "completed"
	StatusCancelled  SessionStatus = "cancelled"
)

type QuestionType string

const (
	QuestionTypePool     QuestionType = "pool"
	QuestionTypeFollowUp QuestionType = "followup"
)

type Sentiment string

const (
	SentimentPositive Sentiment = "POSITIVE"
	SentimentNeutral  Sentiment = "NEUTRAL"
	SentimentNegative Sentiment = "NEGATIVE"
)

// CompletionReason distinguishes how a session reached a terminal state.
type CompletionReason string

const (
	ReasonQuestionLimit CompletionReason = "question_limit"
	ReasonPoolExhausted CompletionReason = "pool_exhausted"
	ReasonTimeExpired   CompletionReason = "time_expired"
	ReasonTerminated    CompletionReason = "terminated"
	ReasonCancelled     CompletionReason = "cancelled"
)

const MaxWarnings = 2

type Session struct {
	ID                   uuid.UUID         `json:"id"`
	CandidateID          uuid.UUID         `json:"candidate_id"`
	Role                 string            `json:"role"`
	Status               SessionStatus     `json:"status"`
	IsTerminated         bool              `json:"is_terminated"`
	TerminationReason    *string           `json:"termination_reason,omitempty"`
	CompletionReason     *CompletionReason `json:"completion_reason,omitempty"`
	StartedAt            *time.Time        `json:"started_at"`
	CompletedAt          *time.Time        `json:"completed_at"`
	TotalDurationSeconds int               `json:"total_duration_seconds"`
	TimeRemainingSeconds int               `json:"time_remaining_seconds"`
	LastTimeUpdate       *time.Time        `json:"last_time_update"`
	WarningCount         int               `json:"warning_count"`
	LastWarningAt        *time.Time        `json:"last_warning_at"`
	Proctoring           Proctoring        `json:"proctoring"`
	CreatedAt            time.Time         `json:"created_at"`
}

// TotalDurationMinutes is derived, never stored.
func (s *Session) TotalDurationMinutes() int {
	return s.TotalDurationSeconds / 60
}

type Proctoring struct {
	TabSwitches          int        `json:"tab_switches"`
	CopyPasteCount       int        `json:"copy_paste_count"`
	FaceNotDetected      int        `json:"face_not_detected"`
	PhoneDetected        int        `json:"phone_detected"`
	MultiplePersons      int        `json:"multiple_persons"`
	LastTabSwitchAt      *time.Time `json:"last_tab_switch_at,omitempty"`
	LastCopyPasteAt      *time.Time `json:"last_copy_paste_at,omitempty"`
	LastFaceViolationAt  *time.Time `json:"last_face_violation_at,omitempty"`
	LastPhoneViolationAt *time.Time `json:"last_phone_violation_at,omitempty"`
	LastMultiPersonAt    *time.Time `json:"last_multi_person_at,omitempty"`
}

// ProctoringPatch carries client-reported deltas. Counters are added, never
// overwritten, so late or duplicated patches cannot rewind a counter.
type ProctoringPatch struct {
	TabSwitches     int        `json:"tab_switches"`
	CopyPasteCount  int        `json:"copy_paste_count"`
	FaceNotDetected int        `json:"face_not_detected"`
	PhoneDetected   int        `json:"phone_detected"`
	MultiplePersons int        `json:"multiple_persons"`
	ObservedAt      *time.Time `json:"observed_at,omitempty"`
}

type QuestionRecord struct {
	ID                  uuid.UUID    `json:"id"`
	SessionID           uuid.UUID    `json:"session_id"`
	Position            int          `json:"position"`
	Text                string       `json:"text"`
	Category            string       `json:"category"`
	Difficulty          string       `json:"difficulty"`
	Type                QuestionType `json:"type"`
	PoolIndex           *int         `json:"pool_index,omitempty"`
	ExpectedAnswer      string       `json:"expected_answer"`
	Answer              *string      `json:"answer"`
	IsAnswered          bool         `json:"is_answered"`
	AnsweredAt          *time.Time   `json:"answered_at"`
	TimeSpentSeconds    *int         `json:"time_spent_seconds"`
	Sentiment           *Sentiment   `json:"sentiment"`
	SentimentAnalyzedAt *time.Time   `json:"sentiment_analyzed_at"`
	Critique            *Critique    `json:"critique"`
	CritiqueAt          *time.Time   `json:"critique_at"`
	AnswerViewed        bool         `json:"answer_viewed"`
	AnswerViewedAt      *time.Time   `json:"answer_viewed_at"`
	CreatedAt           time.Time    `json:"created_at"`
}

type Critique struct {
	Relevance         int      `json:"relevance"`
	Completeness      int      `json:"completeness"`
	TechnicalAccuracy int      `json:"technical_accuracy"`
	Communication     int      `json:"communication"`
	OverallRating     int      `json:"overall_rating"`
	Feedback          string   `json:"feedback"`
	Strengths         []string `json:"strengths"`
	Improvements      []string `json:"improvements"`
}

// CandidateQuestion is the only question shape that may cross the
// candidate-facing channel. It has no expected-answer or critique fields
// at all, so a leak would require adding one on purpose.
type CandidateQuestion struct {
	ID         uuid.UUID    `json:"id"`
	Position   int          `json:"position"`
	Text       string       `json:"text"`
	Category   string       `json:"category"`
	Difficulty string       `json:"difficulty"`
	Type       QuestionType `json:"type"`
}

// CandidateView projects a record onto the candidate-safe shape.
func (q *QuestionRecord) CandidateView() CandidateQuestion {
	return CandidateQuestion{
		ID:         q.ID,
		Position:   q.Position,
		Text:       q.Text,
		Category:   q.Category,
		Difficulty: q.Difficulty,
		Type:       q.Type,
	}
}

// ChatEntry is one line of the reconstructed interview history.
type ChatEntry struct {
	Role       string    `json:"role"` // "interviewer" or "candidate"
	Content    string    `json:"content"`
	QuestionID uuid.UUID `json:"question_id"`
}

type CreateSessionRequest struct {
	Role          string `json:"role"`
	Profile       string `json:"profile"`
	PoolSize      int    `json:"pool_size"`
	Difficulty    string `json:"difficulty"`
	ScheduledNote string `json:"scheduled_note"`
}

type CritiqueJob struct {
	SessionID  uuid.UUID  `json:"session_id"`
	QuestionID uuid.UUID  `json:"question_id"`
	Question   string     `json:"question"`
	Answer     string     `json:"answer"`
	Proctoring Proctoring `json:"proctoring"`
}
