package models

import (
	"time"

	"github.com/google/uuid"
)

// QuestionPool is authored once, before the session's first question is
// requested, and then consumed sequentially by the sequencer.
type QuestionPool struct {
	ID        uuid.UUID      `json:"id"`
	SessionID uuid.UUID      `json:"session_id"`
	Questions []PoolQuestion `json:"questions"`
	CreatedAt time.Time      `json:"created_at"`
}

type PoolQuestion struct {
	Index          int    `json:"index"`
	Text           string `json:"text"`
	ExpectedAnswer string `json:"expected_answer"`
	Category       string `json:"category"`
	Difficulty     string `json:"difficulty"`
	IsAsked        bool   `json:"is_asked"`
	IsCompleted    bool   `json:"is_completed"`
}

// At returns the pool entry at index, or nil when the pool is exhausted.
func (p *QuestionPool) At(index int) *PoolQuestion {
	if p == nil || index < 0 || index >= len(p.Questions) {
		return nil
	}
	return &p.Questions[index]
}
