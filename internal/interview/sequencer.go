package interview

import (
	"intervia-backend/internal/models"
)

type nextKind int

const (
	nextPool nextKind = iota
	nextFollowUp
	nextComplete
)

type decision struct {
	kind      nextKind
	poolIndex int
	reason    models.CompletionReason
}

// nextDecision picks the next question slot from the transcript shape alone.
// Pool slots and generated follow-ups strictly alternate: the k-th
// pool-originated question sits at transcript position 2k+1 (1-indexed), so
// after a follow-up at position n the next pool index is (n+1)/2.
func nextDecision(transcript []*models.QuestionRecord, pool *models.QuestionPool, maxQuestions int) decision {
	n := len(transcript)

	if n == 0 {
		if pool.At(0) == nil {
			return decision{kind: nextComplete, reason: models.ReasonPoolExhausted}
		}
		return decision{kind: nextPool, poolIndex: 0}
	}

	if n >= maxQuestions {
		return decision{kind: nextComplete, reason: models.ReasonQuestionLimit}
	}

	switch transcript[n-1].Type {
	case models.QuestionTypePool:
		return decision{kind: nextFollowUp}
	case models.QuestionTypeFollowUp:
		idx := (n + 1) / 2
		if pool.At(idx) == nil {
			return decision{kind: nextComplete, reason: models.ReasonPoolExhausted}
		}
		return decision{kind: nextPool, poolIndex: idx}
	default:
		// Unknown record types end the interview rather than guessing.
		return decision{kind: nextComplete, reason: models.ReasonQuestionLimit}
	}
}
