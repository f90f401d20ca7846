package interview

import (
	"time"

	"intervia-backend/internal/models"
)

type policyOutcome struct {
	warningIssued bool
	terminated    bool
	warningCount  int
}

// applyWarningPolicy advances the conduct state for one classified answer.
// The count only ever moves up and is capped at models.MaxWarnings; reaching
// the cap terminates the session. POSITIVE and NEUTRAL answers change nothing.
func applyWarningPolicy(s *models.Session, sentiment models.Sentiment, now time.Time) policyOutcome {
	if sentiment != models.SentimentNegative || s.WarningCount >= models.MaxWarnings {
		return policyOutcome{warningCount: s.WarningCount}
	}

	s.WarningCount++
	s.LastWarningAt = &now

	out := policyOutcome{warningIssued: true, warningCount: s.WarningCount}

	if s.WarningCount >= models.MaxWarnings {
		reason := "Repeated negative or inappropriate responses"
		s.IsTerminated = true
		s.TerminationReason = &reason
		out.terminated = true
	}

	return out
}
