package interview

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intervia-backend/internal/models"
)

func TestApplyWarningPolicy_NonNegativeIsNoOp(t *testing.T) {
	now := time.Now()
	for _, sentiment := range []models.Sentiment{models.SentimentPositive, models.SentimentNeutral} {
		s := &models.Session{WarningCount: 1}
		out := applyWarningPolicy(s, sentiment, now)

		assert.False(t, out.warningIssued)
		assert.False(t, out.terminated)
		assert.Equal(t, 1, s.WarningCount)
		assert.Nil(t, s.LastWarningAt)
		assert.False(t, s.IsTerminated)
	}
}

func TestApplyWarningPolicy_FirstNegativeWarns(t *testing.T) {
	now := time.Now()
	s := &models.Session{}
	out := applyWarningPolicy(s, models.SentimentNegative, now)

	assert.True(t, out.warningIssued)
	assert.False(t, out.terminated)
	assert.Equal(t, 1, s.WarningCount)
	require.NotNil(t, s.LastWarningAt)
	assert.Equal(t, now, *s.LastWarningAt)
	assert.False(t, s.IsTerminated)
}

func TestApplyWarningPolicy_SecondNegativeTerminates(t *testing.T) {
	now := time.Now()
	s := &models.Session{WarningCount: 1}
	out := applyWarningPolicy(s, models.SentimentNegative, now)

	assert.True(t, out.warningIssued)
	assert.True(t, out.terminated)
	assert.Equal(t, models.MaxWarnings, s.WarningCount)
	assert.True(t, s.IsTerminated)
	require.NotNil(t, s.TerminationReason)
	assert.NotEmpty(t, *s.TerminationReason)
}

func TestApplyWarningPolicy_CountNeverExceedsMax(t *testing.T) {
	now := time.Now()
	s := &models.Session{WarningCount: models.MaxWarnings, IsTerminated: true}
	out := applyWarningPolicy(s, models.SentimentNegative, now)

	assert.False(t, out.warningIssued)
	assert.Equal(t, models.MaxWarnings, s.WarningCount)
	assert.Equal(t, models.MaxWarnings, out.warningCount)
}

func TestApplyWarningPolicy_CountIsMonotone(t *testing.T) {
	s := &models.Session{}
	seen := 0
	for _, sentiment := range []models.Sentiment{
		models.SentimentNeutral,
		models.SentimentNegative,
		models.SentimentPositive,
		models.SentimentNeutral,
		models.SentimentNegative,
	} {
		applyWarningPolicy(s, sentiment, time.Now())
		require.GreaterOrEqual(t, s.WarningCount, seen, "warning count must never move down")
		seen = s.WarningCount
	}
	assert.Equal(t, models.MaxWarnings, s.WarningCount)
	assert.True(t, s.IsTerminated)
}
