package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"intervia-backend/internal/models"
)

// SentimentResult is the full classifier output. The orchestrator only
// consumes the label; confidence and detected issues go to the report.
type SentimentResult struct {
	Sentiment      models.Sentiment `json:"sentiment"`
	Confidence     float64          `json:"confidence"`
	DetectedIssues []string         `json:"detected_issues"`
}

// AIService wraps the Gemini client behind the collaborator contracts the
// interview engine consumes. Every generative call degrades to a
// deterministic fallback, so a Gemini outage slows nothing and breaks
// nothing.
type AIService struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	rateChan chan struct{} // Token bucket
}

func NewAIService(apiKey string, concurrentReqs int) (*AIService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel("gemini-3-flash-preview")
	model.SetTemperature(0.4)
	model.SetTopP(0.95)

	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &AIService{client: client, model: model, rateChan: rateChan}, nil
}

func (s *AIService) Close() {
	s.client.Close()
}

func (s *AIService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(2 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *AIService) releaseRate() {
	s.rateChan <- struct{}{}
}

// generate runs one Gemini call and returns the raw text.
func (s *AIService) generate(ctx context.Context, prompt string) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}
	return extractText(resp), nil
}

// Classify labels an answer's tone. It fails open to NEUTRAL: a classifier
// outage must never block the interview flow.
func (s *AIService) Classify(ctx context.Context, answer string) SentimentResult {
	neutral := SentimentResult{Sentiment: models.SentimentNeutral}
	if strings.TrimSpace(answer) == "" {
		return neutral
	}

	prompt := fmt.Sprintf(`Classify the tone and professionalism of this interview answer.
Return ONLY a valid JSON object:
{"sentiment": "POSITIVE"|"NEUTRAL"|"NEGATIVE", "confidence": 0.0-1.0, "detected_issues": ["..."]}

NEGATIVE means hostile, dismissive, profane or deliberately unhelpful. Uncertain or merely weak answers are NEUTRAL.

Answer:
%s`, answer[:min(len(answer), 4000)])

	raw, err := s.generate(ctx, prompt)
	if err != nil {
		log.Printf("Sentiment classification failed, defaulting to NEUTRAL: %v", err)
		return neutral
	}

	var result SentimentResult
	if err := json.Unmarshal([]byte(stripFences(raw)), &result); err != nil {
		log.Printf("Sentiment response unparseable, defaulting to NEUTRAL: %v", err)
		return neutral
	}

	switch result.Sentiment {
	case models.SentimentPositive, models.SentimentNeutral, models.SentimentNegative:
		return result
	default:
		return neutral
	}
}

// ClassifySentiment is the label-only view the interview engine consumes.
func (s *AIService) ClassifySentiment(ctx context.Context, answer string) models.Sentiment {
	return s.Classify(ctx, answer).Sentiment
}

// FollowUpQuestion generates a probing question from the previous exchange.
func (s *AIService) FollowUpQuestion(ctx context.Context, prevQuestion, answer string, sentiment models.Sentiment) string {
	tone := "conversational and encouraging"
	if sentiment == models.SentimentNegative {
		tone = "firm and professional, acknowledging that the previous answer was inappropriate"
	}

	prompt := fmt.Sprintf(`You are a technical interviewer. The candidate was asked:
%q
and answered:
%q

Write ONE follow-up question digging deeper into their answer. Tone: %s. Return only the question text, no preamble.`,
		prevQuestion, answer[:min(len(answer), 3000)], tone)

	raw, err := s.generate(ctx, prompt)
	if err != nil || strings.TrimSpace(raw) == "" {
		log.Printf("Follow-up generation failed, using fallback: %v", err)
		return fmt.Sprintf("Could you expand on your previous answer to %q with a concrete example from your own experience?", prevQuestion)
	}
	return strings.TrimSpace(raw)
}

// PersonalizeQuestion rephrases a pool question against the candidate's last
// answer. When warn is set the rephrasing opens with a conduct reminder.
func (s *AIService) PersonalizeQuestion(ctx context.Context, question models.PoolQuestion, lastAnswer string, warn bool) string {
	warningLine := ""
	if warn {
		warningLine = "Open with one short sentence reminding the candidate to keep answers professional, then ask the question."
	}

	prompt := fmt.Sprintf(`You are a technical interviewer. Rephrase this prepared question so it flows naturally after the candidate's last answer. Keep the substance identical. %s
Return only the question text.

Prepared question: %q
Candidate's last answer: %q`,
		warningLine, question.Text, lastAnswer[:min(len(lastAnswer), 2000)])

	raw, err := s.generate(ctx, prompt)
	if err != nil || strings.TrimSpace(raw) == "" {
		log.Printf("Question personalization failed, using pool text: %v", err)
		if warn {
			return "A reminder to keep your responses professional. " + question.Text
		}
		return question.Text
	}
	return strings.TrimSpace(raw)
}

// Critique scores one question/answer pair. On failure it returns the neutral
// midpoint record so the transcript never ends up with a hole.
func (s *AIService) Critique(ctx context.Context, question, answer string, proctoring models.Proctoring) models.Critique {
	prompt := fmt.Sprintf(`Evaluate this interview answer. Return ONLY a valid JSON object:
{"relevance": 1-10, "completeness": 1-10, "technical_accuracy": 1-10, "communication": 1-10, "overall_rating": 1-10, "feedback": "...", "strengths": ["..."], "improvements": ["..."]}

Proctoring context: %d tab switches, %d copy/paste events during this session.

Question: %q
Answer: %q`,
		proctoring.TabSwitches, proctoring.CopyPasteCount,
		question, answer[:min(len(answer), 4000)])

	raw, err := s.generate(ctx, prompt)
	if err != nil {
		log.Printf("Critique generation failed, storing neutral default: %v", err)
		return neutralCritique()
	}

	var critique models.Critique
	if err := json.Unmarshal([]byte(stripFences(raw)), &critique); err != nil {
		log.Printf("Critique response unparseable, storing neutral default: %v", err)
		return neutralCritique()
	}
	if critique.OverallRating < 1 || critique.OverallRating > 10 {
		return neutralCritique()
	}
	return critique
}

// neutralCritique is the documented fallback: all scores at midpoint with a
// note that analysis was unavailable.
func neutralCritique() models.Critique {
	return models.Critique{
		Relevance:         5,
		Completeness:      5,
		TechnicalAccuracy: 5,
		Communication:     5,
		OverallRating:     5,
		Feedback:          "Automated analysis was unavailable for this answer.",
		Strengths:         []string{},
		Improvements:      []string{},
	}
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	return strings.TrimSpace(raw)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
