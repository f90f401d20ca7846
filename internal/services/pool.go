package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"intervia-backend/internal/models"
)

// GeneratePool authors the full question pool for a session before it
// starts. Entry 0 is always the introduction. The generative call can fail
// without failing session creation: a deterministic bank backs it.
func (s *AIService) GeneratePool(ctx context.Context, profile, role, difficulty string, size int) []models.PoolQuestion {
	if size < 2 {
		size = 2
	}

	pool := make([]models.PoolQuestion, 0, size)
	pool = append(pool, models.PoolQuestion{
		Index:          0,
		Text:           s.Introduction(ctx, profile, role),
		ExpectedAnswer: "A concise self-introduction covering background, relevant experience and motivation for the role.",
		Category:       "introduction",
		Difficulty:     "easy",
	})

	generated := s.generatePoolQuestions(ctx, profile, role, difficulty, size-1)
	for i := range generated {
		generated[i].Index = i + 1
		pool = append(pool, generated[i])
	}
	return pool
}

// Introduction produces the opening question from the candidate's profile.
func (s *AIService) Introduction(ctx context.Context, profile, role string) string {
	prompt := fmt.Sprintf(`You are a friendly technical interviewer opening a mock interview for a %s role.
Candidate background:
%s

Write ONE warm opening question asking the candidate to introduce themselves, referencing something specific from their background. Return only the question text.`,
		role, profile[:min(len(profile), 3000)])

	raw, err := s.generate(ctx, prompt)
	if err != nil || strings.TrimSpace(raw) == "" {
		log.Printf("Introduction generation failed, using fallback: %v", err)
		return fmt.Sprintf("Welcome! To get us started, please introduce yourself and tell me what draws you to the %s role.", role)
	}
	return strings.TrimSpace(raw)
}

func (s *AIService) generatePoolQuestions(ctx context.Context, profile, role, difficulty string, count int) []models.PoolQuestion {
	prompt := fmt.Sprintf(`Generate %d interview questions for a %s role at %s difficulty, tailored to this candidate background:
%s

Return ONLY a valid JSON array:
[{"text": "...", "expected_answer": "...", "category": "...", "difficulty": "easy"|"medium"|"hard"}]

expected_answer is the model answer a strong candidate would give (2-4 sentences).`,
		count, role, difficulty, profile[:min(len(profile), 3000)])

	raw, err := s.generate(ctx, prompt)
	if err != nil {
		log.Printf("Pool generation failed, using fallback bank: %v", err)
		return fallbackPool(role, difficulty, count)
	}

	var questions []models.PoolQuestion
	cleaned := stripFences(raw)
	if err := json.Unmarshal([]byte(cleaned), &questions); err != nil {
		start := strings.Index(cleaned, "[")
		end := strings.LastIndex(cleaned, "]")
		if start >= 0 && end > start {
			json.Unmarshal([]byte(cleaned[start:end+1]), &questions)
		}
	}

	valid := questions[:0]
	for _, q := range questions {
		if strings.TrimSpace(q.Text) == "" || strings.TrimSpace(q.ExpectedAnswer) == "" {
			continue
		}
		valid = append(valid, q)
	}
	if len(valid) == 0 {
		log.Println("Pool generation returned nothing usable, using fallback bank")
		return fallbackPool(role, difficulty, count)
	}
	if len(valid) > count {
		valid = valid[:count]
	}
	return valid
}

// fallbackPool covers a Gemini outage at session-creation time.
func fallbackPool(role, difficulty string, count int) []models.PoolQuestion {
	bank := []models.PoolQuestion{
		{Text: fmt.Sprintf("Describe a project you are proud of that is relevant to the %s role. What was your contribution?", role), ExpectedAnswer: "A specific project with a clearly articulated personal contribution, outcome and lessons learned.", Category: "experience"},
		{Text: "Walk me through how you debug a problem you have never seen before.", ExpectedAnswer: "A structured approach: reproduce, isolate, form hypotheses, verify with evidence, fix and add a regression test.", Category: "problem-solving"},
		{Text: "Tell me about a time you disagreed with a teammate. How was it resolved?", ExpectedAnswer: "A concrete disagreement, respectful handling, and a resolution driven by data or shared goals.", Category: "behavioral"},
		{Text: "How do you decide what to test, and what does good test coverage mean to you?", ExpectedAnswer: "Risk-based prioritization, testing behavior over implementation, and coverage as a signal rather than a target.", Category: "engineering-practice"},
		{Text: "Explain a technical concept you know well as if I were a new junior colleague.", ExpectedAnswer: "A clear, layered explanation that checks understanding and avoids unexplained jargon.", Category: "communication"},
		{Text: "What trade-offs did you weigh in a recent design decision?", ExpectedAnswer: "Explicit alternatives, the chosen option, and the criteria used: cost, complexity, performance, maintainability.", Category: "design"},
		{Text: "How do you keep your skills current, and what have you learned recently?", ExpectedAnswer: "Concrete learning habits and a specific recent example applied in practice.", Category: "growth"},
		{Text: "Describe a production incident or serious bug you handled. What changed afterwards?", ExpectedAnswer: "The incident timeline, their role in resolution, and a durable process or tooling improvement.", Category: "experience"},
	}

	if count > len(bank) {
		count = len(bank)
	}
	out := make([]models.PoolQuestion, count)
	copy(out, bank[:count])
	for i := range out {
		out[i].Difficulty = difficulty
	}
	return out
}
