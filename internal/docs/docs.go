package docs

import (
	"context"
	"fmt"
	"strings"

	"intelliclass/internal/llm"
)

// Service builds templated prompts, delegates to the provider chain and
// post-processes the raw text.
type Service struct {
	LLM llm.Provider
}

func NewService(provider llm.Provider) *Service {
	return &Service{LLM: provider}
}

type Assignment struct {
	Topic        string `json:"topic"`
	MaxMarks     int    `json:"max_marks"`
	DaysUntilDue int    `json:"days_until_due"`
	Content      string `json:"generated_content"`
}

type AnswerKey struct {
	MaxMarks int    `json:"max_marks"`
	Content  string `json:"generated_content"`
}

const assignmentTemplate = `You are an experienced teacher. Create a complete written assignment on the topic below.

Topic: %s
Total marks: %d
Due in: %d days

Include a title, clear instructions, and a numbered list of questions with the marks for each question. The marks must add up to the total.`

const answerKeyTemplate = `You are an experienced teacher. Write a model answer key for the assignment below.

Assignment:
%s

Total marks: %d

For every question give the expected answer and how the marks are awarded.`

// GenerateAssignment renders the assignment template and returns the raw
// provider text. The numeric inputs are echoed back without range checks.
func (s *Service) GenerateAssignment(ctx context.Context, topic string, maxMarks, daysUntilDue int) (Assignment, error) {
	prompt := fmt.Sprintf(assignmentTemplate, strings.TrimSpace(topic), maxMarks, daysUntilDue)
	text, err := s.LLM.Generate(ctx, prompt)
	if err != nil {
		return Assignment{}, fmt.Errorf("generating assignment: %w", err)
	}
	return Assignment{
		Topic:        topic,
		MaxMarks:     maxMarks,
		DaysUntilDue: daysUntilDue,
		Content:      text,
	}, nil
}

func (s *Service) GenerateAnswerKey(ctx context.Context, assignmentContent string, maxMarks int) (AnswerKey, error) {
	prompt := fmt.Sprintf(answerKeyTemplate, assignmentContent, maxMarks)
	text, err := s.LLM.Generate(ctx, prompt)
	if err != nil {
		return AnswerKey{}, fmt.Errorf("generating answer key: %w", err)
	}
	return AnswerKey{MaxMarks: maxMarks, Content: text}, nil
}
