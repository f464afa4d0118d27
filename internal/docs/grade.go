package docs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

type GradeRequest struct {
	Mode              string
	SubmissionText    string
	AssignmentContent string
	Criteria          string
	Instructions      string
}

type GradeResult struct {
	Grade        float64 `json:"grade"`
	Feedback     string  `json:"feedback"`
	Strengths    string  `json:"strengths"`
	Improvements string  `json:"improvements"`
}

const gradeSchema = `{
	"type": "object",
	"properties": {
		"grade": {"type": "number", "minimum": 0, "maximum": 100},
		"feedback": {"type": "string"},
		"strengths": {"type": "string"},
		"improvements": {"type": "string"}
	},
	"required": ["grade", "feedback"]
}`

var compiledGradeSchema = jsonschema.MustCompileString("grade.json", gradeSchema)

// GradeSubmission asks the provider for a JSON verdict and normalizes
// whatever comes back. A response that cannot be parsed as JSON degrades to
// a grade-0 result carrying the raw text as feedback; it never fails the call.
func (s *Service) GradeSubmission(ctx context.Context, req GradeRequest) (GradeResult, error) {
	text, err := s.LLM.Generate(ctx, buildGradingPrompt(req))
	if err != nil {
		return GradeResult{}, fmt.Errorf("grading submission: %w", err)
	}
	return normalizeGradeResponse(text), nil
}

func buildGradingPrompt(req GradeRequest) string {
	var b strings.Builder
	b.WriteString("You are grading a student submission. Respond with a single JSON object with the fields ")
	b.WriteString(`"grade" (number 0-100), "feedback", "strengths" and "improvements" (strings). No other text.`)
	b.WriteString("\n\n")

	if req.Mode != "" {
		fmt.Fprintf(&b, "Grading mode: %s\n\n", req.Mode)
	}
	if req.AssignmentContent != "" {
		fmt.Fprintf(&b, "Assignment:\n%s\n\n", req.AssignmentContent)
	}
	if req.Criteria != "" {
		fmt.Fprintf(&b, "Grading criteria:\n%s\n\n", req.Criteria)
	}
	if req.Instructions != "" {
		fmt.Fprintf(&b, "Additional instructions:\n%s\n\n", req.Instructions)
	}
	fmt.Fprintf(&b, "Student submission:\n%s\n", req.SubmissionText)
	return b.String()
}

func normalizeGradeResponse(text string) GradeResult {
	cleaned := stripCodeFence(text)

	var raw map[string]any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return GradeResult{Grade: 0, Feedback: strings.TrimSpace(text)}
	}

	if err := compiledGradeSchema.Validate(raw); err != nil {
		log.Printf("docs: grade response failed schema validation, extracting leniently: %v", err)
	}

	result := GradeResult{
		Grade:        extractGrade(raw),
		Feedback:     stringField(raw, "feedback"),
		Strengths:    stringField(raw, "strengths"),
		Improvements: stringField(raw, "improvements"),
	}
	if result.Feedback == "" {
		result.Feedback = strings.TrimSpace(cleaned)
	}
	return result
}

// extractGrade tolerates the field-name synonyms providers actually emit.
func extractGrade(raw map[string]any) float64 {
	for _, key := range []string{"grade", "marks", "final_marks", "score"} {
		if v, ok := raw[key]; ok {
			if n, ok := asNumber(v); ok {
				return clampGrade(n)
			}
		}
	}
	return 0
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		var parsed float64
		if _, err := fmt.Sscanf(strings.TrimSpace(n), "%f", &parsed); err == nil {
			return parsed, true
		}
	}
	return 0, false
}

func clampGrade(n float64) float64 {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

func stringField(raw map[string]any, key string) string {
	if v, ok := raw[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// stripCodeFence removes a surrounding markdown fence such as ```json ... ```.
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// Drop the language tag on the opening fence line.
		first := strings.TrimSpace(trimmed[:idx])
		if first == "" || !strings.ContainsAny(first, "{[") {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
