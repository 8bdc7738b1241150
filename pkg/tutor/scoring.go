package tutor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"ai-tutorchat-be/internal/apperror"
	"ai-tutorchat-be/internal/entity"
	"ai-tutorchat-be/pkg/llm"
)

// ScoreResult is the validated outcome of grading one answer.
type ScoreResult struct {
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning"`
}

// ScoringGateway grades a free-text answer against a question on a 1-5 scale.
type ScoringGateway struct {
	provider llm.Provider
	timeout  time.Duration
	logger   *log.Logger
}

func NewScoringGateway(provider llm.Provider, timeout time.Duration, logger *log.Logger) *ScoringGateway {
	return &ScoringGateway{provider: provider, timeout: timeout, logger: logger}
}

// Score grades the answer. afterHint tells the grader the learner already
// received a hint for this question. Malformed output past the single digit
// fallback is a hard gateway failure, never a silent default.
func (g *ScoringGateway) Score(ctx context.Context, question *entity.Question, answer string, afterHint bool) (*ScoreResult, error) {
	prompt := g.buildPrompt(question, answer, afterHint)

	response, err := generate(ctx, g.provider, g.timeout, "scoring", prompt, llm.WithTemperature(0.0))
	if err != nil {
		return nil, err
	}

	result, err := g.parseScore(response)
	if err != nil {
		return nil, err
	}

	g.logger.Printf("[SCORE] question=%s afterHint=%v score=%d", question.Id, afterHint, result.Score)
	return result, nil
}

func (g *ScoringGateway) buildPrompt(question *entity.Question, answer string, afterHint bool) string {
	var prompt strings.Builder

	prompt.WriteString("<system>\n")
	prompt.WriteString("You are a strict grader for a tutoring app. Grade the learner's answer to the question on a 1-5 scale.\n")
	prompt.WriteString("5 = fully correct and complete, 4 = correct with minor gaps, 3 = partially correct, 2 = mostly wrong, 1 = wrong or off-topic.\n")
	prompt.WriteString("</system>\n\n")

	prompt.WriteString("<question>\n")
	prompt.WriteString(fmt.Sprintf("Type: %s (difficulty %d)\n", question.Type, question.Difficulty))
	prompt.WriteString(question.Text)
	prompt.WriteString("\n</question>\n\n")

	prompt.WriteString("<answer>\n")
	prompt.WriteString(answer)
	prompt.WriteString("\n</answer>\n\n")

	if afterHint {
		prompt.WriteString("The learner already received a hint for this question. Grade this second attempt on its own merits.\n\n")
	}

	prompt.WriteString("Respond with ONLY valid JSON:\n")
	prompt.WriteString(`{"score": 3, "reasoning": "Brief justification"}`)

	return prompt.String()
}

func (g *ScoringGateway) parseScore(response string) (*ScoreResult, error) {
	jsonContent := extractJSON(response)
	if jsonContent != "" {
		var result ScoreResult
		if err := json.Unmarshal([]byte(jsonContent), &result); err == nil {
			if result.Score >= 1 && result.Score <= 5 {
				return &result, nil
			}
		}
	}

	// Single deterministic fallback: first 0-5 digit in the raw response.
	if digit, ok := extractScoreDigit(response); ok && digit >= 1 {
		g.logger.Printf("[WARN] score recovered from unstructured output: %d", digit)
		return &ScoreResult{Score: digit, Reasoning: "recovered from unstructured model output"}, nil
	}

	return nil, apperror.GatewayInvalid("scoring", "no usable 1-5 score in response")
}
