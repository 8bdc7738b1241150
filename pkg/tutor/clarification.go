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

// ClarificationImpact estimates how much an explanation should discount the
// eventual score. AdjustedScore 1 means the explanation essentially gave the
// answer away; 3 means it was a legitimate partial hint.
type ClarificationImpact struct {
	AdjustedScore int    `json:"adjusted_score"`
	Reasoning     string `json:"reasoning"`
}

// ClarificationHandler answers a learner's meta-question about the current
// question.
type ClarificationHandler struct {
	provider llm.Provider
	timeout  time.Duration
	logger   *log.Logger
}

func NewClarificationHandler(provider llm.Provider, timeout time.Duration, logger *log.Logger) *ClarificationHandler {
	return &ClarificationHandler{provider: provider, timeout: timeout, logger: logger}
}

// Handle explains what the learner asked about and rates the give-away impact.
// No fallback parse is attempted: malformed output is a gateway failure.
func (h *ClarificationHandler) Handle(ctx context.Context, question *entity.Question, utterance string) (string, *ClarificationImpact, error) {
	var prompt strings.Builder

	prompt.WriteString("You are a tutor. The learner asked a clarifying question about the current exercise instead of answering it.\n\n")
	prompt.WriteString(fmt.Sprintf("Exercise: %s\n", question.Text))
	prompt.WriteString(fmt.Sprintf("Learner's question: %s\n\n", utterance))

	prompt.WriteString("Answer their question helpfully. Then judge your own explanation:\n")
	prompt.WriteString("adjusted_score 1 = the explanation essentially reveals the answer to the exercise\n")
	prompt.WriteString("adjusted_score 3 = the explanation is a legitimate partial hint\n\n")

	prompt.WriteString("Respond with ONLY valid JSON:\n")
	prompt.WriteString(`{"answer": "your explanation", "adjusted_score": 3, "reasoning": "why this impact"}`)

	response, err := generate(ctx, h.provider, h.timeout, "clarification", prompt.String(), llm.WithTemperature(0.3))
	if err != nil {
		return "", nil, err
	}

	jsonContent := extractJSON(response)
	if jsonContent == "" {
		return "", nil, apperror.GatewayInvalid("clarification", "no JSON in response")
	}

	var parsed struct {
		Answer        string `json:"answer"`
		AdjustedScore int    `json:"adjusted_score"`
		Reasoning     string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(jsonContent), &parsed); err != nil {
		return "", nil, apperror.GatewayInvalid("clarification", err.Error())
	}
	if strings.TrimSpace(parsed.Answer) == "" {
		return "", nil, apperror.GatewayInvalid("clarification", "empty answer text")
	}

	impact := &ClarificationImpact{
		AdjustedScore: parsed.AdjustedScore,
		Reasoning:     parsed.Reasoning,
	}
	// Anything the model did not flag as a give-away counts as a hint.
	if impact.AdjustedScore != 1 {
		impact.AdjustedScore = 3
	}

	h.logger.Printf("[CLARIFY] question=%s adjustedScore=%d", question.Id, impact.AdjustedScore)
	return parsed.Answer, impact, nil
}
