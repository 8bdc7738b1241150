package tutor

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"ai-tutorchat-be/pkg/llm"
)

// Intent is what the learner wants to do after a question was scored.
type Intent string

const (
	IntentAdvance Intent = "ADVANCE"
	IntentEnd     Intent = "END"
	IntentClarify Intent = "CLARIFY"
)

// IntentRouter classifies a free-text utterance into one of the three intents.
type IntentRouter struct {
	provider llm.Provider
	timeout  time.Duration
	logger   *log.Logger
}

func NewIntentRouter(provider llm.Provider, timeout time.Duration, logger *log.Logger) *IntentRouter {
	return &IntentRouter{provider: provider, timeout: timeout, logger: logger}
}

// Classify resolves the learner's intent. Ambiguous or unparsable output
// defaults to CLARIFY so content is never silently skipped; transport
// failures surface as gateway errors.
func (r *IntentRouter) Classify(ctx context.Context, utterance string) (Intent, error) {
	var prompt strings.Builder

	prompt.WriteString("<system>\n")
	prompt.WriteString("You are an intent analyzer for a tutoring chat. Your ONLY job is to classify what the learner wants to DO next.\n")
	prompt.WriteString("You do NOT answer questions. You only classify intent.\n")
	prompt.WriteString("</system>\n\n")

	prompt.WriteString("<utterance>\n")
	prompt.WriteString(utterance)
	prompt.WriteString("\n</utterance>\n\n")

	prompt.WriteString("<intent_definitions>\n")
	prompt.WriteString("ADVANCE: Learner wants the next question ('next', 'continue', 'ok let's go on')\n")
	prompt.WriteString("END: Learner wants to stop the session ('I'm done', 'stop', 'finish for today')\n")
	prompt.WriteString("CLARIFY: Learner asks about the current question or anything else ('what does X mean?', 'can you explain?')\n")
	prompt.WriteString("Use CLARIFY when unsure.\n")
	prompt.WriteString("</intent_definitions>\n\n")

	prompt.WriteString("Respond with ONLY valid JSON:\n")
	prompt.WriteString(`{"intent": "ADVANCE|END|CLARIFY", "reasoning": "Brief explanation"}`)

	response, err := generate(ctx, r.provider, r.timeout, "intent", prompt.String(), llm.WithTemperature(0.0))
	if err != nil {
		return "", err
	}

	intent := r.parseIntent(response)
	r.logger.Printf("[INTENT] resolved: %s", intent)
	return intent, nil
}

func (r *IntentRouter) parseIntent(response string) Intent {
	jsonContent := extractJSON(response)
	if jsonContent == "" {
		r.logger.Printf("[WARN] no JSON in intent response, defaulting to CLARIFY")
		return IntentClarify
	}

	var parsed struct {
		Intent    string `json:"intent"`
		Reasoning string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(jsonContent), &parsed); err != nil {
		r.logger.Printf("[WARN] intent parse failed, defaulting to CLARIFY: %v", err)
		return IntentClarify
	}

	switch Intent(strings.ToUpper(strings.TrimSpace(parsed.Intent))) {
	case IntentAdvance:
		return IntentAdvance
	case IntentEnd:
		return IntentEnd
	default:
		return IntentClarify
	}
}
