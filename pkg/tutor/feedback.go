package tutor

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"ai-tutorchat-be/internal/apperror"
	"ai-tutorchat-be/internal/entity"
	"ai-tutorchat-be/pkg/llm"
)

// Feedback responses shorter than this are treated as model garbage.
const minFeedbackLength = 10

// FeedbackGenerator turns a score and answer into a conversational reply.
type FeedbackGenerator struct {
	provider llm.Provider
	timeout  time.Duration
	logger   *log.Logger
}

func NewFeedbackGenerator(provider llm.Provider, timeout time.Duration, logger *log.Logger) *FeedbackGenerator {
	return &FeedbackGenerator{provider: provider, timeout: timeout, logger: logger}
}

// Generate produces 2-4 sentences of feedback. For low scores the reply
// doubles as a hint toward the right answer.
func (g *FeedbackGenerator) Generate(ctx context.Context, question *entity.Question, answer string, score int) (string, error) {
	var prompt strings.Builder

	prompt.WriteString("You are a friendly tutor. The learner answered a question and you are giving feedback.\n\n")
	prompt.WriteString(fmt.Sprintf("Question: %s\n", question.Text))
	prompt.WriteString(fmt.Sprintf("Learner's answer: %s\n", answer))
	prompt.WriteString(fmt.Sprintf("Score: %d out of 5\n\n", score))

	if score >= 4 {
		prompt.WriteString("Write 2-4 sentences: confirm what they got right and add one detail that deepens their understanding.\n")
	} else {
		prompt.WriteString("Write 2-4 sentences: encourage them, point at what is missing, and give a hint WITHOUT revealing the full answer. End by inviting another attempt.\n")
	}
	prompt.WriteString("Reply with the feedback text only, no preamble.")

	response, err := generate(ctx, g.provider, g.timeout, "feedback", prompt.String(), llm.WithTemperature(0.7))
	if err != nil {
		return "", err
	}

	feedback := strings.TrimSpace(response)
	if len(feedback) < minFeedbackLength {
		return "", apperror.GatewayInvalid("feedback", fmt.Sprintf("response too short (%d chars)", len(feedback)))
	}

	return feedback, nil
}
