package tutor

import (
	"context"
	"regexp"
	"strings"
	"time"

	"ai-tutorchat-be/internal/apperror"
	"ai-tutorchat-be/pkg/llm"
)

// DefaultTimeout bounds every generative-text call. There is no retry here;
// retry belongs to the caller's reliability layer.
const DefaultTimeout = 12 * time.Second

// generate is the single resilient-call path shared by all gateways:
// timeout-bounded, deterministic temperature, failures mapped to the
// gateway error category.
func generate(ctx context.Context, provider llm.Provider, timeout time.Duration, op, prompt string, opts ...llm.Option) (string, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := provider.Generate(cctx, prompt, opts...)
	if err != nil {
		return "", apperror.Gateway(op, err)
	}
	return out, nil
}

// extractJSON pulls the first {...} block out of a model response, tolerating
// markdown fences and prose around it.
func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")
	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return ""
	}
	return response[startIdx : endIdx+1]
}

var scoreDigitPattern = regexp.MustCompile(`[0-5]`)

// extractScoreDigit is the one deterministic fallback parse allowed on the
// scoring path: the first 0-5 digit anywhere in the response.
func extractScoreDigit(response string) (int, bool) {
	m := scoreDigitPattern.FindString(response)
	if m == "" {
		return 0, false
	}
	return int(m[0] - '0'), true
}
