package openai

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultModel = "gpt-4"

// Analyst turns a backtest report into a short plain-text commentary.
type Analyst struct {
	cli   oa.Client
	model string
}

func NewAnalyst(apiKey, model string, opts ...option.RequestOption) *Analyst {
	if model == "" {
		model = defaultModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Analyst{cli: oa.NewClient(opts...), model: model}
}

const systemPrompt = `You are a portfolio analyst reviewing a walk-forward backtest of a two-asset allocation.
Every rebalance picks the split between asset A and asset B that maximized return divided by risk
over the trailing window, then holds it for the next period.

Write at most 6 short bullet points in plain text:
- How the walk-forward portfolio compares with holding either asset alone
- Which way the split has leaned recently and what that says about the pair
- One risk of relying on this rule going forward

Do not give personal investment advice. No markdown headings, no links.`

// Explain asks the model to comment on report.
func (a *Analyst) Explain(ctx context.Context, report string) (string, error) {
	report = sanitizeReport(report)
	if report == "" {
		return "", fmt.Errorf("empty report")
	}

	resp, err := a.cli.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model: oa.ChatModel(a.model),
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage(systemPrompt),
			oa.UserMessage("Backtest report:\n" + report),
		},
		MaxTokens: oa.Int(600), // Limit response length for telegram
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

var reURL = regexp.MustCompile(`https?://\S+`)

// sanitizeReport strips links and caps the prompt size.
func sanitizeReport(report string) string {
	text := strings.TrimSpace(reURL.ReplaceAllString(report, ""))
	if len(text) > 4000 {
		text = text[:4000]
	}
	return text
}
