package advise

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/imgaudit/internal/cache"
	"github.com/hyperifyio/imgaudit/internal/llm"
	"github.com/hyperifyio/imgaudit/internal/report"
)

// ErrEmptyAdvice indicates the model returned no usable text.
var ErrEmptyAdvice = errors.New("empty advice")

const systemPrompt = "You are a web performance engineer. Give short, concrete advice on image formats. Use only the numbers provided. Answer in Markdown bullet points, at most six."

// Advisor asks a chat model for image-format optimization advice.
type Advisor struct {
	Client llm.Client
	Model  string
	// Cache is optional. Responses are keyed by model and prompt.
	Cache *cache.LLMCache
	// MaxExamples caps how many URLs per unoptimized format are shown to the model.
	MaxExamples int
}

// Advise returns Markdown advice for the page summarized by s. Pages without
// unoptimized images need no model call.
func (a *Advisor) Advise(ctx context.Context, s report.Summary, examples map[string][]string) (string, error) {
	if a == nil || a.Client == nil || strings.TrimSpace(a.Model) == "" {
		return "", errors.New("advisor not configured")
	}
	if s.Total == 0 || s.AllOptimized() {
		return "", nil
	}
	prompt := buildUserMessage(s, examples, a.maxExamples())
	key := cache.KeyFrom(a.Model, systemPrompt+"\n\n"+prompt)
	if a.Cache != nil {
		if e, ok, _ := a.Cache.Get(ctx, key); ok && strings.TrimSpace(e.Content) != "" {
			log.Debug().Str("model", a.Model).Msg("advice served from cache")
			return e.Content, nil
		}
	}

	resp, err := a.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.2,
		N:           1,
	})
	if err != nil {
		return "", fmt.Errorf("advice call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyAdvice
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", ErrEmptyAdvice
	}
	if a.Cache != nil {
		if err := a.Cache.Save(ctx, key, a.Model, out); err != nil {
			log.Warn().Err(err).Msg("advice cache save failed")
		}
	}
	return out, nil
}

func (a *Advisor) maxExamples() int {
	if a.MaxExamples > 0 {
		return a.MaxExamples
	}
	return 3
}

func buildUserMessage(s report.Summary, examples map[string][]string, maxExamples int) string {
	var sb strings.Builder
	sb.WriteString("Page: ")
	sb.WriteString(s.PageURL)
	fmt.Fprintf(&sb, "\nTotal images: %d\nAlready optimized (%s): %d\n", s.Total, strings.Join(s.OptimizedFormats, ", "), s.Optimized)
	sb.WriteString("\nImages per format:\n")
	for _, fc := range report.SortFormatsByCount(s.Formats) {
		state := "not optimized"
		if fc.Optimized {
			state = "optimized"
		}
		fmt.Fprintf(&sb, "- %s: %d (%s)\n", fc.Format, fc.Count, state)
		if fc.Optimized {
			continue
		}
		urls := examples[fc.Format]
		if len(urls) > maxExamples {
			urls = urls[:maxExamples]
		}
		for _, u := range urls {
			sb.WriteString("  - ")
			sb.WriteString(u)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\nSuggest which images to convert and to which of the optimized formats, and note any format that should stay as is.")
	return sb.String()
}
