package prompt

import (
	"strings"
)

// Builder composes the system prompt text for each operation. Stateless
// and safe to share across requests — all state is passed in per call.
type Builder interface {
	BuildMemorizeSystemPrompt(index string) string
	BuildRecallSystemPrompt(index string) string
	BuildForgetSystemPrompt(index string, dryRun bool) string
	BuildRefinementPlanningPrompt(index, operation string, budget int) string
	BuildReflectionPrompt(index string, patterns []string) string
	BuildAnalysisPrompt(chunk string) string
}

// DefaultBuilder is a minimal text-template-based implementation, good
// enough to exercise the tool loop end-to-end without a hand-tuned
// prompt library.
type DefaultBuilder struct{}

// NewDefaultBuilder constructs the default prompt composer.
func NewDefaultBuilder() *DefaultBuilder {
	return &DefaultBuilder{}
}

func (b *DefaultBuilder) BuildMemorizeSystemPrompt(index string) string {
	return renderTemplate(memorizeSystemTemplate, map[string]any{"Index": index})
}

func (b *DefaultBuilder) BuildRecallSystemPrompt(index string) string {
	return renderTemplate(recallSystemTemplate, map[string]any{"Index": index})
}

func (b *DefaultBuilder) BuildForgetSystemPrompt(index string, dryRun bool) string {
	return renderTemplate(forgetSystemTemplate, map[string]any{"Index": index, "DryRun": dryRun})
}

func (b *DefaultBuilder) BuildRefinementPlanningPrompt(index, operation string, budget int) string {
	return renderTemplate(refinementPlanningTemplate, map[string]any{
		"Index": index, "Operation": operation, "Budget": budget,
	})
}

func (b *DefaultBuilder) BuildReflectionPrompt(index string, patterns []string) string {
	return renderTemplate(reflectionTemplate, map[string]any{
		"Index": index, "Patterns": strings.Join(patterns, "\n---\n"),
	})
}

func (b *DefaultBuilder) BuildAnalysisPrompt(chunk string) string {
	return renderTemplate(analysisTemplate, map[string]any{"Chunk": chunk})
}
