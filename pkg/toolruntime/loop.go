package toolruntime

import (
	"context"
	"fmt"

	"github.com/agenticmem/memoryd/pkg/llm"
	"github.com/agenticmem/memoryd/pkg/metrics"
)

const defaultMaxToolIterations = 10

// MaxIterationsError is raised when the tool-calling loop exhausts its
// iteration budget without the model producing a final answer, even after
// a forced conclusion attempt.
type MaxIterationsError struct {
	Limit int
}

func (e *MaxIterationsError) Error() string {
	return fmt.Sprintf("toolruntime: exceeded %d tool iterations without a final answer", e.Limit)
}

// Result is the outcome of one full Run: the model's final textual answer
// plus the request context it accumulated state into.
type Result struct {
	Content string
	Context *RequestContext
}

// Run drives the tool-calling loop described by spec §4.5: call the model
// with the bound tool catalog, dispatch any requested tool calls, feed the
// results back, and repeat until a final answer or the iteration budget is
// exhausted. maxIterations <= 0 uses the default of 10.
func (rt *Runtime) Run(ctx context.Context, rc *RequestContext, model, systemPrompt, userMessage string, maxIterations int) (*Result, error) {
	if maxIterations <= 0 {
		maxIterations = defaultMaxToolIterations
	}

	messages := []llm.ConversationMessage{{Role: llm.RoleUser, Content: userMessage}}
	tools := ListTools(rc.Mode)

	for iteration := 0; iteration < maxIterations; iteration++ {
		out, err := rt.LLMClient.Generate(ctx, llm.GenerateInput{
			Model:     model,
			System:    systemPrompt,
			Messages:  messages,
			Tools:     tools,
			MaxTokens: rt.AgentTokens,
		})
		if err != nil {
			return nil, err
		}

		switch out.FinishReason {
		case llm.FinishReasonLength:
			return nil, &llm.DependencyError{Reason: out.FinishReason, Preview: out.Content, Hint: "response truncated at max tokens"}
		case llm.FinishReasonContentFilter:
			return nil, &llm.DependencyError{Reason: out.FinishReason, Preview: out.Content, Hint: "response blocked by content filter"}
		case llm.FinishReasonMalformed, "":
			return nil, &llm.DependencyError{Reason: llm.FinishReasonMalformed, Preview: out.Content, Hint: "model returned no usable stop reason"}
		}

		if len(out.ToolCalls) == 0 {
			metrics.ToolLoopIterations.Observe(float64(iteration + 1))
			return &Result{Content: out.Content, Context: rc}, nil
		}

		assistantMsg := llm.ConversationMessage{Role: llm.RoleAssistant, Content: out.Content, ToolCalls: out.ToolCalls}
		messages = append(messages, assistantMsg)

		for _, call := range out.ToolCalls {
			content, _ := rt.Dispatch(ctx, rc, call.Name, call.Arguments)
			messages = append(messages, llm.ConversationMessage{
				Role:       llm.RoleTool,
				Content:    content,
				ToolCallID: call.ID,
				ToolName:   call.Name,
			})
		}
	}

	metrics.ToolLoopForcedConclusions.Inc()
	metrics.ToolLoopIterations.Observe(float64(maxIterations))
	final, err := rt.forceConclusion(ctx, rc, model, systemPrompt, messages, maxIterations)
	if err != nil {
		return nil, err
	}
	return &Result{Content: final, Context: rc}, nil
}

// forceConclusion makes one final call with no tools bound, asking the
// model to answer from whatever it has already gathered.
func (rt *Runtime) forceConclusion(ctx context.Context, rc *RequestContext, model, systemPrompt string, messages []llm.ConversationMessage, maxIterations int) (string, error) {
	messages = append(messages, llm.ConversationMessage{
		Role:    llm.RoleUser,
		Content: "You have reached the tool-call limit. Answer now using only what you have already found.",
	})

	out, err := rt.LLMClient.Generate(ctx, llm.GenerateInput{
		Model:     model,
		System:    systemPrompt,
		Messages:  messages,
		MaxTokens: rt.AgentTokens,
	})
	if err != nil {
		return "", err
	}
	if out.Content == "" {
		return "", &MaxIterationsError{Limit: maxIterations}
	}
	return out.Content, nil
}
