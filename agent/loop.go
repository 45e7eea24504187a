// Tool-selecting QA loop.
//
// Each turn runs Deciding -> (ToolInvocation -> Deciding)* -> Answering
// -> Done. The decision function - the LLM in production - chooses
// between invoking a catalog tool and emitting the final answer. The
// run fails with StepLimitError rather than looping forever, and the
// memory store is appended to only when a turn completes.
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/docsage/docsage/internal/jsonutil"
	"github.com/docsage/docsage/llm"
	"github.com/docsage/docsage/memory"
	"github.com/docsage/docsage/tools"
)

// DefaultMaxSteps bounds the Deciding passes per turn when no limit is
// configured.
const DefaultMaxSteps = 6

// Loop drives one conversation with tool selection per turn.
type Loop struct {
	decide       DecideFunc
	registry     *tools.Registry
	memory       memory.Memory
	maxSteps     int
	systemPrompt string
}

// Config holds loop configuration.
type Config struct {
	// Decide is the decision function. Required.
	Decide DecideFunc
	// Registry is the tool catalog offered to the decision function.
	Registry *tools.Registry
	// Memory receives the (input, answer) pair when a turn completes.
	Memory memory.Memory
	// MaxSteps bounds Deciding passes per turn; 0 selects DefaultMaxSteps.
	MaxSteps int
	// SystemPrompt overrides the default instructions, if set.
	SystemPrompt string
}

// NewLoop creates a loop from the given configuration.
func NewLoop(cfg Config) (*Loop, error) {
	if cfg.Decide == nil {
		return nil, fmt.Errorf("agent: decision function is required")
	}
	if cfg.Registry == nil {
		cfg.Registry = tools.NewRegistry()
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = "You answer questions about a document corpus. Use the available tools to look up passages before answering anything you are not certain of."
	}
	return &Loop{
		decide:       cfg.Decide,
		registry:     cfg.Registry,
		memory:       cfg.Memory,
		maxSteps:     cfg.MaxSteps,
		systemPrompt: cfg.SystemPrompt,
	}, nil
}

// Run processes one user input to a final answer. On success the
// (input, answer) pair is appended to memory; on any failure the
// memory store is left untouched and the turn can be retried.
func (l *Loop) Run(ctx context.Context, input string) (Result, error) {
	var steps []Step

	conversation := []llm.ChatMessage{
		llm.SystemMessage(l.buildSystemPrompt(ctx)),
		llm.UserMessage(fmt.Sprintf("Question: %s", input)),
	}

	for iteration := 0; iteration < l.maxSteps; iteration++ {
		if err := ctx.Err(); err != nil {
			return Result{Steps: steps}, fmt.Errorf("agent: cancelled: %w", err)
		}

		decision, err := l.decide(ctx, conversation)
		if err != nil {
			return Result{Steps: steps}, fmt.Errorf("agent: decide: %w", err)
		}

		if decision.IsFinal {
			answer := ""
			if decision.FinalAnswer != nil {
				answer = *decision.FinalAnswer
			}
			steps = append(steps, Step{
				Iteration:   iteration,
				Thought:     decision.Thought,
				Observation: &answer,
			})

			if l.memory != nil {
				if err := l.memory.Append(ctx, input, answer); err != nil {
					return Result{Answer: answer, Steps: steps}, fmt.Errorf("agent: record turn: %w", err)
				}
			}
			return Result{Answer: answer, Steps: steps}, nil
		}

		if decision.Action == nil {
			// Thought without an action: record it and nudge the
			// decision function toward a concrete choice.
			observation := "No action specified"
			steps = append(steps, Step{
				Iteration:   iteration,
				Thought:     decision.Thought,
				Observation: &observation,
			})
			conversation = append(conversation,
				llm.AssistantMessage(decision.Thought),
				llm.UserMessage("Either invoke a tool or set is_final=true with a final_answer."),
			)
			continue
		}

		observation, err := l.invokeTool(ctx, decision.Action)
		if err != nil {
			return Result{Steps: steps}, err
		}

		actionName := decision.Action.Tool
		steps = append(steps, Step{
			Iteration:   iteration,
			Thought:     decision.Thought,
			Action:      &actionName,
			Observation: &observation,
		})

		assistantMsg, merr := json.Marshal(map[string]interface{}{
			"thought": decision.Thought,
			"action": map[string]interface{}{
				"tool":  decision.Action.Tool,
				"input": decision.Action.Input,
			},
			"is_final": false,
		})
		if merr != nil {
			assistantMsg = []byte(fmt.Sprintf("%q", decision.Thought))
		}
		conversation = append(conversation,
			llm.AssistantMessage(string(assistantMsg)),
			llm.UserMessage(fmt.Sprintf(
				"Observation: %s\n\nIf you can now answer, set is_final=true and provide final_answer.",
				observation,
			)),
		)
	}

	return Result{Steps: steps}, &StepLimitError{MaxSteps: l.maxSteps, Steps: steps}
}

// invokeTool executes the named catalog tool and returns its output as
// the observation text.
func (l *Loop) invokeTool(ctx context.Context, action *Action) (string, error) {
	tool, exists := l.registry.Get(action.Tool)
	if !exists {
		return "", fmt.Errorf("agent: tool %q not found", action.Tool)
	}

	result, err := tools.ExecuteOnce(ctx, tool, action.Input)
	if err != nil {
		return "", fmt.Errorf("agent: tool %q: %w", action.Tool, err)
	}
	if !result.Success() {
		return fmt.Sprintf("Tool failed: %v", result.Error), nil
	}
	return result.Output, nil
}

// buildSystemPrompt assembles instructions, the tool catalog, and the
// loaded memory context.
func (l *Loop) buildSystemPrompt(ctx context.Context) string {
	memorySection := ""
	if l.memory != nil {
		if mem, err := l.memory.Load(ctx); err == nil && !mem.Empty() {
			memorySection = fmt.Sprintf("\n\nConversation so far:\n%s", mem.Render())
		}
	}

	return fmt.Sprintf(
		`%s

Available Tools:
%s%s

You have a maximum of %d steps.
Respond in this JSON format:
{
  "thought": "your reasoning",
  "action": {"tool": "name", "input": {...}},
  "is_final": false,
  "final_answer": null
}

When you can answer: is_final=true, action=null, provide final_answer.`,
		l.systemPrompt,
		l.registry.Description(),
		memorySection,
		l.maxSteps,
	)
}

// LLMDecider adapts an LLM client into a DecideFunc. Responses that do
// not contain parseable JSON are treated as a thought without an
// action, letting the loop prompt for a concrete decision.
func LLMDecider(client *llm.Client) DecideFunc {
	return func(ctx context.Context, conversation []llm.ChatMessage) (Decision, error) {
		response, err := client.ChatWithFormat(ctx, conversation, llm.NewJSONObjectFormat())
		if err != nil {
			return Decision{}, err
		}

		extracted, err := jsonutil.Extract(response)
		if err != nil {
			return Decision{Thought: response}, nil
		}

		var decision Decision
		if err := json.Unmarshal([]byte(extracted), &decision); err != nil {
			return Decision{Thought: response}, nil
		}
		return decision, nil
	}
}
