// Package agent provides the tool-selecting QA loop.
//
// Contains all types used by the loop for decisions, actions, and
// step traces.
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/docsage/docsage/llm"
)

// Decision represents one choice made by the loop's decision function:
// either invoke a tool (Action set) or finish (IsFinal with
// FinalAnswer).
type Decision struct {
	Thought     string  `json:"thought"`
	Action      *Action `json:"action,omitempty"`
	IsFinal     bool    `json:"is_final"`
	FinalAnswer *string `json:"final_answer,omitempty"`
}

// UnmarshalJSON implements custom unmarshaling that accepts either a string or
// JSON value for FinalAnswer.
func (d *Decision) UnmarshalJSON(data []byte) error {
	// Use an alias to avoid infinite recursion
	type DecisionAlias Decision
	aux := &struct {
		FinalAnswer json.RawMessage `json:"final_answer,omitempty"`
		*DecisionAlias
	}{
		DecisionAlias: (*DecisionAlias)(d),
	}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	if len(aux.FinalAnswer) > 0 {
		// Try to unmarshal as string first
		var s string
		if err := json.Unmarshal(aux.FinalAnswer, &s); err == nil {
			d.FinalAnswer = &s
			return nil
		}

		// If not a string, convert the JSON to a pretty-printed string
		var v interface{}
		if err := json.Unmarshal(aux.FinalAnswer, &v); err == nil {
			pretty, err := json.MarshalIndent(v, "", "  ")
			if err == nil {
				s := string(pretty)
				d.FinalAnswer = &s
			}
		}
	}

	return nil
}

// Action represents a tool invocation request.
type Action struct {
	Tool  string          `json:"tool"`
	Input json.RawMessage `json:"input"`
}

// Step records one pass through the Deciding state, for diagnostics.
type Step struct {
	Iteration   int
	Thought     string
	Action      *string
	Observation *string
}

// Result is the outcome of a completed loop run.
type Result struct {
	Answer string
	Steps  []Step
}

// StepLimitError reports a loop that hit its configured step limit
// before the decision function emitted a final answer. It carries the
// partial step trace for diagnostics.
type StepLimitError struct {
	MaxSteps int
	Steps    []Step
}

func (e *StepLimitError) Error() string {
	return fmt.Sprintf("agent: step limit of %d exceeded", e.MaxSteps)
}

// DecideFunc maps the working conversation to exactly one Decision.
// The production implementation wraps the LLM; tests inject scripted
// functions so the loop's termination and sequencing are checked
// without a model.
type DecideFunc func(ctx context.Context, conversation []llm.ChatMessage) (Decision, error)
