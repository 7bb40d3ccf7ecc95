package generation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/paulantoine/coursemate/internal/tools"
)

// ToolExecutor is the slice of the tool manager the orchestrator
// needs: tool definitions for the model and name-based dispatch whose
// result is always usable text.
type ToolExecutor interface {
	Definitions() []tools.Definition
	Execute(ctx context.Context, name string, params map[string]any) string
}

// Orchestrator state machine.
type state int

const (
	stateAwaitingModel state = iota
	stateExecutingTools
	stateDone
)

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithMaxToolRounds bounds the number of tool round-trips per query.
// Default 1: model decides to search, tools run, model synthesizes.
func WithMaxToolRounds(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxToolRounds = n
		}
	}
}

// WithOrchestratorLogger sets the orchestrator logger.
func WithOrchestratorLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Orchestrator drives the model interaction for one query as an
// explicit state machine with a bounded number of tool rounds. Tool
// failures are absorbed by the executor and become textual results;
// model failures propagate as GenerationError without retry.
type Orchestrator struct {
	model         Model
	maxToolRounds int
	logger        *slog.Logger
}

// NewOrchestrator creates an orchestrator over the given model.
func NewOrchestrator(model Model, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		model:         model,
		maxToolRounds: 1,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Respond answers one user query. history is the pre-formatted
// conversation context and rides in the system content. exec may be
// nil for a plain completion with no tools offered.
func (o *Orchestrator) Respond(ctx context.Context, query, history string, exec ToolExecutor) (string, error) {
	system := buildSystem(history)
	messages := []Message{{Role: RoleUser, Content: query}}

	var (
		response *Response
		rounds   int
	)

	for st := stateAwaitingModel; st != stateDone; {
		switch st {
		case stateAwaitingModel:
			req := Request{System: system, Messages: messages}
			// The final synthesis call after the last tool round
			// offers no further tool use.
			if exec != nil && rounds < o.maxToolRounds {
				req.Tools = exec.Definitions()
			}

			resp, err := o.model.Generate(ctx, req)
			if err != nil {
				var genErr *GenerationError
				if errors.As(err, &genErr) {
					return "", err
				}
				return "", &GenerationError{Err: err}
			}

			response = resp
			if len(resp.ToolCalls) == 0 {
				st = stateDone
			} else {
				st = stateExecutingTools
			}

		case stateExecutingTools:
			messages = append(messages, Message{
				Role:      RoleAssistant,
				Content:   response.Text,
				ToolCalls: response.ToolCalls,
			})

			// Sequential execution in the order requested keeps
			// source ordering deterministic.
			results := make([]ToolResult, 0, len(response.ToolCalls))
			for _, call := range response.ToolCalls {
				o.logger.Debug("executing tool", "tool", call.Name, "round", rounds)
				results = append(results, ToolResult{
					ToolCallID: call.ID,
					Content:    exec.Execute(ctx, call.Name, call.Params),
				})
			}
			messages = append(messages, Message{Role: RoleUser, ToolResults: results})

			rounds++
			st = stateAwaitingModel
		}
	}

	return response.Text, nil
}
