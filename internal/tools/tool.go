// Package tools implements the search-tool layer between the language
// model and the vector store: tool definitions the model can call, the
// executors behind them, and the Manager that dispatches calls by name
// and accumulates source attributions across a turn.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Definition describes a tool to the language model. InputSchema holds
// the JSON-schema property map; Required lists mandatory properties.
type Definition struct {
	Name        string
	Description string
	InputSchema map[string]any
	Required    []string
}

// Source attributes an answer to retrieved material. Sources are
// request-scoped: produced fresh per query, never persisted.
type Source struct {
	Text string `json:"text"`
	Link string `json:"link,omitempty"`
}

// Tool is one callable capability. Execute returns the text inserted
// verbatim into the model's next-turn context; an error is converted
// to a textual result at the Manager boundary so a failing tool never
// aborts the orchestration.
type Tool interface {
	Definition() Definition
	Execute(ctx context.Context, params map[string]any) (string, error)
	// LastSources returns the sources recorded by the most recent
	// Execute. ResetSources clears them.
	LastSources() []Source
	ResetSources()
}

// Manager holds the registered tools and dispatches model calls by
// name. Dispatch of an unregistered name yields an explicit "not
// found" result, never a fault.
type Manager struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	order  []string
	logger *slog.Logger
}

// NewManager creates a manager with the given tools registered in
// order. Registration order determines source drain order.
func NewManager(logger *slog.Logger, tools ...Tool) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		tools:  make(map[string]Tool),
		logger: logger,
	}
	for _, t := range tools {
		m.Register(t)
	}
	return m
}

// Register adds a tool, replacing any previous tool of the same name.
func (m *Manager) Register(t Tool) {
	name := t.Definition().Name

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tools[name]; !exists {
		m.order = append(m.order, name)
	}
	m.tools[name] = t
}

// Definitions returns the registered tool definitions in registration
// order, for inclusion in a model call.
func (m *Manager) Definitions() []Definition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	defs := make([]Definition, 0, len(m.order))
	for _, name := range m.order {
		defs = append(defs, m.tools[name].Definition())
	}
	return defs
}

// Execute dispatches one tool call. The returned string is always a
// usable tool result: unknown names and execution failures come back
// as explanatory text for the model to recover from.
func (m *Manager) Execute(ctx context.Context, name string, params map[string]any) string {
	m.mu.RLock()
	t, ok := m.tools[name]
	m.mu.RUnlock()
	if !ok {
		m.logger.Warn("unknown tool requested", "tool", name)
		return fmt.Sprintf("Tool '%s' not found", name)
	}

	result, err := t.Execute(ctx, params)
	if err != nil {
		m.logger.Error("tool execution failed", "tool", name, "error", err)
		return fmt.Sprintf("Tool execution failed: %v", err)
	}
	return result
}

// DrainSources returns the sources accumulated by all tools since the
// last drain and clears them, so sources never leak across turns or
// sessions. A second call without an intervening Execute returns nil.
func (m *Manager) DrainSources() []Source {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sources []Source
	for _, name := range m.order {
		t := m.tools[name]
		sources = append(sources, t.LastSources()...)
		t.ResetSources()
	}
	return sources
}
