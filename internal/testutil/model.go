package testutil

import (
	"context"

	"github.com/paulantoine/coursemate/internal/generation"
)

// ScriptedModel is a generation.Model returning canned responses in
// order and recording every request. Not safe for concurrent use.
type ScriptedModel struct {
	Responses []*generation.Response
	Err       error
	Requests  []generation.Request
}

func (m *ScriptedModel) Generate(_ context.Context, req generation.Request) (*generation.Response, error) {
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Responses) == 0 {
		return &generation.Response{Text: "unscripted response"}, nil
	}
	resp := m.Responses[0]
	m.Responses = m.Responses[1:]
	return resp, nil
}

// SearchCallModel scripts the common two-call pattern: first request a
// search_course_content call with the given params, then answer with
// finalText.
func SearchCallModel(params map[string]any, finalText string) *ScriptedModel {
	return &ScriptedModel{
		Responses: []*generation.Response{
			{ToolCalls: []generation.ToolCall{{
				ID:     "toolu_test",
				Name:   "search_course_content",
				Params: params,
			}}},
			{Text: finalText},
		},
	}
}
