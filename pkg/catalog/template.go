package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ajitpratap0/mcp-gateway/pkg/protocol"
)

// Template is a prepared response. Prompt templates keep their typed result
// so that arguments can be substituted per request.
type Template struct {
	resp   *protocol.Response
	prompt *protocol.GetPromptResult
}

func newTemplate(result interface{}) (*Template, error) {
	resp, err := protocol.NewResponse(nil, result)
	if err != nil {
		return nil, err
	}
	t := &Template{resp: resp}
	if p, ok := result.(protocol.GetPromptResult); ok {
		t.prompt = &p
	}
	return t, nil
}

// Render returns a copy of the template addressed to id. When args is
// non-empty, "{{key}}" placeholders in prompt message texts are replaced.
func (t *Template) Render(id interface{}, args map[string]interface{}) (*protocol.Response, error) {
	if t.prompt == nil || len(args) == 0 {
		resp := t.resp.Clone()
		resp.ID = id
		return resp, nil
	}
	rendered := protocol.GetPromptResult{
		Description: t.prompt.Description,
		Messages:    Substitute(t.prompt.Messages, args),
	}
	return protocol.NewResponse(id, rendered)
}

// Result returns the raw JSON result of the template
func (t *Template) Result() json.RawMessage {
	return t.resp.Result
}

// Substitute returns a copy of messages with every "{{key}}" in a text
// content replaced by the matching argument.
func Substitute(messages []protocol.PromptMessage, args map[string]interface{}) []protocol.PromptMessage {
	out := make([]protocol.PromptMessage, len(messages))
	copy(out, messages)
	if len(args) == 0 {
		return out
	}
	for i := range out {
		if out[i].Content.Text == "" {
			continue
		}
		text := out[i].Content.Text
		for k, v := range args {
			text = strings.ReplaceAll(text, "{{"+k+"}}", argString(v))
		}
		out[i].Content.Text = text
	}
	return out
}

func argString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return "null"
	case float64, int, int64, bool, json.Number:
		return fmt.Sprint(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
