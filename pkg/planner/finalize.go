package planner

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/ajitpratap0/mcp-gateway/pkg/diagnostics"
	"github.com/ajitpratap0/mcp-gateway/pkg/logging"
	"github.com/ajitpratap0/mcp-gateway/pkg/oracle"
)

const msgFileOmitted = "The type of file was returned. But, the file content was not included in the response."

// Finalize flattens the execution's entries into texts and blobs. When
// there is at least one text, the texts are replaced by a single summary
// answer from the oracle and the blobs follow it.
func (e *Executor) Finalize(ctx context.Context, goal string, exec *Execution) (*Result, error) {
	ctx, span := e.tracer.StartSpan(ctx, "planner.finalize")
	defer span.End()

	if exec == nil {
		exec = &Execution{History: e.history.Clone()}
	}
	outputs, texts := flatten(exec.Entries, e.logger)

	res := &Result{History: exec.History, Stopped: exec.Stopped}
	if len(texts) > 0 {
		resp, err := e.oracle.Generate(ctx, &oracle.Request{
			Model:   e.model,
			History: exec.History,
			Query:   summaryQuery(goal, texts),
		})
		if err != nil {
			return nil, fmt.Errorf("summarize: %w", err)
		}
		res.History = resp.History
		res.Result = append(res.Result, Output{Text: resp.Text})
		for _, o := range outputs {
			if o.Blob != nil {
				res.Result = append(res.Result, o)
			}
		}
	} else {
		res.Result = outputs
	}

	data, err := json.Marshal(res.Result)
	if err == nil {
		diagnostics.FromContext(ctx).Add("", nil, diagnostics.ClientSide, string(data))
	}
	return res, nil
}

// flatten expands entries in order. Text blocks and plain texts become
// texts; inline data becomes a blob followed by a note naming its type.
func flatten(entries []Entry, logger logging.Logger) ([]Output, []string) {
	logger = logging.OrNop(logger)
	var (
		outputs []Output
		texts   []string
	)
	addText := func(s string) {
		outputs = append(outputs, Output{Text: s})
		texts = append(texts, s)
	}

	for _, en := range entries {
		c := en.Content
		switch {
		case c == nil:
			addText(en.Text)
		case c.IsText():
			addText(c.Text)
		case c.HasData():
			data, err := base64.StdEncoding.DecodeString(c.Data)
			if err != nil {
				logger.Warn("content data is not base64", logging.String("mimeType", c.MimeType), logging.ErrorField(err))
				addText(msgFileOmitted)
				continue
			}
			outputs = append(outputs, Output{Blob: &Blob{MimeType: c.MimeType, Data: data}})
			addText(fmt.Sprintf(`The data of mimeType "%s" could be downloaded.`, c.MimeType))
		default:
			addText(msgFileOmitted)
		}
	}
	return outputs, texts
}
