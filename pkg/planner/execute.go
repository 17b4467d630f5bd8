package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ajitpratap0/mcp-gateway/pkg/client"
	"github.com/ajitpratap0/mcp-gateway/pkg/logging"
	"github.com/ajitpratap0/mcp-gateway/pkg/observability"
	"github.com/ajitpratap0/mcp-gateway/pkg/oracle"
	"github.com/ajitpratap0/mcp-gateway/pkg/protocol"
)

// Outcome says whether the loop goes on after a step
type Outcome int

const (
	Continue Outcome = iota
	Stop
)

func (o Outcome) String() string {
	if o == Stop {
		return "stop"
	}
	return "continue"
}

// Entry is one thing a step produced: a plain text or a content block
// returned by a remote callable
type Entry struct {
	Text    string
	Content *protocol.Content
}

// StepResult is the outcome of one step
type StepResult struct {
	Step    Step
	Outcome Outcome
	Entries []Entry
	History oracle.History
}

// Execution is what Execute hands to Finalize
type Execution struct {
	Entries []Entry
	History oracle.History
	Stopped bool
}

// Execute runs the plan in order. Each step's history is the previous
// step's. A Stop outcome ends the loop and its history is not carried on.
func (e *Executor) Execute(ctx context.Context, plan Plan) (*Execution, error) {
	ctx, span := e.tracer.StartSpan(ctx, "planner.execute", attribute.Int("planner.steps", len(plan)))
	defer span.End()

	exec := &Execution{History: e.history.Clone()}
	instruction := executeInstruction(e.serverLines(), e.now(), e.loc)

	for i, step := range plan {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e.logger.Debug("running step",
			logging.Int("step", i+1),
			logging.String("function", step.Name),
			logging.String("task", step.Task))

		start := time.Now()
		res, outcome := e.runStep(ctx, instruction, step, exec.History)
		e.metrics.RecordPlanStep(step.Name, outcome, time.Since(start))

		exec.Entries = append(exec.Entries, res.Entries...)
		if res.Outcome == Stop {
			exec.Stopped = true
			e.logger.Info("process stopped", logging.Int("step", i+1), logging.String("function", step.Name))
			break
		}
		exec.History = res.History
	}
	return exec, nil
}

// runStep forces one function call and interprets the function's result.
// The second value is the metrics outcome label.
func (e *Executor) runStep(ctx context.Context, instruction string, step Step, history oracle.History) (StepResult, string) {
	ctx, span := e.tracer.StartSpan(ctx, "planner.step", attribute.String("planner.function", step.Name))
	defer span.End()

	fail := func(err error) (StepResult, string) {
		observability.RecordError(ctx, err)
		e.logger.Warn("step failed", logging.String("function", step.Name), logging.ErrorField(err))
		return StepResult{
			Step:    step,
			Outcome: Continue,
			Entries: []Entry{{Text: fmt.Sprintf("Task: %s, Result: %s", step.Task, err)}},
			History: history,
		}, observability.OutcomeError
	}

	fn, ok := e.session.Functions.Get(step.Name)
	if !ok {
		return fail(fmt.Errorf("no function named %q", step.Name))
	}

	resp, err := e.oracle.Generate(ctx, &oracle.Request{
		Model:             e.model,
		SystemInstruction: instruction,
		History:           history,
		Query:             taskQuery(step.Task),
		Functions:         []oracle.FunctionDeclaration{fn.Declaration()},
		ToolConfig:        oracle.ForceFunction(fn.Name),
	})
	if err != nil {
		return fail(err)
	}

	if resp.FunctionCall == nil {
		res := StepResult{Step: step, Outcome: Continue, History: resp.History}
		if resp.Text != "" {
			res.Entries = []Entry{{Text: resp.Text}}
		}
		return res, observability.OutcomeNoReply
	}

	value, err := fn.Invoke(ctx, resp.FunctionCall.Args)
	if err != nil {
		res, label := fail(err)
		res.History = resp.History.AppendFunctionResponse(fn.Name, res.Entries[0].Text)
		return res, label
	}

	res := e.interpret(step, fn.Name, value, resp.History)
	if res.Outcome == Stop {
		return res, observability.OutcomeStop
	}
	return res, observability.OutcomeOK
}

// interpret turns a function's return value into entries and the history
// turn that answers the function call
func (e *Executor) interpret(step Step, name string, value interface{}, history oracle.History) StepResult {
	res := StepResult{Step: step, Outcome: Continue}

	if text, ok := value.(string); ok {
		var envelope struct {
			Result *struct {
				Content []protocol.Content `json:"content"`
			} `json:"result"`
			Error *protocol.Error `json:"error"`
		}
		if err := json.Unmarshal([]byte(text), &envelope); err != nil {
			e.logger.Warn("function result is not a JSON-RPC response", logging.String("function", name), logging.ErrorField(err))
			res.Entries = []Entry{{Text: text}}
			res.History = history.AppendFunctionResponse(name, text)
			return res
		}
		if envelope.Error != nil {
			msg := fmt.Sprintf("Task: %s, Result: %s", step.Task, envelope.Error.Message)
			e.logger.Warn("function returned an error", logging.String("function", name), logging.Int("code", int(envelope.Error.Code)))
			res.Entries = []Entry{{Text: msg}}
			res.History = history.AppendFunctionResponse(name, msg)
			return res
		}
		if envelope.Result == nil || len(envelope.Result.Content) == 0 {
			res.History = history.AppendFunctionResponse(name, text)
			return res
		}
		var texts []string
		for i := range envelope.Result.Content {
			c := envelope.Result.Content[i]
			res.Entries = append(res.Entries, Entry{Content: &c})
			if c.IsText() {
				texts = append(texts, c.Text)
			}
		}
		res.History = history.AppendFunctionResponse(name, strings.Join(texts, "\n"))
		return res
	}

	tr, err := taskResult(value)
	if err != nil {
		e.logger.Warn("function result has an unexpected shape", logging.String("function", name), logging.ErrorField(err))
		raw := stringify(value)
		res.Entries = []Entry{{Text: raw}}
		res.History = history.AppendFunctionResponse(name, raw)
		return res
	}

	var msg string
	switch {
	case tr.Task != "" && present(tr.Result):
		if pc, ok := processCheck(name, tr.Result); ok {
			if pc.StopProcess {
				res.Outcome = Stop
				res.Entries = []Entry{{Text: fmt.Sprintf("Task: %s. The process was stopped. The reason for this is as follows. %s", tr.Task, pc.Reason)}}
				res.History = history
				return res
			}
			msg = fmt.Sprintf("Task: %s. Continue the process without errors.", tr.Task)
		} else {
			msg = fmt.Sprintf("Task: %s, Result: %s", tr.Task, stringify(tr.Result))
		}
	case present(tr.Result):
		msg = fmt.Sprintf("Task: %s, Result: %s", step.Task, stringify(tr.Result))
	default:
		msg = "No response was returned."
	}
	res.Entries = []Entry{{Text: msg}}
	res.History = history.AppendFunctionResponse(name, msg)
	return res
}

func taskResult(value interface{}) (client.TaskResult, error) {
	switch v := value.(type) {
	case client.TaskResult:
		return v, nil
	case *client.TaskResult:
		if v != nil {
			return *v, nil
		}
		return client.TaskResult{}, nil
	case nil:
		return client.TaskResult{}, nil
	}
	var tr client.TaskResult
	if err := client.DecodeArgs(value, &tr); err != nil {
		return client.TaskResult{}, err
	}
	return tr, nil
}

// processCheck reports whether result is a check_process answer
func processCheck(name string, result interface{}) (client.ProcessCheck, bool) {
	switch v := result.(type) {
	case client.ProcessCheck:
		return v, true
	case *client.ProcessCheck:
		if v == nil {
			return client.ProcessCheck{}, false
		}
		return *v, true
	}
	if name != client.FuncCheckProcess {
		return client.ProcessCheck{}, false
	}
	var pc client.ProcessCheck
	if err := client.DecodeArgs(result, &pc); err != nil {
		return client.ProcessCheck{}, false
	}
	return pc, true
}

func present(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	}
	return true
}

func stringify(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// serverLines lists the initialized servers as "Name: x, Version: y"
func (e *Executor) serverLines() []string {
	var lines []string
	for _, s := range e.session.Servers() {
		lines = append(lines, fmt.Sprintf("Name: %s, Version: %s", s.Name, s.Version))
	}
	return lines
}
