// Package planner turns a user goal into an ordered plan over the session's
// callables and executes it step by step with a reasoning oracle.
//
// A run has three phases. Plan asks the oracle for an ordered array of
// {name, task} steps. Execute runs the steps strictly in order, forcing the
// oracle to call exactly the step's function and threading the conversation
// history from one step to the next. A step returns Continue or Stop; Stop
// ends the loop early. Finalize flattens what the steps produced, decodes
// binary payloads and, when there is any text, asks the oracle for one
// summary answer.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ajitpratap0/mcp-gateway/pkg/client"
	"github.com/ajitpratap0/mcp-gateway/pkg/diagnostics"
	mcperrors "github.com/ajitpratap0/mcp-gateway/pkg/errors"
	"github.com/ajitpratap0/mcp-gateway/pkg/logging"
	"github.com/ajitpratap0/mcp-gateway/pkg/observability"
	"github.com/ajitpratap0/mcp-gateway/pkg/oracle"
	"github.com/ajitpratap0/mcp-gateway/pkg/protocol"
)

var (
	// ErrMissingOracle is returned by New without an oracle
	ErrMissingOracle = errors.New("planner: no oracle configured")

	// ErrMissingGoal is returned by Run and Plan for an empty goal
	ErrMissingGoal = errors.New("planner: goal is required")
)

// Step is one entry of a plan
type Step struct {
	Name string `json:"name"`
	Task string `json:"task"`
}

// Plan is the ordered list of steps
type Plan []Step

// String renders the plan as numbered function names
func (p Plan) String() string {
	lines := make([]string, len(p))
	for i, s := range p {
		lines[i] = fmt.Sprintf("%d: %s", i+1, s.Name)
	}
	return strings.Join(lines, "\n")
}

// Blob is a decoded binary payload
type Blob struct {
	MimeType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

// Output is one entry of the final result: a text or a blob
type Output struct {
	Text string `json:"text,omitempty"`
	Blob *Blob  `json:"blob,omitempty"`
}

// Result is the outcome of Run
type Result struct {
	Result  []Output
	History oracle.History
	Plan    Plan
	Stopped bool

	// Error is set instead of Result when planning produced no steps
	Error *protocol.Response
}

// Executor runs plans for one session
type Executor struct {
	oracle  oracle.Oracle
	session *client.Session
	model   string
	history oracle.History
	logger  logging.Logger
	metrics observability.Metrics
	tracer  *observability.TracingProvider
	now     func() time.Time
	loc     *time.Location
}

// Option configures an Executor
type Option func(*Executor)

// WithModel sets the model name passed with every oracle request
func WithModel(model string) Option {
	return func(e *Executor) { e.model = model }
}

// WithHistory seeds runs with a prior conversation
func WithHistory(h oracle.History) Option {
	return func(e *Executor) { e.history = h.Clone() }
}

// WithLogger sets the logger
func WithLogger(l logging.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithMetrics records step outcomes
func WithMetrics(m observability.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithTracing wraps phases and steps in spans
func WithTracing(tp *observability.TracingProvider) Option {
	return func(e *Executor) { e.tracer = tp }
}

// WithClock overrides the time source used in instructions
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// WithLocation sets the timezone announced to the model
func WithLocation(loc *time.Location) Option {
	return func(e *Executor) { e.loc = loc }
}

// New creates an executor. A nil session plans over the built-ins only.
func New(o oracle.Oracle, session *client.Session, opts ...Option) (*Executor, error) {
	if o == nil {
		return nil, ErrMissingOracle
	}
	if session == nil {
		session = &client.Session{}
	}
	if session.Functions == nil {
		session.Functions = client.Builtins()
	}
	e := &Executor{
		oracle:  o,
		session: session,
		model:   oracle.DefaultModel,
		now:     time.Now,
		loc:     time.Local,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.OrNop(e.logger)
	e.metrics = observability.OrNop(e.metrics)
	return e, nil
}

// Run plans, executes and finalizes goal. An empty plan is not an error:
// the returned Result carries an InternalError envelope instead.
func (e *Executor) Run(ctx context.Context, goal string) (*Result, error) {
	ctx, span := e.tracer.StartSpan(ctx, "planner.run")
	defer span.End()
	rec := diagnostics.FromContext(ctx)

	plan, err := e.Plan(ctx, goal)
	if err != nil {
		if !mcperrors.IsCode(err, mcperrors.CodePlanningFailed) {
			observability.RecordError(ctx, err)
			return nil, err
		}
		envelope := protocol.NewErrorResponse(nil, protocol.InternalError, mcperrors.MsgTryAgain)
		data, _ := json.Marshal(envelope)
		rec.Add("", nil, diagnostics.ClientSide, string(data))
		e.logger.Warn("planning produced no steps")
		return &Result{Error: envelope, History: e.history.Clone()}, nil
	}

	exec, err := e.Execute(ctx, plan)
	if err != nil {
		observability.RecordError(ctx, err)
		return nil, err
	}

	res, err := e.Finalize(ctx, goal, exec)
	if err != nil {
		observability.RecordError(ctx, err)
		return nil, err
	}
	res.Plan = plan
	return res, nil
}

// Plan asks the oracle for the ordered steps that resolve goal. An empty or
// malformed answer yields errors.PlanEmpty.
func (e *Executor) Plan(ctx context.Context, goal string) (Plan, error) {
	if strings.TrimSpace(goal) == "" {
		return nil, ErrMissingGoal
	}
	ctx, span := e.tracer.StartSpan(ctx, "planner.plan")
	defer span.End()

	resp, err := e.oracle.Generate(ctx, &oracle.Request{
		Model:             e.model,
		SystemInstruction: planInstruction(e.session.Functions.Declarations(), e.now(), e.loc),
		Query:             goalQuery(goal),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    planSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}

	var plan Plan
	if err := resp.Decode(&plan); err != nil {
		e.logger.Warn("plan is not an array of steps", logging.ErrorField(err))
		return nil, mcperrors.PlanEmpty()
	}
	if len(plan) == 0 {
		return nil, mcperrors.PlanEmpty()
	}

	span.SetAttributes(attribute.Int("planner.steps", len(plan)))
	e.logger.Info("Task will be processed in the following order.\n" + plan.String())
	return plan, nil
}
