package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ajitpratap0/mcp-gateway/pkg/catalog"
	"github.com/ajitpratap0/mcp-gateway/pkg/diagnostics"
	mcperrors "github.com/ajitpratap0/mcp-gateway/pkg/errors"
	"github.com/ajitpratap0/mcp-gateway/pkg/logging"
	"github.com/ajitpratap0/mcp-gateway/pkg/observability"
	"github.com/ajitpratap0/mcp-gateway/pkg/protocol"
)

// MethodBatchProcess is the method recorded on the summary row of a batch
const MethodBatchProcess = "batch process"

var (
	// ErrMissingItems is returned by NewRouter without a catalog to serve
	ErrMissingItems = errors.New("server: no catalog items configured")

	// ErrLockTimeout is returned by Handle when the server lock could not be
	// acquired in time. It is not a JSON-RPC error; transports should fail
	// the whole request.
	ErrLockTimeout = mcperrors.ErrLockTimeout
)

// Router answers JSON-RPC bodies from an aggregated catalog
type Router struct {
	source      catalog.Source
	accessKey   string
	useLock     bool
	lockTimeout time.Duration
	lock        *Lock
	tieBreak    catalog.TieBreak

	sink         diagnostics.Sink
	payloadLimit int
	logger       logging.Logger
	metrics      observability.Metrics
	tracer       *observability.TracingProvider
	now          func() time.Time
}

// NewRouter creates a router over source. By default every request runs
// under the server lock with a 350 second timeout.
func NewRouter(source catalog.Source, opts ...RouterOption) (*Router, error) {
	if source == nil || len(source.Items()) == 0 {
		return nil, ErrMissingItems
	}

	r := &Router{
		source:       source,
		useLock:      true,
		lockTimeout:  DefaultLockTimeout,
		lock:         NewLock(),
		tieBreak:     catalog.TieBreakLonger,
		payloadLimit: diagnostics.MaxPayloadLen,
		logger:       logging.NewNop(),
		metrics:      observability.NopMetrics{},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithFields(logging.String("component", "router"))
	return r, nil
}

// Handle processes one request body, a single JSON-RPC object or an array
// of them, and returns the encoded reply. A nil reply with a nil error means
// there is nothing to send back. The only error returned is ErrLockTimeout.
func (r *Router) Handle(ctx context.Context, body []byte, accessKey string) ([]byte, error) {
	start := r.now()
	rec := diagnostics.NewRecorder(r.sink, diagnostics.WithDate(start), diagnostics.WithPayloadLimit(r.payloadLimit))
	ctx = diagnostics.NewContext(ctx, rec)

	ctx, span := r.tracer.StartSpan(ctx, "router.handle")
	defer span.End()
	defer func() {
		if err := rec.Flush(context.WithoutCancel(ctx)); err != nil {
			r.logger.Warn("failed to flush diagnostics", logging.ErrorField(err))
		}
	}()

	reqs, batch, decodeErr := protocol.DecodeMessage(body)
	span.SetAttributes(attribute.Bool("mcp.batch", batch), attribute.Int("mcp.requests", len(reqs)))

	if r.needsLock(reqs) {
		waitStart := time.Now()
		acquired := r.lock.TryLock(ctx, r.lockTimeout)
		r.metrics.RecordLockWait(time.Since(waitStart), acquired)
		if !acquired {
			rec.Add("", nil, diagnostics.AtServer, mcperrors.MsgTimeout)
			r.logger.Error("server lock not acquired", logging.Duration("timeout", r.lockTimeout))
			observability.RecordError(ctx, ErrLockTimeout)
			return nil, ErrLockTimeout
		}
		defer r.lock.Unlock()
	}

	// access is checked before the body is parsed
	if r.accessKey != "" && !secureCompare(accessKey, r.accessKey) {
		rec.Add("", nil, diagnostics.AtServer, mcperrors.MsgInvalidAccessKey)
		r.logger.Warn("rejected request with invalid access key")
		return encode(mcperrors.ToResponse(nil, mcperrors.InvalidAccessKey()))
	}

	if decodeErr != nil {
		rec.Add("", nil, diagnostics.AtServer, decodeErr.Error())
		r.logger.Debug("unparseable request body", logging.ErrorField(decodeErr))
		return encode(protocol.NewErrorResponse(nil, protocol.ParseError, "Parse error."))
	}

	tables := catalog.Aggregate(r.source.Items(),
		catalog.WithTieBreak(r.tieBreak),
		catalog.WithLogger(r.logger),
	)

	responses := make([]*protocol.Response, 0, len(reqs))
	for _, req := range reqs {
		if resp := r.dispatch(ctx, tables, req); resp != nil {
			responses = append(responses, resp)
		}
	}
	r.metrics.RecordBatch(len(reqs), r.now().Sub(start))

	if len(responses) == 0 {
		return nil, nil
	}
	if !batch {
		return encode(responses[0])
	}

	data, err := json.Marshal(responses)
	if err != nil {
		return nil, fmt.Errorf("encode batch response: %w", err)
	}
	rec.Add(MethodBatchProcess, nil, diagnostics.ServerToClient, string(data))
	return data, nil
}

func (r *Router) needsLock(reqs []*protocol.Request) bool {
	if r.useLock {
		return true
	}
	for _, req := range reqs {
		if req.HasMethod() && protocol.IsLifecycleMethod(req.Method) {
			return true
		}
	}
	return false
}

// dispatch resolves one request. Requests without a method and methods
// neither table knows produce no response.
func (r *Router) dispatch(ctx context.Context, tables *catalog.Tables, req *protocol.Request) *protocol.Response {
	if !req.HasMethod() {
		return nil
	}
	method := protocol.NormalizeMethod(req.Method)
	id := req.ResponseID()
	rec := diagnostics.FromContext(ctx)

	if raw, err := json.Marshal(req); err == nil {
		rec.Add(method, id, diagnostics.ClientToServer, string(raw))
	}

	ctx, span := r.tracer.StartMethodSpan(ctx, method, trace.SpanKindServer)
	defer span.End()

	start := time.Now()
	resp, outcome := r.resolve(ctx, tables, method, id, decodeParams(req.Params))
	r.metrics.RecordRequest(method, outcome, time.Since(start))

	if resp == nil {
		rec.Addf(method, id, diagnostics.ServerToClient, "Return no value to ID %s.", idString(id))
		return nil
	}
	if resp.Error != nil {
		observability.RecordError(ctx, resp.Error)
	}
	if data, err := json.Marshal(resp); err == nil {
		rec.Add(method, id, diagnostics.ServerToClient, string(data))
	}
	return resp
}

func (r *Router) resolve(ctx context.Context, tables *catalog.Tables, method string, id interface{}, params protocol.CallParams) (*protocol.Response, string) {
	if entry, ok := tables.Response(method); ok {
		tmpl := entry.Static
		if entry.Kind == catalog.EntryNamed {
			name := params.Name
			if name == "" {
				name = params.URI
			}
			if tmpl, ok = entry.Lookup(name); !ok {
				return mcperrors.ToResponse(id, mcperrors.PromptNotFound(name)), observability.OutcomeError
			}
		}
		resp, err := tmpl.Render(id, params.Arguments)
		if err != nil {
			return mcperrors.ToResponse(id, err), observability.OutcomeError
		}
		return resp, observability.OutcomeOK
	}

	if tables.Functions(method) {
		return r.invoke(ctx, tables, method, id, params)
	}

	r.logger.Debug("no entry for method", logging.String("method", method))
	return nil, observability.OutcomeNoReply
}

// invoke calls the handler addressed by params.name, falling back to
// params.uri. URI-addressed handlers receive no arguments.
func (r *Router) invoke(ctx context.Context, tables *catalog.Tables, method string, id interface{}, params protocol.CallParams) (resp *protocol.Response, outcome string) {
	var (
		h    catalog.Handler
		args map[string]interface{}
		ok   bool
	)
	if params.Name != "" {
		h, ok = tables.Function(method, params.Name)
		args = params.Arguments
	}
	if !ok && params.URI != "" {
		h, ok = tables.Function(method, params.URI)
		args = nil
	}
	if !ok {
		return mcperrors.ToResponse(id, mcperrors.MethodDidNotWork(method)), observability.OutcomeError
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("handler panicked", logging.String("method", method), logging.Any("panic", p))
			resp = mcperrors.ToResponse(id, mcperrors.HandlerFailed(method, fmt.Errorf("%v", p)))
			outcome = observability.OutcomeError
		}
	}()

	reply, err := h(ctx, args)
	if err == nil {
		resp, err = reply.Response(id)
	}
	if err != nil {
		r.logger.WithError(err).Warn("handler failed", logging.String("method", method))
		return mcperrors.ToResponse(id, mcperrors.HandlerFailed(method, err)), observability.OutcomeError
	}
	return resp, observability.OutcomeOK
}

// decodeParams reads name, uri and arguments from params, ignoring members
// of the wrong type.
func decodeParams(raw json.RawMessage) protocol.CallParams {
	var params protocol.CallParams
	if len(raw) == 0 {
		return params
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return params
	}
	params.Name, _ = m["name"].(string)
	params.URI, _ = m["uri"].(string)
	params.Arguments, _ = m["arguments"].(map[string]interface{})
	return params
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func idString(id interface{}) string {
	if id == nil {
		return "null"
	}
	return fmt.Sprint(id)
}

func encode(resp *protocol.Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return data, nil
}
