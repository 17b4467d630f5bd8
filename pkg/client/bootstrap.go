package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ajitpratap0/mcp-gateway/pkg/catalog"
	"github.com/ajitpratap0/mcp-gateway/pkg/diagnostics"
	mcperrors "github.com/ajitpratap0/mcp-gateway/pkg/errors"
	"github.com/ajitpratap0/mcp-gateway/pkg/logging"
	"github.com/ajitpratap0/mcp-gateway/pkg/observability"
	"github.com/ajitpratap0/mcp-gateway/pkg/protocol"
	"github.com/ajitpratap0/mcp-gateway/pkg/transport"
)

const (
	// DefaultClientName and DefaultClientVersion identify the client in
	// initialize requests
	DefaultClientName    = "MCApp_client"
	DefaultClientVersion = "1.0.0"

	// CancelReason is sent with notifications/cancelled to endpoints that
	// did not initialize
	CancelReason = "Error: MCP error. InternalError: -32603"
)

// Endpoint is one remote MCP server of a session
type Endpoint struct {
	URL string
	// Initialize is nil when the handshake failed
	Initialize *protocol.InitializeResult
	// Lists holds the discovery responses that carried a result, by method
	Lists map[string]*protocol.Response
	// Err says why the handshake failed
	Err error
}

// Initialized reports whether the handshake succeeded
func (e *Endpoint) Initialized() bool {
	return e.Initialize != nil
}

// Session is the outcome of one bootstrap
type Session struct {
	ID        string
	Endpoints []*Endpoint
	Functions *FunctionTable

	// Failure is set when no endpoint initialized. The session is still
	// usable with the local callables.
	Failure error
}

// Initialized returns the endpoints whose handshake succeeded
func (s *Session) Initialized() []*Endpoint {
	var live []*Endpoint
	for _, ep := range s.Endpoints {
		if ep.Initialized() {
			live = append(live, ep)
		}
	}
	return live
}

// Servers returns the server identities announced by initialized endpoints
func (s *Session) Servers() []protocol.Implementation {
	var out []protocol.Implementation
	for _, ep := range s.Initialized() {
		if ep.Initialize.ServerInfo != nil {
			out = append(out, *ep.Initialize.ServerInfo)
		}
	}
	return out
}

// Bootstrapper establishes sessions against a fixed set of endpoints
type Bootstrapper struct {
	fetcher         transport.Fetcher
	urls            []string
	batch           bool
	static          []catalog.Item
	user            []*Function
	clientInfo      protocol.Implementation
	protocolVersion string
	logger          logging.Logger
	tracer          *observability.TracingProvider
}

// Option configures a Bootstrapper
type Option func(*Bootstrapper)

// WithBatchDiscovery sends all discovery requests for an endpoint as one
// JSON-RPC array
func WithBatchDiscovery(enabled bool) Option {
	return func(b *Bootstrapper) { b.batch = enabled }
}

// WithStaticItems binds catalog items directly. Every tool with a handler
// becomes a callable.
func WithStaticItems(items ...catalog.Item) Option {
	return func(b *Bootstrapper) { b.static = append(b.static, items...) }
}

// WithUserFunctions adds callables that take precedence over discovered ones
func WithUserFunctions(fns ...*Function) Option {
	return func(b *Bootstrapper) { b.user = append(b.user, fns...) }
}

// WithClientInfo sets the clientInfo sent with initialize
func WithClientInfo(name, version string) Option {
	return func(b *Bootstrapper) {
		b.clientInfo = protocol.Implementation{Name: name, Version: version}
	}
}

// WithProtocolVersion sets the protocolVersion sent with initialize
func WithProtocolVersion(v string) Option {
	return func(b *Bootstrapper) { b.protocolVersion = v }
}

// WithLogger sets the logger
func WithLogger(l logging.Logger) Option {
	return func(b *Bootstrapper) { b.logger = l }
}

// WithTracing wraps bootstrap in a span
func WithTracing(tp *observability.TracingProvider) Option {
	return func(b *Bootstrapper) { b.tracer = tp }
}

// NewBootstrapper creates a bootstrapper for urls. A nil fetcher uses a
// default transport.HTTPFetcher. Blank urls are ignored.
func NewBootstrapper(fetcher transport.Fetcher, urls []string, opts ...Option) *Bootstrapper {
	b := &Bootstrapper{
		fetcher:         fetcher,
		clientInfo:      protocol.Implementation{Name: DefaultClientName, Version: DefaultClientVersion},
		protocolVersion: protocol.DefaultProtocolVersion,
	}
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			b.urls = append(b.urls, u)
		}
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logging.OrNop(b.logger)
	if b.fetcher == nil {
		b.fetcher = transport.NewHTTPFetcher(transport.WithLogger(b.logger))
	}
	return b
}

// Bootstrap runs the handshake, the lifecycle notifications and capability
// discovery, then builds the session's function table. Diagnostic rows go
// to the recorder carried by ctx, if any.
//
// Endpoint failures do not fail the bootstrap. An error is returned only
// when ctx is done.
func (b *Bootstrapper) Bootstrap(ctx context.Context) (*Session, error) {
	ctx, span := b.tracer.StartSpan(ctx, "client.bootstrap", attribute.Int("mcp.endpoints", len(b.urls)))
	defer span.End()

	rec := diagnostics.FromContext(ctx)
	s := &Session{ID: uuid.NewString()}
	log := b.logger.WithFields(logging.String("session", s.ID))
	seq := &atomic.Int64{}

	local, err := b.localFunctions(seq)
	if err != nil {
		return nil, err
	}

	if len(b.urls) == 0 {
		rec.Add("", nil, diagnostics.AtClient, "No MCP URLs.")
		s.Functions = Builtins().Merge(local)
		log.Info("no MCP endpoints configured", logging.Int("functions", s.Functions.Len()))
		return s, nil
	}

	initID := seq.Load()
	endpoints, err := b.initialize(ctx, initID, rec)
	if err != nil {
		observability.RecordError(ctx, err)
		return nil, err
	}
	s.Endpoints = endpoints

	if err := b.notify(ctx, endpoints, initID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	live := s.Initialized()
	if len(live) == 0 {
		rec.Add(protocol.MethodInitialized, initID, diagnostics.AtClient, "Couldn't initialize MCPs.")
		s.Failure = mcperrors.NoServerInitialized(len(endpoints))
		s.Functions = Builtins().Merge(local)
		log.Warn("no MCP server initialized", logging.Int("endpoints", len(endpoints)))
		return s, nil
	}

	if b.batch {
		err = b.discoverBatched(ctx, live, seq)
	} else {
		err = b.discover(ctx, live, seq)
	}
	if err != nil {
		return nil, err
	}

	s.Functions = Builtins().Merge(b.remoteFunctions(live, seq)).Merge(local)
	log.Info("session ready",
		logging.Int("endpoints", len(endpoints)),
		logging.Int("initialized", len(live)),
		logging.Int("functions", s.Functions.Len()))
	return s, nil
}

func (b *Bootstrapper) initialize(ctx context.Context, id int64, rec *diagnostics.Recorder) ([]*Endpoint, error) {
	req, err := protocol.NewRequest(id, protocol.MethodInitialize, protocol.InitializeParams{
		ProtocolVersion: b.protocolVersion,
		Capabilities:    map[string]interface{}{},
		ClientInfo:      b.clientInfo,
	})
	if err != nil {
		return nil, err
	}

	calls := make([]transport.Call, len(b.urls))
	for i, u := range b.urls {
		if calls[i], err = transport.PostJSON(u, req, protocol.MethodInitialize); err != nil {
			return nil, err
		}
	}
	replies := b.fetcher.FetchAll(ctx, calls)

	endpoints := make([]*Endpoint, len(b.urls))
	for i, r := range replies {
		ep := &Endpoint{URL: b.urls[i], Lists: make(map[string]*protocol.Response)}
		endpoints[i] = ep
		if !r.OK() {
			ep.Err = replyErr(r)
			b.logger.Warn("initialize failed", logging.String("endpoint", ep.URL), logging.ErrorField(ep.Err))
			continue
		}
		rec.Add(protocol.MethodInitialize, id, diagnostics.ServerToClient, string(r.Body))

		resp, err := decodeResponse(r.Body)
		if err != nil {
			ep.Err = err
			b.logger.Warn("initialize returned an unreadable body", logging.String("endpoint", ep.URL), logging.ErrorField(err))
			continue
		}
		if resp.Error != nil {
			ep.Err = mcperrors.FromJSONRPCError(resp.Error).
				WithContext(&mcperrors.Context{Endpoint: ep.URL, Component: "client", Method: protocol.MethodInitialize})
			b.logger.WithError(ep.Err).Warn("initialize rejected", logging.String("endpoint", ep.URL))
			continue
		}
		var result protocol.InitializeResult
		if !resp.HasResult() {
			ep.Err = fmt.Errorf("initialize returned no result")
			continue
		}
		if err := json.Unmarshal(resp.Result, &result); err != nil {
			ep.Err = fmt.Errorf("decode initialize result: %w", err)
			continue
		}
		ep.Initialize = &result
	}
	return endpoints, nil
}

// notify sends notifications/initialized to initialized endpoints and
// notifications/cancelled to the rest. Failures are only logged.
func (b *Bootstrapper) notify(ctx context.Context, endpoints []*Endpoint, initID int64) error {
	calls := make([]transport.Call, 0, len(endpoints))
	for _, ep := range endpoints {
		var (
			n   *protocol.Notification
			err error
		)
		if ep.Initialized() {
			n, err = protocol.NewNotification(protocol.MethodInitialized, nil)
		} else {
			n, err = protocol.NewNotification(protocol.MethodCancelled, protocol.CancelledParams{
				RequestID: initID,
				Reason:    CancelReason,
			})
		}
		if err != nil {
			return err
		}
		call, err := transport.PostJSON(ep.URL, n, n.Method)
		if err != nil {
			return err
		}
		calls = append(calls, call)
	}

	for i, r := range b.fetcher.FetchAll(ctx, calls) {
		if r.Err != nil {
			b.logger.Debug("notification not delivered",
				logging.String("endpoint", calls[i].URL),
				logging.String("method", calls[i].Label),
				logging.ErrorField(r.Err))
		}
	}
	return nil
}

// discover sends each discovery method as its own fan-out
func (b *Bootstrapper) discover(ctx context.Context, live []*Endpoint, seq *atomic.Int64) error {
	for _, method := range protocol.DiscoveryMethods() {
		req, err := protocol.NewRequest(seq.Add(1), method, map[string]interface{}{})
		if err != nil {
			return err
		}
		calls := make([]transport.Call, len(live))
		for i, ep := range live {
			if calls[i], err = transport.PostJSON(ep.URL, req, method); err != nil {
				return err
			}
		}
		for i, r := range b.fetcher.FetchAll(ctx, calls) {
			if !r.OK() {
				continue
			}
			resp, err := decodeResponse(r.Body)
			if err != nil || !resp.HasResult() {
				continue
			}
			live[i].Lists[method] = resp
		}
	}
	return nil
}

// discoverBatched sends one JSON-RPC array per endpoint and matches the
// responses back to methods by id
func (b *Bootstrapper) discoverBatched(ctx context.Context, live []*Endpoint, seq *atomic.Int64) error {
	methods := protocol.DiscoveryMethods()
	batch := make([]*protocol.Request, 0, len(methods))
	methodByID := make(map[string]string, len(methods))
	for _, method := range methods {
		id := seq.Add(1)
		req, err := protocol.NewRequest(id, method, map[string]interface{}{})
		if err != nil {
			return err
		}
		batch = append(batch, req)
		methodByID[idKey(id)] = method
	}

	calls := make([]transport.Call, len(live))
	for i, ep := range live {
		var err error
		if calls[i], err = transport.PostJSON(ep.URL, batch, "discovery"); err != nil {
			return err
		}
	}
	for i, r := range b.fetcher.FetchAll(ctx, calls) {
		if !r.OK() {
			continue
		}
		var resps []*protocol.Response
		if err := json.Unmarshal(r.Body, &resps); err != nil {
			b.logger.Warn("discovery batch returned an unreadable body",
				logging.String("endpoint", live[i].URL), logging.ErrorField(err))
			continue
		}
		for _, resp := range resps {
			if resp == nil || !resp.HasResult() {
				continue
			}
			if method, ok := methodByID[idKey(resp.ID)]; ok {
				live[i].Lists[method] = resp
			}
		}
	}
	return nil
}

func decodeResponse(body []byte) (*protocol.Response, error) {
	var resp protocol.Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}

func replyErr(r transport.Reply) error {
	if r.Err != nil {
		return r.Err
	}
	return fmt.Errorf("HTTP %d", r.StatusCode)
}

// idKey renders a JSON-RPC id so that 3 and 3.0 match
func idKey(id interface{}) string {
	switch v := id.(type) {
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
	case json.Number:
		return v.String()
	}
	return fmt.Sprint(id)
}
