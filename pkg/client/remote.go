package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/ajitpratap0/mcp-gateway/pkg/catalog"
	"github.com/ajitpratap0/mcp-gateway/pkg/diagnostics"
	"github.com/ajitpratap0/mcp-gateway/pkg/logging"
	"github.com/ajitpratap0/mcp-gateway/pkg/protocol"
	"github.com/ajitpratap0/mcp-gateway/pkg/transport"
)

// remoteFunctions synthesizes a callable for every discovered resource,
// prompt and tool. Names are assumed unique across endpoints; a later
// endpoint silently replaces an earlier one.
func (b *Bootstrapper) remoteFunctions(live []*Endpoint, seq *atomic.Int64) *FunctionTable {
	table := NewFunctionTable()
	for _, ep := range live {
		for _, method := range protocol.DiscoveryMethods() {
			resp, ok := ep.Lists[method]
			if !ok {
				continue
			}
			fns, err := b.synthesize(ep.URL, method, resp.Result, seq)
			if err != nil {
				b.logger.Warn("skipping unreadable discovery result",
					logging.String("endpoint", ep.URL),
					logging.String("method", method),
					logging.ErrorField(err))
				continue
			}
			for _, fn := range fns {
				if table.Set(fn) {
					b.logger.Debug("remote function replaced",
						logging.String("name", fn.Name),
						logging.String("endpoint", ep.URL))
				}
			}
		}
	}
	return table
}

func (b *Bootstrapper) synthesize(url, method string, result json.RawMessage, seq *atomic.Int64) ([]*Function, error) {
	var fns []*Function
	switch method {
	case protocol.MethodResourcesList:
		var list protocol.ListResourcesResult
		if err := json.Unmarshal(result, &list); err != nil {
			return nil, err
		}
		for _, r := range list.Resources {
			uri := r.URI
			fns = append(fns, &Function{
				Name:        NormalizeName(r.Name),
				Description: r.Description,
				Invoke: b.remoteCall(url, protocol.MethodResourcesRead, seq, func(map[string]interface{}) protocol.CallParams {
					return protocol.CallParams{URI: uri}
				}),
			})
		}

	case protocol.MethodPromptsList:
		var list protocol.ListPromptsResult
		if err := json.Unmarshal(result, &list); err != nil {
			return nil, err
		}
		for _, p := range list.Prompts {
			name := p.Name
			fns = append(fns, &Function{
				Name:        NormalizeName(p.Name),
				Description: p.Description,
				Parameters:  promptSchema(p.Arguments),
				Invoke: b.remoteCall(url, protocol.MethodPromptsGet, seq, func(args map[string]interface{}) protocol.CallParams {
					return protocol.CallParams{Name: name, Arguments: args}
				}),
			})
		}

	case protocol.MethodToolsList:
		var list protocol.ListToolsResult
		if err := json.Unmarshal(result, &list); err != nil {
			return nil, err
		}
		for _, t := range list.Tools {
			name := t.Name
			fns = append(fns, &Function{
				Name:        NormalizeName(t.Name),
				Description: t.Description,
				Parameters:  t.InputSchema,
				Invoke: b.remoteCall(url, protocol.MethodToolsCall, seq, func(args map[string]interface{}) protocol.CallParams {
					return protocol.CallParams{Name: name, Arguments: args}
				}),
			})
		}

	default:
		return nil, fmt.Errorf("not a discovery method: %s", method)
	}

	out := fns[:0]
	for _, fn := range fns {
		if fn.Name == "" {
			continue
		}
		fn.Source = SourceRemote
		fn.Endpoint = url
		out = append(out, fn)
	}
	return out, nil
}

// promptSchema turns prompt arguments into an object schema of required
// strings
func promptSchema(args []protocol.PromptArgument) map[string]interface{} {
	if len(args) == 0 {
		return nil
	}
	props := make(map[string]interface{}, len(args))
	required := make([]string, 0, len(args))
	for _, a := range args {
		props[a.Name] = stringProperty(a.Description)
		required = append(required, a.Name)
	}
	return objectSchema(required, props)
}

// remoteCall returns an invoker that posts method to url and returns the
// response body text
func (b *Bootstrapper) remoteCall(url, method string, seq *atomic.Int64, params func(map[string]interface{}) protocol.CallParams) Invoker {
	return func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		id := seq.Add(1)
		req, err := protocol.NewRequest(id, method, params(args))
		if err != nil {
			return nil, err
		}
		call, err := transport.PostJSON(url, req, method)
		if err != nil {
			return nil, err
		}

		rec := diagnostics.FromContext(ctx)
		rec.Add(method, id, diagnostics.ClientToServer, string(call.Body))

		r := b.fetcher.FetchAll(ctx, []transport.Call{call})[0]
		if r.Err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, url, r.Err)
		}
		rec.Add(method, id, diagnostics.ServerToClient, string(r.Body))
		if r.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%s %s: HTTP %d", method, url, r.StatusCode)
		}
		return string(r.Body), nil
	}
}

// localFunctions collects statically bound tools and user callables, in
// that order
func (b *Bootstrapper) localFunctions(seq *atomic.Int64) (*FunctionTable, error) {
	table := NewFunctionTable()
	for _, item := range b.static {
		var tool catalog.ToolItem
		switch it := item.(type) {
		case catalog.ToolItem:
			tool = it
		case *catalog.ToolItem:
			if it == nil {
				continue
			}
			tool = *it
		default:
			continue
		}
		if tool.Handler == nil {
			continue
		}
		table.Set(&Function{
			Name:        tool.Tool.Name,
			Description: tool.Tool.Description,
			Parameters:  tool.Tool.InputSchema,
			Invoke:      staticCall(tool.Handler, seq),
			Source:      SourceStatic,
		})
	}
	for _, fn := range b.user {
		if fn == nil || fn.Invoke == nil {
			return nil, fmt.Errorf("user function %q has no invoker", nameOf(fn))
		}
		if fn.Source == "" {
			fn.Source = SourceUser
		}
		table.Set(fn)
	}
	return table, nil
}

// staticCall adapts a catalog handler so that it answers like a remote
// tools/call
func staticCall(h catalog.Handler, seq *atomic.Int64) Invoker {
	return func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		reply, err := h(ctx, args)
		if err != nil {
			return nil, err
		}
		resp, err := reply.Response(seq.Add(1))
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(resp)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	}
}

func nameOf(fn *Function) string {
	if fn == nil {
		return ""
	}
	return fn.Name
}
