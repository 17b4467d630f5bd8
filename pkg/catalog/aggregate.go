package catalog

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ajitpratap0/mcp-gateway/pkg/logging"
	"github.com/ajitpratap0/mcp-gateway/pkg/protocol"
)

// TieBreak decides whether candidate replaces current when two items
// declare the same single-valued result. Both arguments are JSON.
type TieBreak func(current, candidate []byte) bool

// TieBreakLonger keeps the longer serialized result. Ties keep current.
func TieBreakLonger(current, candidate []byte) bool { return len(current) < len(candidate) }

// TieBreakFirst always keeps the first declaration
func TieBreakFirst(current, candidate []byte) bool { return false }

// TieBreakLast always keeps the last declaration
func TieBreakLast(current, candidate []byte) bool { return true }

// EntryKind tags a response table entry
type EntryKind int

const (
	// EntryStatic is one template answering every call of the method
	EntryStatic EntryKind = iota
	// EntryNamed holds one template per name (prompts/get)
	EntryNamed
)

// Entry is one response table value
type Entry struct {
	Kind   EntryKind
	Static *Template
	Named  map[string]*Template
}

// Lookup returns the named template for name
func (e *Entry) Lookup(name string) (*Template, bool) {
	t, ok := e.Named[name]
	return t, ok
}

// Tables is the result of Aggregate
type Tables struct {
	responses map[string]*Entry
	functions map[string]map[string]Handler
}

// Response returns the response table entry for a normalized method
func (t *Tables) Response(method string) (*Entry, bool) {
	e, ok := t.responses[method]
	return e, ok
}

// Functions reports whether any handler is registered for method
func (t *Tables) Functions(method string) bool {
	_, ok := t.functions[method]
	return ok
}

// Function returns the handler registered for method and name
func (t *Tables) Function(method, name string) (Handler, bool) {
	h, ok := t.functions[method][name]
	return h, ok
}

// Methods returns the methods of the response table, sorted
func (t *Tables) Methods() []string {
	out := make([]string, 0, len(t.responses))
	for m := range t.responses {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// FunctionNames returns the callable names registered for method, sorted
func (t *Tables) FunctionNames(method string) []string {
	out := make([]string, 0, len(t.functions[method]))
	for n := range t.functions[method] {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

type aggregateOptions struct {
	tieBreak TieBreak
	logger   logging.Logger
}

// AggregateOption configures Aggregate
type AggregateOption func(*aggregateOptions)

// WithTieBreak sets the policy for duplicate initialize, resources/list and
// direct prompts/get declarations
func WithTieBreak(tb TieBreak) AggregateOption {
	return func(o *aggregateOptions) {
		if tb != nil {
			o.tieBreak = tb
		}
	}
}

// WithLogger sets the logger that receives duplicate and malformed item warnings
func WithLogger(l logging.Logger) AggregateOption {
	return func(o *aggregateOptions) { o.logger = logging.OrNop(l) }
}

// aggregator accumulates typed results before they are frozen into templates
type aggregator struct {
	opts aggregateOptions

	initialize *protocol.InitializeResult
	tools      []protocol.Tool
	resources  *protocol.ListResourcesResult
	prompts    *protocol.ListPromptsResult
	promptGet  *protocol.GetPromptResult
	promptSet  map[string]protocol.GetPromptResult

	functions map[string]map[string]Handler
}

// Aggregate merges items into response and function tables. Items that
// cannot be merged are skipped with a warning; Aggregate never fails.
//
// Tools are deduplicated by name with the first declaration kept. The other
// kinds merge: initialize and resources/list through the tie-break policy,
// prompts/list by union sorted by name, prompts/get into one direct template
// or a set of named ones.
func Aggregate(items []Item, opts ...AggregateOption) *Tables {
	a := &aggregator{
		opts: aggregateOptions{
			tieBreak: TieBreakLonger,
			logger:   logging.NewNop(),
		},
		functions: make(map[string]map[string]Handler),
	}
	for _, opt := range opts {
		opt(&a.opts)
	}

	seen := make(map[string]bool)
	for _, item := range items {
		switch it := item.(type) {
		case InitializeItem:
			a.mergeInitialize(it)
		case *InitializeItem:
			a.mergeInitialize(*it)
		case ToolItem:
			a.addTool(it, seen)
		case *ToolItem:
			a.addTool(*it, seen)
		case ResourcesItem:
			a.mergeResources(it)
		case *ResourcesItem:
			a.mergeResources(*it)
		case PromptsItem:
			a.mergePrompts(it)
		case *PromptsItem:
			a.mergePrompts(*it)
		case PromptGetItem:
			a.mergePromptGet(it)
		case *PromptGetItem:
			a.mergePromptGet(*it)
		case nil:
		default:
			a.opts.logger.Warn("skipping unknown catalog item", logging.String("type", fmt.Sprintf("%T", item)))
		}
	}
	return a.freeze()
}

func (a *aggregator) addTool(it ToolItem, seen map[string]bool) {
	name := it.Tool.Name
	if name == "" {
		a.opts.logger.Warn("skipping tool without a name")
		return
	}
	if seen[name] {
		a.opts.logger.Warn(fmt.Sprintf(`"%s" is duplicated. So, this is removed.`, name),
			logging.String("kind", string(KindToolsList)))
		return
	}
	seen[name] = true
	a.tools = append(a.tools, it.Tool)
	if it.Handler != nil {
		a.register(protocol.MethodToolsCall, name, it.Handler)
	}
}

func (a *aggregator) mergeInitialize(it InitializeItem) {
	if a.initialize == nil || a.replaces(a.initialize, it.Result) {
		r := it.Result
		a.initialize = &r
	}
}

func (a *aggregator) mergeResources(it ResourcesItem) {
	if a.resources == nil || a.replaces(a.resources, it.Result) {
		r := it.Result
		a.resources = &r
	}
	for key, h := range it.Handlers {
		if h == nil {
			continue
		}
		a.register(protocol.MethodResourcesRead, key, h)
	}
	// resources may also be addressed by the other identifier
	for _, res := range it.Result.Resources {
		if h, ok := it.Handlers[res.URI]; ok && h != nil && res.Name != "" {
			if _, exists := it.Handlers[res.Name]; !exists {
				a.register(protocol.MethodResourcesRead, res.Name, h)
			}
		}
		if h, ok := it.Handlers[res.Name]; ok && h != nil && res.URI != "" {
			if _, exists := it.Handlers[res.URI]; !exists {
				a.register(protocol.MethodResourcesRead, res.URI, h)
			}
		}
	}
}

func (a *aggregator) mergePrompts(it PromptsItem) {
	if a.prompts == nil {
		a.prompts = &protocol.ListPromptsResult{Prompts: []protocol.Prompt{}}
	}
	a.prompts.Prompts = append(a.prompts.Prompts, it.Result.Prompts...)
	sort.SliceStable(a.prompts.Prompts, func(i, j int) bool {
		return a.prompts.Prompts[i].Name < a.prompts.Prompts[j].Name
	})
}

func (a *aggregator) mergePromptGet(it PromptGetItem) {
	switch {
	case it.Direct == nil && len(it.Named) == 0:
		a.opts.logger.Warn("skipping empty prompts/get item")
	case it.Direct != nil && a.promptSet != nil, it.Direct == nil && a.promptGet != nil:
		a.opts.logger.Warn("skipping prompts/get item: cannot mix a direct template with named templates")
	case it.Direct != nil:
		if a.promptGet == nil || a.replaces(a.promptGet, *it.Direct) {
			p := *it.Direct
			a.promptGet = &p
		}
	default:
		if a.promptSet == nil {
			a.promptSet = make(map[string]protocol.GetPromptResult, len(it.Named))
		}
		for name, p := range it.Named {
			a.promptSet[name] = p
		}
	}
}

func (a *aggregator) replaces(current, candidate interface{}) bool {
	cur, err1 := json.Marshal(current)
	cand, err2 := json.Marshal(candidate)
	if err1 != nil || err2 != nil {
		return false
	}
	return a.opts.tieBreak(cur, cand)
}

func (a *aggregator) register(method, name string, h Handler) {
	if a.functions[method] == nil {
		a.functions[method] = make(map[string]Handler)
	}
	a.functions[method][name] = h
}

func (a *aggregator) freeze() *Tables {
	t := &Tables{
		responses: make(map[string]*Entry),
		functions: a.functions,
	}

	static := func(method string, result interface{}) {
		tmpl, err := newTemplate(result)
		if err != nil {
			a.opts.logger.Warn("skipping unserializable result", logging.String("method", method), logging.ErrorField(err))
			return
		}
		t.responses[method] = &Entry{Kind: EntryStatic, Static: tmpl}
	}

	if a.initialize != nil {
		static(protocol.MethodInitialize, *a.initialize)
	}
	if len(a.tools) > 0 {
		static(protocol.MethodToolsList, protocol.ListToolsResult{Tools: a.tools})
	}
	if a.resources != nil {
		static(protocol.MethodResourcesList, *a.resources)
	}
	if a.prompts != nil {
		static(protocol.MethodPromptsList, *a.prompts)
	}
	switch {
	case a.promptGet != nil:
		static(protocol.MethodPromptsGet, *a.promptGet)
	case a.promptSet != nil:
		entry := &Entry{Kind: EntryNamed, Named: make(map[string]*Template, len(a.promptSet))}
		for name, p := range a.promptSet {
			tmpl, err := newTemplate(p)
			if err != nil {
				a.opts.logger.Warn("skipping unserializable prompt", logging.String("name", name), logging.ErrorField(err))
				continue
			}
			entry.Named[name] = tmpl
		}
		t.responses[protocol.MethodPromptsGet] = entry
	}
	return t
}
