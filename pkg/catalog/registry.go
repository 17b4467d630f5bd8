package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// HandlerRegistry maps handler names used in catalog files to Handlers
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewHandlerRegistry returns a registry preloaded with the built-in
// handlers "echo" and "current_time".
func NewHandlerRegistry() *HandlerRegistry {
	r := &HandlerRegistry{handlers: make(map[string]Handler)}
	r.Register("echo", echoHandler)
	r.Register("current_time", currentTimeHandler)
	return r
}

// Register adds or replaces a handler
func (r *HandlerRegistry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// Get returns the handler registered under name
func (r *HandlerRegistry) Get(name string) (Handler, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the registered handler names, sorted
func (r *HandlerRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for n := range r.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// echoHandler returns the "text" argument, or all arguments as JSON
func echoHandler(_ context.Context, args map[string]interface{}) (Reply, error) {
	if s, ok := args["text"].(string); ok {
		return Text(s), nil
	}
	b, err := json.Marshal(args)
	if err != nil {
		return Reply{}, err
	}
	return Text(string(b)), nil
}

// currentTimeHandler returns the current time in the "timezone" argument,
// UTC by default
func currentTimeHandler(_ context.Context, args map[string]interface{}) (Reply, error) {
	loc := time.UTC
	if tz, ok := args["timezone"].(string); ok && tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return Reply{}, fmt.Errorf("unknown timezone %q", tz)
		}
		loc = l
	}
	return Text(time.Now().In(loc).Format(time.RFC3339)), nil
}

// staticText returns a handler that always replies with text
func staticText(text string) Handler {
	return func(context.Context, map[string]interface{}) (Reply, error) {
		return Text(text), nil
	}
}
