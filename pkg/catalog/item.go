// Package catalog turns declared capability items into the tables the
// router dispatches on.
//
// An Item is one of InitializeItem, ToolItem, ResourcesItem, PromptsItem or
// PromptGetItem. Aggregate merges a sequence of items into Tables: a
// response table of ready-made JSON-RPC templates keyed by method, and a
// function table of Handlers keyed by method and callable name.
//
// Catalogs can also be declared in YAML (Parse, LoadFile) and reloaded on
// change (WatchedSource).
package catalog

import (
	"context"

	"github.com/ajitpratap0/mcp-gateway/pkg/protocol"
)

// Kind is the method an item contributes to
type Kind string

const (
	KindInitialize    Kind = protocol.MethodInitialize
	KindToolsList     Kind = protocol.MethodToolsList
	KindResourcesList Kind = protocol.MethodResourcesList
	KindPromptsList   Kind = protocol.MethodPromptsList
	KindPromptsGet    Kind = protocol.MethodPromptsGet
)

// Item is a declared unit of server functionality. The set of
// implementations is closed.
type Item interface {
	Kind() Kind
	isItem()
}

// Handler serves one callable. args is nil for resources.
type Handler func(ctx context.Context, args map[string]interface{}) (Reply, error)

// InitializeItem declares the initialize result
type InitializeItem struct {
	Result protocol.InitializeResult
}

// ToolItem declares one tool, optionally bound to a handler for tools/call
type ToolItem struct {
	Tool    protocol.Tool
	Handler Handler
}

// ResourcesItem declares a whole resources/list result. Handlers serve
// resources/read and are keyed by resource uri or name.
type ResourcesItem struct {
	Result   protocol.ListResourcesResult
	Handlers map[string]Handler
}

// PromptsItem declares a prompts/list result
type PromptsItem struct {
	Result protocol.ListPromptsResult
}

// PromptGetItem declares prompts/get results: either one Direct template
// served for every prompt name, or Named templates keyed by prompt name.
type PromptGetItem struct {
	Direct *protocol.GetPromptResult
	Named  map[string]protocol.GetPromptResult
}

func (InitializeItem) Kind() Kind { return KindInitialize }
func (ToolItem) Kind() Kind       { return KindToolsList }
func (ResourcesItem) Kind() Kind  { return KindResourcesList }
func (PromptsItem) Kind() Kind    { return KindPromptsList }
func (PromptGetItem) Kind() Kind  { return KindPromptsGet }

func (InitializeItem) isItem() {}
func (ToolItem) isItem()       {}
func (ResourcesItem) isItem()  {}
func (PromptsItem) isItem()    {}
func (PromptGetItem) isItem()  {}
