package catalog

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/mcp-gateway/pkg/protocol"
)

// File is the YAML form of a catalog
//
//	initialize:
//	  protocolVersion: "2024-11-05"
//	  serverInfo: {name: sample, version: 1.0.0}
//	tools:
//	  - name: echo
//	    description: Echo the text argument
//	    inputSchema: {type: object, properties: {text: {type: string}}}
//	    handler: echo
//	resources:
//	  - uri: notes://today
//	    name: today
//	    text: "Nothing scheduled."
//	prompts:
//	  - name: greet
//	    arguments: [{name: who, required: true}]
//	    messages:
//	      - role: user
//	        content: {type: text, text: "Say hello to {{who}}."}
type File struct {
	Initialize *fileInitialize `yaml:"initialize"`
	Tools      []fileTool      `yaml:"tools"`
	Resources  []fileResource  `yaml:"resources"`
	Prompts    []filePrompt    `yaml:"prompts"`
}

type fileInitialize struct {
	ProtocolVersion string                 `yaml:"protocolVersion"`
	Capabilities    map[string]interface{} `yaml:"capabilities"`
	ServerInfo      *fileImplementation    `yaml:"serverInfo"`
	Instructions    string                 `yaml:"instructions"`
}

type fileImplementation struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type fileTool struct {
	Name        string                 `yaml:"name"`
	Description string                 `yaml:"description"`
	InputSchema map[string]interface{} `yaml:"inputSchema"`
	Handler     string                 `yaml:"handler"`
	Response    string                 `yaml:"response"`
}

type fileResource struct {
	URI         string `yaml:"uri"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	MimeType    string `yaml:"mimeType"`
	Handler     string `yaml:"handler"`
	Text        string `yaml:"text"`
}

type filePrompt struct {
	Name        string              `yaml:"name"`
	Description string              `yaml:"description"`
	Arguments   []filePromptArg     `yaml:"arguments"`
	Messages    []filePromptMessage `yaml:"messages"`
}

type filePromptArg struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Required    bool   `yaml:"required"`
}

type filePromptMessage struct {
	Role    string `yaml:"role"`
	Content struct {
		Type string `yaml:"type"`
		Text string `yaml:"text"`
	} `yaml:"content"`
}

// LoadFile reads and parses a YAML catalog
func LoadFile(path string, registry *HandlerRegistry) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	items, err := Parse(data, registry)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return items, nil
}

// Parse decodes a YAML catalog into items. A tool's handler is looked up in
// registry by name; a tool with a literal response gets a handler that
// returns it. Unknown handler names are an error.
func Parse(data []byte, registry *HandlerRegistry) ([]Item, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	var items []Item
	if f.Initialize != nil {
		res := protocol.InitializeResult{
			ProtocolVersion: f.Initialize.ProtocolVersion,
			Capabilities:    f.Initialize.Capabilities,
			Instructions:    f.Initialize.Instructions,
		}
		if res.ProtocolVersion == "" {
			res.ProtocolVersion = protocol.DefaultProtocolVersion
		}
		if si := f.Initialize.ServerInfo; si != nil {
			res.ServerInfo = &protocol.Implementation{Name: si.Name, Version: si.Version}
		}
		items = append(items, InitializeItem{Result: res})
	}

	for _, t := range f.Tools {
		h, err := resolveHandler(registry, t.Handler, t.Response)
		if err != nil {
			return nil, fmt.Errorf("tool %q: %w", t.Name, err)
		}
		items = append(items, ToolItem{
			Tool:    protocol.Tool{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema},
			Handler: h,
		})
	}

	if len(f.Resources) > 0 {
		ri := ResourcesItem{Handlers: make(map[string]Handler)}
		for _, r := range f.Resources {
			ri.Result.Resources = append(ri.Result.Resources, protocol.Resource{
				URI: r.URI, Name: r.Name, Description: r.Description, MimeType: r.MimeType,
			})
			var h Handler
			if r.Text != "" {
				h = resourceText(r.URI, r.MimeType, r.Text)
			} else if r.Handler != "" {
				var ok bool
				if h, ok = registry.Get(r.Handler); !ok {
					return nil, fmt.Errorf("resource %q: unknown handler %q", r.URI, r.Handler)
				}
			}
			if h != nil {
				ri.Handlers[r.URI] = h
			}
		}
		items = append(items, ri)
	}

	if len(f.Prompts) > 0 {
		var list PromptsItem
		named := make(map[string]protocol.GetPromptResult)
		for _, p := range f.Prompts {
			prompt := protocol.Prompt{Name: p.Name, Description: p.Description}
			for _, a := range p.Arguments {
				prompt.Arguments = append(prompt.Arguments, protocol.PromptArgument{
					Name: a.Name, Description: a.Description, Required: a.Required,
				})
			}
			list.Result.Prompts = append(list.Result.Prompts, prompt)

			if len(p.Messages) == 0 {
				continue
			}
			get := protocol.GetPromptResult{Description: p.Description}
			for _, m := range p.Messages {
				typ := m.Content.Type
				if typ == "" {
					typ = protocol.ContentTypeText
				}
				get.Messages = append(get.Messages, protocol.PromptMessage{
					Role:    m.Role,
					Content: protocol.Content{Type: typ, Text: m.Content.Text},
				})
			}
			named[p.Name] = get
		}
		items = append(items, list)
		if len(named) > 0 {
			items = append(items, PromptGetItem{Named: named})
		}
	}
	return items, nil
}

func resolveHandler(registry *HandlerRegistry, name, response string) (Handler, error) {
	switch {
	case name != "":
		h, ok := registry.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown handler %q", name)
		}
		return h, nil
	case response != "":
		return staticText(response), nil
	}
	return nil, nil
}

func resourceText(uri, mimeType, text string) Handler {
	return func(context.Context, map[string]interface{}) (Reply, error) {
		return Result(protocol.ReadResourceResult{
			Contents: []protocol.ResourceContents{{URI: uri, MimeType: mimeType, Text: text}},
		}), nil
	}
}
