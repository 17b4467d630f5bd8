package protocol

import "strings"

const (
	// DefaultProtocolVersion is the MCP revision announced by the client
	DefaultProtocolVersion = "2024-11-05"

	// Methods for lifecycle management
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodCancelled   = "notifications/cancelled"

	// Methods for server features
	MethodToolsList     = "tools/list"
	MethodToolsCall     = "tools/call"
	MethodResourcesList = "resources/list"
	MethodResourcesRead = "resources/read"
	MethodPromptsList   = "prompts/list"
	MethodPromptsGet    = "prompts/get"
)

// lifecycleMethods are serialized by the server lock regardless of configuration
var lifecycleMethods = map[string]struct{}{
	MethodInitialize:    {},
	MethodInitialized:   {},
	MethodToolsList:     {},
	MethodPromptsList:   {},
	MethodResourcesList: {},
}

// IsLifecycleMethod reports whether a method belongs to the discovery and
// lifecycle set that always runs under the server lock.
func IsLifecycleMethod(method string) bool {
	_, ok := lifecycleMethods[NormalizeMethod(method)]
	return ok
}

// LifecycleMethods returns the discovery and lifecycle method names
func LifecycleMethods() []string {
	return []string{MethodInitialize, MethodInitialized, MethodToolsList, MethodPromptsList, MethodResourcesList}
}

// DiscoveryMethods are the list methods issued by a client after initialize,
// in the order they are sent.
func DiscoveryMethods() []string {
	return []string{MethodResourcesList, MethodPromptsList, MethodToolsList}
}

// MethodPrefix returns the part of a method before the first "/", which is
// also the result key of the list methods ("tools/list" -> "tools").
func MethodPrefix(method string) string {
	prefix, _, _ := strings.Cut(method, "/")
	return prefix
}

// Implementation identifies a client or server
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeParams defines parameters for the initialize request
type InitializeParams struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities"`
	ClientInfo      Implementation         `json:"clientInfo"`
}

// InitializeResult defines the response for initialization
type InitializeResult struct {
	ProtocolVersion string                 `json:"protocolVersion,omitempty"`
	Capabilities    map[string]interface{} `json:"capabilities,omitempty"`
	ServerInfo      *Implementation        `json:"serverInfo,omitempty"`
	Instructions    string                 `json:"instructions,omitempty"`
}

// CancelledParams defines parameters for the notifications/cancelled notification
type CancelledParams struct {
	RequestID interface{} `json:"requestId"`
	Reason    string      `json:"reason,omitempty"`
}

// CallParams are the params shared by tools/call, prompts/get and
// resources/read: a target addressed by name or uri plus its arguments.
type CallParams struct {
	Name      string                 `json:"name,omitempty"`
	URI       string                 `json:"uri,omitempty"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}
