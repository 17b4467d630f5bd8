package mcp

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/ajitpratap0/mcp-gateway/pkg/catalog"
	"github.com/ajitpratap0/mcp-gateway/pkg/client"
	"github.com/ajitpratap0/mcp-gateway/pkg/oracle"
	"github.com/ajitpratap0/mcp-gateway/pkg/planner"
	"github.com/ajitpratap0/mcp-gateway/pkg/protocol"
	"github.com/ajitpratap0/mcp-gateway/pkg/server"
	"github.com/ajitpratap0/mcp-gateway/pkg/transport"
)

// Version is the gateway version. Module builds replace it with the
// version recorded in the build info.
var Version = "1.0.0"

var buildInfo = debug.BuildInfo{}

func init() {
	if bi, ok := debug.ReadBuildInfo(); ok {
		buildInfo = *bi
		if v := bi.Main.Version; v != "" && v != "(devel)" {
			Version = v
		}
	}
}

// VersionString describes the build. With modules set it lists the module
// dependencies instead.
func VersionString(modules bool) string {
	if modules {
		mod := buildInfo.String()
		if len(mod) > 0 {
			return fmt.Sprintf("\t%s\n", strings.ReplaceAll(strings.TrimSuffix(mod, "\n"), "\n", "\n\t"))
		}
	}
	return fmt.Sprintf("version %s %s %s/%s", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// ProtocolVersion is the MCP revision announced by the client
const ProtocolVersion = protocol.DefaultProtocolVersion

// Server side
var (
	// NewRouter creates a request router over a catalog source
	NewRouter = server.NewRouter

	// NewHTTPHandler exposes a router over HTTP
	NewHTTPHandler = server.NewHTTPHandler

	// LoadCatalog reads a YAML catalog file
	LoadCatalog = catalog.LoadFile

	// NewHandlerRegistry creates a registry with the built-in handlers
	NewHandlerRegistry = catalog.NewHandlerRegistry
)

// Client side
var (
	// NewFetcher creates the HTTP fan-out used by clients and the oracle
	NewFetcher = transport.NewHTTPFetcher

	// NewBootstrapper creates a session bootstrapper for MCP endpoints
	NewBootstrapper = client.NewBootstrapper

	// NewGemini creates a Gemini oracle
	NewGemini = oracle.NewGemini

	// NewPlanner creates a plan executor for a session
	NewPlanner = planner.New
)

// Router options
var (
	WithAccessKey   = server.WithAccessKey
	WithUseLock     = server.WithUseLock
	WithLockTimeout = server.WithLockTimeout
	WithTieBreak    = server.WithTieBreak
	WithSink        = server.WithSink
)

// Tie-break policies for duplicate declarations
var (
	TieBreakLonger = catalog.TieBreakLonger
	TieBreakFirst  = catalog.TieBreakFirst
	TieBreakLast   = catalog.TieBreakLast
)
