package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/mcp-gateway/internal/testutil"
	"github.com/ajitpratap0/mcp-gateway/pkg/protocol"
)

const sampleCatalog = `
initialize:
  serverInfo: {name: sample, version: 1.0.0}
  capabilities:
    tools: {listChanged: false}
tools:
  - name: echo
    description: Echo the text argument
    inputSchema:
      type: object
      properties:
        text: {type: string}
      required: [text]
    handler: echo
  - name: motd
    response: "Have a nice day."
resources:
  - uri: notes://today
    name: today
    text: Nothing scheduled.
prompts:
  - name: greet
    arguments: [{name: who, required: true}]
    messages:
      - role: user
        content: {type: text, text: "Say hello to {{who}}."}
  - name: listed_only
`

func TestParse(t *testing.T) {
	items, err := Parse([]byte(sampleCatalog), NewHandlerRegistry())
	require.NoError(t, err)
	require.Len(t, items, 6)

	initItem := items[0].(InitializeItem)
	assert.Equal(t, protocol.DefaultProtocolVersion, initItem.Result.ProtocolVersion)
	assert.Equal(t, "sample", initItem.Result.ServerInfo.Name)

	echo := items[1].(ToolItem)
	assert.Equal(t, "object", echo.Tool.InputSchema["type"])
	reply, err := echo.Handler(context.Background(), map[string]interface{}{"text": "ping"})
	require.NoError(t, err)
	assert.Equal(t, "ping", reply.text)

	motd := items[2].(ToolItem)
	reply, err = motd.Handler(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Have a nice day.", reply.text)

	res := items[3].(ResourcesItem)
	assert.Contains(t, res.Handlers, "notes://today")

	prompts := items[4].(PromptsItem)
	assert.Len(t, prompts.Result.Prompts, 2)

	get := items[5].(PromptGetItem)
	assert.Contains(t, get.Named, "greet")
	assert.NotContains(t, get.Named, "listed_only")

	tables := Aggregate(items)
	assert.Equal(t, []string{"initialize", "prompts/get", "prompts/list", "resources/list", "tools/list"}, tables.Methods())
	assert.Equal(t, []string{"echo", "motd"}, tables.FunctionNames(protocol.MethodToolsCall))
	assert.Equal(t, []string{"notes://today", "today"}, tables.FunctionNames(protocol.MethodResourcesRead))
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte("tools:\n  - name: x\n    handler: nope\n"), NewHandlerRegistry())
	assert.ErrorContains(t, err, `unknown handler "nope"`)

	_, err = Parse([]byte("tools: [unclosed"), nil)
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestCurrentTimeHandler(t *testing.T) {
	reply, err := currentTimeHandler(context.Background(), map[string]interface{}{"timezone": "UTC"})
	require.NoError(t, err)
	_, err = time.Parse(time.RFC3339, reply.text)
	assert.NoError(t, err)

	_, err = currentTimeHandler(context.Background(), map[string]interface{}{"timezone": "Nowhere/Else"})
	assert.Error(t, err)
}

func TestWatchedSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "team"), 0755))
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
	}
	write("a.yaml", "tools:\n  - name: one\n    response: \"1\"\n")
	write(filepath.Join("team", "b.yaml"), "tools:\n  - name: two\n    response: \"2\"\n")
	write("ignored.txt", "tools: [")

	src, err := NewWatchedSource(filepath.Join(dir, "**", "*.yaml"), NewHandlerRegistry(), nil)
	require.NoError(t, err)
	require.Len(t, src.Items(), 2)
	assert.Len(t, src.Files(), 2)

	require.NoError(t, src.Start(context.Background()))
	defer src.Close()

	write("a.yaml", "tools:\n  - name: one\n    response: \"1\"\n  - name: three\n    response: \"3\"\n")

	select {
	case <-src.Reloaded():
	case <-time.After(5 * time.Second):
		t.Fatal("catalog was not reloaded")
	}
	assert.Len(t, src.Items(), 3)

	// a broken file keeps the previous items
	write("a.yaml", "tools: [")
	select {
	case <-src.Reloaded():
	case <-time.After(5 * time.Second):
		t.Fatal("catalog reload was not attempted")
	}
	assert.Len(t, src.Items(), 3)
}

func TestWatchedSourceCloseStopsWatching(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(sampleCatalog), 0644))

	leaks := testutil.NewLeakDetector(t)
	src, err := NewWatchedSource(filepath.Join(dir, "*.yaml"), NewHandlerRegistry(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, src.Start(ctx))
	require.NoError(t, src.Close())
	// closing twice is a no-op
	require.NoError(t, src.Close())

	leaks.Check()
}

func TestWatchedSourceNoMatch(t *testing.T) {
	_, err := NewWatchedSource(filepath.Join(t.TempDir(), "*.yaml"), nil, nil)
	assert.ErrorContains(t, err, "no catalog files")
}

func TestStaticSource(t *testing.T) {
	src := StaticSource{ToolItem{Tool: protocol.Tool{Name: "a"}}}
	var s Source = src
	assert.Len(t, s.Items(), 1)
}
