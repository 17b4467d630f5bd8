package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/mcp-gateway/pkg/planner"
	"github.com/ajitpratap0/mcp-gateway/pkg/protocol"
)

func TestPrintResult(t *testing.T) {
	dir := t.TempDir()
	askOutDir = dir
	t.Cleanup(func() { askOutDir = "" })

	res := &planner.Result{Result: []planner.Output{
		{Text: "Two meetings today."},
		{Blob: &planner.Blob{MimeType: "application/pdf", Data: []byte("%PDF")}},
	}}

	var buf bytes.Buffer
	require.NoError(t, printResult(&buf, res))

	saved, err := filepath.Glob(filepath.Join(dir, "result-1.*"))
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "Two meetings today.\n[application/pdf saved to "+saved[0]+"]\n", buf.String())
	data, err := os.ReadFile(saved[0])
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data))
}

func TestPrintResultWithoutOutDir(t *testing.T) {
	res := &planner.Result{Result: []planner.Output{
		{Blob: &planner.Blob{MimeType: "image/png", Data: []byte{1, 2, 3}}},
	}}
	var buf bytes.Buffer
	require.NoError(t, printResult(&buf, res))
	assert.Equal(t, "[image/png, 3 bytes]\n", buf.String())
}

func TestPrintResultError(t *testing.T) {
	res := &planner.Result{Error: protocol.NewErrorResponse(nil, protocol.InternalError, "Internal server error. Try again.")}
	var buf bytes.Buffer
	require.NoError(t, printResult(&buf, res))
	assert.Contains(t, buf.String(), `"code":-32603`)
	assert.Contains(t, buf.String(), `"id":null`)
}
