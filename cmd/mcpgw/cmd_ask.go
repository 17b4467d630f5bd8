package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/mcp-gateway/pkg/catalog"
	"github.com/ajitpratap0/mcp-gateway/pkg/client"
	"github.com/ajitpratap0/mcp-gateway/pkg/diagnostics"
	"github.com/ajitpratap0/mcp-gateway/pkg/logging"
	"github.com/ajitpratap0/mcp-gateway/pkg/oracle"
	"github.com/ajitpratap0/mcp-gateway/pkg/planner"
	"github.com/ajitpratap0/mcp-gateway/pkg/transport"
)

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringSliceP("url", "u", nil, "MCP server URL, repeatable")
	askCmd.Flags().String("client-catalog", "", "catalog file whose tools are called in process")
	askCmd.Flags().Bool("batch", false, "send discovery requests as one JSON-RPC batch per server")
	askCmd.Flags().String("api-key", "", "Gemini API key")
	askCmd.Flags().String("model", "", "Gemini model")
	askCmd.Flags().String("timezone", "", "timezone announced to the model")
	askCmd.Flags().StringVarP(&askOutDir, "out-dir", "o", "", "directory for binary results")
}

var askOutDir string

var askCmd = &cobra.Command{
	Use:   "ask <goal>",
	Short: "Plan and execute a goal over the tools of MCP servers",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	goal := strings.Join(args, " ")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := newServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	rec := svc.recorder()
	ctx = diagnostics.NewContext(ctx, rec)
	defer func() {
		if err := rec.Flush(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("failed to flush diagnostics", logging.ErrorField(err))
		}
	}()

	fetcher := svc.fetcher()
	session, err := bootstrap(ctx, svc, fetcher)
	if err != nil {
		return err
	}

	gemini, err := oracle.NewGemini(conf.Oracle.APIKey,
		oracle.WithBaseURL(conf.Oracle.BaseURL),
		oracle.WithModel(conf.Oracle.Model),
		oracle.WithFetcher(fetcher),
		oracle.WithLogger(logger),
		oracle.WithTracing(svc.tracer),
	)
	if err != nil {
		return err
	}

	loc := time.Local
	if conf.Oracle.Timezone != "" {
		if loc, err = time.LoadLocation(conf.Oracle.Timezone); err != nil {
			return fmt.Errorf("oracle.timezone: %w", err)
		}
	}
	exec, err := planner.New(gemini, session,
		planner.WithModel(conf.Oracle.Model),
		planner.WithLogger(logger),
		planner.WithMetrics(svc.metrics),
		planner.WithTracing(svc.tracer),
		planner.WithLocation(loc),
	)
	if err != nil {
		return err
	}

	res, err := exec.Run(ctx, goal)
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), res)
}

func bootstrap(ctx context.Context, svc *services, fetcher *transport.HTTPFetcher) (*client.Session, error) {
	c := conf.Client
	opts := []client.Option{
		client.WithBatchDiscovery(c.BatchDiscovery),
		client.WithClientInfo(c.Name, c.Version),
		client.WithProtocolVersion(c.ProtocolVersion),
		client.WithLogger(logger),
		client.WithTracing(svc.tracer),
	}
	if c.Catalog != "" {
		items, err := catalog.LoadFile(c.Catalog, catalog.NewHandlerRegistry())
		if err != nil {
			return nil, err
		}
		opts = append(opts, client.WithStaticItems(items...))
	}

	session, err := client.NewBootstrapper(fetcher, c.URLs, opts...).Bootstrap(ctx)
	if err != nil {
		return nil, err
	}
	if session.Failure != nil {
		logger.Warn("continuing without MCP servers", logging.ErrorField(session.Failure))
	}
	logger.Debug("session functions", logging.String("names", strings.Join(session.Functions.Names(), ",")))
	return session, nil
}

// printResult writes texts to w. Blobs are saved under the output
// directory when one is set, otherwise only described.
func printResult(w io.Writer, res *planner.Result) error {
	if res.Error != nil {
		data, err := json.Marshal(res.Error)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	n := 0
	for _, out := range res.Result {
		if out.Blob == nil {
			fmt.Fprintln(w, out.Text)
			continue
		}
		n++
		if askOutDir == "" {
			fmt.Fprintf(w, "[%s, %d bytes]\n", out.Blob.MimeType, len(out.Blob.Data))
			continue
		}
		path, err := saveBlob(askOutDir, n, out.Blob)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "[%s saved to %s]\n", out.Blob.MimeType, path)
	}
	return nil
}

func saveBlob(dir string, n int, b *planner.Blob) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	ext := ".bin"
	if exts, _ := mime.ExtensionsByType(b.MimeType); len(exts) > 0 {
		ext = exts[0]
	}
	path := filepath.Join(dir, fmt.Sprintf("result-%d%s", n, ext))
	if err := os.WriteFile(path, b.Data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
