// Command ingestkit runs the document ingestion pipeline.
//
// Usage:
//
//	ingestkit scan  [config.yaml]   enqueue files under the configured roots and drain the queue
//	ingestkit serve [config.yaml]   run the HTTP API and queue workers until interrupted
//	ingestkit mcp   [config.yaml]   serve the partition tools over MCP stdio
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/ingestkit/ingest"
	"github.com/hazyhaar/ingestkit/server"
)

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		usage()
		os.Exit(2)
	}
	mode := args[0]

	cfgPath := "ingestkit.yaml"
	if len(args) > 1 {
		cfgPath = args[1]
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	}))
	slog.SetDefault(logger)

	cfg, err := ingest.LoadConfig(cfgPath)
	if err != nil {
		logger.Error("load config", "path", cfgPath, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ing, err := ingest.New(ctx, cfg, ingest.WithLogger(logger))
	if err != nil {
		logger.Error("init ingester", "error", err)
		os.Exit(1)
	}
	defer ing.Close()

	switch mode {
	case "scan":
		if err := runScan(ctx, ing, logger); err != nil {
			logger.Error("scan failed", "error", err)
			os.Exit(1)
		}
	case "serve":
		if err := runServe(ctx, ing, cfg, logger); err != nil {
			logger.Error("serve failed", "error", err)
			os.Exit(1)
		}
	case "mcp":
		if err := runMCP(ctx, ing); err != nil {
			logger.Error("mcp failed", "error", err)
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(2)
	}
}

// runScan enqueues everything under the roots, then runs workers until
// the queue drains.
func runScan(ctx context.Context, ing *ingest.Ingester, logger *slog.Logger) error {
	n, err := ing.Scan(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		logger.Info("nothing to ingest")
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ing.Run(runCtx)
	}()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			cancel()
			<-done
			return ctx.Err()
		case <-ticker.C:
			pending, err := ing.Queue().Len(ctx)
			if err != nil {
				cancel()
				<-done
				return err
			}
			if pending == 0 {
				cancel()
				<-done
				logger.Info("scan run complete", "enqueued", n)
				return nil
			}
		}
	}
}

// runServe runs the HTTP API and the queue workers until ctx is
// cancelled.
func runServe(ctx context.Context, ing *ingest.Ingester, cfg *ingest.Config, logger *slog.Logger) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ing.Run(ctx)
	}()

	srv := server.New(ing, cfg.Listen, logger)
	err := srv.Start(ctx)
	<-done
	return err
}

// runMCP serves the partition tools over stdio for MCP clients.
func runMCP(ctx context.Context, ing *ingest.Ingester) error {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "ingestkit",
		Version: "1.0.0",
	}, nil)
	ing.Pipeline().RegisterMCP(srv)
	return srv.Run(ctx, &mcp.StdioTransport{})
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: ingestkit [-debug] <scan|serve|mcp> [config.yaml]

Modes:
  scan    enqueue files under the configured roots, process them, exit
  serve   run the HTTP API and queue workers until interrupted
  mcp     serve the partition tools over MCP stdio
`)
}
