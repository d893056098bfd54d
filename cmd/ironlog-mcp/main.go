package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/ironlog/internal/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// ironlog-mcp runs the MCP server over stdio against a remote IronLog
// instance, for clients that cannot speak the streaming HTTP transport.
// All data access goes through the REST API, typically over Tailscale.
func main() {
	baseURL := flag.String("url", "", "base URL of the IronLog server (required)")
	flag.Parse()

	// Stdout carries the MCP protocol; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *baseURL == "" {
		fmt.Fprintf(os.Stderr, "Usage: ironlog-mcp -url http://ironlog:8080\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	ds := mcp.NewHTTPClient(*baseURL)
	s := mcp.New(ds, Version, log)

	log.Info("MCP stdio server starting", "url", *baseURL, "version", Version)
	if err := server.ServeStdio(s); err != nil {
		log.Error("stdio server error", "error", err)
		os.Exit(1)
	}
}
