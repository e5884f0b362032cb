// Command dictate-mcp exposes the dictation history to MCP clients over
// stdio. It opens the database read-only, so it can run next to dictate.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/remberq/simple-voice-transcribe/internal/config"
	"github.com/remberq/simple-voice-transcribe/internal/db"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dictate-mcp:", err)
		os.Exit(1)
	}

	store, err := db.OpenReadOnly(cfg.DBPath())
	if err != nil {
		fmt.Fprintln(os.Stderr, "dictate-mcp:", err)
		os.Exit(1)
	}
	defer store.Close()

	s := server.NewMCPServer("dictate", "0.1.0", server.WithToolCapabilities(false))
	registerTools(s, &tools{kv: store})

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintln(os.Stderr, "dictate-mcp:", err)
		os.Exit(1)
	}
}
