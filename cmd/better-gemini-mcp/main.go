package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/capyBearista/better-gemini-mcp/internal/chunk"
	"github.com/capyBearista/better-gemini-mcp/internal/config"
	"github.com/capyBearista/better-gemini-mcp/internal/gemini"
	"github.com/capyBearista/better-gemini-mcp/internal/mcp"
	"github.com/capyBearista/better-gemini-mcp/internal/web"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"research": true, "validate": true, "doctor": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	// Known subcommand → CLI
	if cliCommands[arg] {
		return true
	}
	// --help or --version → CLI
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false // Default → MCP server
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   _
  | |__   __ _ _ __ ___
  | '_ \ / _' | '_ ' _ \
  | |_) | (_| | | | | | |
  |_.__/ \__, |_| |_| |_|
         |___/

  better-gemini-mcp: research proxy for the Gemini CLI

  Usage: better-gemini-mcp <command> [options]
         better-gemini-mcp --help

  MCP server mode requires piped input.`)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before any setup
	if isHelpOrVersion() {
		app := newCLIApp(nil, "")
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}

	baseDir := filepath.Join(homeDir, ".better-gemini-mcp")

	cfg, err := config.Load(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	root, err := cfg.ResolveRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to resolve trusted root: %v\n", err)
		os.Exit(1)
	}

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(cfg, root)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'better-gemini-mcp --help' for usage.\n")
		os.Exit(1)
	}

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		fmt.Fprintf(os.Stderr, "error: unknown tool names in disabled_tools: %s\n",
			strings.Join(unknown, ", "))
		os.Exit(1)
	}

	// MCP server mode (default)
	store := chunk.NewStore(
		time.Duration(cfg.ChunkTTLMinutes)*time.Minute, chunk.DefaultSweepInterval)
	defer store.Close()

	orch := gemini.New(cfg, root)

	// Optional chunk viewer. It shares the in-process store, so it lives
	// and dies with the MCP server.
	if cfg.WebPort > 0 {
		srv := web.NewServer(store, cfg, Version, "127.0.0.1", cfg.WebPort)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("chunk viewer: %v", err)
			}
		}()
		defer srv.Close()
	}

	if err := mcp.Run(orch, store, cfg, root, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
