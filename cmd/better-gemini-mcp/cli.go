package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/capyBearista/better-gemini-mcp/internal/config"
	"github.com/capyBearista/better-gemini-mcp/internal/errors"
	"github.com/capyBearista/better-gemini-mcp/internal/gemini"
	"github.com/capyBearista/better-gemini-mcp/internal/pathguard"
	"github.com/capyBearista/better-gemini-mcp/internal/runner"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(cfg *config.Config, root string) *cli.App {
	app := &cli.App{
		Name:    "better-gemini-mcp",
		Usage:   "Research proxy for the Gemini CLI",
		Version: Version,
		Commands: []*cli.Command{
			researchCmd(cfg, root),
			validateCmd(root),
			doctorCmd(cfg, root),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// researchCmd creates the research command.
func researchCmd(cfg *config.Config, root string) *cli.Command {
	return &cli.Command{
		Name:      "research",
		Usage:     "Run a research prompt through the tiered model plan",
		ArgsUsage: "[prompt]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "fast", Usage: "Request mode: fast|deep"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Suppress fallback notices on stderr"},
		},
		Action: func(c *cli.Context) error {
			prompt := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if prompt == "" && stdinHasData() {
				text, err := readStdin()
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				prompt = text
			}
			if prompt == "" {
				return outputError(errors.NewInvalidRequest("prompt is required (argument or stdin)"))
			}

			class := gemini.ClassFast
			switch c.String("mode") {
			case "fast":
			case "deep":
				class = gemini.ClassDeep
			default:
				return outputError(errors.NewInvalidRequest(
					fmt.Sprintf("mode must be \"fast\" or \"deep\", got %q", c.String("mode"))))
			}

			if batch := pathguard.ValidateAll(prompt, root); !batch.AllValid {
				first := batch.Invalid[0]
				return outputError(errors.NewPathOutsideRoot(first.Input, first.Reason))
			}

			var progress gemini.Progress
			if !c.Bool("quiet") {
				progress = stderrProgress{}
			}

			result, err := gemini.New(cfg, root).Execute(c.Context, prompt, class, progress)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(result)
		},
	}
}

// validateCmd creates the validate command.
func validateCmd(root string) *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Check paths against the trusted root",
		ArgsUsage: "<path> [path...]",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("at least one path is required"))
			}

			verdicts := make([]pathguard.Verdict, 0, c.NArg())
			for _, p := range c.Args().Slice() {
				verdicts = append(verdicts, pathguard.Validate(p, root))
			}

			return outputJSON(map[string]any{
				"trusted_root": root,
				"verdicts":     verdicts,
			})
		},
	}
}

// doctorCmd creates the doctor command.
func doctorCmd(cfg *config.Config, root string) *cli.Command {
	return &cli.Command{
		Name:  "doctor",
		Usage: "Check the local setup: engine binary, trusted root, model plans",
		Action: func(c *cli.Context) error {
			report := map[string]any{
				"trusted_root": root,
				"binary":       cfg.GeminiBinary,
				"fast_models":  cfg.FastModels,
				"deep_models":  cfg.DeepModels,
				"ok":           true,
			}

			if path, err := exec.LookPath(cfg.GeminiBinary); err != nil {
				report["ok"] = false
				report["binary_found"] = false
				report["binary_hint"] = fmt.Sprintf(
					"%q is not on PATH; install the Gemini CLI or set gemini_binary in config.json", cfg.GeminiBinary)
			} else {
				report["binary_found"] = true
				report["binary_path"] = path

				// A trivial invocation confirms the binary actually runs.
				// Auth status only surfaces on the first research call.
				out, err := runner.Run(c.Context, cfg.GeminiBinary, []string{"--version"},
					runner.Options{Timeout: 15 * time.Second})
				if err != nil {
					report["ok"] = false
					report["binary_runs"] = false
					report["binary_hint"] = fmt.Sprintf("%q failed to run: %v", cfg.GeminiBinary, err)
				} else {
					report["binary_runs"] = true
					report["binary_version"] = strings.TrimSpace(out)
				}
			}

			if info, err := os.Stat(root); err != nil || !info.IsDir() {
				report["ok"] = false
				report["root_exists"] = false
			} else {
				report["root_exists"] = true
			}

			return outputJSON(report)
		},
	}
}

// stderrProgress prints fallback notices to stderr so the user sees tier
// changes while waiting for the final JSON on stdout.
type stderrProgress struct{}

func (stderrProgress) Output(string) {}

func (stderrProgress) Note(message string) {
	fmt.Fprintf(os.Stderr, "note: %s\n", message)
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if perr, ok := err.(*errors.ProxyError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", perr.Code, perr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
