package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"

	"github.com/glucobot/glucobot/internal/config"
	"github.com/glucobot/glucobot/internal/logger"
)

const (
	Version = "0.1.0"

	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"

	separator = "--------------------------------------------------"

	// exportListLimit is how many journal entries /exports shows
	exportListLimit = 10
)

// Run starts the interactive assistant
func Run(cfg *config.Config) error {
	printWelcome(os.Stdout)

	if !cfg.IsAPIKeyConfigured() {
		return promptAPIKey(cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	prompts, err := config.LoadPromptConfig()
	if err != nil {
		return fmt.Errorf("failed to load prompts: %w", err)
	}

	caller, err := NewCaller(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create model client: %w", err)
	}

	app, err := Build(ctx, cfg, prompts, caller)
	if err != nil {
		return err
	}
	defer app.Close()

	if app.Catalog.Len() == 0 {
		fmt.Printf("%sNo patient folders found under %s%s\n\n", colorYellow, cfg.Data.Root, colorReset)
	}

	return runREPL(ctx, app)
}

// printWelcome prints the greeting
func printWelcome(out io.Writer) {
	fmt.Fprintf(out, "\n%sGlucose Data Assistant v%s%s\n", colorCyan, Version, colorReset)
	fmt.Fprintf(out, "%sHi, I'm the Glucose Data Assistant Bot. Ask questions like: 'Can I get the glucose data of subject 032?'%s\n", colorCyan, colorReset)
	fmt.Fprintf(out, "%sType /help for help, exit to quit%s\n\n", colorGray, colorReset)
}

// promptAPIKey asks for the API key, stores it in .secrets and restarts
func promptAPIKey(cfg *config.Config) error {
	fmt.Printf("%sAPI Key not configured for provider %s%s\n\n", colorYellow, cfg.Model.Provider, colorReset)

	rl, err := readline.New("Please enter your API Key: ")
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	apiKey, err := rl.Readline()
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return fmt.Errorf("API Key cannot be empty")
	}

	if err := config.SaveAPIKey(cfg.Model.Provider, apiKey); err != nil {
		return fmt.Errorf("failed to save API key: %w", err)
	}
	cfg.Model.APIKey = apiKey

	fmt.Printf("\n%sAPI Key saved%s\n\n", colorGreen, colorReset)

	return Run(cfg)
}

// getHistoryFilePath returns the readline history file path
func getHistoryFilePath() string {
	dir, err := config.ConfigDir()
	if err != nil {
		return ""
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ""
	}
	return filepath.Join(dir, "history")
}

// isExit reports whether input ends the session
func isExit(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "quit":
		return true
	}
	return false
}

// runREPL reads utterances until exit
func runREPL(ctx context.Context, app *App) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            fmt.Sprintf("%sYou: %s", colorGreen, colorReset),
		HistoryFile:       getHistoryFilePath(),
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
			rl.Close()
		case <-ctx.Done():
		}
	}()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				fmt.Printf("%sType exit to quit%s\n", colorYellow, colorReset)
				continue
			}
			if err == io.EOF || ctx.Err() != nil {
				fmt.Printf("\n%sGoodbye!%s\n", colorCyan, colorReset)
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if isExit(input) {
			fmt.Printf("%sGoodbye!%s\n", colorCyan, colorReset)
			return nil
		}

		if strings.HasPrefix(input, "/") {
			if handleCommand(os.Stdout, input, app) {
				continue
			}
			return nil
		}

		processInput(ctx, os.Stdout, app, input)
	}
}

// processInput runs one utterance through the dialogue machine
func processInput(ctx context.Context, out io.Writer, app *App, input string) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " Thinking..."
	s.Start()
	reply := app.Machine.Process(ctx, input)
	s.Stop()

	logger.Debug().Str("state", app.Machine.State().String()).Msg("turn processed")

	fmt.Fprintf(out, "\n%s%s%s\n", colorGray, separator, colorReset)
	fmt.Fprintf(out, "%sBot:%s %s\n", colorBlue, colorReset, reply)
	fmt.Fprintf(out, "%s%s%s\n\n", colorGray, separator, colorReset)
}

// handleCommand handles slash commands, returns true to continue the loop,
// false to exit
func handleCommand(out io.Writer, cmd string, app *App) bool {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return true
	}

	switch strings.ToLower(parts[0]) {
	case "/help":
		printHelp(out)

	case "/reset":
		app.Machine.Reset()
		fmt.Fprintf(out, "%sConversation reset%s\n", colorGreen, colorReset)

	case "/state":
		c := app.Machine.Context()
		fmt.Fprintf(out, "State: %s\n", app.Machine.State())
		if id := c.ActivePatientID(); id != "" {
			fmt.Fprintf(out, "Active patient: %s (%s)\n", id, c.Active.Format)
		}
		if c.Partial.PatientID != "" || c.Partial.Format != "" {
			fmt.Fprintf(out, "Collected: patient=%q format=%q\n", c.Partial.PatientID, c.Partial.Format)
		}
		fmt.Fprintf(out, "Memory: %d/%d turns\n", app.Machine.Memory().Len(), app.Machine.Memory().Cap())

	case "/patients":
		ids := app.Catalog.IDs()
		if len(ids) == 0 {
			fmt.Fprintf(out, "%sNo patients available%s\n", colorYellow, colorReset)
			break
		}
		fmt.Fprintf(out, "%d patients: %s\n", len(ids), strings.Join(ids, ", "))

	case "/exports":
		records, err := app.Journal.ListExports(exportListLimit)
		if err != nil {
			fmt.Fprintf(out, "%sFailed to list exports: %v%s\n", colorRed, err, colorReset)
			break
		}
		if len(records) == 0 {
			fmt.Fprintln(out, "No exports yet")
			break
		}
		for _, r := range records {
			fmt.Fprintf(out, "%s  %s  %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"), orDash(r.PatientID), r.Path)
		}

	case "/config":
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(out, "%sFailed to load config: %v%s\n", colorRed, err, colorReset)
			break
		}
		fmt.Fprintln(out, cfg.String())

	case "/history":
		if len(parts) > 1 && parts[1] == "clear" {
			if historyFile := getHistoryFilePath(); historyFile != "" {
				if err := os.WriteFile(historyFile, []byte{}, 0644); err != nil {
					fmt.Fprintf(out, "%sFailed to clear history: %v%s\n", colorRed, err, colorReset)
				} else {
					fmt.Fprintf(out, "%sCommand history cleared%s\n", colorGreen, colorReset)
				}
			}
		} else {
			fmt.Fprintf(out, "%sUse Up/Down arrow keys to browse command history%s\n", colorGray, colorReset)
			fmt.Fprintf(out, "%sUse /history clear to clear history%s\n", colorGray, colorReset)
		}

	case "/exit", "/quit", "/q":
		fmt.Fprintf(out, "%sGoodbye!%s\n", colorCyan, colorReset)
		return false

	default:
		fmt.Fprintf(out, "%sUnknown command: %s%s\n", colorYellow, cmd, colorReset)
		fmt.Fprintln(out, "Type /help for available commands")
	}
	return true
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// printHelp prints help information
func printHelp(out io.Writer) {
	fmt.Fprintf(out, `
%sGlucose Data Assistant Help%s

%sCommands:%s
  /help           - Show this help message
  /reset          - Start a new conversation
  /state          - Show the dialogue state and collected details
  /patients       - List available patient IDs
  /exports        - List recent conversation exports
  /config         - Show current configuration
  /history clear  - Clear command history
  /exit           - Exit program (or type exit / quit)

%sExamples:%s
  "Can I get the glucose data of subject 032?"
  "Show me a figure for patient 015"
  "What was the highest reading?"
  "Now show raw data for patient 001"
  "Export this conversation as a PDF"

`, colorCyan, colorReset, colorYellow, colorReset, colorYellow, colorReset)
}
