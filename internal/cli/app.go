package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/glucobot/glucobot/internal/action"
	"github.com/glucobot/glucobot/internal/config"
	"github.com/glucobot/glucobot/internal/dataset"
	"github.com/glucobot/glucobot/internal/dialogue"
	"github.com/glucobot/glucobot/internal/export"
	"github.com/glucobot/glucobot/internal/llm"
	"github.com/glucobot/glucobot/internal/logger"
	"github.com/glucobot/glucobot/internal/memory"
	"github.com/glucobot/glucobot/internal/render"
)

// App holds the assembled assistant and the resources it owns
type App struct {
	Machine *dialogue.Machine
	Catalog *dataset.Catalog
	Journal memory.Journal

	closers []func() error
}

// NewCaller creates the language model client for the configured provider
func NewCaller(ctx context.Context, cfg *config.Config) (llm.Caller, error) {
	m := cfg.Model
	switch strings.ToLower(m.Provider) {
	case config.ProviderOpenAI:
		return llm.New(m.APIKey, m.BaseURL, m.Model, m.Temperature, m.MaxTokens,
			llm.WithTimeout(time.Duration(m.TimeoutSeconds)*time.Second)), nil
	case config.ProviderGemini:
		return llm.NewGemini(ctx, llm.GeminiConfig{
			APIKey:      m.APIKey,
			BaseURL:     m.BaseURL,
			Model:       m.Model,
			Temperature: float32(m.Temperature),
			MaxTokens:   m.MaxTokens,
		})
	default:
		return nil, fmt.Errorf("unknown model provider %q", m.Provider)
	}
}

// Build wires every component from cfg. caller is used for all language
// model calls.
func Build(ctx context.Context, cfg *config.Config, prompts *config.PromptConfig, caller llm.Caller) (*App, error) {
	catalog, err := dataset.LoadCatalog(cfg.Data.Root, cfg.Data.FolderPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to load patient catalog: %w", err)
	}
	logger.Info().Int("patients", catalog.Len()).Str("root", cfg.Data.Root).Msg("patient catalog loaded")

	journal, err := memory.NewSQLiteJournal(cfg.Memory.JournalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open export journal: %w", err)
	}
	app := &App{Catalog: catalog, Journal: journal}
	app.closers = append(app.closers, journal.Close)

	var opener render.Opener
	if cfg.Output.OpenViewer {
		opener = render.NewBrowserOpener()
	}

	var dispatchOpts []action.Option
	exportOpts := []export.Option{export.WithJournal(journal)}
	if opener != nil {
		dispatchOpts = append(dispatchOpts, action.WithOpener(opener))
		exportOpts = append(exportOpts, export.WithOpener(opener))
	}

	if cfg.Output.Bucket != "" {
		uploader, err := export.NewGCSUploader(ctx, cfg.Output.Bucket)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to create export uploader: %w", err)
		}
		app.closers = append(app.closers, uploader.Close)
		exportOpts = append(exportOpts, export.WithUploader(uploader))
	}

	loader := dataset.NewLoader(dataset.LoaderConfig{
		Root:            cfg.Data.Root,
		FolderPrefix:    cfg.Data.FolderPrefix,
		TimestampColumn: cfg.Data.TimestampColumn,
		GlucoseColumn:   cfg.Data.GlucoseColumn,
	})

	app.Machine = dialogue.New(dialogue.Components{
		Catalog:    catalog,
		Loader:     loader,
		Extractor:  dialogue.NewLLMExtractor(caller, cfg.Model.Model, prompts),
		Classifier: dialogue.NewLLMClassifier(caller, cfg.Model.Model, prompts),
		Analyst:    dialogue.NewLLMAnalyst(caller, cfg.Model.Model, prompts),
		Dispatcher: action.NewDispatcher(
			render.NewChartRenderer(cfg.Output.Dir),
			render.NewTableRenderer(cfg.Output.Dir),
			dispatchOpts...,
		),
		Exporter: export.New(cfg.Output.Dir, exportOpts...),
	},
		dialogue.WithPrompts(prompts),
		dialogue.WithMemory(memory.NewConversation(cfg.Memory.MaxTurns)),
	)

	return app, nil
}

// Close releases everything Build opened
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}
