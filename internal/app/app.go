package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"ClipPilot/internal/config"
	"ClipPilot/internal/control"
	"ClipPilot/internal/importer"
	"ClipPilot/internal/infrastructure/ffmpeg"
	"ClipPilot/internal/infrastructure/gemini"
	"ClipPilot/internal/infrastructure/telegram"
	"ClipPilot/internal/infrastructure/thumbnail"
	"ClipPilot/internal/infrastructure/tiktok"
	"ClipPilot/internal/infrastructure/translate"
	"ClipPilot/internal/infrastructure/youtube"
	"ClipPilot/internal/logging"
	"ClipPilot/internal/platform"
	"ClipPilot/internal/ports"
	"ClipPilot/internal/usecase"
)

// Application wires configuration to capabilities, the workflow and the
// control bots.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	workflow  *usecase.Workflow
	tiktok    *tiktok.Publisher
	menuBot   *telegram.MenuBot
	importBot *telegram.ImportBot
}

// New builds a runnable application instance from loaded configuration.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	source, err := buildSource(ctx, cfg, baseLogger)
	if err != nil {
		return nil, err
	}

	tiktokPublisher := tiktok.NewPublisher(
		tiktok.NewCookieStore(cfg.Platforms.SessionPath),
		cfg.Platforms.Headless,
		baseLogger.With("component", "tiktok"),
	)

	registry := platform.NewRegistry()
	if target, ok := cfg.Platforms.Targets["tiktok"]; ok && target.Enabled {
		registry.Register("tiktok", tiktokPublisher)
	}

	var notifier ports.Notifier
	if cfg.Telegram.Enabled && cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		notifier = telegram.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	}

	workflow := usecase.NewWorkflow(usecase.WorkflowDeps{
		Source:  source,
		Fetcher: youtube.NewDownloader(cfg.Paths.VideosDir, baseLogger.With("component", "downloader")),
		Ranker: gemini.NewRanker(gemini.Options{
			Endpoint:       cfg.Gemini.Endpoint,
			Model:          cfg.Gemini.Model,
			APIKey:         cfg.Gemini.APIKey,
			SimpleAnalysis: cfg.Gemini.SimpleAnalysis,
			MinViralViews:  cfg.Pipeline.MinViralViews,
		}, baseLogger.With("component", "ranker")),
		Localizer: translate.NewLocalizer(
			cfg.Translation.Endpoint,
			cfg.Pipeline.SourceLanguage,
			cfg.Pipeline.TargetLanguage,
			baseLogger.With("component", "localizer"),
		),
		Thumbnails: thumbnail.NewRenderer(cfg.Paths.ThumbnailsDir, thumbnail.Palette{
			GradientStart: cfg.Thumbnail.GradientStart,
			GradientEnd:   cfg.Thumbnail.GradientEnd,
			Text:          cfg.Thumbnail.TextColor,
			Badge:         cfg.Thumbnail.BadgeColor,
		}, baseLogger.With("component", "thumbnail")),
		Editor:    ffmpeg.NewEditor(cfg.Paths.TempDir, baseLogger.With("component", "editor")),
		Publisher: platform.NewTarget(registry, cfg.Platforms.Default),
		Notifier:  notifier,
		Logger:    baseLogger.With("component", "workflow"),
	}, usecase.WorkflowOptions{
		DefaultGenre: cfg.Pipeline.DefaultGenre,
		Platform:     cfg.Platforms.Default,
		MaxDuration:  cfg.Pipeline.MaxDuration,
		AnalyzeCount: cfg.Pipeline.AnalyzeCount,
		LoopDelay:    cfg.Pipeline.LoopDelay(),
		MaxLoops:     cfg.Pipeline.MaxLoops,
	})

	app := &Application{
		cfg:      cfg,
		logger:   baseLogger,
		workflow: workflow,
		tiktok:   tiktokPublisher,
	}

	if cfg.Telegram.Enabled && cfg.Telegram.BotToken != "" {
		menu := control.NewMenu(workflow, registry.Names())
		app.menuBot, err = telegram.NewMenuBot(cfg.Telegram.BotToken, menu, baseLogger.With("component", "menu_bot"))
		if err != nil {
			return nil, fmt.Errorf("menu bot: %w", err)
		}
	}

	if cfg.Telegram.Enabled && cfg.Telegram.ImportBotToken != "" {
		dialog := control.NewDialog(
			control.NewSessionStore(),
			importer.NewClient(cfg.Importer.BaseURL),
			baseLogger.With("component", "import_dialog"),
		)
		app.importBot, err = telegram.NewImportBot(cfg.Telegram.ImportBotToken, dialog, baseLogger.With("component", "import_bot"))
		if err != nil {
			return nil, fmt.Errorf("import bot: %w", err)
		}
	}

	return app, nil
}

func buildSource(ctx context.Context, cfg config.Config, logger *slog.Logger) (ports.VideoSource, error) {
	if cfg.YouTube.UseScrape || cfg.YouTube.APIKey == "" {
		return youtube.NewScrapeSource(cfg.YouTube.ScrapeBaseURL, nil, logger.With("component", "scrape")), nil
	}
	source, err := youtube.NewSearchClient(ctx, cfg.YouTube.APIKey, logger.With("component", "youtube"))
	if err != nil {
		return nil, fmt.Errorf("youtube client: %w", err)
	}
	return source, nil
}

// RunOnce executes a single pipeline cycle and exits.
func (a *Application) RunOnce(ctx context.Context, genre string) error {
	run, err := a.workflow.RunOnce(ctx, genre)
	if err != nil {
		return err
	}
	a.logger.Info("cycle finished", "run", run.ID, "final", run.FinalPath)
	return nil
}

// HasBots reports whether any control bot is configured.
func (a *Application) HasBots() bool {
	return a.menuBot != nil || a.importBot != nil
}

// Serve runs the control bots and blocks until the context is cancelled.
// With autoStart the repeating schedule begins immediately; otherwise it
// stays stopped until the operator starts it from the chat menu.
func (a *Application) Serve(ctx context.Context, autoStart bool) error {
	if autoStart {
		a.workflow.StartLoop()
	}

	var wg sync.WaitGroup
	if a.menuBot != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.menuBot.Run(ctx); err != nil && ctx.Err() == nil {
				a.logger.Error("menu bot stopped", "error", err)
			}
		}()
	}
	if a.importBot != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.importBot.Run(ctx); err != nil && ctx.Err() == nil {
				a.logger.Error("import bot stopped", "error", err)
			}
		}()
	}

	<-ctx.Done()
	a.workflow.StopLoop()
	wg.Wait()
	return nil
}

// SetupLogin opens a visible browser for the one-time platform login and
// persists the captured session.
func (a *Application) SetupLogin(ctx context.Context) error {
	return a.tiktok.Login(ctx)
}
