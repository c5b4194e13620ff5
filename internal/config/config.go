package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv     = "CLIPPILOT_CONFIG"
	youtubeKeyEnv     = "YOUTUBE_API_KEY"
	geminiKeyEnv      = "GEMINI_API_KEY"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	importTokenEnv    = "IMPORT_BOT_TOKEN"
	backendURLEnv     = "IMPORT_BACKEND_URL"
)

// Config holds high-level settings required across the application.
// Everything is read at startup; only the loop delay is mutable at runtime,
// via the control bot's /set_delay command.
type Config struct {
	Logging     LoggingConfig     `yaml:"logging"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	YouTube     YouTubeConfig     `yaml:"youtube"`
	Gemini      GeminiConfig      `yaml:"gemini"`
	Translation TranslationConfig `yaml:"translation"`
	Thumbnail   ThumbnailConfig   `yaml:"thumbnail"`
	Platforms   PlatformsConfig   `yaml:"platforms"`
	Telegram    TelegramConfig    `yaml:"telegram"`
	Importer    ImporterConfig    `yaml:"importer"`
	Paths       PathsConfig       `yaml:"paths"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// PipelineConfig defines selection and scheduling parameters.
type PipelineConfig struct {
	Genres           []string `yaml:"genres"`
	DefaultGenre     string   `yaml:"defaultGenre"`
	MaxDuration      int      `yaml:"maxDurationSeconds"`
	MinViralViews    int64    `yaml:"minViralViews"`
	AnalyzeCount     int      `yaml:"analyzeCount"`
	LoopDelaySeconds int      `yaml:"loopDelaySeconds"`
	MaxLoops         int      `yaml:"maxLoops"` // -1 means infinite
	SourceLanguage   string   `yaml:"sourceLanguage"`
	TargetLanguage   string   `yaml:"targetLanguage"`
}

// LoopDelay resolves the configured inter-cycle delay.
func (p PipelineConfig) LoopDelay() time.Duration {
	return time.Duration(p.LoopDelaySeconds) * time.Second
}

// YouTubeConfig wires the search and download capability.
type YouTubeConfig struct {
	APIKey string `yaml:"apiKey"`
	// UseScrape switches search to HTML scraping of ScrapeBaseURL when
	// the Data API key is absent or its quota is exhausted.
	UseScrape     bool   `yaml:"useScrape"`
	ScrapeBaseURL string `yaml:"scrapeBaseUrl"`
}

// GeminiConfig defines how to contact the Gemini API for virality scoring.
type GeminiConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"apiKey"`
	// SimpleAnalysis forces the heuristic scorer even when an API key is set.
	SimpleAnalysis bool `yaml:"simpleAnalysis"`
}

// TranslationConfig selects the free translate endpoint and languages.
type TranslationConfig struct {
	Endpoint string `yaml:"endpoint"`
}

// ThumbnailConfig holds the visual parameters for rendered thumbnails.
type ThumbnailConfig struct {
	GradientStart [3]uint8 `yaml:"gradientStart"`
	GradientEnd   [3]uint8 `yaml:"gradientEnd"`
	TextColor     [3]uint8 `yaml:"textColor"`
	BadgeColor    [3]uint8 `yaml:"badgeColor"`
}

// PlatformConfig describes one upload target.
type PlatformConfig struct {
	Enabled       bool `yaml:"enabled"`
	LoginRequired bool `yaml:"loginRequired"`
}

// PlatformsConfig groups upload targets and browser automation settings.
type PlatformsConfig struct {
	Default     string                    `yaml:"default"`
	Targets     map[string]PlatformConfig `yaml:"targets"`
	SessionPath string                    `yaml:"sessionPath"`
	Headless    bool                      `yaml:"headless"`
}

// TelegramConfig wires both control bots.
type TelegramConfig struct {
	Enabled        bool   `yaml:"enabled"`
	BotToken       string `yaml:"botToken"`
	ChatID         string `yaml:"chatId"`
	ImportBotToken string `yaml:"importBotToken"`
}

// ImporterConfig points the import dialogue at its remote backend.
type ImporterConfig struct {
	BaseURL string `yaml:"baseUrl"`
}

// PathsConfig lists the output directories written by the pipeline.
type PathsConfig struct {
	OutputDir     string `yaml:"outputDir"`
	TempDir       string `yaml:"tempDir"`
	ThumbnailsDir string `yaml:"thumbnailsDir"`
	VideosDir     string `yaml:"videosDir"`
}

// Load reads .env, YAML configuration (if present) and applies environment
// overrides.
func Load() Config {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	if len(cfg.Pipeline.Genres) == 0 {
		cfg.Pipeline.Genres = defaultConfig().Pipeline.Genres
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(youtubeKeyEnv); v != "" {
		c.YouTube.APIKey = v
	}
	if v := os.Getenv(geminiKeyEnv); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv(importTokenEnv); v != "" {
		c.Telegram.ImportBotToken = v
	}
	if v := os.Getenv(backendURLEnv); v != "" {
		c.Importer.BaseURL = v
	}
}

// EnsureDirs creates the configured output directories.
func (c Config) EnsureDirs() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.TempDir, c.Paths.ThumbnailsDir, c.Paths.VideosDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	return nil
}

// Validate rejects unrecoverable misconfiguration before any loop starts.
func (c Config) Validate() error {
	if c.Pipeline.DefaultGenre == "" {
		return fmt.Errorf("pipeline: default genre is required")
	}
	if c.Platforms.Default == "" {
		return fmt.Errorf("platforms: default platform is required")
	}
	target, ok := c.Platforms.Targets[c.Platforms.Default]
	if !ok {
		return fmt.Errorf("platforms: default platform %q is not configured", c.Platforms.Default)
	}
	if !target.Enabled {
		return fmt.Errorf("platforms: default platform %q is disabled", c.Platforms.Default)
	}
	if target.LoginRequired && c.Platforms.SessionPath == "" {
		return fmt.Errorf("platforms: %q requires a session path", c.Platforms.Default)
	}
	if c.Telegram.Enabled && c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram: bot enabled but no token configured")
	}
	return nil
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if len(override.Pipeline.Genres) > 0 {
		base.Pipeline.Genres = override.Pipeline.Genres
	}
	if override.Pipeline.DefaultGenre != "" {
		base.Pipeline.DefaultGenre = override.Pipeline.DefaultGenre
	}
	if override.Pipeline.MaxDuration > 0 {
		base.Pipeline.MaxDuration = override.Pipeline.MaxDuration
	}
	if override.Pipeline.MinViralViews > 0 {
		base.Pipeline.MinViralViews = override.Pipeline.MinViralViews
	}
	if override.Pipeline.AnalyzeCount > 0 {
		base.Pipeline.AnalyzeCount = override.Pipeline.AnalyzeCount
	}
	if override.Pipeline.LoopDelaySeconds > 0 {
		base.Pipeline.LoopDelaySeconds = override.Pipeline.LoopDelaySeconds
	}
	if override.Pipeline.MaxLoops != 0 {
		base.Pipeline.MaxLoops = override.Pipeline.MaxLoops
	}
	if override.Pipeline.SourceLanguage != "" {
		base.Pipeline.SourceLanguage = override.Pipeline.SourceLanguage
	}
	if override.Pipeline.TargetLanguage != "" {
		base.Pipeline.TargetLanguage = override.Pipeline.TargetLanguage
	}

	if override.YouTube.APIKey != "" {
		base.YouTube.APIKey = override.YouTube.APIKey
	}
	if override.YouTube.UseScrape {
		base.YouTube.UseScrape = true
	}
	if override.YouTube.ScrapeBaseURL != "" {
		base.YouTube.ScrapeBaseURL = override.YouTube.ScrapeBaseURL
	}

	if override.Gemini.Endpoint != "" {
		base.Gemini.Endpoint = override.Gemini.Endpoint
	}
	if override.Gemini.Model != "" {
		base.Gemini.Model = override.Gemini.Model
	}
	if override.Gemini.APIKey != "" {
		base.Gemini.APIKey = override.Gemini.APIKey
	}
	if override.Gemini.SimpleAnalysis {
		base.Gemini.SimpleAnalysis = true
	}

	if override.Translation.Endpoint != "" {
		base.Translation.Endpoint = override.Translation.Endpoint
	}

	var zeroColor [3]uint8
	if override.Thumbnail.GradientStart != zeroColor {
		base.Thumbnail.GradientStart = override.Thumbnail.GradientStart
	}
	if override.Thumbnail.GradientEnd != zeroColor {
		base.Thumbnail.GradientEnd = override.Thumbnail.GradientEnd
	}
	if override.Thumbnail.TextColor != zeroColor {
		base.Thumbnail.TextColor = override.Thumbnail.TextColor
	}
	if override.Thumbnail.BadgeColor != zeroColor {
		base.Thumbnail.BadgeColor = override.Thumbnail.BadgeColor
	}

	if override.Platforms.Default != "" {
		base.Platforms.Default = override.Platforms.Default
	}
	if len(override.Platforms.Targets) > 0 {
		base.Platforms.Targets = override.Platforms.Targets
	}
	if override.Platforms.SessionPath != "" {
		base.Platforms.SessionPath = override.Platforms.SessionPath
	}
	if override.Platforms.Headless {
		base.Platforms.Headless = true
	}

	if override.Telegram.Enabled {
		base.Telegram.Enabled = true
	}
	if override.Telegram.BotToken != "" {
		base.Telegram.BotToken = override.Telegram.BotToken
	}
	if override.Telegram.ChatID != "" {
		base.Telegram.ChatID = override.Telegram.ChatID
	}
	if override.Telegram.ImportBotToken != "" {
		base.Telegram.ImportBotToken = override.Telegram.ImportBotToken
	}

	if override.Importer.BaseURL != "" {
		base.Importer.BaseURL = override.Importer.BaseURL
	}

	if override.Paths.OutputDir != "" {
		base.Paths.OutputDir = override.Paths.OutputDir
	}
	if override.Paths.TempDir != "" {
		base.Paths.TempDir = override.Paths.TempDir
	}
	if override.Paths.ThumbnailsDir != "" {
		base.Paths.ThumbnailsDir = override.Paths.ThumbnailsDir
	}
	if override.Paths.VideosDir != "" {
		base.Paths.VideosDir = override.Paths.VideosDir
	}

	return base
}

func defaultConfig() Config {
	output := "output"
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Pipeline: PipelineConfig{
			Genres: []string{
				"gaming", "comedy", "tech", "lifestyle", "education",
				"music", "sports", "cooking", "travel", "finance",
			},
			DefaultGenre:     "gaming",
			MaxDuration:      60,
			MinViralViews:    100000,
			AnalyzeCount:     10,
			LoopDelaySeconds: 3600,
			MaxLoops:         -1,
			SourceLanguage:   "en",
			TargetLanguage:   "id",
		},
		YouTube: YouTubeConfig{
			ScrapeBaseURL: "https://yewtu.be",
		},
		Gemini: GeminiConfig{
			Endpoint: "https://generativelanguage.googleapis.com",
			Model:    "gemini-2.0-flash-exp",
		},
		Translation: TranslationConfig{
			Endpoint: "https://translate.googleapis.com/translate_a/single",
		},
		Thumbnail: ThumbnailConfig{
			GradientStart: [3]uint8{138, 43, 226},
			GradientEnd:   [3]uint8{148, 0, 211},
			TextColor:     [3]uint8{255, 255, 255},
			BadgeColor:    [3]uint8{255, 0, 0},
		},
		Platforms: PlatformsConfig{
			Default: "tiktok",
			Targets: map[string]PlatformConfig{
				"tiktok":          {Enabled: true, LoginRequired: true},
				"youtube_shorts":  {Enabled: false, LoginRequired: true},
				"instagram_reels": {Enabled: false, LoginRequired: true},
			},
			SessionPath: "tiktok_session.json",
			Headless:    false,
		},
		Telegram: TelegramConfig{Enabled: true},
		Importer: ImporterConfig{BaseURL: "http://localhost:3000/api"},
		Paths: PathsConfig{
			OutputDir:     output,
			TempDir:       "temp",
			ThumbnailsDir: filepath.Join(output, "thumbnails"),
			VideosDir:     filepath.Join(output, "videos"),
		},
	}
}
