package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/agartha-dev/otenz/internal/completion"
	"github.com/agartha-dev/otenz/internal/config"
	"github.com/agartha-dev/otenz/internal/discord"
	"github.com/agartha-dev/otenz/internal/history"
	"github.com/agartha-dev/otenz/internal/orchestrator"
	"github.com/agartha-dev/otenz/internal/server"
	"github.com/agartha-dev/otenz/internal/telemetry"
	"github.com/agartha-dev/otenz/internal/tokens"
	"github.com/agartha-dev/otenz/internal/transcript"
	"github.com/agartha-dev/otenz/internal/words"
)

func main() {
	// Load .env if it exists; real env vars win.
	_ = godotenv.Load()

	configPath := os.Getenv("OTENZ_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// The persona is mandatory; the bot cannot start without it.
	promptBytes, err := os.ReadFile(cfg.Chat.SystemPromptFile)
	if err != nil {
		log.Fatalf("Failed to read system prompt %s: %v", cfg.Chat.SystemPromptFile, err)
	}
	systemPrompt := strings.TrimSpace(string(promptBytes))
	if systemPrompt == "" {
		log.Fatalf("System prompt %s is empty", cfg.Chat.SystemPromptFile)
	}
	logger.Info("system prompt loaded",
		slog.String("file", cfg.Chat.SystemPromptFile),
		slog.Int("chars", len(systemPrompt)),
	)

	shutdownTracer, err := telemetry.InitTracer("otenz", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	gateway := buildGateway(cfg, logger)
	hist := history.New(cfg.Chat.MaxHistory)

	bot, err := discord.New(cfg.Discord.Token, logger)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}
	if err := bot.Open(); err != nil {
		log.Fatalf("Failed to connect to Discord: %v", err)
	}
	defer bot.Close()
	logger.Info("bot is now online", slog.String("user", bot.Username()))

	router := discord.NewRouter(cfg.Command.Marker, logger)
	discord.NewCommands(hist, cfg.Discord.Role, logger).Register(router)

	opts := []orchestrator.Option{orchestrator.WithLogger(logger)}
	if list := loadWords(cfg.Words, logger); list != nil {
		opts = append(opts, orchestrator.WithInterjections(list))
	}
	if cfg.Transcripts.Path != "" {
		store, err := transcript.Open(cfg.Transcripts.Path)
		if err != nil {
			logger.Warn("transcript store disabled",
				slog.String("path", cfg.Transcripts.Path),
				slog.String("error", err.Error()),
			)
		} else {
			defer store.Close()
			opts = append(opts, orchestrator.WithTranscripts(store))
			logger.Info("transcript store opened", slog.String("path", cfg.Transcripts.Path))
		}
	}

	orch := orchestrator.New(orchestrator.Config{
		SelfID:       bot.SelfID(),
		SystemPrompt: systemPrompt,
		Marker:       cfg.Command.Marker,
		Commands:     router.Names(),
	}, hist, gateway, bot, opts...)

	bot.Bind(orch, router, cfg.Discord.Welcome)

	srv := server.New(cfg.Server.Port, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("keep-alive server failed", slog.String("error", err.Error()))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received, stopping bot")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("keep-alive server shutdown error", slog.String("error", err.Error()))
	}
}

func buildGateway(cfg *config.Config, logger *slog.Logger) *completion.Gateway {
	creds := []completion.Credential{{Label: "primary", Key: cfg.Groq.APIKey}}
	if cfg.Groq.PanicAPIKey != "" {
		creds = append(creds, completion.Credential{Label: "backup", Key: cfg.Groq.PanicAPIKey})
	} else {
		logger.Warn("no backup key configured, no failover if the primary key fails")
	}

	models := []string{cfg.Groq.Model}
	if cfg.Groq.FallbackModel != "" {
		models = append(models, cfg.Groq.FallbackModel)
	}

	timeout, err := cfg.GroqAttemptTimeout()
	if err != nil {
		// Validate already checked this; keep the default on the off chance.
		timeout = completion.DefaultAttemptTimeout
	}

	opts := []completion.Option{
		completion.WithLogger(logger),
		completion.WithReplyLimit(cfg.Chat.ReplyLimit),
		completion.WithAttemptTimeout(timeout),
	}
	if est, err := tokens.NewEstimator(); err != nil {
		logger.Warn("token estimator unavailable", slog.String("error", err.Error()))
	} else {
		opts = append(opts, completion.WithEstimator(est))
	}

	gateway, err := completion.New(creds, models, cfg.Groq.BaseURL, completion.Params{
		MaxTokens:   cfg.Groq.MaxTokens,
		Temperature: cfg.Groq.Temperature,
		TopP:        cfg.Groq.TopP,
	}, opts...)
	if err != nil {
		log.Fatalf("Failed to build completion gateway: %v", err)
	}
	return gateway
}

func loadWords(cfg config.WordsConfig, logger *slog.Logger) *words.List {
	if cfg.File == "" {
		return nil
	}
	lines, err := words.Load(cfg.File)
	if err != nil {
		logger.Warn("word list not loaded, random word feature disabled",
			slog.String("file", cfg.File),
			slog.String("error", err.Error()),
		)
		return nil
	}
	logger.Info("loaded random words",
		slog.String("file", cfg.File),
		slog.Int("count", len(lines)),
	)
	return words.New(lines, cfg.Odds)
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stdout
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Printf("Failed to open log file %s, logging to stdout: %v", cfg.File, err)
		} else {
			out = f
		}
	}

	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
}
