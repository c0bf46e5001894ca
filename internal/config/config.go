// Package config loads the bot's configuration from an optional YAML file
// with an OTENZ_ environment overlay. Secrets may reference environment
// variables as ${VAR}.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Discord     DiscordConfig     `koanf:"discord"`
	Groq        GroqConfig        `koanf:"groq"`
	Chat        ChatConfig        `koanf:"chat"`
	Words       WordsConfig       `koanf:"words"`
	Command     CommandConfig     `koanf:"command"`
	Server      ServerConfig      `koanf:"server"`
	Transcripts TranscriptsConfig `koanf:"transcripts"`
	Log         LogConfig         `koanf:"log"`
}

type DiscordConfig struct {
	Token string `koanf:"token"`
	// Role is granted/revoked by the assign and removerole commands.
	Role string `koanf:"role"`
	// Welcome enables the DM sent when a member joins.
	Welcome bool `koanf:"welcome"`
}

type GroqConfig struct {
	APIKey string `koanf:"api_key"`
	// PanicAPIKey is the backup key tried when the primary fails.
	PanicAPIKey string `koanf:"panic_api_key"`
	BaseURL     string `koanf:"base_url"`
	Model       string `koanf:"model"`
	// FallbackModel, when set, is tried under the same key before the
	// ladder escalates to the backup key.
	FallbackModel  string  `koanf:"fallback_model"`
	MaxTokens      int     `koanf:"max_tokens"`
	Temperature    float32 `koanf:"temperature"`
	TopP           float32 `koanf:"top_p"`
	AttemptTimeout string  `koanf:"attempt_timeout"`
}

type ChatConfig struct {
	SystemPromptFile string `koanf:"system_prompt_file"`
	MaxHistory       int    `koanf:"max_history"`
	ReplyLimit       int    `koanf:"reply_limit"`
}

type WordsConfig struct {
	File string `koanf:"file"`
	// Odds is the 1-in-N interjection probability.
	Odds int `koanf:"odds"`
}

type CommandConfig struct {
	Marker string `koanf:"marker"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type TranscriptsConfig struct {
	// Path enables the SQLite transcript store when set.
	Path string `koanf:"path"`
}

type LogConfig struct {
	Level string `koanf:"level"`
	// File redirects log output when set; default is stdout.
	File string `koanf:"file"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads path (missing file is fine, env vars still apply) and overlays
// OTENZ_ environment variables, with SECTION__KEY mapping to section.key.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := k.Load(env.Provider("OTENZ_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "OTENZ_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	defaults := map[string]interface{}{
		"discord.role":            "agartha",
		"discord.welcome":         true,
		"groq.base_url":           "https://api.groq.com/openai/v1",
		"groq.model":              "llama-3.3-70b-versatile",
		"groq.max_tokens":         600,
		"groq.temperature":        0.8,
		"groq.top_p":              0.9,
		"groq.attempt_timeout":    "60s",
		"chat.system_prompt_file": "system_prompt.txt",
		"chat.max_history":        12,
		"chat.reply_limit":        2000,
		"words.file":              "random_words.txt",
		"words.odds":              50,
		"command.marker":          "!",
		"server.port":             8080,
		"log.level":               "info",
	}
	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	cfg.Discord.Token = substituteEnvVars(cfg.Discord.Token)
	cfg.Groq.APIKey = substituteEnvVars(cfg.Groq.APIKey)
	cfg.Groq.PanicAPIKey = substituteEnvVars(cfg.Groq.PanicAPIKey)

	return &cfg, nil
}

// Validate checks the mandatory fields. A missing token, primary key, or
// system prompt file is fatal at startup; everything optional degrades with
// a warning elsewhere.
func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return fmt.Errorf("discord.token is required")
	}
	if c.Groq.APIKey == "" {
		return fmt.Errorf("groq.api_key is required")
	}
	if c.Chat.SystemPromptFile == "" {
		return fmt.Errorf("chat.system_prompt_file is required")
	}
	if _, err := c.GroqAttemptTimeout(); err != nil {
		return err
	}
	return nil
}

// GroqAttemptTimeout parses the per-attempt timeout.
func (c *Config) GroqAttemptTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Groq.AttemptTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid groq.attempt_timeout: %w", err)
	}
	return d, nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
