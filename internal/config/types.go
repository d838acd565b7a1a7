// Package config loads sqlee settings from defaults, a YAML file, the
// environment and command-line flags.
package config

import "time"

// Default configuration values.
const (
	DefaultEngine       = "sqlite"
	DefaultMaxRows      = 1000
	DefaultQueryTimeout = 30 * time.Second
	DefaultLogFile      = "debug.log"
	DefaultHistoryFile  = "~/.sqlee_history"
	DefaultLLMProvider  = "openai"
	DefaultOpenAIModel  = "gpt-4o-mini"
	DefaultOllamaModel  = "llama3.2"
)

// Config holds all settings.
type Config struct {
	Engine       string                      `koanf:"engine"`
	DSN          string                      `koanf:"dsn"`
	Connection   string                      `koanf:"connection"`
	Connections  map[string]ConnectionConfig `koanf:"connections"`
	MaxRows      int                         `koanf:"max_rows"`
	QueryTimeout time.Duration               `koanf:"query_timeout"`
	Debug        bool                        `koanf:"debug"`
	LogFile      string                      `koanf:"log_file"`
	HistoryFile  string                      `koanf:"history_file"`
	LLM          LLMConfig                   `koanf:"llm"`
}

// ConnectionConfig is a named connection.
type ConnectionConfig struct {
	Engine string `koanf:"engine"`
	DSN    string `koanf:"dsn"`
}

// LLMConfig selects the model behind natural-language prompts.
type LLMConfig struct {
	Provider  string `koanf:"provider"`
	Model     string `koanf:"model"`
	ServerURL string `koanf:"server_url"`
}

// ModelName returns the configured model or the provider's default.
func (c LLMConfig) ModelName() string {
	if c.Model != "" {
		return c.Model
	}
	if c.Provider == "ollama" {
		return DefaultOllamaModel
	}
	return DefaultOpenAIModel
}

// Connection is a resolved engine and data source name.
type Connection struct {
	Name   string
	Engine string
	DSN    string
}
