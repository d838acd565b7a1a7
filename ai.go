package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/calebcauthon/sqlee/internal/catalog"
	"github.com/calebcauthon/sqlee/internal/config"
)

const llmTimeout = 60 * time.Second

type aiResponseMsg struct {
	sql string
	err error
}

// newLLM builds the model client. OPENAI_API_KEY is read by openai.New.
func newLLM(cfg config.LLMConfig) (llms.Model, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		opts := []openai.Option{openai.WithModel(cfg.ModelName())}
		if cfg.ServerURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.ServerURL))
		}
		return openai.New(opts...)
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(cfg.ModelName())}
		if cfg.ServerURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.ServerURL))
		}
		return ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}

// translateCmd asks the model for SQL answering question and yields an
// aiResponseMsg.
func translateCmd(cfg config.LLMConfig, engine, question string, cat catalog.Catalog) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), llmTimeout)
		defer cancel()

		llm, err := newLLM(cfg)
		if err != nil {
			return aiResponseMsg{err: err}
		}
		prompt := buildTranslatePrompt(engine, question, cat)
		completion, err := llms.GenerateFromSinglePrompt(ctx, llm, prompt, llms.WithTemperature(0))
		if err != nil {
			return aiResponseMsg{err: err}
		}
		return aiResponseMsg{sql: extractSQL(completion)}
	}
}

func buildTranslatePrompt(engine, question string, cat catalog.Catalog) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Translate the request into a single %s SQL query.\n", engine)
	b.WriteString("Reply with the SQL only, no explanation.\n")
	if !cat.Empty() {
		b.WriteString("\nSchema:\n")
		for _, t := range cat.Tables() {
			fmt.Fprintf(&b, "- %s(%s)\n", t.Name, strings.Join(t.Columns, ", "))
		}
	}
	fmt.Fprintf(&b, "\nRequest: %s\n", strings.TrimSpace(question))
	return b.String()
}

// extractSQL strips Markdown code fences from a model reply.
func extractSQL(reply string) string {
	s := strings.TrimSpace(reply)
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			// drop the language tag
			if tag := strings.TrimSpace(s[:nl]); !strings.ContainsAny(tag, " ;") {
				s = s[nl+1:]
			}
		}
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	}
	return strings.TrimSpace(s)
}
