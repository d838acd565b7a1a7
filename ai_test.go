package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calebcauthon/sqlee/internal/catalog"
	"github.com/calebcauthon/sqlee/internal/config"
)

func TestBuildTranslatePrompt(t *testing.T) {
	cat := catalog.New(
		catalog.Table{Name: "users", Columns: []string{"id", "name"}},
		catalog.Table{Name: "orders", Columns: []string{"id", "user_id", "total"}},
	)

	got := buildTranslatePrompt("sqlite", "  oldest user ", cat)

	want := "Translate the request into a single sqlite SQL query.\n" +
		"Reply with the SQL only, no explanation.\n" +
		"\nSchema:\n" +
		"- users(id, name)\n" +
		"- orders(id, user_id, total)\n" +
		"\nRequest: oldest user\n"
	assert.Equal(t, want, got)
}

func TestBuildTranslatePrompt_NoSchema(t *testing.T) {
	got := buildTranslatePrompt("postgres", "count rows", catalog.New())
	assert.NotContains(t, got, "Schema:")
	assert.Contains(t, got, "single postgres SQL query")
}

func TestExtractSQL(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{name: "plain", reply: "  SELECT 1  ", want: "SELECT 1"},
		{name: "fenced with tag", reply: "Here:\n```sql\nSELECT *\nFROM users;\n```\nDone.", want: "SELECT *\nFROM users;"},
		{name: "fenced without tag", reply: "```\nSELECT 2\n```", want: "SELECT 2"},
		{name: "inline fence", reply: "```SELECT 3```", want: "SELECT 3"},
		{name: "first line is sql", reply: "```SELECT a FROM t\nWHERE a > 1```", want: "SELECT a FROM t\nWHERE a > 1"},
		{name: "unterminated", reply: "```sql\nSELECT 4", want: "SELECT 4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractSQL(tt.reply))
		})
	}
}

func TestNewLLM_UnsupportedProvider(t *testing.T) {
	_, err := newLLM(config.LLMConfig{Provider: "bard"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported llm provider")
}

func TestNewLLM_Ollama(t *testing.T) {
	llm, err := newLLM(config.LLMConfig{Provider: "ollama", ServerURL: "http://localhost:11434"})
	require.NoError(t, err)
	assert.NotNil(t, llm)
}
