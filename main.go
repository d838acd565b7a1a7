package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/calebcauthon/sqlee/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sqlee [db-path]",
		Short: "Terminal SQL client with completion and inline editing",
		Long: `sqlee opens a database in a two-pane terminal UI: a table list on the
left, a query editor with context-aware completion and an editable result
grid on the right.

With no db-path the connection comes from --dsn, --connection, DB_PATH or the
newest .db file in the working directory or ./instance.`,
		Args: cobra.MaximumNArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			var err error
			cfg, err = config.Load(cfgFile, cmd.Root().PersistentFlags())
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./sqlee.yaml)")
	flags.String("engine", "", "database engine: sqlite, postgres or mysql")
	flags.String("dsn", "", "data source name or database path")
	flags.StringP("connection", "c", "", "named connection from the config file")
	flags.Int("max-rows", 0, "maximum rows fetched per query")
	flags.Duration("query-timeout", 0, "timeout for a single statement")
	flags.Bool("debug", false, "write debug logs")
	flags.String("log-file", "", "debug log file for the TUI")
	flags.String("history-file", "", "REPL history file")
	flags.String("llm-provider", "", "NL to SQL provider: openai or ollama")
	flags.String("llm-model", "", "NL to SQL model name")
	flags.String("llm-url", "", "NL to SQL server URL")

	_ = rootCmd.RegisterFlagCompletionFunc("engine", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"sqlite", "postgres", "mysql"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newReplCommand())
	rootCmd.AddCommand(newSuggestCommand())
	return rootCmd
}

func runTUI(ctx context.Context, args []string) error {
	log, closeLog, err := newTUILogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	conn, err := cfg.Active(args)
	if err != nil {
		return err
	}
	exec, err := openExecutor(ctx, conn, cfg.MaxRows)
	if err != nil {
		return err
	}
	log.Debug("connected", "engine", conn.Engine, "connection", conn.Name)

	p := tea.NewProgram(newModel(cfg, conn, exec, log), tea.WithAltScreen())
	final, err := p.Run()
	// the picker may have replaced the connection opened here
	var last backend = exec
	if fm, ok := final.(model); ok && fm.db != nil {
		last = fm.db
	}
	_ = last.Close()
	return err
}

// newTUILogger logs to the debug file while the terminal belongs to the UI.
func newTUILogger(c *config.Config) (*slog.Logger, func(), error) {
	if !c.Debug {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}
	f, err := tea.LogToFile(c.LogFile, "debug")
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	log := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return log, func() { _ = f.Close() }, nil
}

// newCLILogger logs to w at warn level, or debug with --debug.
func newCLILogger(w io.Writer, c *config.Config) *slog.Logger {
	level := slog.LevelWarn
	if c.Debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
