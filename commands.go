package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/calebcauthon/sqlee/internal/catalog"
	"github.com/calebcauthon/sqlee/internal/completion"
	"github.com/calebcauthon/sqlee/internal/config"
)

// connect opens the active connection for a CLI command.
func connect(ctx context.Context, args []string, log *slog.Logger) (*sqlExecutor, config.Connection, error) {
	conn, err := cfg.Active(args)
	if err != nil {
		return nil, conn, err
	}
	exec, err := openExecutor(ctx, conn, cfg.MaxRows)
	if err != nil {
		return nil, conn, err
	}
	log.Debug("connected", "engine", conn.Engine, "connection", conn.Name)
	return exec, conn, nil
}

func newRunCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "run <sql>",
		Short: "Execute one statement and print the result",
		Example: `  sqlee run "SELECT * FROM users"
  sqlee run "SELECT * FROM users" --format csv
  sqlee run --dsn "postgres://localhost/app" --engine postgres "SELECT 1"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			log := newCLILogger(cmd.ErrOrStderr(), cfg)
			exec, _, err := connect(cmd.Context(), nil, log)
			if err != nil {
				return err
			}
			defer func() { _ = exec.Close() }()

			sess := newSession(conn, log)
			sess.SetText(args[0])
			ctx, cancel := queryContext(cmd.Context(), cfg.QueryTimeout)
			defer cancel()
			if err := sess.RunQuery(ctx, exec); err != nil {
				return err
			}
			return renderResult(cmd.OutOrStdout(), sess.Results(), format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "output format: table, csv or markdown")
	return cmd
}

func newSuggestCommand() *cobra.Command {
	var (
		offset   int
		explicit bool
	)

	cmd := &cobra.Command{
		Use:   "suggest <text>",
		Short: "Print the completions offered for text",
		Long: `Print the completions the editor would offer with the cursor at the end
of text, or at --offset (in characters). Table and column names come from the
active connection when one is configured.`,
		Example: `  sqlee suggest "SELECT * FROM "
  sqlee suggest "SELECT  FROM users" --offset 7 --explicit`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newCLILogger(cmd.ErrOrStderr(), cfg)
			cat, err := suggestCatalog(cmd.Context(), log)
			if err != nil {
				return err
			}
			text := args[0]
			if offset < 0 {
				offset = utf8.RuneCountInString(text)
			}

			w := cmd.OutOrStdout()
			c, ok := completion.Suggest(text, offset, explicit, cat)
			if !ok {
				_, _ = fmt.Fprintln(w, "(no completion)")
				return nil
			}
			prefix := string([]rune(text)[c.From:min(offset, utf8.RuneCountInString(text))])
			items := completion.Filter(c.Items, prefix)

			_, _ = fmt.Fprintf(w, "rule: %s\n", c.Rule)
			t := table.NewWriter()
			t.SetOutputMirror(w)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"label", "kind", "detail"})
			for _, it := range items {
				t.AppendRow(table.Row{it.Label, it.Kind.String(), it.Detail})
			}
			t.Render()
			_, _ = fmt.Fprintf(w, "(%d suggestions)\n", len(items))
			return nil
		},
	}
	cmd.Flags().IntVar(&offset, "offset", -1, "cursor position in characters (default: end of text)")
	cmd.Flags().BoolVar(&explicit, "explicit", false, "treat the request as an explicit completion key press")
	return cmd
}

// suggestCatalog loads the schema of the active connection, or returns an
// empty catalog when no database is configured.
func suggestCatalog(ctx context.Context, log *slog.Logger) (catalog.Catalog, error) {
	exec, _, err := connect(ctx, nil, log)
	if errors.Is(err, config.ErrNoDatabase) {
		return catalog.New(), nil
	}
	if err != nil {
		return catalog.Catalog{}, err
	}
	defer func() { _ = exec.Close() }()
	ctx, cancel := queryContext(ctx, cfg.QueryTimeout)
	defer cancel()
	return exec.Catalog(ctx)
}
