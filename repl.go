package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/calebcauthon/sqlee/internal/completion"
	"github.com/calebcauthon/sqlee/internal/session"
)

const (
	replPrompt     = "sqlee> "
	replContPrompt = "   ...> "
)

var dotCommands = []string{".help", ".tables", ".history", ".edit", ".quit", ".exit"}

func newReplCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "repl [db-path]",
		Short: "Line-oriented SQL shell with completion",
		Long: `Start an interactive SQL shell. Statements end with a semicolon. Tab
completes keywords, tables and columns; .edit changes a cell of the last
result with a synthesized UPDATE.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			return runREPL(cmd, args, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "output format: table, csv or markdown")
	return cmd
}

type repl struct {
	sess    *session.Session
	exec    *sqlExecutor
	log     *slog.Logger
	out     io.Writer
	errOut  io.Writer
	format  string
	timeout time.Duration
}

func runREPL(cmd *cobra.Command, args []string, format string) error {
	ctx := cmd.Context()
	log := newCLILogger(cmd.ErrOrStderr(), cfg)
	exec, conn, err := connect(ctx, args, log)
	if err != nil {
		return err
	}
	defer func() { _ = exec.Close() }()

	r := &repl{
		sess:    newSession(conn, log),
		exec:    exec,
		log:     log,
		out:     cmd.OutOrStdout(),
		errOut:  cmd.ErrOrStderr(),
		format:  format,
		timeout: cfg.QueryTimeout,
	}
	r.reloadCatalog(ctx)

	var buf strings.Builder
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     cfg.HistoryFile,
		AutoComplete:    &replCompleter{sess: r.sess, pending: &buf},
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	name := conn.DSN
	if conn.Name != "" {
		name = conn.Name
	}
	_, _ = fmt.Fprintf(r.out, "sqlee (%s: %s)\n", conn.Engine, name)
	_, _ = fmt.Fprintln(r.out, "Type .help for commands, .quit to exit")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buf.Reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if buf.Len() == 0 && strings.HasPrefix(line, ".") {
			if quit := r.dotCommand(ctx, line); quit {
				return nil
			}
			continue
		}

		buf.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			buf.WriteString("\n")
			rl.SetPrompt(replContPrompt)
			continue
		}
		rl.SetPrompt(replPrompt)
		query := strings.TrimSuffix(buf.String(), ";")
		buf.Reset()

		if err := r.run(ctx, query); err != nil {
			_, _ = fmt.Fprintf(r.errOut, "Error: %v\n", err)
		}
	}
}

func (r *repl) run(ctx context.Context, query string) error {
	r.sess.SetText(query)
	qctx, cancel := queryContext(ctx, r.timeout)
	defer cancel()
	if err := r.sess.RunQuery(qctx, r.exec); err != nil {
		return err
	}
	if err := renderResult(r.out, r.sess.Results(), r.format); err != nil {
		return err
	}
	if reSchemaChange.MatchString(query) {
		r.reloadCatalog(ctx)
	}
	return nil
}

func (r *repl) reloadCatalog(ctx context.Context) {
	qctx, cancel := queryContext(ctx, r.timeout)
	defer cancel()
	cat, err := r.exec.Catalog(qctx)
	if err != nil {
		r.log.Warn("schema unavailable, completion limited to keywords", "error", err)
		return
	}
	r.sess.SetCatalog(cat)
}

// dotCommand handles a .command line and reports whether the REPL should exit.
func (r *repl) dotCommand(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit":
		return true
	case ".help":
		printREPLHelp(r.out)
	case ".tables":
		r.printTables()
	case ".history":
		for i, q := range r.sess.History() {
			_, _ = fmt.Fprintf(r.out, "%4d  %s\n", i+1, strings.ReplaceAll(q, "\n", " "))
		}
	case ".edit":
		if err := r.edit(ctx, line); err != nil {
			_, _ = fmt.Fprintf(r.errOut, "Error: %v\n", err)
		}
	default:
		_, _ = fmt.Fprintf(r.errOut, "Unknown command: %s (type .help for commands)\n", parts[0])
	}
	return false
}

func (r *repl) printTables() {
	tables := r.sess.Catalog().Tables()
	if len(tables) == 0 {
		_, _ = fmt.Fprintln(r.out, "(no tables)")
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"table", "columns"})
	for _, tb := range tables {
		t.AppendRow(table.Row{tb.Name, strings.Join(tb.Columns, ", ")})
	}
	t.Render()
}

// edit parses ".edit <row> <column> <value>" where row is 1-based and column
// is a name or a 1-based position. A missing value is empty input.
func (r *repl) edit(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return errors.New("usage: .edit <row> <column> [value]")
	}
	rs := r.sess.Results()
	if rs == nil {
		return session.ErrNoResults
	}
	row, err := strconv.Atoi(fields[1])
	if err != nil {
		return fmt.Errorf("invalid row %q", fields[1])
	}
	col := columnIndex(rs.Columns, fields[2])
	if col < 0 {
		return fmt.Errorf("unknown column %q", fields[2])
	}
	value := editValue(line)

	if err := r.sess.StartEditingCell(row-1, col, value); err != nil {
		return err
	}
	qctx, cancel := queryContext(ctx, r.timeout)
	defer cancel()
	if err := r.sess.CommitEdit(qctx, echoExecutor{Executor: r.exec, w: r.out}); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(r.out, "(1 cell updated)")
	return nil
}

// editValue returns the text after the third field of an .edit line, with
// inner spacing preserved.
func editValue(line string) string {
	rest := strings.TrimSpace(line)
	for range 3 {
		i := strings.IndexAny(rest, " \t")
		if i < 0 {
			return ""
		}
		rest = strings.TrimLeft(rest[i:], " \t")
	}
	return rest
}

func columnIndex(cols []string, ref string) int {
	for i, c := range cols {
		if strings.EqualFold(c, ref) {
			return i
		}
	}
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(cols) {
		return n - 1
	}
	return -1
}

// echoExecutor prints statements before executing them.
type echoExecutor struct {
	session.Executor
	w io.Writer
}

func (e echoExecutor) Exec(ctx context.Context, sql string) (int64, error) {
	_, _ = fmt.Fprintln(e.w, sql)
	return e.Executor.Exec(ctx, sql)
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help                          Show this help message
  .tables                        List tables and their columns
  .history                       Show statements run in this session
  .edit <row> <column> [value]   Update a cell of the last result (row from 1,
                                 column by name or position; no value clears it)
  .quit / .exit                  Exit the REPL

Tips:
  - SQL statements must end with a semicolon (;)
  - Use arrow keys to navigate history
  - Tab completes keywords, table and column names
`
	_, _ = fmt.Fprintln(w, help)
}

// replCompleter feeds readline from the completion engine. Lines already
// entered for the current statement are part of the text it looks at.
type replCompleter struct {
	sess    *session.Session
	pending *strings.Builder
}

func (c *replCompleter) Do(line []rune, pos int) ([][]rune, int) {
	before := string(line[:pos])
	if c.pending.Len() == 0 && strings.HasPrefix(before, ".") && !strings.ContainsAny(before, " \t") {
		return completeWords(dotCommands, before), len([]rune(before))
	}

	text := c.pending.String() + string(line)
	offset := len([]rune(c.pending.String())) + pos
	comp, ok := completion.Suggest(text, offset, false, c.sess.Catalog())
	if !ok {
		return nil, 0
	}
	prefix := string([]rune(text)[comp.From:offset])
	items := completion.Filter(comp.Items, prefix)
	labels := make([]string, len(items))
	for i, it := range items {
		labels[i] = it.Label
	}
	return completeWords(labels, prefix), len([]rune(prefix))
}

// completeWords returns the remainder of each word that starts with prefix,
// ignoring case.
func completeWords(words []string, prefix string) [][]rune {
	n := len([]rune(prefix))
	var out [][]rune
	for _, w := range words {
		r := []rune(w)
		if len(r) < n || !strings.EqualFold(string(r[:n]), prefix) {
			continue
		}
		out = append(out, r[n:])
	}
	return out
}
