package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/calebcauthon/sqlee/internal/config"
	"github.com/calebcauthon/sqlee/internal/editsql"
	"github.com/calebcauthon/sqlee/internal/result"
	"github.com/calebcauthon/sqlee/internal/session"
)

var errNotConnected = errors.New("not connected")

const popupMax = 8

func (m model) Init() tea.Cmd {
	if m.db == nil {
		return nil
	}
	return loadSchemaCmd(m.db, m.timeout())
}

func (m model) timeout() time.Duration {
	if m.cfg == nil {
		return config.DefaultQueryTimeout
	}
	return m.cfg.QueryTimeout
}

func (m model) llmConfig() config.LLMConfig {
	if m.cfg == nil {
		return config.LLMConfig{Provider: config.DefaultLLMProvider}
	}
	return m.cfg.LLM
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case queryResultMsg:
		return m.handleQueryResult(msg)
	case editResultMsg:
		switch {
		case msg.err != nil:
			m.setError("update failed", &session.QueryError{Query: msg.sql, Err: msg.err})
		case msg.affected > 1:
			m.setStatus(fmt.Sprintf("updated %d identical rows", msg.affected))
		default:
			m.setStatus("updated")
		}
		m.log.Debug("update finished", "sql", msg.sql, "rows", msg.affected, "error", msg.err)
		return m, nil
	case schemaMsg:
		if msg.err != nil {
			m.setError("schema error", msg.err)
			return m, nil
		}
		m.sess.SetCatalog(msg.cat)
		m.setTables(msg.cat)
		return m, nil
	case aiResponseMsg:
		return m.handleAIResponse(msg)
	case connectedMsg:
		return m.handleConnected(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	switch {
	case m.aiPromptActive:
		m.aiInput, cmd = m.aiInput.Update(msg)
	case m.cellInput.Focused():
		m.cellInput, cmd = m.cellInput.Update(msg)
	}
	return m, cmd
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	if m.aiPromptActive {
		return m.updateAIPrompt(msg)
	}
	if _, editing := m.sess.EditingCell(); editing {
		return m.updateCellEdit(msg)
	}
	if m.picker != nil {
		return m.updatePicker(msg)
	}
	if key.Matches(msg, m.keys.Connections) {
		return m.openPicker()
	}
	if key.Matches(msg, m.keys.Translate) {
		m.aiPromptActive = true
		m.aiInput.SetValue("")
		m.popup = nil
		cmd := m.aiInput.Focus()
		return m, cmd
	}
	switch m.focus {
	case focusGrid:
		return m.updateGrid(msg)
	case focusTables:
		return m.updateTables(msg)
	default:
		return m.updateEditor(msg)
	}
}

func (m model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if p := m.popup; p != nil {
		n := len(p.items)
		switch {
		case key.Matches(msg, m.keys.Up):
			p.selected = (p.selected - 1 + n) % n
			return m, nil
		case key.Matches(msg, m.keys.Down):
			p.selected = (p.selected + 1) % n
			return m, nil
		case key.Matches(msg, m.keys.Accept):
			m.acceptSuggestion()
			return m, nil
		case key.Matches(msg, m.keys.Dismiss):
			m.popup = nil
			return m, nil
		}
	}

	switch {
	case key.Matches(msg, m.keys.Run):
		return m.runQuery()
	case key.Matches(msg, m.keys.Newline):
		m.editor.insert("\n")
		m.syncText(false)
	case key.Matches(msg, m.keys.Complete):
		m.syncText(true)
	case key.Matches(msg, m.keys.Up):
		if text, changed := m.sess.HistoryUp(m.popup != nil); changed {
			m.editor.setText(text)
		}
	case key.Matches(msg, m.keys.Down):
		if text, changed := m.sess.HistoryDown(m.popup != nil); changed {
			m.editor.setText(text)
		}
	case key.Matches(msg, m.keys.SwitchPane):
		m.popup = nil
		m.focus = focusGrid
	default:
		switch msg.Type {
		case tea.KeyRunes:
			m.editor.insert(string(msg.Runes))
			m.syncText(false)
		case tea.KeySpace:
			m.editor.insert(" ")
			m.syncText(false)
		case tea.KeyBackspace:
			m.editor.backspace()
			m.syncText(false)
		case tea.KeyDelete:
			m.editor.deleteForward()
			m.syncText(false)
		case tea.KeyLeft:
			m.editor.left()
			m.popup = nil
		case tea.KeyRight:
			m.editor.right()
			m.popup = nil
		case tea.KeyHome, tea.KeyCtrlA:
			m.editor.home()
			m.popup = nil
		case tea.KeyEnd, tea.KeyCtrlE:
			m.editor.end()
			m.popup = nil
		case tea.KeyEsc:
			m.popup = nil
		}
	}
	return m, nil
}

func (m model) runQuery() (tea.Model, tea.Cmd) {
	m.popup = nil
	if m.db == nil {
		m.setError("run", errNotConnected)
		return m, nil
	}
	m.sess.SetText(m.editor.String())
	run, err := m.sess.BeginRun()
	if err != nil {
		m.setError("run", err)
		return m, nil
	}
	m.cellInput.Blur()
	m.pending = run.ID
	m.setStatus("running…")
	return m, runQueryCmd(m.db, run, m.timeout())
}

func (m model) handleQueryResult(msg queryResultMsg) (tea.Model, tea.Cmd) {
	err := m.sess.FinishRun(msg.run, msg.rs, msg.err)
	if errors.Is(err, session.ErrSuperseded) {
		return m, nil
	}
	m.pending = ""
	if _, editing := m.sess.EditingCell(); !editing {
		m.cellInput.Blur()
	}
	if err != nil {
		m.setError("query error", err)
		return m, nil
	}
	m.selRow, m.selCol, m.scroll = 0, 0, 0
	m.setStatus(rowCount(m.sess.Results()))
	if reSchemaChange.MatchString(msg.run.Query) {
		return m, loadSchemaCmd(m.db, m.timeout())
	}
	return m, nil
}

func (m model) updateGrid(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rs := m.sess.Results()
	switch {
	case key.Matches(msg, m.keys.SwitchPane):
		m.focus = focusTables
		return m, nil
	case key.Matches(msg, m.keys.Edit):
		return m.startEdit()
	case key.Matches(msg, m.keys.Copy):
		v, ok := rs.Cell(m.selRow, m.selCol)
		if !ok {
			return m, nil
		}
		if err := copyToClipboard(result.Text(v)); err != nil {
			m.setError("copy error", err)
		} else {
			m.setStatus("copied")
		}
		return m, nil
	case key.Matches(msg, m.keys.Dismiss):
		m.focus = focusEditor
		return m, nil
	}
	if rs == nil {
		return m, nil
	}
	switch msg.String() {
	case "up", "k":
		if m.selRow > 0 {
			m.selRow--
		}
	case "down", "j":
		if m.selRow+1 < len(rs.Rows) {
			m.selRow++
		}
	case "left", "h":
		if m.selCol > 0 {
			m.selCol--
		}
	case "right", "l":
		if m.selCol+1 < len(rs.Columns) {
			m.selCol++
		}
	case "home", "g":
		m.selRow = 0
	case "end", "G":
		m.selRow = max(0, len(rs.Rows)-1)
	case "q":
		return m, tea.Quit
	}
	m.clampSelection()
	return m, nil
}

func (m model) startEdit() (tea.Model, tea.Cmd) {
	v, ok := m.sess.Results().Cell(m.selRow, m.selCol)
	if !ok {
		return m, nil
	}
	text := result.Text(v)
	if err := m.sess.StartEditingCell(m.selRow, m.selCol, text); err != nil {
		m.setError("cannot edit", err)
		return m, nil
	}
	cell, _ := m.sess.EditingCell()
	m.cellInput.SetValue(text)
	m.cellInput.CursorEnd()
	m.setStatus(fmt.Sprintf("editing %s.%s (enter save, esc cancel)", cell.Table, cell.Column))
	cmd := m.cellInput.Focus()
	return m, cmd
}

func (m model) updateCellEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Commit):
		return m.commitEdit()
	case key.Matches(msg, m.keys.Cancel):
		m.sess.CancelEdit()
		m.cellInput.Blur()
		m.setStatus("cancelled edit")
		return m, nil
	case key.Matches(msg, m.keys.SwitchPane):
		// leaving the cell commits it
		m.focus = focusTables
		return m.commitEdit()
	}
	var cmd tea.Cmd
	m.cellInput, cmd = m.cellInput.Update(msg)
	m.sess.SetPending(m.cellInput.Value())
	return m, cmd
}

func (m model) commitEdit() (tea.Model, tea.Cmd) {
	m.sess.SetPending(m.cellInput.Value())
	m.cellInput.Blur()
	upd, err := m.sess.PrepareCommit()
	if err != nil {
		var serr *editsql.SynthesisError
		if errors.As(err, &serr) {
			m.setError("edit rejected", err)
		} else {
			m.setError("edit error", err)
		}
		return m, nil
	}
	if m.db == nil {
		m.setError("update failed", errNotConnected)
		return m, nil
	}
	m.setStatus("saving…")
	return m, execEditCmd(m.db, upd.SQL, m.timeout())
}

func (m model) updateTables(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searchActive {
		switch msg.Type {
		case tea.KeyRunes:
			m.searchQuery += string(msg.Runes)
			m.applyFilter()
		case tea.KeyBackspace:
			r := []rune(m.searchQuery)
			if len(r) > 0 {
				m.searchQuery = string(r[:len(r)-1])
				m.applyFilter()
			}
		case tea.KeyEnter:
			m.searchActive = false
		case tea.KeyEsc:
			m.searchActive = false
			if m.searchQuery != "" {
				m.searchQuery = ""
				m.applyFilter()
			}
		}
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.SwitchPane):
		m.focus = focusEditor
		return m, nil
	case key.Matches(msg, m.keys.Search):
		m.searchActive = true
		return m, nil
	case key.Matches(msg, m.keys.Reload):
		if m.db == nil {
			return m, nil
		}
		m.setStatus("reloading schema…")
		return m, loadSchemaCmd(m.db, m.timeout())
	case key.Matches(msg, m.keys.Run):
		if m.cursor < 0 || m.cursor >= len(m.tables) {
			return m, nil
		}
		m.editor.setText(fmt.Sprintf("SELECT * FROM %s LIMIT 100", editsql.DialectFor(m.conn.Engine).Ident(m.tables[m.cursor])))
		m.focus = focusEditor
		return m.runQuery()
	}
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.tables)-1 {
			m.cursor++
		}
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

func (m model) openPicker() (tea.Model, tea.Cmd) {
	names := m.cfg.ConnectionNames()
	if len(names) == 0 {
		m.setStatus("no named connections configured")
		return m, nil
	}
	p := &picker{names: names}
	for i, n := range names {
		if n == m.conn.Name {
			p.selected = i
		}
	}
	m.picker = p
	m.popup = nil
	return m, nil
}

func (m model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.picker
	switch {
	case key.Matches(msg, m.keys.Up):
		if p.selected > 0 {
			p.selected--
		}
	case key.Matches(msg, m.keys.Down):
		if p.selected < len(p.names)-1 {
			p.selected++
		}
	case key.Matches(msg, m.keys.Dismiss, m.keys.Connections):
		m.picker = nil
	case key.Matches(msg, m.keys.Pick):
		name := p.names[p.selected]
		m.picker = nil
		conn, err := m.cfg.Named(name)
		if err != nil {
			m.setError("connect", err)
			return m, nil
		}
		m.setStatus("connecting to " + name + "…")
		return m, connectCmd(m.open, conn, m.timeout())
	}
	return m, nil
}

// handleConnected swaps in a connection opened from the picker. Results, the
// open edit and any run in flight belong to the old connection and are
// dropped; the query text and history stay.
func (m model) handleConnected(msg connectedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.setError("connect "+msg.conn.Name, msg.err)
		return m, nil
	}
	if m.db != nil {
		if err := m.db.Close(); err != nil {
			m.log.Debug("closing previous connection", "error", err)
		}
	}
	m.db = msg.db
	m.conn = msg.conn
	m.sess.Reset()
	m.sess.SetDialect(editsql.DialectFor(msg.conn.Engine))
	m.sess.SetCatalog(msg.cat)
	m.searchQuery, m.searchActive = "", false
	m.setTables(msg.cat)
	m.cursor = 0
	m.pending = ""
	m.popup = nil
	m.cellInput.Blur()
	m.selRow, m.selCol, m.scroll = 0, 0, 0
	m.setStatus(fmt.Sprintf("connected to %s (%s)", msg.conn.Name, msg.conn.Engine))
	m.log.Debug("connection switched", "connection", msg.conn.Name, "engine", msg.conn.Engine)
	return m, nil
}

func (m model) updateAIPrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.aiPromptActive = false
		m.aiInput.Blur()
		return m, nil
	case tea.KeyEnter:
		q := strings.TrimSpace(m.aiInput.Value())
		if q == "" {
			return m, nil
		}
		m.aiPromptActive = false
		m.aiInput.Blur()
		m.aiThinking = true
		m.setStatus("asking AI…")
		return m, translateCmd(m.llmConfig(), m.conn.Engine, q, m.sess.Catalog())
	}
	var cmd tea.Cmd
	m.aiInput, cmd = m.aiInput.Update(msg)
	return m, cmd
}

func (m model) handleAIResponse(msg aiResponseMsg) (tea.Model, tea.Cmd) {
	m.aiThinking = false
	if msg.err != nil {
		m.setError("AI error", msg.err)
		return m, nil
	}
	m.aiOutput = msg.sql
	if msg.sql == "" {
		m.setStatus("AI returned no SQL")
		return m, nil
	}
	m.editor.setText(msg.sql)
	m.sess.SetText(msg.sql)
	m.popup = nil
	m.focus = focusEditor
	m.setStatus("AI draft loaded, enter to run")
	return m, nil
}

func (m model) View() string {
	if m.db == nil {
		return fmt.Sprintf("DB not open. %s\n", m.status)
	}

	// Layout: left column for tables, right column for the editor and results.
	leftWidth := 30
	if m.width > 0 && m.width < 80 {
		leftWidth = m.width / 3
	}
	rightWidth := 80
	if m.width > 0 {
		rightWidth = max(m.width-leftWidth-3, 20)
	}

	var left strings.Builder
	if m.picker != nil {
		m.renderPicker(&left, leftWidth)
	} else {
		m.renderTables(&left, leftWidth)
	}

	var right strings.Builder
	editorLines := m.renderEditor(&right, rightWidth)
	m.renderResults(&right, rightWidth, m.gridRows(editorLines))

	leftLines := strings.Split(strings.TrimRight(left.String(), "\n"), "\n")
	rightLines := strings.Split(strings.TrimRight(right.String(), "\n"), "\n")
	maxLines := max(len(leftLines), len(rightLines))
	var out strings.Builder
	for i := 0; i < maxLines; i++ {
		var l, r string
		if i < len(leftLines) {
			l = padRightANSI(truncateANSI(leftLines[i], leftWidth), leftWidth)
		} else {
			l = strings.Repeat(" ", leftWidth)
		}
		if i < len(rightLines) {
			r = rightLines[i]
			if !hasRightPaneGutter(r) {
				r = "  " + r
			}
		}
		out.WriteString(l)
		out.WriteString(" | ")
		out.WriteString(r)
		out.WriteString("\n")
	}
	if m.status != "" {
		rendered := styleInfo.Render(m.status)
		if m.statusErr {
			rendered = styleError.Render(m.status)
		}
		out.WriteString("\n" + rendered + "\n")
	}
	out.WriteString(m.helpLine() + "\n")
	return out.String()
}

func (m model) renderTables(b *strings.Builder, width int) {
	title := "Tables"
	if m.focus == focusTables {
		title += " " + styleFocusTag.Render("FOCUS")
	}
	b.WriteString(styleHeader.Render(title) + "\n")
	if m.searchActive || m.searchQuery != "" {
		b.WriteString(styleSearch.Render("/"+m.searchQuery) + "\n")
	}
	for i, t := range m.tables {
		cursor := "  "
		if i == m.cursor && m.focus == focusTables {
			cursor = styleCursor.Render("> ")
		}
		b.WriteString(cursor + truncateCell(t, max(1, width-2)) + "\n")
	}
	if len(m.tables) == 0 {
		b.WriteString("  (none)\n")
	}
}

// renderPicker lists the configured connections; the current one is starred.
func (m model) renderPicker(b *strings.Builder, width int) {
	b.WriteString(styleHeader.Render("Connections") + "\n")
	for i, name := range m.picker.names {
		cursor := "  "
		if i == m.picker.selected {
			cursor = styleCursor.Render("> ")
		}
		if name == m.conn.Name {
			name += " *"
		}
		b.WriteString(cursor + truncateCell(name, max(1, width-2)) + "\n")
	}
}

// renderEditor writes the query editor, completion popup and AI prompt and
// returns the number of lines written.
func (m model) renderEditor(b *strings.Builder, width int) int {
	n := 0
	line := func(s string) {
		b.WriteString(s + "\n")
		n++
	}

	title := "Query"
	if m.conn.Engine != "" {
		title += " [" + m.conn.Engine + "]"
	}
	if m.focus == focusEditor {
		title += " " + styleFocusTag.Render("FOCUS")
	}
	if m.pending != "" {
		title += " " + styleInfo.Render("running")
	}
	line(styleHeader.Render(title))

	mark := func(s string) string { return s }
	if m.focus == focusEditor && !m.aiPromptActive {
		mark = func(s string) string { return styleCaret.Render(s) }
	}
	for _, l := range m.editor.lines(mark) {
		line("  " + truncateANSI(l, max(1, width-2)))
	}
	if m.popup != nil {
		for _, l := range strings.Split(m.renderPopup(), "\n") {
			line("  " + l)
		}
	}
	switch {
	case m.aiPromptActive:
		line("  " + m.aiInput.View())
	case m.aiThinking:
		line("  " + styleAI.Render("AI is thinking…"))
	case m.aiOutput != "":
		line("  " + styleAI.Render("AI: "+truncateCell(m.aiOutput, max(1, width-6))))
	}
	line("")
	return n
}

func (m model) renderPopup() string {
	p := m.popup
	start := 0
	if p.selected >= popupMax {
		start = p.selected - popupMax + 1
	}
	end := min(start+popupMax, len(p.items))
	labelW := 0
	for _, it := range p.items[start:end] {
		labelW = max(labelW, visibleWidth(it.Label))
	}
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		it := p.items[i]
		text := padRightANSI(it.Label, labelW) + " " + it.Kind.String()
		if it.Detail != "" {
			text += " " + truncateCell(it.Detail, 40)
		}
		if i == p.selected {
			text = stylePopupSelected.Render(text)
		} else {
			text = stylePopupDetail.Render(text)
		}
		lines = append(lines, text)
	}
	if len(p.items) > end {
		lines = append(lines, stylePopupDetail.Render(fmt.Sprintf("… %d more", len(p.items)-end)))
	}
	return stylePopup.Render(strings.Join(lines, "\n"))
}

// gridRows is the number of result rows that fit under the editor.
func (m model) gridRows(editorLines int) int {
	if m.height <= 0 {
		return 20
	}
	return max(3, m.height-editorLines-7)
}

func (m *model) renderResults(b *strings.Builder, width, visible int) {
	rs := m.sess.Results()
	title := "Results"
	if rs != nil {
		title += " (" + rowCount(rs) + ")"
	}
	if m.focus == focusGrid {
		title += " " + styleFocusTag.Render("FOCUS")
	}
	editing, isEditing := m.sess.EditingCell()
	if isEditing {
		title += " " + stylePrompt.Render("EDITING")
	}
	b.WriteString(styleHeader.Render(title) + "\n")
	if rs == nil {
		b.WriteString("Run a query to see results.\n")
		return
	}
	if len(rs.Columns) == 0 {
		b.WriteString("(no columns)\n")
		return
	}

	cells := formatRows(rs)
	colWidths := computeColumnWidths(rs.Columns, cells, max(1, width-2))
	focused := m.focus == focusGrid

	b.WriteString("  ")
	for i, c := range rs.Columns {
		headerText := c
		selected := focused && i == m.selCol
		if selected {
			headerText = "*" + headerText
		}
		headerText = truncateCell(headerText, colWidths[i])
		if selected {
			headerText = styleColSelect.Render(headerText)
		}
		b.WriteString(padRightANSI(headerText, colWidths[i]))
		if i < len(rs.Columns)-1 {
			b.WriteString(" ")
		}
	}
	b.WriteString("\n  ")
	for i := range rs.Columns {
		b.WriteString(strings.Repeat("-", colWidths[i]))
		if i < len(rs.Columns)-1 {
			b.WriteString(" ")
		}
	}
	b.WriteString("\n")

	if m.selRow < m.scroll {
		m.scroll = m.selRow
	}
	if m.selRow >= m.scroll+visible {
		m.scroll = m.selRow - visible + 1
	}
	end := min(len(cells), m.scroll+visible)
	for ri := m.scroll; ri < end; ri++ {
		if focused && ri == m.selRow {
			b.WriteString(styleCursor.Render("> "))
		} else {
			b.WriteString("  ")
		}
		for i, cell := range cells[ri] {
			switch {
			case isEditing && ri == editing.Row && i == editing.Col:
				cell = padRightANSI(m.cellInput.View(), colWidths[i])
			case rs.Rows[ri][i] == nil:
				cell = styleNull.Render(padRightANSI(truncateCell(cell, colWidths[i]), colWidths[i]))
			default:
				cell = padRightANSI(truncateCell(cell, colWidths[i]), colWidths[i])
			}
			b.WriteString(cell)
			if i < len(cells[ri])-1 {
				b.WriteString(" ")
			}
		}
		b.WriteString("\n")
	}
	if end < len(cells) {
		b.WriteString(fmt.Sprintf("  … %d more rows\n", len(cells)-end))
	}
}

func (m model) helpLine() string {
	var bindings []key.Binding
	switch {
	case m.aiPromptActive:
		bindings = []key.Binding{m.keys.Run, m.keys.Dismiss}
	case m.picker != nil:
		bindings = []key.Binding{m.keys.Up, m.keys.Down, m.keys.Pick, m.keys.Dismiss}
	case m.cellInput.Focused():
		bindings = []key.Binding{m.keys.Commit, m.keys.Cancel, m.keys.SwitchPane}
	case m.focus == focusGrid:
		bindings = []key.Binding{m.keys.Edit, m.keys.Copy, m.keys.SwitchPane, m.keys.Quit}
	case m.focus == focusTables:
		bindings = []key.Binding{m.keys.Run, m.keys.Search, m.keys.Reload, m.keys.SwitchPane, m.keys.Quit}
	case m.popup != nil:
		bindings = []key.Binding{m.keys.Accept, m.keys.Up, m.keys.Down, m.keys.Dismiss}
	default:
		bindings = []key.Binding{m.keys.Run, m.keys.Newline, m.keys.Complete, m.keys.Translate, m.keys.Connections, m.keys.SwitchPane, m.keys.Quit}
	}
	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return stylePopupDetail.Render(strings.Join(parts, " • "))
}
