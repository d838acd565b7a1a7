package main

import (
	"strings"
)

// editor is the query text buffer. The cursor is a rune offset.
type editor struct {
	buf    []rune
	cursor int
}

func (e *editor) String() string { return string(e.buf) }

// setText replaces the buffer and moves the cursor to the end.
func (e *editor) setText(s string) {
	e.buf = []rune(s)
	e.cursor = len(e.buf)
}

func (e *editor) insert(s string) {
	r := []rune(s)
	out := make([]rune, 0, len(e.buf)+len(r))
	out = append(out, e.buf[:e.cursor]...)
	out = append(out, r...)
	out = append(out, e.buf[e.cursor:]...)
	e.buf = out
	e.cursor += len(r)
}

func (e *editor) backspace() {
	if e.cursor == 0 {
		return
	}
	e.buf = append(e.buf[:e.cursor-1], e.buf[e.cursor:]...)
	e.cursor--
}

func (e *editor) deleteForward() {
	if e.cursor >= len(e.buf) {
		return
	}
	e.buf = append(e.buf[:e.cursor], e.buf[e.cursor+1:]...)
}

func (e *editor) left() {
	if e.cursor > 0 {
		e.cursor--
	}
}

func (e *editor) right() {
	if e.cursor < len(e.buf) {
		e.cursor++
	}
}

// home moves to the start of the current line.
func (e *editor) home() {
	for e.cursor > 0 && e.buf[e.cursor-1] != '\n' {
		e.cursor--
	}
}

// end moves to the end of the current line.
func (e *editor) end() {
	for e.cursor < len(e.buf) && e.buf[e.cursor] != '\n' {
		e.cursor++
	}
}

// prefix returns the text between from and the cursor.
func (e *editor) prefix(from int) string {
	if from < 0 || from > e.cursor {
		return ""
	}
	return string(e.buf[from:e.cursor])
}

// replace swaps the text between from and the cursor for s.
func (e *editor) replace(from int, s string) {
	if from < 0 || from > e.cursor {
		from = e.cursor
	}
	tail := append([]rune(nil), e.buf[e.cursor:]...)
	e.buf = append(e.buf[:from], []rune(s)...)
	e.cursor = len(e.buf)
	e.buf = append(e.buf, tail...)
}

// lines renders the buffer with the cursor drawn by mark.
func (e *editor) lines(mark func(string) string) []string {
	var b strings.Builder
	for i, r := range e.buf {
		if i == e.cursor {
			if r == '\n' {
				b.WriteString(mark(" "))
			} else {
				b.WriteString(mark(string(r)))
				continue
			}
		}
		b.WriteRune(r)
	}
	if e.cursor >= len(e.buf) {
		b.WriteString(mark(" "))
	}
	return strings.Split(b.String(), "\n")
}
