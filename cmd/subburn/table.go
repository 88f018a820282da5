package main

import (
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

// textTable accumulates rows for go-pretty. Short rows are padded so every
// row has one cell per header.
type textTable struct {
	headers []string
	right   map[int]bool
	rows    []table.Row
}

func newTextTable(headers ...string) *textTable {
	return &textTable{headers: headers, right: map[int]bool{}}
}

// alignRight right-aligns the given zero-based columns. Headers stay left.
func (t *textTable) alignRight(columns ...int) *textTable {
	for _, c := range columns {
		t.right[c] = true
	}
	return t
}

func (t *textTable) row(cells ...string) {
	r := make(table.Row, len(t.headers))
	for i := range r {
		if i < len(cells) {
			r[i] = cells[i]
		} else {
			r[i] = ""
		}
	}
	t.rows = append(t.rows, r)
}

// render draws rounded box tables on terminals and plain ASCII otherwise so
// piped output stays greppable.
func (t *textTable) render(w io.Writer) string {
	if len(t.headers) == 0 {
		return ""
	}
	tw := table.NewWriter()
	if isTerminal(w) {
		tw.SetStyle(table.StyleRounded)
	} else {
		tw.SetStyle(table.StyleDefault)
	}

	header := make(table.Row, len(t.headers))
	configs := make([]table.ColumnConfig, len(t.headers))
	for i, h := range t.headers {
		header[i] = h
		configs[i] = table.ColumnConfig{Number: i + 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft}
		if t.right[i] {
			configs[i].Align = text.AlignRight
		}
	}
	tw.AppendHeader(header)
	tw.AppendRows(t.rows)
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
