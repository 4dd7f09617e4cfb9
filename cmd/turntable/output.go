package main

import (
	"encoding/json"
	"io"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"turntable/internal/store"
)

var titleCaser = cases.Title(language.English)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// isTerminal reports whether w is an interactive terminal, which is the
// only case where output gets colour.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// health is the state shown next to a status check.
type health int

const (
	healthInfo health = iota
	healthOK
	healthWarn
	healthFail
)

var healthStyles = map[health]struct {
	label  string
	colors text.Colors
}{
	healthInfo: {"info", text.Colors{text.FgBlue}},
	healthOK:   {"ok", text.Colors{text.FgGreen}},
	healthWarn: {"warn", text.Colors{text.FgYellow}},
	healthFail: {"fail", text.Colors{text.FgRed}},
}

func paint(s string, c text.Colors, color bool) string {
	if !color {
		return s
	}
	return c.Sprint(s)
}

func newTable(headers ...string) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if len(headers) > 0 {
		row := make(table.Row, len(headers))
		for i, h := range headers {
			row[i] = h
		}
		tw.AppendHeader(row)
	}
	return tw
}

// alignRight right-aligns the given 1-based columns.
func alignRight(tw table.Writer, columns ...int) {
	configs := make([]table.ColumnConfig, len(columns))
	for i, n := range columns {
		configs[i] = table.ColumnConfig{Number: n, Align: text.AlignRight, AlignHeader: text.AlignLeft}
	}
	tw.SetColumnConfigs(configs)
}

// urlTable lists frame URLs by index.
func urlTable(urls []string) string {
	tw := newTable("#", "URL")
	for i, u := range urls {
		tw.AppendRow(table.Row{strconv.Itoa(i), u})
	}
	alignRight(tw, 1)
	return tw.Render()
}

// fieldTable renders label/value pairs with right-aligned labels.
func fieldTable(fields [][2]string) string {
	tw := newTable()
	for _, f := range fields {
		tw.AppendRow(table.Row{f[0], f[1]})
	}
	alignRight(tw, 1)
	return tw.Render()
}

// statusSection collects the checks of one `status` section and renders
// them as a titled table.
type statusSection struct {
	tw    table.Writer
	color bool
}

func newStatusSection(title string, color bool) *statusSection {
	tw := newTable()
	tw.SetTitle(title)
	return &statusSection{tw: tw, color: color}
}

func (s *statusSection) add(name string, h health, detail string) {
	style := healthStyles[h]
	s.tw.AppendRow(table.Row{name, paint(style.label, style.colors, s.color), detail})
}

func (s *statusSection) String() string {
	return s.tw.Render()
}

// sessionLabel renders a stored status for humans. Completed sessions that
// lost frames to upload failures read as partial.
func sessionLabel(s *store.Session, color bool) string {
	label := titleCaser.String(string(s.Status))
	h := healthInfo
	switch s.Status {
	case store.StatusCompleted:
		h = healthOK
		if s.Shortfall > 0 {
			label, h = "Partial", healthWarn
		}
	case store.StatusFailed:
		h = healthFail
	}
	return paint(label, healthStyles[h].colors, color)
}
