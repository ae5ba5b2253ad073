package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column describes one rendered table column. Numeric columns are right
// aligned. Cells wider than Max are cut with an ellipsis.
type column struct {
	Title   string
	Numeric bool
	Max     int
}

var (
	speakerColumns = []column{
		{Title: "Speaker"},
		{Title: "Segments", Numeric: true},
		{Title: "Duration", Numeric: true},
		{Title: "Gender"},
		{Title: "Emotion"},
		{Title: "Voice", Max: 32},
	}
	voiceColumns = []column{
		{Title: "ID", Max: 40},
		{Title: "Name", Max: 32},
		{Title: "Languages", Max: 24},
		{Title: "Gender"},
		{Title: "Age"},
		{Title: "Accent", Max: 20},
	}
	checkColumns = []column{
		{Title: "Status"},
		{Title: "Check"},
		{Title: "Detail", Max: 72},
	}
)

const ellipsis = "…"

func snipCell(cell string, width int) string {
	return text.Snip(cell, width, ellipsis)
}

func renderTable(cols []column, rows [][]string) string {
	if len(cols) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(cols))
	configs := make([]table.ColumnConfig, len(cols))
	for i, c := range cols {
		header[i] = c.Title
		cfg := table.ColumnConfig{Number: i + 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft}
		if c.Numeric {
			cfg.Align = text.AlignRight
		}
		if c.Max > 0 {
			cfg.WidthMax = c.Max
			cfg.WidthMaxEnforcer = snipCell
		}
		configs[i] = cfg
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(cols))
		for i := range cols {
			r[i] = ""
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}
	return tw.Render()
}

// renderKeyValues renders label/value pairs as a borderless two-column table.
func renderKeyValues(pairs [][2]string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.Style().Options.DrawBorder = false
	tw.Style().Options.SeparateColumns = false
	tw.Style().Options.SeparateHeader = false
	for _, p := range pairs {
		tw.AppendRow(table.Row{p[0], p[1]})
	}
	return tw.Render()
}
