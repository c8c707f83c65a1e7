package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column is one table column; numeric columns are right aligned.
type column struct {
	header  string
	numeric bool
}

func col(header string) column { return column{header: header} }

func num(header string) column { return column{header: header, numeric: true} }

// renderTable draws rows under columns with an optional title and footer.
// Short rows are padded with empty cells.
func renderTable(title string, columns []column, rows [][]string, footer []string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle(title)
	tw.AppendHeader(toRow(columns, func(i int) string { return columns[i].header }))
	for _, row := range rows {
		tw.AppendRow(toRow(columns, cell(row)))
	}
	if len(footer) > 0 {
		tw.AppendFooter(toRow(columns, cell(footer)))
	}

	configs := make([]table.ColumnConfig, len(columns))
	for i, c := range columns {
		align := text.AlignLeft
		if c.numeric {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{
			Number:           i + 1,
			Align:            align,
			AlignFooter:      align,
			AlignHeader:      text.AlignLeft,
			WidthMax:         60,
			WidthMaxEnforcer: text.Trim,
		}
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func toRow(columns []column, value func(int) string) table.Row {
	r := make(table.Row, len(columns))
	for i := range columns {
		r[i] = value(i)
	}
	return r
}

func cell(row []string) func(int) string {
	return func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}
}
