package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// tableView describes one rendered table. Highlighted rows are drawn in
// colour when colorize is set.
type tableView struct {
	headers   []string
	rows      [][]string
	aligns    []columnAlignment
	highlight func(row int) bool
	colorize  bool
}

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	return tableView{headers: headers, rows: rows, aligns: aligns}.render()
}

func (v tableView) render() string {
	columns := len(v.headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(toRow(v.headers, columns))

	for i, row := range v.rows {
		r := toRow(row, columns)
		if v.colorize && v.highlight != nil && v.highlight(i) {
			for j := range r {
				r[j] = text.Colors{text.FgYellow}.Sprint(r[j])
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(v.aligns) && v.aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func toRow(values []string, columns int) table.Row {
	row := make(table.Row, columns)
	for i := range row {
		if i < len(values) {
			row[i] = values[i]
		} else {
			row[i] = ""
		}
	}
	return row
}
