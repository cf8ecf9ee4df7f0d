package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/deepnoodle-ai/pipeshell"
)

const tableHelp = `Render items as a table.

Usage: table [--columns a,b]

Object items get one column per field, sorted by name unless --columns
picks them. Other items are shown in a single "value" column. In tool mode
the items pass through unchanged.`

var (
	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Padding(0, 1)
	tableBorderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

type TableCommand struct{}

func NewTableCommand() pipeshell.Command {
	return &TableCommand{}
}

func (c *TableCommand) Name() string {
	return "table"
}

func (c *TableCommand) Help() string {
	return tableHelp
}

func (c *TableCommand) Run(ctx pipeshell.Context, input pipeshell.Stream, args pipeshell.Args) (*pipeshell.Output, error) {
	if ctx.Mode() == pipeshell.ModeTool {
		return pipeshell.Pass(input), nil
	}
	var columns []string
	for _, value := range args.Strings("columns") {
		for _, col := range strings.Split(value, ",") {
			if col = strings.TrimSpace(col); col != "" {
				columns = append(columns, col)
			}
		}
	}
	items := func(yield func(pipeshell.Item, error) bool) {
		collected, err := pipeshell.Collect(input)
		if err != nil {
			yield(nil, err)
			return
		}
		rendered, err := RenderTable(collected, columns)
		if err != nil {
			yield(nil, err)
			return
		}
		if _, err := fmt.Fprintln(ctx.Stdout(), rendered); err != nil {
			yield(nil, fmt.Errorf("failed to write table: %w", err))
			return
		}
		for _, item := range collected {
			if !yield(item, nil) {
				return
			}
		}
	}
	return &pipeshell.Output{Items: items, Rendered: true}, nil
}

// RenderTable lays items out as a bordered table.
func RenderTable(items []pipeshell.Item, columns []string) (string, error) {
	objects := len(items) > 0
	for _, item := range items {
		if _, ok := item.(map[string]any); !ok {
			objects = false
			break
		}
	}
	if !objects {
		columns = []string{"value"}
	} else if len(columns) == 0 {
		columns = objectColumns(items)
	}

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		row := make([]string, len(columns))
		for i, col := range columns {
			value := item
			if objects {
				value, _ = field(item, col)
			}
			cell, err := cellText(value)
			if err != nil {
				return "", err
			}
			row[i] = cell
		}
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(tableBorderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		}).
		Headers(columns...).
		Rows(rows...)
	return t.String(), nil
}

func objectColumns(items []pipeshell.Item) []string {
	seen := map[string]bool{}
	var columns []string
	for _, item := range items {
		for key := range item.(map[string]any) {
			if !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}
	}
	sort.Strings(columns)
	return columns
}

func cellText(value any) (string, error) {
	if value == nil {
		return "", nil
	}
	return itemText(value)
}
