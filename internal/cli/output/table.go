package output

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

// TableRenderer is implemented by types that can render themselves as a table.
type TableRenderer interface {
	Headers() []string
	Rows() [][]string
}

// PrintTable writes data as a borderless, left-aligned table.
func PrintTable(w io.Writer, data TableRenderer) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader(data.Headers())

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	table.AppendBulk(data.Rows())
	table.Render()
	return nil
}

// TableData is an ad-hoc TableRenderer.
type TableData struct {
	headers []string
	rows    [][]string
}

// NewTableData creates a table with the given headers.
func NewTableData(headers ...string) *TableData {
	return &TableData{
		headers: headers,
		rows:    make([][]string, 0),
	}
}

// AddRow appends a row.
func (t *TableData) AddRow(row ...string) {
	t.rows = append(t.rows, row)
}

func (t *TableData) Headers() []string {
	return t.headers
}

func (t *TableData) Rows() [][]string {
	return t.rows
}
