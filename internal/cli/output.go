package cli

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
)

// OutputFormatType selects between human and machine readable output.
type OutputFormatType string

const (
	FormatTable OutputFormatType = "table"
	FormatJSON  OutputFormatType = "json"
)

func (o *OutputFormatType) String() string {
	if *o == "" {
		return string(FormatTable)
	}
	return string(*o)
}

func (o *OutputFormatType) Set(v string) error {
	switch OutputFormatType(v) {
	case FormatTable, FormatJSON:
		*o = OutputFormatType(v)
		return nil
	}
	return fmt.Errorf("unknown output format %q (want table or json)", v)
}

func (o *OutputFormatType) Type() string {
	return "format"
}

// newTable returns a borderless left-aligned table, the way kubectl prints
// its own. Rows are appended in caller order and never re-sorted; report
// output must be diffable across runs.
func newTable(out io.Writer, headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(headers)
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
	return table
}
