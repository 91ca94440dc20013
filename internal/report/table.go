package report

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

// Setting is one row of the configuration table.
type Setting struct {
	Name  string
	Value string
}

// ConfigTable prints the effective run settings. Rows with an empty value
// are skipped.
func ConfigTable(w io.Writer, settings []Setting) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Setting", "Value"})
	for _, s := range settings {
		if s.Value == "" {
			continue
		}
		if err := table.Append([]string{s.Name, s.Value}); err != nil {
			return err
		}
	}
	return table.Render()
}
