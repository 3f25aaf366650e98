package output

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

// RenderSummary prints per-scanner finding counts and run totals.
func RenderSummary(w io.Writer, m *Metrics) error {
	table := tablewriter.NewWriter(w)
	table.Header("Scanner", "Findings")

	names := m.Scanners
	if len(names) == 0 {
		names = make([]string, 0, len(m.ScannerFindings))
		for name := range m.ScannerFindings {
			names = append(names, name)
		}
		sort.Strings(names)
	}
	for _, name := range names {
		if err := table.Append([]string{name, strconv.Itoa(m.ScannerFindings[name])}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w,
		"Files: %d discovered, %d scanned | Findings: %d | Scan errors: %d (%d encoding)\nTotal time elapsed: %s\n",
		m.FilesDiscovered, m.FilesScanned, m.Findings, m.ScanErrors, m.EncodingErrors, m.Elapsed())
	return err
}
