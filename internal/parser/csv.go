package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docchunk/internal/doctree"
)

// CSVParser handles CSV files. Rows are rendered as "header: value" lines in
// blocks of twenty.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.Source, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	var b textBuilder
	if len(records) == 0 {
		return b.source(baseTitle(filename)), nil
	}

	// First row is headers.
	headers := records[0]

	// Group rows into batches of 20, each preceded by the header row.
	const batchSize = 20
	dataRows := records[1:]

	for i := 0; i < len(dataRows); i += batchSize {
		end := min(i+batchSize, len(dataRows))

		var text strings.Builder
		fmt.Fprintf(&text, "Rows %d-%d\n", i+2, end+1) // 1-indexed, skip header
		text.WriteString("Headers: " + strings.Join(headers, ", ") + "\n")
		for _, row := range dataRows[i:end] {
			for j, cell := range row {
				if j < len(headers) {
					text.WriteString(headers[j] + ": " + cell)
				} else {
					text.WriteString(cell)
				}
				if j < len(row)-1 {
					text.WriteString(", ")
				}
			}
			text.WriteString("\n")
		}
		b.block(text.String())
	}
	return b.source(baseTitle(filename)), nil
}
