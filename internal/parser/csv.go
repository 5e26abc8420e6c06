package parser

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/doctree"
)

const csvBatchRows = 20

// CSVParser handles CSV files. The header row is repeated on every batch of
// rows so each table element stands on its own.
type CSVParser struct{}

func (p *CSVParser) Parse(ctx context.Context, r io.Reader, filename string) ([]doctree.Element, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	headers := records[0]
	dataRows := records[1:]
	if len(dataRows) == 0 {
		return []doctree.Element{{Kind: doctree.KindTitle, Text: strings.Join(headers, " ")}}, nil
	}

	var elements []doctree.Element
	for i := 0; i < len(dataRows); i += csvBatchRows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(i+csvBatchRows, len(dataRows))
		rows := append([][]string{headers}, dataRows[i:end]...)
		elements = append(elements, doctree.Element{
			Kind: doctree.KindTable,
			Text: tableRowsText(rows),
			HTML: tableHTML(rows, true),
		})
	}
	return elements, nil
}
