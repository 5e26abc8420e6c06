package parser

import (
	"strings"

	"golang.org/x/net/html"
)

// tableHTML renders rows as a <table>. When header is true the first row is
// emitted as <th> cells.
func tableHTML(rows [][]string, header bool) string {
	var b strings.Builder
	b.WriteString("<table>")
	for i, row := range rows {
		cell := "td"
		if header && i == 0 {
			cell = "th"
		}
		b.WriteString("<tr>")
		for _, c := range row {
			b.WriteString("<" + cell + ">")
			b.WriteString(html.EscapeString(c))
			b.WriteString("</" + cell + ">")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</table>")
	return b.String()
}

// tableRowsText flattens rows to one line per row.
func tableRowsText(rows [][]string) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		var cells []string
		for _, c := range row {
			if c = strings.TrimSpace(c); c != "" {
				cells = append(cells, c)
			}
		}
		if len(cells) > 0 {
			lines = append(lines, strings.Join(cells, " "))
		}
	}
	return strings.Join(lines, "\n")
}
