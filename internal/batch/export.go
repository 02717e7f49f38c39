package batch

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/reperio/internal/charset"
)

// exportColumns in exact output order.
var exportColumns = []string{
	"Name", "Rating", "Reviews Count", "Phone", "Address", "Website", "Category",
	"Monday Hours", "Tuesday Hours", "Wednesday Hours", "Thursday Hours",
	"Friday Hours", "Saturday Hours", "Sunday Hours", "Status",
}

// Export renders the batch's terminal rows as a CSV byte stream prefixed
// with the UTF-8 BOM, plus a timestamped download filename.
func (a *Aggregator) Export(ctx context.Context, batchID string) ([]byte, string, error) {
	status, err := a.Status(ctx, batchID)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	buf.Write([]byte{0xEF, 0xBB, 0xBF})
	buf.WriteString(strings.Join(exportColumns, ","))
	buf.WriteString("\r\n")

	for _, row := range status.Results {
		cells := []string{
			row.Name, row.Rating, row.ReviewsCount, row.Phone, row.Address,
			row.Website, row.Category,
			row.MondayHours, row.TuesdayHours, row.WednesdayHours,
			row.ThursdayHours, row.FridayHours, row.SaturdayHours,
			row.SundayHours, row.Status,
		}
		for i, cell := range cells {
			cells[i] = csvCell(cell)
		}
		buf.WriteString(strings.Join(cells, ","))
		buf.WriteString("\r\n")
	}

	filename := fmt.Sprintf("scraping-results-%s.csv", time.Now().UTC().Format("2006-01-02T15-04-05"))
	return buf.Bytes(), filename, nil
}

// csvCell sanitizes one value and wraps it in quotes when it carries a
// comma, quote, or newline. Sanitization runs first, so the wrap decision
// sees the final quote-escaped text.
func csvCell(value string) string {
	cleaned := charset.PrepareForCSV(value)
	if strings.ContainsAny(cleaned, ",\"\n") {
		return `"` + cleaned + `"`
	}
	return cleaned
}
