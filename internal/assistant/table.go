package assistant

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"
)

// maxTableRows bounds the rows rendered by RenderTable.
const maxTableRows = 20

// RenderTable renders res as an aligned text table.
func RenderTable(res *Result) string {
	if len(res.Rows) == 0 {
		return "No matching rows."
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(res.Columns, "\t"))

	for i, row := range res.Rows {
		if i == maxTableRows {
			break
		}
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = FormatValue(v)
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	w.Flush()

	if extra := len(res.Rows) - maxTableRows; extra > 0 {
		fmt.Fprintf(&b, "... and %d more rows\n", extra)
	}
	if res.Truncated {
		b.WriteString("(result truncated)\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatValue renders a single result value.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 {
			return val.Format(time.DateOnly)
		}
		return val.UTC().Format("2006-01-02 15:04")
	case float64:
		return fmt.Sprintf("%.2f", val)
	default:
		return fmt.Sprint(val)
	}
}
