package google

import (
	"fmt"
	"strings"

	ports "github.com/gladysonss/opensheets-app-sub000/internal/sheets"
)

// parseSheet converts a values matrix (as returned by Sheets API) into the
// mirrored rows. The first row is skipped when it is the header; rows
// without an id or with an unreadable paid column are ignored, but their
// row numbers still count.
func parseSheet(values [][]interface{}) sheetState {
	st := sheetState{empty: len(values) == 0, rowOf: map[string]int{}}
	for i, raw := range values {
		if i == 0 && isHeader(raw) {
			continue
		}
		row, err := ports.ParseRow(raw)
		if err != nil {
			continue
		}
		if _, dup := st.rowOf[row.ID]; dup {
			continue
		}
		st.rowOf[row.ID] = i + 1
		st.rows = append(st.rows, row)
	}
	return st
}

func isHeader(row []interface{}) bool {
	return len(row) > 0 && strings.EqualFold(strings.TrimSpace(fmt.Sprint(row[0])), ports.Header[0])
}

func headerValues() []any {
	out := make([]any, len(ports.Header))
	for i, h := range ports.Header {
		out[i] = h
	}
	return out
}
