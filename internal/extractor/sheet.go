package extractor

import (
	"archive/zip"
	"errors"
	"strings"

	"github.com/nconklindev/sheetpix/internal/types"

	"github.com/xuri/excelize/v2"
)

// ReadSheet reads the first worksheet. Its first row is the header; every
// following row becomes a DataRow, in worksheet order.
func ReadSheet(docPath string, opts Options) (*types.SheetData, error) {
	f, err := excelize.OpenFile(docPath)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			return nil, &ArchiveOpenError{Path: docPath, Err: err}
		}
		return nil, &TabularReadError{Path: docPath, Err: err}
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, &TabularReadError{Path: docPath, Err: ErrNoWorksheet}
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, &TabularReadError{Path: docPath, Sheet: sheetName, Err: err}
	}

	return buildSheet(sheetName, rows), nil
}

func buildSheet(sheetName string, rows [][]string) *types.SheetData {
	data := &types.SheetData{SheetName: sheetName}
	if len(rows) == 0 {
		return data
	}

	data.Headers = rows[0]
	data.Rows = make([]types.DataRow, 0, len(rows)-1)
	for i, row := range rows[1:] {
		fields := make(map[string]string, len(data.Headers))
		for col, header := range data.Headers {
			if header == "" || col >= len(row) {
				continue
			}
			// First column wins when a header repeats
			if _, ok := fields[header]; ok {
				continue
			}
			fields[header] = row[col]
		}
		data.Rows = append(data.Rows, types.DataRow{Index: i, Fields: fields})
	}

	return data
}

// hasColumn reports whether the header row contains name exactly.
func hasColumn(headers []string, name string) bool {
	for _, h := range headers {
		if h == name {
			return true
		}
	}
	return false
}

// rowName returns the trimmed value of the name column, or "" when absent or blank.
func rowName(row types.DataRow, column string) string {
	return strings.TrimSpace(row.Fields[column])
}
