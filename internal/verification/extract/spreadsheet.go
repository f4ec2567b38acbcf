package extract

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractXLSXText renders every sheet as labeled rows of cell text, matching
// the layout the field parser expects from tabular certificates.
func extractXLSXText(content []byte) (string, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("open xlsx: %w", err)
	}
	defer wb.Close()

	var sb strings.Builder
	for _, sheet := range wb.GetSheetList() {
		rows, err := wb.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		sb.WriteString("[Sheet: " + sheet + "]\n")
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, " | "))
			if line != "" {
				sb.WriteString(line)
				sb.WriteByte('\n')
			}
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

// extractCSVText renders CSV rows as pipe-joined lines.
func extractCSVText(content []byte) (string, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return "", fmt.Errorf("parse csv: %w", err)
	}

	var sb strings.Builder
	for _, row := range records {
		line := strings.TrimSpace(strings.Join(row, " | "))
		if line != "" {
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
