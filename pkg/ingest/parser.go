package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// SpreadsheetExtensions lists the upload formats accepted before parsing.
var SpreadsheetExtensions = []string{".xlsx", ".xls", ".csv"}

func IsSpreadsheet(fileName string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	for _, allowed := range SpreadsheetExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// ParseBatch reads raw upload bytes into a canonical batch. The first
// non-empty row is the header.
func ParseBatch(fileName string, payload []byte, aliases map[string]string) (*Batch, error) {
	if len(payload) == 0 {
		return nil, errors.New("file is empty")
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	var records [][]string
	var err error
	switch ext {
	case ".csv":
		records, err = readCSV(payload)
	case ".xlsx", ".xls":
		records, err = readExcel(payload)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}

	headers, rows, err := splitHeader(records)
	if err != nil {
		return nil, err
	}
	return buildBatch(fileName, headers, rows, aliases)
}

func readCSV(payload []byte) ([][]string, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return records, nil
}

func readExcel(payload []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from workbook: %w", err)
	}
	return rows, nil
}

// splitHeader skips leading empty rows, takes the first populated row as
// the header, and drops fully blank data rows.
func splitHeader(records [][]string) ([]string, [][]string, error) {
	var headers []string
	var rows [][]string
	for _, record := range records {
		if isBlankRow(record) {
			continue
		}
		if headers == nil {
			headers = record
			continue
		}
		rows = append(rows, record)
	}

	if headers == nil {
		return nil, nil, errors.New("no header row detected")
	}
	return headers, rows, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
