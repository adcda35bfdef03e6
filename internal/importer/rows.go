package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Row is one normalized spreadsheet row: every header maps to a cell value,
// missing cells become "".
type Row map[string]string

// IsEmpty reports whether every cell of the row is blank.
func (r Row) IsEmpty() bool {
	for _, v := range r {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ParseFile parses an uploaded catalog file into rows based on its
// extension. Returns ValidationError for unsupported or unreadable files.
func ParseFile(reader io.Reader, filename string) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return ParseCSV(reader)
	case ".xlsx":
		return ParseXLSX(reader)
	default:
		return nil, &ValidationError{Message: fmt.Sprintf("unsupported file type %q, expected .csv or .xlsx", filepath.Ext(filename))}
	}
}

// ParseCSV reads a CSV file into normalized rows. The first record is the
// header; a UTF-8 BOM on the first header cell is stripped. Records may have
// fewer fields than the header; missing cells become empty strings.
func ParseCSV(reader io.Reader) ([]Row, error) {
	r := csv.NewReader(reader)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, &ValidationError{Message: "file has no parsable header row"}
	}
	if len(header) > 0 {
		header[0] = string(bytes.TrimPrefix([]byte(header[0]), []byte("\xef\xbb\xbf")))
	}
	keys := normalizeHeader(header)

	var rows []Row
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ValidationError{Message: fmt.Sprintf("malformed CSV: %v", err)}
		}

		row := makeRow(keys, record)
		if !row.IsEmpty() {
			rows = append(rows, row)
		}
	}

	return rows, nil
}

// ParseXLSX reads the first sheet of an XLSX workbook into normalized rows.
func ParseXLSX(reader io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("malformed XLSX: %v", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ValidationError{Message: "workbook has no sheets"}
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("failed to read sheet %q: %v", sheets[0], err)}
	}
	if len(records) == 0 {
		return nil, &ValidationError{Message: "file has no parsable header row"}
	}

	keys := normalizeHeader(records[0])

	var rows []Row
	for _, record := range records[1:] {
		row := makeRow(keys, record)
		if !row.IsEmpty() {
			rows = append(rows, row)
		}
	}

	return rows, nil
}

// normalizeHeader lowercases headers and collapses spaces to underscores so
// "Short Name", "short_name" and "SHORT NAME" all address the same column.
func normalizeHeader(header []string) []string {
	keys := make([]string, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.Join(strings.Fields(key), "_")
		keys[i] = key
	}
	return keys
}

func makeRow(keys, record []string) Row {
	row := make(Row, len(keys))
	for i, key := range keys {
		if key == "" {
			continue
		}
		if i < len(record) {
			row[key] = strings.TrimSpace(record[i])
		} else {
			row[key] = ""
		}
	}
	return row
}
