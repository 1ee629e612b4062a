package statement

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/korean"
)

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	zipMagic   = []byte("PK\x03\x04")
	ofxMarkers = []string{"OFXHEADER", "<OFX>"}
)

// table is a grid of cell text from one CSV file or one worksheet.
type table struct {
	sheet  string
	rows   [][]string
	broken map[int]string // row index to read error
}

func looksLikeOFX(data []byte, name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".ofx", ".qfx":
		return true
	}
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	upper := strings.ToUpper(string(head))
	for _, marker := range ofxMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}

func isWorkbook(data []byte, name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".xlsx") || bytes.HasPrefix(data, zipMagic)
}

// readTables loads every table in data. Workbooks yield one table per sheet.
func readTables(data []byte, name string) ([]table, error) {
	if isWorkbook(data, name) {
		return readWorkbook(data)
	}
	t, err := readCSV(data)
	if err != nil {
		return nil, err
	}
	return []table{t}, nil
}

func readWorkbook(data []byte) ([]table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open workbook: %w", ErrUnrecognizedFormat, err)
	}
	defer func() { _ = f.Close() }()

	var tables []table
	for _, sheet := range f.GetSheetList() {
		// Raw values keep dates as serial numbers and amounts unformatted.
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("%w: cannot read sheet %q: %w", ErrUnrecognizedFormat, sheet, err)
		}
		tables = append(tables, table{sheet: sheet, rows: rows})
	}
	return tables, nil
}

func readCSV(data []byte) (table, error) {
	text, err := decodeText(data)
	if err != nil {
		return table{}, err
	}

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	t := table{broken: make(map[int]string)}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			t.broken[len(t.rows)] = parseErr.Err.Error()
			t.rows = append(t.rows, nil)
			continue
		}
		if err != nil {
			return table{}, fmt.Errorf("%w: %w", ErrUnrecognizedFormat, err)
		}
		t.rows = append(t.rows, record)
	}
	return t, nil
}

// decodeText returns data as UTF-8. Korean bank exports are often EUC-KR
// (CP949), which is decoded when the bytes are not valid UTF-8.
func decodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := korean.EUCKR.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("%w: unsupported text encoding: %w", ErrUnrecognizedFormat, err)
	}
	return string(decoded), nil
}
