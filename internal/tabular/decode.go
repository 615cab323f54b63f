// Package tabular converts spreadsheet files to raw rows and client records back to spreadsheets.
package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/wealthdesk/client-import-api/internal/models"
	"github.com/xuri/excelize/v2"
)

// Format is a supported spreadsheet encoding
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var (
	// ErrNoHeader is returned when a file has no recognizable header row
	ErrNoHeader = errors.New("no recognizable header row")
	// ErrUnsupportedFormat is returned for file types other than csv and xlsx
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// headerAliases maps folded header labels to canonical columns
var headerAliases = map[string]string{
	"nome":          models.ColumnName,
	"name":          models.ColumnName,
	"cliente":       models.ColumnName,
	"nome completo": models.ColumnName,
	"e-mail":        models.ColumnEmail,
	"email":         models.ColumnEmail,
	"e-mails":       models.ColumnEmail,
	"emails":        models.ColumnEmail,
	"telefone":      models.ColumnPhone,
	"celular":       models.ColumnPhone,
	"phone":         models.ColumnPhone,
	"status":        models.ColumnStatus,
	"situacao":      models.ColumnStatus,
	"endereco":      models.ColumnStreet,
	"logradouro":    models.ColumnStreet,
	"rua":           models.ColumnStreet,
	"street":        models.ColumnStreet,
	"complemento":   models.ColumnComplement,
	"complement":    models.ColumnComplement,
	"bairro":        models.ColumnNeighborhood,
	"neighborhood":  models.ColumnNeighborhood,
	"cidade":        models.ColumnCity,
	"municipio":     models.ColumnCity,
	"city":          models.ColumnCity,
	"uf":            models.ColumnState,
	"estado":        models.ColumnState,
	"state":         models.ColumnState,
	"cep":           models.ColumnZipCode,
	"zip":           models.ColumnZipCode,
	"zipcode":       models.ColumnZipCode,
	"zip code":      models.ColumnZipCode,
}

// CanonicalHeader resolves a header label to its canonical column name.
// Unknown labels are returned trimmed.
func CanonicalHeader(label string) string {
	if canonical, ok := headerAliases[strings.Join(strings.Fields(models.Fold(label)), " ")]; ok {
		return canonical
	}
	return strings.TrimSpace(label)
}

// FormatFromFilename detects the format from a file extension
func FormatFromFilename(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q (expected .csv or .xlsx)", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// Decode reads an uploaded file into raw rows
func Decode(r io.Reader, format Format) ([]models.RawRow, error) {
	var records []record
	var err error

	switch format {
	case FormatCSV:
		records, err = readCSV(r)
	case FormatXLSX:
		records, err = readXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}

	return rowsFromRecords(records)
}

// record is one line of the source file and its 1-based position
type record struct {
	pos   int
	cells []string
}

func readCSV(r io.Reader) ([]record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records []record
	pos, endLine := 0, 0
	for {
		cells, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV: %w", err)
		}
		// csv.Reader skips empty lines, so each one still takes a position.
		// Newlines inside quoted cells do not.
		startLine, _ := reader.FieldPos(0)
		pos += 1 + max(0, startLine-endLine-1)
		lastLine, _ := reader.FieldPos(len(cells) - 1)
		endLine = lastLine + strings.Count(cells[len(cells)-1], "\n")
		records = append(records, record{pos: pos, cells: cells})
	}
	return records, nil
}

// sniffDelimiter picks ';' when the first non-blank line has more semicolons
// than commas
func sniffDelimiter(data []byte) rune {
	for len(data) > 0 {
		line := data
		if idx := bytes.IndexByte(data, '\n'); idx >= 0 {
			line, data = data[:idx], data[idx+1:]
		} else {
			data = nil
		}
		if len(bytes.Trim(line, " \t\r;,")) == 0 {
			continue
		}
		if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
			return ';'
		}
		return ','
	}
	return ','
}

func readXLSX(r io.Reader) ([]record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: spreadsheet has no sheets", ErrNoHeader)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	records := make([]record, len(rows))
	for i, cells := range rows {
		records[i] = record{pos: i + 1, cells: cells}
	}
	return records, nil
}

func rowsFromRecords(records []record) ([]models.RawRow, error) {
	headerIdx := -1
	for i, rec := range records {
		if !isBlankRecord(rec.cells) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrNoHeader)
	}

	header := records[headerIdx]
	columns := make([]string, len(header.cells))
	seen := make(map[string]bool, len(header.cells))
	recognized := false
	for i, label := range header.cells {
		col := CanonicalHeader(label)
		if col == "" || seen[col] {
			continue // first occurrence of a column wins
		}
		seen[col] = true
		columns[i] = col
		if col == models.ColumnName || col == models.ColumnEmail {
			recognized = true
		}
	}
	if !recognized {
		return nil, fmt.Errorf("%w: expected at least a %q or %q column", ErrNoHeader, models.ColumnName, models.ColumnEmail)
	}

	ordered := make([]string, 0, len(columns))
	for _, col := range columns {
		if col != "" {
			ordered = append(ordered, col)
		}
	}

	dataRecords := records[headerIdx+1:]
	rows := make([]models.RawRow, 0, len(dataRecords))
	for _, rec := range dataRecords {
		if isBlankRecord(rec.cells) {
			continue
		}
		row := models.RawRow{
			Number:  rec.pos - header.pos,
			Columns: ordered,
			Values:  make(map[string]string, len(ordered)),
		}
		for j, col := range columns {
			if col == "" {
				continue
			}
			if j < len(rec.cells) {
				row.Values[col] = rec.cells[j]
			} else {
				row.Values[col] = ""
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func isBlankRecord(cells []string) bool {
	for _, cell := range cells {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
