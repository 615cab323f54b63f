package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/wealthdesk/client-import-api/internal/models"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Clientes"

// EmailSeparator joins multiple emails in a single cell
const EmailSeparator = "; "

// Document is an in-memory spreadsheet ready for download
type Document struct {
	Headers []string
	Rows    [][]string
}

// Encode maps stored clients to the import column layout
func Encode(clients []*models.Client) *Document {
	doc := &Document{
		Headers: append([]string(nil), models.ClientColumns...),
		Rows:    make([][]string, 0, len(clients)),
	}
	for _, c := range clients {
		doc.Rows = append(doc.Rows, ClientRow(c))
	}
	return doc
}

// ClientRow renders one client in column order
func ClientRow(c *models.Client) []string {
	return []string{
		c.Name,
		strings.Join(c.Emails, EmailSeparator),
		c.Phone,
		string(c.Status),
		c.Address.Street,
		c.Address.Complement,
		c.Address.Neighborhood,
		c.Address.City,
		c.Address.State,
		c.Address.ZipCode,
	}
}

// EncodeTemplate returns the header row plus one example row that passes validation
func EncodeTemplate() *Document {
	return &Document{
		Headers: append([]string(nil), models.ClientColumns...),
		Rows: [][]string{{
			"Maria da Silva",
			"maria.silva@exemplo.com.br",
			"(11) 98765-4321",
			string(models.DefaultClientStatus),
			"Av. Paulista, 1000",
			"Conj. 101",
			"Bela Vista",
			"São Paulo",
			"SP",
			"01310-100",
		}},
	}
}

// Write renders the document in the given format
func (d *Document) Write(w io.Writer, format Format) error {
	switch format {
	case FormatCSV:
		return d.writeCSV(w)
	case FormatXLSX:
		return d.writeXLSX(w)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func (d *Document) writeCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(d.Headers); err != nil {
		return err
	}
	for _, row := range d.Rows {
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func (d *Document) writeXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	if err := f.SetSheetRow(sheetName, "A1", toCells(d.Headers)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, row := range d.Rows {
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheetName, cell, toCells(row)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write spreadsheet: %w", err)
	}
	return nil
}

func toCells(values []string) *[]interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return &cells
}

// ContentType returns the MIME type of a format
func ContentType(format Format) string {
	if format == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filename builds a download filename for base and format
func Filename(base string, format Format) string {
	return base + "." + string(format)
}
