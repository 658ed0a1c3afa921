package reports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

// Exporter renders a table in one of the supported formats.
type Exporter interface {
	Export(name, format string, table Table, at time.Time) (*File, error)
}

type exporter struct{}

func NewExporter() Exporter {
	return &exporter{}
}

func (e *exporter) Export(name, format string, table Table, at time.Time) (*File, error) {
	stamp := at.Format("20060102_150405")
	switch format {
	case FormatCSV, "":
		data, err := e.csv(table)
		if err != nil {
			return nil, err
		}
		return &File{Data: data, Filename: fmt.Sprintf("%s_report_%s.csv", name, stamp), ContentType: "text/csv"}, nil
	case FormatExcel:
		data, err := e.excel(table)
		if err != nil {
			return nil, err
		}
		return &File{
			Data:        data,
			Filename:    fmt.Sprintf("%s_report_%s.xlsx", name, stamp),
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		}, nil
	case FormatPDF:
		data, err := e.pdf(table, at)
		if err != nil {
			return nil, err
		}
		return &File{Data: data, Filename: fmt.Sprintf("%s_report_%s.pdf", name, stamp), ContentType: "application/pdf"}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func (e *exporter) csv(table Table) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(table.Headers); err != nil {
		return nil, err
	}
	if err := writer.WriteAll(table.Rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *exporter) excel(table Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := table.Title
	if len(sheet) > 31 {
		sheet = sheet[:31]
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	for i, h := range table.Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(table.Headers), 1)
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return nil, err
	}

	for r, row := range table.Rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *exporter) pdf(table Table, at time.Time) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, table.Title)
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 9)
	pdf.Cell(0, 6, fmt.Sprintf("Generated %s, %d rows", at.Format("2006-01-02 15:04"), len(table.Rows)))
	pdf.Ln(10)

	widths := table.Widths
	if len(widths) != len(table.Headers) {
		widths = make([]float64, len(table.Headers))
		for i := range widths {
			widths[i] = 277 / float64(len(table.Headers))
		}
	}

	header := func() {
		pdf.SetFont("Arial", "B", 8)
		for i, h := range table.Headers {
			pdf.CellFormat(widths[i], 7, h, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 7)
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	for _, row := range table.Rows {
		if pdf.GetY()+6 > pageHeight-12 {
			pdf.AddPage()
			header()
		}
		for i, v := range row {
			if i >= len(widths) {
				break
			}
			pdf.CellFormat(widths[i], 6, fit(pdf, v, widths[i]), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fit truncates v to the cell width.
func fit(pdf *gofpdf.Fpdf, v string, width float64) string {
	if pdf.GetStringWidth(v) <= width-2 {
		return v
	}
	r := []rune(v)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > width-2 {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}
