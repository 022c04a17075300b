package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

const unicodeFontFamily = "report"

// PDFExporter renders reports into a tabular A4 PDF. The core fonts only cover Latin-1;
// configure a UTF-8 TrueType font to print Hangul titles and reasons.
type PDFExporter struct {
	fontPath string
}

// NewPDFExporter constructs a PDF exporter. fontPath may be empty.
func NewPDFExporter(fontPath string) *PDFExporter {
	return &PDFExporter{fontPath: fontPath}
}

// Render creates a PDF document with a title block and one table per section.
func (e *PDFExporter) Render(report Report) ([]byte, error) {
	if err := report.validate(); err != nil {
		return nil, err
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)

	family := "Arial"
	translate := pdf.UnicodeTranslatorFromDescriptor("")
	if e.fontPath != "" {
		pdf.AddUTF8Font(unicodeFontFamily, "", e.fontPath)
		pdf.AddUTF8Font(unicodeFontFamily, "B", e.fontPath)
		family = unicodeFontFamily
		translate = func(s string) string { return s }
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("load pdf font: %w", err)
	}

	pdf.AddPage()
	if report.Title != "" {
		pdf.SetFont(family, "B", 14)
		pdf.CellFormat(0, 10, translate(report.Title), "", 1, "C", false, 0, "")
	}
	pdf.SetFont(family, "", 9)
	if report.Subtitle != "" {
		pdf.CellFormat(0, 6, translate(report.Subtitle), "", 1, "C", false, 0, "")
	}
	if !report.GeneratedAt.IsZero() {
		pdf.CellFormat(0, 6, report.GeneratedAt.UTC().Format(time.RFC3339), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	for _, section := range report.Sections {
		if section.Title != "" {
			pdf.SetFont(family, "B", 11)
			pdf.CellFormat(0, 8, translate(section.Title), "", 1, "L", false, 0, "")
		}

		colWidth := 190.0 / float64(len(section.Data.Headers))
		pdf.SetFont(family, "B", 9)
		for _, header := range section.Data.Headers {
			pdf.CellFormat(colWidth, 8, translate(header), "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont(family, "", 8)
		for _, row := range section.Data.Rows {
			for _, header := range section.Data.Headers {
				pdf.CellFormat(colWidth, 7, translate(row[header]), "1", 0, "", false, 0, "")
			}
			pdf.Ln(-1)
		}
		pdf.Ln(4)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
