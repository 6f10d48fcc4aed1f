package report

import (
	"io"

	"github.com/go-pdf/fpdf"
)

// RGB is a fill color
type RGB struct {
	R, G, B int
}

// Table is a single-column grid table with a colored header row
type Table struct {
	StartY    float64
	Head      string
	Rows      []string
	HeadColor RGB
}

// Document is the drawing surface a report is laid out on. Coordinates are
// in millimetres on an A4 page.
type Document interface {
	SetFont(family, style string, size float64)
	CenteredText(y float64, text string)
	// Table draws t and returns the y coordinate just below its last row
	Table(t Table) float64
	Write(w io.Writer) error
}

const (
	pageCenterX = 105.0
	tableMargin = 14.0
	rowHeight   = 8.0
	cellFont    = 10.0
)

type pdfDocument struct {
	pdf    *fpdf.Fpdf
	tr     func(string) string // UTF-8 to the core fonts' cp1252
	family string
	style  string
	size   float64
}

// NewPDFDocument creates an A4 portrait document with one page
func NewPDFDocument(compress bool) Document {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(compress)
	pdf.SetMargins(tableMargin, tableMargin, tableMargin)
	pdf.SetAutoPageBreak(true, tableMargin)
	pdf.AddPage()
	return &pdfDocument{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (d *pdfDocument) SetFont(family, style string, size float64) {
	d.family, d.style, d.size = family, style, size
	d.pdf.SetFont(family, style, size)
}

func (d *pdfDocument) CenteredText(y float64, text string) {
	text = d.tr(text)
	width := d.pdf.GetStringWidth(text)
	d.pdf.Text(pageCenterX-width/2, y, text)
}

func (d *pdfDocument) Table(t Table) float64 {
	pageWidth, _ := d.pdf.GetPageSize()
	width := pageWidth - 2*tableMargin

	if d.family != "" {
		defer d.pdf.SetFont(d.family, d.style, d.size)
	}

	d.pdf.SetDrawColor(200, 200, 200)
	d.pdf.SetXY(tableMargin, t.StartY)

	d.pdf.SetFont("Helvetica", "B", cellFont)
	d.pdf.SetFillColor(t.HeadColor.R, t.HeadColor.G, t.HeadColor.B)
	d.pdf.SetTextColor(255, 255, 255)
	d.pdf.CellFormat(width, rowHeight, d.tr(t.Head), "1", 1, "L", true, 0, "")

	d.pdf.SetFont("Helvetica", "", cellFont)
	d.pdf.SetTextColor(0, 0, 0)
	for _, row := range t.Rows {
		d.pdf.SetX(tableMargin)
		d.pdf.CellFormat(width, rowHeight, d.tr(row), "1", 1, "L", false, 0, "")
	}

	return d.pdf.GetY()
}

func (d *pdfDocument) Write(w io.Writer) error {
	return d.pdf.Output(w)
}
