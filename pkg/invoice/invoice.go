// Package invoice renders order invoices.
package invoice

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// ContentType of documents produced by PDFRenderer.
const ContentType = "application/pdf"

// Line is one purchased product as printed on the invoice.
type Line struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	Total     decimal.Decimal
}

// Document is everything printed on an invoice.
type Document struct {
	Number        uint
	IssuedAt      time.Time
	OrderedAt     time.Time
	Customer      string
	Email         string
	Phone         string
	Address       string
	PaymentMethod string
	PaymentStatus string
	Lines         []Line
	Total         decimal.Decimal
}

// Renderer turns a Document into file bytes.
type Renderer interface {
	Render(doc Document) ([]byte, error)
	ContentType() string
}

// PDFRenderer renders A4 invoices.
type PDFRenderer struct {
	Seller string
}

// NewPDFRenderer creates a renderer printing seller in the header.
func NewPDFRenderer(seller string) *PDFRenderer {
	return &PDFRenderer{Seller: seller}
}

func (r *PDFRenderer) ContentType() string { return ContentType }

func (r *PDFRenderer) Render(doc Document) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(doc.IssuedAt)
	pdf.SetTitle(fmt.Sprintf("Invoice %d", doc.Number), true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(r.Seller), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Invoice #%d", doc.Number), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Issued: "+doc.IssuedAt.Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Ordered: "+doc.OrderedAt.Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 6, "Bill to", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	for _, s := range []string{doc.Customer, doc.Email, doc.Phone, doc.Address} {
		if s != "" {
			pdf.CellFormat(0, 6, tr(s), "", 1, "L", false, 0, "")
		}
	}
	pdf.CellFormat(0, 6, fmt.Sprintf("Payment: %s (%s)", doc.PaymentMethod, doc.PaymentStatus), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	widths := []float64{95, 20, 35, 35}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range []string{"Product", "Qty", "Unit price", "Total"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 8, h, "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 11)
	for _, l := range doc.Lines {
		pdf.CellFormat(widths[0], 7, tr(l.Name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, fmt.Sprintf("%d", l.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 7, l.UnitPrice.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, l.Total.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(widths[0]+widths[1]+widths[2], 8, "Grand total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[3], 8, doc.Total.StringFixed(2), "1", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render invoice %d: %w", doc.Number, err)
	}
	return buf.Bytes(), nil
}

// FileName is the download name of the invoice of an order.
func FileName(orderID uint) string {
	return fmt.Sprintf("Invoice_%d.pdf", orderID)
}
