package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
)

// PDFExporter renders tables and payment receipts.
type PDFExporter struct{}

func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	pdf.SetFont("Arial", "B", 10)
	colWidth := 190.0 / float64(len(data.Headers))
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for _, header := range data.Headers {
			pdf.CellFormat(colWidth, 7, row[header], "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	return output(pdf)
}

// Receipt is the printable view of a single fee payment.
type Receipt struct {
	SchoolName    string
	StudentName   string
	StudentID     string
	AcademicYear  string
	Semester      int
	ReceiptNumber string
	TransactionID string
	Method        string
	Amount        float64
	TotalAmount   float64
	TotalPaid     float64
	Balance       float64
	Status        string
	PaidAt        time.Time
	Notes         string
}

// RenderReceipt lays out a one-page receipt with a QR code of the receipt number.
func (e *PDFExporter) RenderReceipt(r Receipt) ([]byte, error) {
	if r.ReceiptNumber == "" {
		return nil, fmt.Errorf("receipt number required")
	}
	qr, err := qrcode.Encode(r.ReceiptNumber+"|"+r.TransactionID, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode receipt qr: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(12, 12, 12)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 9, r.SchoolName, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 7, "FEE PAYMENT RECEIPT", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	rows := [][2]string{
		{"Receipt No.", r.ReceiptNumber},
		{"Transaction ID", r.TransactionID},
		{"Date", r.PaidAt.Format("02 Jan 2006 15:04")},
		{"Student", fmt.Sprintf("%s (%s)", r.StudentName, r.StudentID)},
		{"Academic Year", fmt.Sprintf("%s / Semester %d", r.AcademicYear, r.Semester)},
		{"Payment Method", r.Method},
		{"Amount Paid", money(r.Amount)},
		{"Total Fee", money(r.TotalAmount)},
		{"Total Paid", money(r.TotalPaid)},
		{"Balance", money(r.Balance)},
		{"Status", strings.ToUpper(r.Status)},
	}
	if r.Notes != "" {
		rows = append(rows, [2]string{"Notes", r.Notes})
	}

	for _, row := range rows {
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(40, 7, row[0], "1", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 7, row[1], "1", 1, "", false, 0, "")
	}

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("receipt-qr", opts, bytes.NewReader(qr))
	pdf.ImageOptions("receipt-qr", 54, pdf.GetY()+6, 40, 40, false, opts, 0, "")

	return output(pdf)
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
