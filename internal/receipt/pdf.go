// Package receipt renders tax receipts and invoices as single-page
// placeholder PDF documents.
package receipt

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/MichaelKMarwa/recupio/internal/domain"
)

// ContentType is the media type of rendered documents.
const ContentType = "application/pdf"

// Document is a titled list of text lines.
type Document struct {
	Title string
	Lines []string
}

// TaxReceiptDocument lays out a receipt for the given drop-off.
func TaxReceiptDocument(r *domain.TaxReceipt, d *domain.DropOff) Document {
	lines := []string{
		"Receipt number: " + r.ReceiptNumber,
		"Receipt date: " + r.ReceiptDate.Format("2006-01-02"),
		fmt.Sprintf("Tax year: %d", r.TaxYear),
		"Drop-off: " + d.ID,
		"Drop-off date: " + d.DropOffDate.Format("2006-01-02"),
		"",
	}
	for _, it := range d.Items {
		lines = append(lines, fmt.Sprintf("%d x %s (%s)  $%.2f", it.Quantity, it.ItemID, it.Condition, it.EstimatedValue))
	}
	lines = append(lines, "", fmt.Sprintf("Total estimated value: $%.2f", r.TotalValue))
	return Document{Title: "Donation Tax Receipt", Lines: lines}
}

// InvoiceDocument lays out a subscription invoice. Amounts are in minor
// units.
func InvoiceDocument(inv *domain.Invoice) Document {
	return Document{
		Title: "Invoice",
		Lines: []string{
			"Invoice: " + inv.ID,
			"Plan: " + inv.PlanID,
			"Invoice date: " + inv.InvoiceDate.Format("2006-01-02"),
			"Due date: " + inv.DueDate.Format("2006-01-02"),
			fmt.Sprintf("Amount: %d.%02d %s", inv.Amount/100, inv.Amount%100, inv.Currency),
			"Status: " + inv.Status,
		},
	}
}

var pdfEscaper = strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)

// Render writes doc as a PDF 1.4 file with one Helvetica page.
func Render(doc Document) []byte {
	var content bytes.Buffer
	content.WriteString("BT\n/F1 18 Tf\n72 760 Td\n")
	fmt.Fprintf(&content, "(%s) Tj\n", pdfEscaper.Replace(doc.Title))
	content.WriteString("/F1 11 Tf\n0 -28 Td\n")
	for _, line := range doc.Lines {
		fmt.Fprintf(&content, "(%s) Tj\n0 -16 Td\n", pdfEscaper.Replace(line))
	}
	content.WriteString("ET\n")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", content.Len(), content.String()),
	}

	var out bytes.Buffer
	out.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = out.Len()
		fmt.Fprintf(&out, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := out.Len()
	fmt.Fprintf(&out, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&out, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&out, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return out.Bytes()
}
