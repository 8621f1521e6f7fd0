package render

import (
	"bytes"
	"fmt"
	"time"

	"invoice-agent/internal/core"

	"github.com/jung-kurt/gofpdf"
)

// PDF renders an invoice as an A4 PDF document and returns the bytes.
func PDF(inv core.Invoice) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	// Issuer header.
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(120, 8, inv.Issuer.Name)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(60, 8, "INVOICE", "", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	pdf.Cell(120, 5, "Tax ID: "+inv.Issuer.TaxID)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(60, 5, inv.Reference(), "", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.Cell(120, 5, inv.Issuer.Address)
	issueDate := inv.IssueDate
	if issueDate == "" {
		issueDate = time.Now().Format("2006-01-02")
	}
	pdf.CellFormat(60, 5, issueDate, "", 1, "R", false, 0, "")
	pdf.Ln(8)

	// Client block.
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, "BILL TO", "B", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, inv.Client.Name, "", 1, "", false, 0, "")
	doc := inv.Client.DocumentNumber
	if t := inv.Client.DocumentType; t != "" {
		doc = fmt.Sprintf("%s (%s)", doc, t)
	}
	pdf.CellFormat(0, 5, "Document: "+doc, "", 1, "", false, 0, "")
	if inv.Client.Address != "" {
		pdf.CellFormat(0, 5, inv.Client.Address, "", 1, "", false, 0, "")
	}
	pdf.Ln(6)

	// Items table.
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(95, 7, "Description", "1", 0, "", true, 0, "")
	pdf.CellFormat(20, 7, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(32, 7, "Unit Price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(33, 7, "Total", "1", 1, "R", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, it := range inv.Items {
		pdf.CellFormat(95, 7, it.Description, "1", 0, "", false, 0, "")
		pdf.CellFormat(20, 7, FormatQuantity(it.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(32, 7, it.UnitPrice.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(33, 7, it.Total().StringFixed(2), "1", 1, "R", false, 0, "")
	}

	// Totals.
	pdf.Ln(3)
	rate := inv.Issuer.EffectiveTaxRate()
	rows := []struct {
		label string
		value string
		bold  bool
	}{
		{"Subtotal", FormatAmount(inv.Issuer.Currency, inv.Subtotal()), false},
		{fmt.Sprintf("Tax (%.6g%%)", rate), FormatAmount(inv.Issuer.Currency, inv.Tax()), false},
		{"Total", FormatAmount(inv.Issuer.Currency, inv.Total()), true},
	}
	for _, row := range rows {
		if row.bold {
			pdf.SetFont("Arial", "B", 10)
		} else {
			pdf.SetFont("Arial", "", 9)
		}
		pdf.CellFormat(115, 6, "", "", 0, "", false, 0, "")
		pdf.CellFormat(32, 6, row.label, "", 0, "R", false, 0, "")
		pdf.CellFormat(33, 6, row.value, "", 1, "R", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}
	return buf.Bytes(), nil
}
