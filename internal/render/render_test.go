package render

import (
	"bytes"
	"strings"
	"testing"

	"invoice-agent/internal/core"

	"github.com/shopspring/decimal"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		code   string
		amount string
		want   string
	}{
		{"USD", "1234.5", "1,234.50"},
		{"PEN", "100", "100.00"},
		{"XXX-INVALID", "10", "XXX-INVALID 10.00"},
	}
	for _, tt := range tests {
		got := FormatAmount(tt.code, decimal.RequireFromString(tt.amount))
		if !strings.Contains(got, tt.want) {
			t.Errorf("FormatAmount(%s, %s) = %q, want containing %q", tt.code, tt.amount, got, tt.want)
		}
	}
}

func TestFormatQuantity(t *testing.T) {
	if got := FormatQuantity(decimal.RequireFromString("2.50")); got != "2.5" {
		t.Errorf("FormatQuantity = %q, want 2.5", got)
	}
}

func TestPDF(t *testing.T) {
	inv := core.Invoice{
		Issuer: core.DefaultIssuer(),
		Client: core.Client{
			Name:           "Juan Perez",
			DocumentNumber: "12345678",
			DocumentType:   core.DocTypeNaturalPerson,
		},
		Items: []core.LineItem{{
			Description: "Consulting",
			Quantity:    decimal.NewFromInt(2),
			UnitPrice:   decimal.NewFromInt(150),
		}},
		Series: core.DefaultSeries,
		Number: "00001234",
	}

	raw, err := PDF(inv)
	if err != nil {
		t.Fatalf("PDF: %v", err)
	}
	if !bytes.HasPrefix(raw, []byte("%PDF")) {
		t.Errorf("output does not start with a PDF header")
	}
	if len(raw) < 1000 {
		t.Errorf("suspiciously small PDF: %d bytes", len(raw))
	}
}

func TestPDF_EmptyDraft(t *testing.T) {
	raw, err := PDF(core.Invoice{Issuer: core.DefaultIssuer(), Series: core.DefaultSeries, Number: "00001234"})
	if err != nil {
		t.Fatalf("PDF on empty draft: %v", err)
	}
	if !bytes.HasPrefix(raw, []byte("%PDF")) {
		t.Errorf("output does not start with a PDF header")
	}
}
