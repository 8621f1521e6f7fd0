package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocType discriminates the client's identity document.
type DocType string

const (
	DocTypeNaturalPerson DocType = "natural person"
	DocTypeLegalEntity   DocType = "legal entity"
)

// ExpectedDigits returns the advisory document-number length for the type
// (8 for a natural person, 11 for a legal entity). It is a hint for the
// agent's prompting, never enforced on the document itself.
func (d DocType) ExpectedDigits() int {
	switch d {
	case DocTypeNaturalPerson:
		return 8
	case DocTypeLegalEntity:
		return 11
	default:
		return 0
	}
}

// DefaultTaxRate applies when the issuer configuration predates the tax
// rate field (older saved configs load with a zero rate).
const DefaultTaxRate = 18.0

// Issuer is the invoicing party's configured identity. It is owned by the
// session, mutated only through an explicit settings update, and snapshotted
// into each draft invoice.
type Issuer struct {
	Name     string  `json:"name"`
	TaxID    string  `json:"tax_id"`
	Address  string  `json:"address"`
	Currency string  `json:"currency"`
	TaxRate  float64 `json:"tax_rate"`
}

// EffectiveTaxRate treats a zero rate as absent for legacy-data compatibility.
func (i Issuer) EffectiveTaxRate() float64 {
	if i.TaxRate == 0 {
		return DefaultTaxRate
	}
	return i.TaxRate
}

// DefaultIssuer returns the placeholder identity used until the user saves
// their own company settings.
func DefaultIssuer() Issuer {
	return Issuer{
		Name:     "EMPRESA SAC",
		TaxID:    "20123456789",
		Address:  "Av. Principal 123, Lima",
		Currency: "PEN",
		TaxRate:  DefaultTaxRate,
	}
}

// Client is the invoiced party. Partial by construction: every field may be
// empty until the conversation supplies it.
type Client struct {
	DocumentType   DocType `json:"document_type"`
	DocumentNumber string  `json:"document_number"`
	Name           string  `json:"name"`
	Address        string  `json:"address,omitempty"`
}

// LineItem is a single billable line. The line total is always derived,
// never stored.
type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Total returns quantity × unit price.
func (l LineItem) Total() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}

// Invoice is the working document. Items are append-only during a
// conversation; insertion order is display order.
type Invoice struct {
	Issuer    Issuer     `json:"issuer"`
	Client    Client     `json:"client"`
	Items     []LineItem `json:"items"`
	IssueDate string     `json:"issue_date"`
	Series    string     `json:"series"`
	Number    string     `json:"number"`
}

// Subtotal sums the derived line totals.
func (inv Invoice) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range inv.Items {
		sum = sum.Add(it.Total())
	}
	return sum
}

// Tax returns subtotal × effective tax rate / 100.
func (inv Invoice) Tax() decimal.Decimal {
	rate := decimal.NewFromFloat(inv.Issuer.EffectiveTaxRate())
	return inv.Subtotal().Mul(rate).Div(decimal.NewFromInt(100))
}

// Total returns subtotal + tax.
func (inv Invoice) Total() decimal.Decimal {
	return inv.Subtotal().Add(inv.Tax())
}

// Reference is the human-facing identifier, e.g. "F001-00001234".
func (inv Invoice) Reference() string {
	return inv.Series + "-" + inv.Number
}

// DefaultSeries is the fixed invoice series of the single configured issuer.
const DefaultSeries = "F001"

// NewDraft creates a fresh working document for the given issuer snapshot
// and pre-assigned sequential number.
func NewDraft(issuer Issuer, number string) Invoice {
	return Invoice{
		Issuer:    issuer,
		Client:    Client{DocumentType: DocTypeNaturalPerson},
		Items:     []LineItem{},
		IssueDate: time.Now().Format("2006-01-02"),
		Series:    DefaultSeries,
		Number:    number,
	}
}

// ClientPatch is the agent's partial view of the client: any subset of
// fields may be set, and empty fields never overwrite populated ones.
type ClientPatch struct {
	Name           string  `json:"name,omitempty"`
	DocumentNumber string  `json:"document_number,omitempty"`
	DocumentType   DocType `json:"document_type,omitempty"`
	Address        string  `json:"address,omitempty"`
}

// Extraction is one turn's structured update: an optional client patch and
// zero or more new line items to append. It is consumed by the
// reconciliation step and discarded.
type Extraction struct {
	Client *ClientPatch `json:"client,omitempty"`
	Items  []LineItem   `json:"items,omitempty"`
}

// IsEmpty reports whether the extraction carries no data at all.
func (e *Extraction) IsEmpty() bool {
	return e == nil || (e.Client == nil && len(e.Items) == 0)
}
