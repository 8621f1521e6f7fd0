package ai

import (
	"strings"
	"testing"

	"invoice-agent/internal/core"

	"github.com/shopspring/decimal"
)

func TestUpdateInvoiceSchema(t *testing.T) {
	schema, err := updateInvoiceSchema()
	if err != nil {
		t.Fatalf("schema generation: %v", err)
	}
	if schema["type"] != "object" {
		t.Errorf("schema type = %v, want object", schema["type"])
	}
	if ap, ok := schema["additionalProperties"].(bool); !ok || ap {
		t.Errorf("additionalProperties = %v, want false", schema["additionalProperties"])
	}

	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("schema has no properties map: %v", schema)
	}
	for _, key := range []string{"client", "items"} {
		if _, ok := props[key]; !ok {
			t.Errorf("schema missing property %q", key)
		}
	}

	client, ok := props["client"].(map[string]any)
	if !ok {
		t.Fatalf("client property is not an object: %v", props["client"])
	}
	clientProps := client["properties"].(map[string]any)
	docType, ok := clientProps["document_type"].(map[string]any)
	if !ok {
		t.Fatalf("document_type missing from client schema")
	}
	enum, _ := docType["enum"].([]any)
	if len(enum) != 2 || enum[0] != "natural person" || enum[1] != "legal entity" {
		t.Errorf("document_type enum = %v", enum)
	}
}

func TestDecodeToolArgs(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{
			name: "client and items",
			raw:  `{"client":{"name":"Juan Perez","document_number":"12345678","document_type":"natural person"},"items":[{"description":"Consulting","quantity":2,"unit_price":150}]}`,
		},
		{
			name: "items only",
			raw:  `{"items":[{"description":"Hosting","quantity":1,"unit_price":25.5}]}`,
		},
		{
			name: "empty payload",
			raw:  `{}`,
		},
		{
			name:    "unknown top-level field",
			raw:     `{"invoice_number":"00001234"}`,
			wantErr: "malformed",
		},
		{
			name:    "unknown client field",
			raw:     `{"client":{"email":"a@b.com"}}`,
			wantErr: "malformed",
		},
		{
			name:    "bad document type",
			raw:     `{"client":{"document_type":"passport"}}`,
			wantErr: "unknown document type",
		},
		{
			name:    "zero quantity",
			raw:     `{"items":[{"description":"Consulting","quantity":0,"unit_price":100}]}`,
			wantErr: "non-positive quantity",
		},
		{
			name:    "negative price",
			raw:     `{"items":[{"description":"Consulting","quantity":1,"unit_price":-5}]}`,
			wantErr: "negative unit price",
		},
		{
			name:    "item without description",
			raw:     `{"items":[{"quantity":1,"unit_price":100}]}`,
			wantErr: "missing description",
		},
		{
			name:    "not json",
			raw:     `update the client please`,
			wantErr: "malformed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext, err := decodeToolArgs(tt.raw)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if ext == nil {
				t.Fatal("decode returned nil extraction without error")
			}
		})
	}
}

func TestDecodeToolArgs_Values(t *testing.T) {
	ext, err := decodeToolArgs(`{"client":{"name":"ACME SAC","document_number":"20123456789","document_type":"legal entity","address":"Av. Dos 200"},"items":[{"description":"Design course","quantity":2.5,"unit_price":100.4}]}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ext.Client == nil || ext.Client.Name != "ACME SAC" || ext.Client.DocumentType != core.DocTypeLegalEntity {
		t.Errorf("client = %+v", ext.Client)
	}
	if len(ext.Items) != 1 {
		t.Fatalf("items = %+v", ext.Items)
	}
	if !ext.Items[0].Quantity.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("quantity = %s", ext.Items[0].Quantity)
	}
	if !ext.Items[0].UnitPrice.Equal(decimal.RequireFromString("100.4")) {
		t.Errorf("unit price = %s", ext.Items[0].UnitPrice)
	}
}

func TestMergeExtractions(t *testing.T) {
	a := &core.Extraction{
		Client: &core.ClientPatch{Name: "Juan Perez"},
		Items:  []core.LineItem{{Description: "Consulting", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100)}},
	}
	b := &core.Extraction{
		Client: &core.ClientPatch{DocumentNumber: "12345678"},
		Items:  []core.LineItem{{Description: "Hosting", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(50)}},
	}

	merged := mergeExtractions(a, b)

	if merged.Client.Name != "Juan Perez" || merged.Client.DocumentNumber != "12345678" {
		t.Errorf("client fields did not layer: %+v", merged.Client)
	}
	if len(merged.Items) != 2 || merged.Items[0].Description != "Consulting" || merged.Items[1].Description != "Hosting" {
		t.Errorf("items did not accumulate in order: %+v", merged.Items)
	}

	if got := mergeExtractions(nil, b); got != b {
		t.Errorf("nil base should pass through")
	}
	if got := mergeExtractions(a, nil); got != a {
		t.Errorf("nil overlay should pass through")
	}
}

func TestMergeExtractions_LaterClientWins(t *testing.T) {
	a := &core.Extraction{Client: &core.ClientPatch{Name: "Juan Perez"}}
	b := &core.Extraction{Client: &core.ClientPatch{Name: "Maria Lopez"}}
	if got := mergeExtractions(a, b); got.Client.Name != "Maria Lopez" {
		t.Errorf("later non-empty field should win, got %q", got.Client.Name)
	}
}
