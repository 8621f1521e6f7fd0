package ai

import (
	"bytes"
	"encoding/json"
	"fmt"

	"invoice-agent/internal/core"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"
	"github.com/shopspring/decimal"
)

// UpdateInvoiceTool is the single function the model may call to push
// structured invoice data back to the application.
const UpdateInvoiceTool = "update_invoice"

// clientArgs mirrors the declared client schema. Every field is optional;
// the reconciliation step treats empty strings as "not supplied".
type clientArgs struct {
	Name           string `json:"name,omitempty" jsonschema_description:"Full name or legal name of the client"`
	DocumentNumber string `json:"document_number,omitempty" jsonschema_description:"Client identity document number"`
	DocumentType   string `json:"document_type,omitempty" jsonschema:"enum=natural person,enum=legal entity" jsonschema_description:"'natural person' documents have 8 digits, 'legal entity' documents have 11 digits"`
	Address        string `json:"address,omitempty" jsonschema_description:"Client address (optional)"`
}

// itemArgs mirrors the declared line-item schema. All three fields are
// required per the tool contract.
type itemArgs struct {
	Description string  `json:"description" jsonschema_description:"Description of the product or service"`
	Quantity    float64 `json:"quantity" jsonschema_description:"Quantity of the item"`
	UnitPrice   float64 `json:"unit_price" jsonschema_description:"Unit price of the item"`
}

// updateInvoiceArgs is the full tool payload: an optional partial client
// and an optional list of new items to append.
type updateInvoiceArgs struct {
	Client *clientArgs `json:"client,omitempty" jsonschema_description:"Partial client data; include only the fields mentioned by the user"`
	Items  []itemArgs  `json:"items,omitempty" jsonschema_description:"New products or services to add to the invoice; never resubmit items already captured"`
}

// updateInvoiceSchema reflects the argument struct into a JSON schema map,
// the shape the Responses API expects for a function tool.
func updateInvoiceSchema() (map[string]any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v updateInvoiceArgs
	raw, err := json.Marshal(reflector.Reflect(v))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool schema: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tool schema to map: %w", err)
	}
	return m, nil
}

// invoiceTools builds the tool declarations sent with every model request.
func invoiceTools() ([]responses.ToolUnionParam, error) {
	schema, err := updateInvoiceSchema()
	if err != nil {
		return nil, err
	}
	return []responses.ToolUnionParam{
		{
			OfFunction: &responses.FunctionToolParam{
				Name:        UpdateInvoiceTool,
				Description: openai.String("Updates the invoice draft (client and items) from the user's request. Send partial data as soon as it appears."),
				Parameters:  schema,
			},
		},
	}, nil
}

// decodeToolArgs validates the raw tool-call arguments against the declared
// shape and converts them to a core Extraction. The payload arrives as an
// untyped JSON string from the host; unknown fields and shape mismatches are
// rejected here instead of being trusted downstream.
func decodeToolArgs(raw string) (*core.Extraction, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()

	var args updateInvoiceArgs
	if err := dec.Decode(&args); err != nil {
		return nil, fmt.Errorf("malformed %s arguments: %w", UpdateInvoiceTool, err)
	}

	ext := &core.Extraction{}
	if args.Client != nil {
		switch core.DocType(args.Client.DocumentType) {
		case "", core.DocTypeNaturalPerson, core.DocTypeLegalEntity:
		default:
			return nil, fmt.Errorf("unknown document type %q", args.Client.DocumentType)
		}
		ext.Client = &core.ClientPatch{
			Name:           args.Client.Name,
			DocumentNumber: args.Client.DocumentNumber,
			DocumentType:   core.DocType(args.Client.DocumentType),
			Address:        args.Client.Address,
		}
	}
	for _, it := range args.Items {
		if it.Description == "" {
			return nil, fmt.Errorf("item missing description")
		}
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("item %q has non-positive quantity %v", it.Description, it.Quantity)
		}
		if it.UnitPrice < 0 {
			return nil, fmt.Errorf("item %q has negative unit price %v", it.Description, it.UnitPrice)
		}
		ext.Items = append(ext.Items, core.LineItem{
			Description: it.Description,
			Quantity:    decimal.NewFromFloat(it.Quantity),
			UnitPrice:   decimal.NewFromFloat(it.UnitPrice),
		})
	}
	return ext, nil
}

// mergeExtractions layers b over a, shallow. Used when the model issues
// several tool calls in one turn: all arguments accumulate into a single
// pending extraction before the verdict is computed.
func mergeExtractions(a, b *core.Extraction) *core.Extraction {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	merged := &core.Extraction{Items: core.AppendItems(a.Items, b.Items)}
	switch {
	case a.Client == nil:
		merged.Client = b.Client
	case b.Client == nil:
		merged.Client = a.Client
	default:
		c := core.ClientPatch{
			Name:           a.Client.Name,
			DocumentNumber: a.Client.DocumentNumber,
			DocumentType:   a.Client.DocumentType,
			Address:        a.Client.Address,
		}
		if b.Client.Name != "" {
			c.Name = b.Client.Name
		}
		if b.Client.DocumentNumber != "" {
			c.DocumentNumber = b.Client.DocumentNumber
		}
		if b.Client.DocumentType != "" {
			c.DocumentType = b.Client.DocumentType
		}
		if b.Client.Address != "" {
			c.Address = b.Client.Address
		}
		merged.Client = &c
	}
	return merged
}
