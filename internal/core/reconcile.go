package core

// Reconciliation of a turn's Extraction into the working Invoice.
//
// The merge is one-way and shallow: a non-empty extraction field overwrites
// the current value, an empty field leaves it untouched, and a populated
// field is never reverted to empty. Items are strictly additive — there is
// no dedup or correction channel, so "actually make it 2 units" arrives as
// a new line unless the agent avoids resubmitting (known limitation).

// Missing-field labels, in fixed evaluation order.
const (
	MissingClientName     = "client name"
	MissingClientDocument = "client document number"
	MissingItems          = "at least one item"
)

// MergeClient layers a patch over the current client, field-wise.
func MergeClient(current Client, patch *ClientPatch) Client {
	if patch == nil {
		return current
	}
	merged := current
	if patch.Name != "" {
		merged.Name = patch.Name
	}
	if patch.DocumentNumber != "" {
		merged.DocumentNumber = patch.DocumentNumber
	}
	if patch.DocumentType != "" {
		merged.DocumentType = patch.DocumentType
	}
	if patch.Address != "" {
		merged.Address = patch.Address
	}
	return merged
}

// AppendItems returns the current items with the new ones appended, order
// preserved. The input slices are never mutated.
func AppendItems(current, incoming []LineItem) []LineItem {
	if len(incoming) == 0 {
		return current
	}
	merged := make([]LineItem, 0, len(current)+len(incoming))
	merged = append(merged, current...)
	merged = append(merged, incoming...)
	return merged
}

// Prospective returns the document as it would look with the extraction
// applied, without committing anything. The verdict is always computed
// against this prospective state so the model is told what would still be
// missing after its own update.
func Prospective(inv Invoice, ext *Extraction) Invoice {
	if ext == nil {
		return inv
	}
	merged := inv
	merged.Client = MergeClient(inv.Client, ext.Client)
	merged.Items = AppendItems(inv.Items, ext.Items)
	return merged
}

// Apply commits the extraction into the invoice and returns the result.
func Apply(inv Invoice, ext *Extraction) Invoice {
	return Prospective(inv, ext)
}

// MissingFields returns the ordered list of unmet requirements blocking a
// save: client name, then client document number, then at least one item.
// An empty result means the invoice is ready.
func MissingFields(inv Invoice) []string {
	var missing []string
	if inv.Client.Name == "" {
		missing = append(missing, MissingClientName)
	}
	if inv.Client.DocumentNumber == "" {
		missing = append(missing, MissingClientDocument)
	}
	if len(inv.Items) == 0 {
		missing = append(missing, MissingItems)
	}
	return missing
}

// Ready reports whether the invoice can be saved.
func Ready(inv Invoice) bool {
	return len(MissingFields(inv)) == 0
}
