// internal/submission/columnmap/builtin.go
package columnmap

// builtins are compiled-in layouts. v1 is the original lender ledger template.
func builtins() []*ColumnMap {
	return []*ColumnMap{
		{
			Version: "v1",
			Columns: []Column{
				{Header: "Application ID", Path: IdentifierPath},
				{Header: "Owner ID", Path: "application.ownerId"},
				{Header: "Applicant Name", Path: "application.name"},
				{Header: "Product Type", Path: "application.productType"},
				{Header: "Lender ID", Path: "application.lenderId"},
				{Header: "Lender Product ID", Path: "application.lenderProductId"},
				{Header: "Requested Amount", Path: "application.requestedAmount"},
				{Header: "Primary Document", Path: "documents.0.title"},
				{Header: "Submitted At", Path: "submittedAt"},
			},
		},
	}
}
