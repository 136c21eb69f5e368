package domain

// Generation types understood by Backend.GenerateContract. Regeneration must
// preserve the substantive content of the input; fresh generation builds a
// contract from table data.
const (
	GenerateTypeFresh      = "generate"
	GenerateTypeRegenerate = "regenerate"
)

// StructuredContractData is the four-section structure extracted from model
// output. The model is untrusted, so every section is optional and callers
// must treat any of them as possibly empty.
type StructuredContractData struct {
	BasicInfo    map[string]any `json:"basic_info"`
	SupplierInfo map[string]any `json:"supplier_info"`
	ItemInfo     map[string]any `json:"item_info"`
	PaymentInfo  map[string]any `json:"payment_info"`
}

// EmptyStructuredContractData is the well-defined fallback when extraction
// fails: four present but empty sections.
func EmptyStructuredContractData() *StructuredContractData {
	return &StructuredContractData{
		BasicInfo:    map[string]any{},
		SupplierInfo: map[string]any{},
		ItemInfo:     map[string]any{},
		PaymentInfo:  map[string]any{},
	}
}

// GenerateRequest selects the prompt family for contract generation.
type GenerateRequest struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// ProcessResult carries both the intermediate structured data and the final
// contract text so callers can show either.
type ProcessResult struct {
	Rows     []TableRow              `json:"rows"`
	Data     *StructuredContractData `json:"data"`
	Contract string                  `json:"contract"`
}

// Analysis report shapes. Structured when the model cooperates, prose when it
// does not; callers must handle both.
const (
	AnalysisStructured = "structured"
	AnalysisText       = "text"
)

// AnalysisIssue is one structured finding in a contract review.
type AnalysisIssue struct {
	Location  string `json:"location"`
	Original  string `json:"original"`
	Suggested string `json:"suggested"`
	Reason    string `json:"reason"`
}

// AnalysisReport is the result of Backend.AnalyzeContract.
type AnalysisReport struct {
	Type    string          `json:"type"`
	Issues  []AnalysisIssue `json:"issues,omitempty"`
	Content string          `json:"content,omitempty"`
}
