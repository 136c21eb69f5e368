package domain

// Derived keys added by the normalizer. Leading underscore keeps them apart
// from spreadsheet columns.
const (
	KeyProcessed       = "_processed"
	KeyCalculatedTotal = "_calculatedTotal"
)

// TableRow is one normalized purchase-order row: column name to cell value.
// Values are string, int (quantity-like), or float64 (price/amount-like);
// date-like cells hold an ISO YYYY-MM-DD string. Every row of a parsed table
// shares the same key set.
type TableRow map[string]any

// DefaultRequiredColumns is the canonical purchase-order column set, matched
// fuzzily against uploaded headers.
var DefaultRequiredColumns = []string{
	"订单编号",
	"订单日期",
	"供应商名称",
	"采购物品",
	"规格型号",
	"计量单位",
	"数量",
	"单价",
	"总金额",
}

// TableSummary aggregates a parsed table for the analytics endpoint.
type TableSummary struct {
	TotalAmount     float64 `json:"total_amount"`
	TotalItems      int     `json:"total_items"`
	UniqueSuppliers int     `json:"unique_suppliers"`
	ItemTypes       int     `json:"item_types"`
}

// RowValidation is the per-row calculation-consistency check result.
type RowValidation struct {
	Row              TableRow `json:"row"`
	CalculationMatch bool     `json:"calculation_match"`
	Difference       float64  `json:"difference"`
	NeedsReview      bool     `json:"needs_review"`
}
