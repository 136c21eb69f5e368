package normalizer

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/procurement-tools/contractpilot/internal/domain"
)

// consistencyEpsilon is the tolerance for quantity*unitPrice vs stated total.
const consistencyEpsilon = 0.01

var repeatedCommas = regexp.MustCompile(`,{2,}`)

// Totals aggregates amount, item count, distinct suppliers and distinct item
// types over transformed rows.
func (n *Normalizer) Totals(rows []domain.TableRow) domain.TableSummary {
	summary := domain.TableSummary{}
	suppliers := map[string]bool{}
	items := map[string]bool{}

	for _, row := range rows {
		keys := keysOf(row)
		summary.TotalAmount += toFloat(row[n.findColumn(keys, "总金额")])
		summary.TotalItems += toInt(row[n.findColumn(keys, "数量")])
		if s := asString(row[n.findColumn(keys, "供应商")]); s != "" {
			suppliers[s] = true
		}
		if s := asString(row[n.findColumn(keys, "采购物品")]); s != "" {
			items[s] = true
		}
	}

	summary.UniqueSuppliers = len(suppliers)
	summary.ItemTypes = len(items)
	return summary
}

// GroupBySupplier buckets rows by supplier name, with an "Unknown" bucket for
// rows missing one.
func (n *Normalizer) GroupBySupplier(rows []domain.TableRow) map[string][]domain.TableRow {
	groups := map[string][]domain.TableRow{}
	for _, row := range rows {
		supplier := asString(row[n.findColumn(keysOf(row), "供应商")])
		if supplier == "" {
			supplier = "Unknown"
		}
		groups[supplier] = append(groups[supplier], row)
	}
	return groups
}

// ValidateCalculations flags rows whose stated total disagrees with
// quantity*unitPrice by at least a cent.
func (n *Normalizer) ValidateCalculations(rows []domain.TableRow) []domain.RowValidation {
	results := make([]domain.RowValidation, 0, len(rows))
	for _, row := range rows {
		keys := keysOf(row)
		calculated := toFloat(row[n.findColumn(keys, "数量")]) * toFloat(row[n.findColumn(keys, "单价")])
		stated := toFloat(row[n.findColumn(keys, "总金额")])
		diff := math.Abs(calculated - stated)

		results = append(results, domain.RowValidation{
			Row:              row,
			CalculationMatch: diff < consistencyEpsilon,
			Difference:       diff,
			NeedsReview:      diff >= consistencyEpsilon,
		})
	}
	return results
}

// DelimitedText renders the table as CSV-like text for prompt embedding,
// collapsing repeated delimiters and stripping leading/trailing delimiters
// per line so sparse tables do not bloat the prompt.
func DelimitedText(t *Table) string {
	var lines []string
	lines = append(lines, strings.Join(t.Headers, ","))
	for _, row := range t.Rows {
		cells := make([]string, len(t.Headers))
		for i, h := range t.Headers {
			cells[i] = asString(row[h])
		}
		lines = append(lines, strings.Join(cells, ","))
	}

	for i, line := range lines {
		line = repeatedCommas.ReplaceAllString(line, ",")
		line = strings.Trim(line, ",")
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case bool:
		if x {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}
