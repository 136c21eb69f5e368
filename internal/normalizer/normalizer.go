// Package normalizer converts uploaded purchase-order tables (.xlsx/.xls/.csv)
// into column-validated, type-coerced row records.
package normalizer

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/procurement-tools/contractpilot/internal/domain"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/unicode/norm"
)

// excelEpochOffset is the number of days between the effective Excel
// serial-date epoch (1899-12-30, once the 1900 leap-year bug is absorbed) and
// the Unix epoch.
const excelEpochOffset = 25569

// Cell-class markers. A column belongs to a class when its normalized header
// contains one of the markers; quantity cells coerce to int, price/amount
// cells to float64, date cells to ISO strings.
var (
	quantityMarkers = []string{"数量", "quantity", "qty"}
	priceMarkers    = []string{"单价", "金额", "price", "amount"}
	dateMarkers     = []string{"日期", "date"}
)

// Table is a parsed sheet: ordered headers plus normalized rows.
type Table struct {
	Headers []string
	Rows    []domain.TableRow
}

// Normalizer parses and validates tabular purchase-order files.
type Normalizer struct {
	requiredColumns []string
	maxUploadBytes  int64
	allowedExts     map[string]bool
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithRequiredColumns overrides the canonical required column set.
func WithRequiredColumns(cols []string) Option {
	return func(n *Normalizer) {
		if len(cols) > 0 {
			n.requiredColumns = cols
		}
	}
}

// WithUploadLimits overrides the size ceiling and extension whitelist.
func WithUploadLimits(maxBytes int64, exts []string) Option {
	return func(n *Normalizer) {
		if maxBytes > 0 {
			n.maxUploadBytes = maxBytes
		}
		if len(exts) > 0 {
			n.allowedExts = make(map[string]bool, len(exts))
			for _, e := range exts {
				n.allowedExts[strings.ToLower(e)] = true
			}
		}
	}
}

// New creates a Normalizer with the canonical purchase-order column set and a
// 10MB ceiling unless overridden.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		requiredColumns: domain.DefaultRequiredColumns,
		maxUploadBytes:  10 << 20,
		allowedExts:     map[string]bool{".xlsx": true, ".xls": true, ".csv": true},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// RequiredColumns returns the canonical column set this instance validates.
func (n *Normalizer) RequiredColumns() []string {
	return n.requiredColumns
}

// ValidateFile rejects unsupported extensions and oversized files locally,
// before any parsing or network work.
func (n *Normalizer) ValidateFile(name string, size int64) error {
	ext := strings.ToLower(filepath.Ext(name))
	if !n.allowedExts[ext] {
		return &domain.ValidationError{
			Reason: fmt.Sprintf("unsupported file type %q, expected .xlsx, .xls or .csv", ext),
		}
	}
	if size > n.maxUploadBytes {
		return &domain.ValidationError{
			Reason: fmt.Sprintf("file too large: %d bytes exceeds the %d byte limit", size, n.maxUploadBytes),
		}
	}
	return nil
}

// Parse reads the first sheet of the file, validates required columns and
// returns the transformed rows. It never returns partially-transformed rows:
// column validation happens before any transformation.
func (n *Normalizer) Parse(filename string, r io.Reader) ([]domain.TableRow, error) {
	t, err := n.ParseTable(filename, r)
	if err != nil {
		return nil, err
	}
	return t.Rows, nil
}

// ParseTable is Parse but keeps the header order, which prompt builders need
// for a stable delimited-text rendering.
func (n *Normalizer) ParseTable(filename string, r io.Reader) (*Table, error) {
	grid, err := readGrid(filename, r)
	if err != nil {
		return nil, err
	}

	grid = dropEmptyRows(grid)
	if len(grid) < 2 {
		return nil, &domain.ValidationError{Reason: "table has no data rows"}
	}

	headers := make([]string, len(grid[0]))
	for i, h := range grid[0] {
		headers[i] = strings.TrimSpace(h)
	}

	if missing := n.missingColumns(headers); len(missing) > 0 {
		return nil, &domain.MissingColumnsError{Missing: missing}
	}

	rows := make([]domain.TableRow, 0, len(grid)-1)
	for _, raw := range grid[1:] {
		row := domain.TableRow{}
		for i, h := range headers {
			if h == "" {
				continue
			}
			var cell string
			if i < len(raw) {
				cell = strings.TrimSpace(raw[i])
			}
			row[h] = cell
		}
		rows = append(rows, row)
	}

	return &Table{Headers: headers, Rows: n.Transform(rows)}, nil
}

// Transform coerces quantity, price/amount and date cells and derives
// _calculatedTotal per row. Applying it to already-transformed rows yields
// the same values.
func (n *Normalizer) Transform(rows []domain.TableRow) []domain.TableRow {
	out := make([]domain.TableRow, 0, len(rows))
	for _, row := range rows {
		t := domain.TableRow{}
		for key, value := range row {
			if strings.HasPrefix(key, "_") {
				continue
			}
			nk := normalizeName(key)
			switch {
			case containsAny(nk, quantityMarkers):
				t[key] = toInt(value)
			case containsAny(nk, priceMarkers):
				t[key] = toFloat(value)
			case containsAny(nk, dateMarkers):
				t[key] = formatDate(value)
			default:
				t[key] = trimIfString(value)
			}
		}
		qty := toFloat(t[n.findColumn(keysOf(t), "数量")])
		unitPrice := toFloat(t[n.findColumn(keysOf(t), "单价")])
		t[domain.KeyProcessed] = true
		t[domain.KeyCalculatedTotal] = qty * unitPrice
		out = append(out, t)
	}
	return out
}

// missingColumns returns every required column with no fuzzy match among the
// actual headers.
func (n *Normalizer) missingColumns(headers []string) []string {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = normalizeName(h)
	}

	var missing []string
	for _, required := range n.requiredColumns {
		nr := normalizeName(required)
		found := false
		for _, nh := range normalized {
			if nh != "" && strings.Contains(nh, nr) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, required)
		}
	}
	return missing
}

// findColumn returns the first header whose normalized form contains the
// normalized marker, or "".
func (n *Normalizer) findColumn(headers []string, marker string) string {
	nm := normalizeName(marker)
	for _, h := range headers {
		if strings.Contains(normalizeName(h), nm) {
			return h
		}
	}
	return ""
}

func readGrid(filename string, r io.Reader) ([][]string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".csv" {
		return readCSV(r)
	}
	return readSpreadsheet(r)
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	grid, err := cr.ReadAll()
	if err != nil {
		return nil, &domain.ValidationError{Reason: fmt.Sprintf("failed to parse csv: %v", err)}
	}
	return grid, nil
}

func readSpreadsheet(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &domain.ValidationError{Reason: fmt.Sprintf("failed to open spreadsheet: %v", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &domain.ValidationError{Reason: "spreadsheet has no sheets"}
	}

	// First sheet only
	grid, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &domain.ValidationError{Reason: fmt.Sprintf("failed to read sheet %q: %v", sheets[0], err)}
	}
	return grid, nil
}

func dropEmptyRows(grid [][]string) [][]string {
	out := grid[:0]
	for _, row := range grid {
		empty := true
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				empty = false
				break
			}
		}
		if !empty {
			out = append(out, row)
		}
	}
	return out
}

// normalizeName lowercases, strips whitespace, separators and punctuation,
// and removes diacritics via NFKD decomposition.
func normalizeName(name string) string {
	decomposed := norm.NFKD.String(strings.ToLower(name))
	var b strings.Builder
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			// combining mark left over from decomposition
		case unicode.IsSpace(r):
		case r == '-' || r == '_' || r == '.' || r == ':' || r == '：':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, normalizeName(m)) {
			return true
		}
	}
	return false
}

func keysOf(row domain.TableRow) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		if !strings.HasPrefix(k, "_") {
			keys = append(keys, k)
		}
	}
	return keys
}

func trimIfString(v any) any {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return v
}

// toInt coerces a cell to int, defaulting to 0 on junk. Silent coercion is
// the contract here, not a failure.
func toInt(v any) int {
	switch x := v.(type) {
	case int:
		return x
	case int64:
		return int(x)
	case float64:
		return int(x)
	case string:
		s := cleanNumeric(x)
		if i, err := strconv.Atoi(s); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f)
		}
	}
	return 0
}

// toFloat coerces a cell to float64, defaulting to 0 on junk.
func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case string:
		if f, err := strconv.ParseFloat(cleanNumeric(x), 64); err == nil {
			return f
		}
	}
	return 0
}

func cleanNumeric(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "¥")
	s = strings.TrimPrefix(s, "￥")
	return strings.TrimSpace(s)
}

// formatDate renders a date cell as YYYY-MM-DD. Handles ISO passthrough,
// DD/MM/YYYY strings and Excel serial date numbers; anything unparseable is
// returned as its string form.
func formatDate(v any) string {
	switch x := v.(type) {
	case time.Time:
		return x.Format("2006-01-02")
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return ""
		}
		if strings.Contains(s, "/") {
			parts := strings.Split(s, "/")
			if len(parts) == 3 {
				// DD/MM/YYYY
				return fmt.Sprintf("%s-%s-%s", parts[2], pad2(parts[1]), pad2(parts[0]))
			}
		}
		if strings.Contains(s, "-") {
			return s
		}
		if serial, err := strconv.ParseFloat(s, 64); err == nil {
			return serialToDate(serial)
		}
		return s
	case float64:
		return serialToDate(x)
	case int:
		return serialToDate(float64(x))
	}
	return fmt.Sprintf("%v", v)
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

func serialToDate(serial float64) string {
	secs := int64((serial - excelEpochOffset) * 86400)
	return time.Unix(secs, 0).UTC().Format("2006-01-02")
}
