package ollama

import (
	"encoding/json"
	"strings"

	"github.com/procurement-tools/contractpilot/internal/domain"
)

// extractJSONObject returns the first balanced {...} span in free text.
// Brace matching is string- and escape-aware, so braces inside JSON string
// values do not break the scan. Returns ok=false when no balanced object
// exists.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// cleanJSONText strips control characters that models occasionally emit
// inside otherwise valid JSON.
func cleanJSONText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 && r != '\n' && r != '\t' {
			continue
		}
		if r == 0x7F {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// parseStructuredData decodes model output into the four-section contract
// structure. The model is an unreliable data source: every section is
// optional, independently validated, and defaulted. Any failure degrades to
// the empty structure, never to an error.
func parseStructuredData(raw string) *domain.StructuredContractData {
	data := domain.EmptyStructuredContractData()

	span, ok := extractJSONObject(raw)
	if !ok {
		return data
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(cleanJSONText(span)), &payload); err != nil {
		return data
	}

	data.BasicInfo = sectionOf(payload, "basic_info", "basicInfo", "基本信息")
	data.SupplierInfo = sectionOf(payload, "supplier_info", "supplierInfo", "供应商信息")
	data.ItemInfo = sectionOf(payload, "item_info", "itemInfo", "采购物品信息", "物品信息")
	data.PaymentInfo = sectionOf(payload, "payment_info", "paymentInfo", "付款信息")
	return data
}

// sectionOf fetches the first present key that holds an object; anything
// else yields an empty section.
func sectionOf(payload map[string]any, keys ...string) map[string]any {
	for _, key := range keys {
		if v, ok := payload[key]; ok {
			if m, ok := v.(map[string]any); ok {
				return m
			}
		}
	}
	return map[string]any{}
}

// analysisPayload is the structured shape requested by the analyze prompt.
type analysisPayload struct {
	Analysis []struct {
		Location  string `json:"location"`
		Original  string `json:"original"`
		Suggested string `json:"suggested"`
		Reason    string `json:"reason"`
	} `json:"analysis"`
	Content string `json:"content"`
}

// parseAnalysis decodes an analysis reply, degrading to unstructured prose
// when the model did not return usable JSON.
func parseAnalysis(raw string) *domain.AnalysisReport {
	span, ok := extractJSONObject(raw)
	if ok {
		var payload analysisPayload
		if err := json.Unmarshal([]byte(cleanJSONText(span)), &payload); err == nil && len(payload.Analysis) > 0 {
			report := &domain.AnalysisReport{
				Type:    domain.AnalysisStructured,
				Content: payload.Content,
			}
			for _, item := range payload.Analysis {
				report.Issues = append(report.Issues, domain.AnalysisIssue{
					Location:  item.Location,
					Original:  item.Original,
					Suggested: item.Suggested,
					Reason:    item.Reason,
				})
			}
			return report
		}
	}
	return &domain.AnalysisReport{Type: domain.AnalysisText, Content: raw}
}
