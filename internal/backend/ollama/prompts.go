package ollama

import "fmt"

// Sampling policy: extraction-class prompts (extract/analyze/suggest) need
// fidelity to the source and run near-deterministic; generation-class prompts
// (generate/regenerate/modify/chat) need fluency and run warmer.
var (
	extractionOptions = &Options{Temperature: 0.2, TopP: 0.9}
	generationOptions = &Options{Temperature: 0.7, TopP: 0.9}
)

func generatePrompt(tableText string) string {
	return fmt.Sprintf(`请基于以下表格数据生成一份完整的采购合同。
表格数据：
%s

要求：
1. 生成规范的合同格式
2. 包含所有必要的合同条款
3. 使用专业的法律语言
4. 确保数据准确转换为合同条款

请生成完整的合同文本：`, tableText)
}

func generateFromStructuredPrompt(structuredJSON string) string {
	return fmt.Sprintf(`你是一个专业的采购合同生成助手。请使用以下结构化数据，生成一份正式的采购合同。合同应包含以下部分：

1. 合同标题和编号
2. 甲乙双方信息
3. 采购内容和规格
4. 合同金额和支付方式
5. 交付条款
6. 质量要求和验收标准
7. 违约责任
8. 其他条款
9. 签署部分

请确保：
- 使用正式的法律语言
- 条款清晰明确
- 符合合同法规范
- 保护双方权益
- 包含必要的法律条款

以下是结构化数据：
%s

请生成完整的合同文本：`, structuredJSON)
}

func regeneratePrompt(content string) string {
	return fmt.Sprintf(`请基于以下内容重新生成一份更规范的合同：
%s

要求：
1. 保持原有的主要内容
2. 使用更规范的合同语言
3. 确保条款完整性
4. 改进格式和结构`, content)
}

func freeformPrompt(content string) string {
	return fmt.Sprintf("请根据以下内容生成一份合同：%s", content)
}

func modifyPrompt(content, instruction string) string {
	return fmt.Sprintf(`请根据以下建议修改合同内容：

原合同内容：
%s

修改建议：
%s

请提供修改后的完整合同内容。`, content, instruction)
}

func analyzePrompt(content string) string {
	return fmt.Sprintf(`请分析以下合同内容，指出可能存在的问题（如错别字、语病、重复用词、风险条款等）并给出修改建议。

合同内容：
%s

请严格按以下 JSON 格式返回分析结果，不要附加其他文字：
{
  "analysis": [
    {"location": "位置描述", "original": "原文", "suggested": "建议修改为", "reason": "修改原因"}
  ],
  "content": "完整的修改后内容"
}`, content)
}

func extractPrompt(tableText string) string {
	return fmt.Sprintf(`请从以下采购订单表格中提取关键信息，并以结构化的 JSON 格式返回。

表格内容：
%s

请严格按以下 JSON 格式返回，不要附加其他文字：
{
  "basic_info": {"订单编号": "", "订单日期": ""},
  "supplier_info": {"供应商名称": ""},
  "item_info": {"采购物品": "", "规格型号": "", "计量单位": "", "数量": "", "单价": ""},
  "payment_info": {"总金额": "", "支付方式": ""}
}`, tableText)
}

func chatPrompt(question, contractContext string) string {
	return fmt.Sprintf(`基于以下合同内容回答问题:
%s

问题: %s

请提供专业、准确的回答。`, contractContext, question)
}

func suggestPrompt(partial string) string {
	return fmt.Sprintf(`用户正在输入一条关于采购合同的修改指令，请补全这句话。只返回补全后的完整句子，必须以用户已输入的内容开头，不要附加解释。

用户已输入：%s`, partial)
}
