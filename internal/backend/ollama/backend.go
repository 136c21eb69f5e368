package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/procurement-tools/contractpilot/internal/agent"
	"github.com/procurement-tools/contractpilot/internal/domain"
	"github.com/procurement-tools/contractpilot/internal/normalizer"
	"go.uber.org/zap"
)

// Backend implements agent.Backend against a local Ollama service. One value
// per model name.
type Backend struct {
	model      string
	client     *Client
	normalizer *normalizer.Normalizer
	logger     *zap.Logger
}

var _ agent.Backend = (*Backend)(nil)

// New creates a backend for the named model.
func New(model string, client *Client, n *normalizer.Normalizer, logger *zap.Logger) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{
		model:      model,
		client:     client,
		normalizer: n,
		logger:     logger.With(zap.String("model", model)),
	}
}

// Name returns the wrapped model name.
func (b *Backend) Name() string {
	return b.model
}

// wrapOp tags a failure with the operation that produced it. Errors that are
// already user-distinguishable (service down, model missing, local
// validation) pass through untouched.
func wrapOp(op string, err error) error {
	var (
		unavailable  *domain.ServiceUnavailableError
		notInstalled *domain.ModelNotAvailableError
		validation   *domain.ValidationError
		missing      *domain.MissingColumnsError
	)
	if errors.As(err, &unavailable) || errors.As(err, &notInstalled) ||
		errors.As(err, &validation) || errors.As(err, &missing) {
		return err
	}
	return &domain.OperationError{Op: op, Err: err}
}

// Initialize runs the three availability checks in order: service reachable,
// model installed, model answering. Each failure is a distinct error.
func (b *Backend) Initialize(ctx context.Context) error {
	models, err := b.client.Tags(ctx)
	if err != nil {
		return wrapOp("initialize", err)
	}

	installed := false
	for _, m := range models {
		if m.Name == b.model {
			installed = true
			break
		}
	}
	if !installed {
		return &domain.ModelNotAvailableError{Model: b.model}
	}

	if _, err := b.client.Generate(ctx, b.model, "test", nil); err != nil {
		return wrapOp("initialize: model smoke test", err)
	}

	b.logger.Info("backend initialized")
	return nil
}

// ProcessFile runs the upload pipeline: local validation, normalization,
// structured extraction, contract generation.
func (b *Backend) ProcessFile(ctx context.Context, filename string, size int64, r io.Reader) (*domain.ProcessResult, error) {
	if err := b.normalizer.ValidateFile(filename, size); err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, wrapOp("process-file", fmt.Errorf("failed to read upload: %w", err))
	}

	table, err := b.normalizer.ParseTable(filename, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	tableText := normalizer.DelimitedText(table)

	data, err := b.extractStructured(ctx, tableText)
	if err != nil {
		return nil, err
	}

	structuredJSON, _ := json.MarshalIndent(data, "", "  ")
	contract, err := b.client.Generate(ctx, b.model, generateFromStructuredPrompt(string(structuredJSON)), generationOptions)
	if err != nil {
		return nil, wrapOp("process-file: generate", err)
	}
	if strings.TrimSpace(contract) == "" {
		return nil, &domain.MalformedResponseError{Op: "process-file: generate", Err: errors.New("empty contract text")}
	}

	return &domain.ProcessResult{
		Rows:     table.Rows,
		Data:     data,
		Contract: contract,
	}, nil
}

// extractStructured asks the model for the four-section structure. A parse
// failure degrades to the empty structure; only network-level failures
// propagate.
func (b *Backend) extractStructured(ctx context.Context, tableText string) (*domain.StructuredContractData, error) {
	raw, err := b.client.Generate(ctx, b.model, extractPrompt(tableText), extractionOptions)
	if err != nil {
		return nil, wrapOp("extract", err)
	}

	data := parseStructuredData(raw)
	if len(data.BasicInfo) == 0 && len(data.SupplierInfo) == 0 &&
		len(data.ItemInfo) == 0 && len(data.PaymentInfo) == 0 {
		b.logger.Warn("structured extraction fell back to empty sections",
			zap.Int("response_len", len(raw)),
		)
	}
	return data, nil
}

// GenerateContract produces contract text. Regeneration preserves the
// substantive content of the input; fresh generation builds from table data.
func (b *Backend) GenerateContract(ctx context.Context, req domain.GenerateRequest) (string, error) {
	var prompt string
	switch req.Type {
	case domain.GenerateTypeRegenerate:
		prompt = regeneratePrompt(req.Content)
	case domain.GenerateTypeFresh:
		prompt = generatePrompt(req.Content)
	default:
		prompt = freeformPrompt(req.Content)
	}

	content, err := b.client.Generate(ctx, b.model, prompt, generationOptions)
	if err != nil {
		return "", wrapOp("generate-contract", err)
	}
	if strings.TrimSpace(content) == "" {
		// Contract text has no safe default; unlike extraction this is fatal.
		return "", &domain.MalformedResponseError{Op: "generate-contract", Err: errors.New("empty response")}
	}
	return content, nil
}

// ModifyContract rewrites the contract per the instruction. An empty
// instruction is still a well-formed prompt.
func (b *Backend) ModifyContract(ctx context.Context, content, instruction string) (string, error) {
	modified, err := b.client.Generate(ctx, b.model, modifyPrompt(content, instruction), generationOptions)
	if err != nil {
		return "", wrapOp("modify-contract", err)
	}
	if strings.TrimSpace(modified) == "" {
		return "", &domain.MalformedResponseError{Op: "modify-contract", Err: errors.New("empty response")}
	}
	return modified, nil
}

// AnalyzeContract reviews the contract, structured when the model cooperates,
// prose otherwise.
func (b *Backend) AnalyzeContract(ctx context.Context, content string) (*domain.AnalysisReport, error) {
	raw, err := b.client.Generate(ctx, b.model, analyzePrompt(content), extractionOptions)
	if err != nil {
		return nil, wrapOp("analyze-contract", err)
	}
	return parseAnalysis(raw), nil
}

// Chat answers a question against the contract context.
func (b *Backend) Chat(ctx context.Context, content, contractContext string) (string, error) {
	answer, err := b.client.Generate(ctx, b.model, chatPrompt(content, contractContext), generationOptions)
	if err != nil {
		return "", wrapOp("chat", err)
	}
	return answer, nil
}

// Suggest completes partial input. Fidelity matters more than fluency here,
// so it runs with extraction-class sampling.
func (b *Backend) Suggest(ctx context.Context, partial string) (string, error) {
	candidate, err := b.client.Generate(ctx, b.model, suggestPrompt(partial), extractionOptions)
	if err != nil {
		return "", wrapOp("suggest", err)
	}
	return strings.TrimSpace(candidate), nil
}
