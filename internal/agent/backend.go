// Package agent defines the pluggable model-backend contract and the manager
// that routes contract-processing operations through the active backend.
package agent

import (
	"context"
	"io"

	"github.com/procurement-tools/contractpilot/internal/domain"
)

// Backend is the capability set every model backend must implement. One value
// exists per supported model; the manager and handlers depend only on this
// interface, never on a concrete backend.
type Backend interface {
	// Name returns the model name this backend wraps.
	Name() string

	// Initialize confirms the backend is usable: service reachable, model
	// installed, model answering. Each failing check must surface a distinct
	// error.
	Initialize(ctx context.Context) error

	// ProcessFile runs normalization, structured extraction and contract
	// generation over an uploaded table, returning both the intermediate
	// data and the final contract text.
	ProcessFile(ctx context.Context, filename string, size int64, r io.Reader) (*domain.ProcessResult, error)

	// GenerateContract produces contract text; the request type selects
	// fresh generation vs regeneration from existing content.
	GenerateContract(ctx context.Context, req domain.GenerateRequest) (string, error)

	// ModifyContract rewrites contract content per an instruction. An empty
	// instruction is valid input.
	ModifyContract(ctx context.Context, content, instruction string) (string, error)

	// AnalyzeContract reviews contract content, structured when possible,
	// prose otherwise.
	AnalyzeContract(ctx context.Context, content string) (*domain.AnalysisReport, error)

	// Chat answers a free-form question against the given contract context.
	Chat(ctx context.Context, content, contractContext string) (string, error)

	// Suggest completes partial user input. Used by the predictive
	// suggestion feature; a useless completion is not an error.
	Suggest(ctx context.Context, partial string) (string, error)
}
