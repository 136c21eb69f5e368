package agent

import (
	"context"
	"io"
	"sync"

	"github.com/procurement-tools/contractpilot/internal/domain"
	"go.uber.org/zap"
)

// Envelope is the uniform result shape of every manager facade operation.
// Callers branch on Success and never see raw failures.
type Envelope struct {
	Success  bool                           `json:"success"`
	Error    string                         `json:"error,omitempty"`
	Rows     []domain.TableRow              `json:"rows,omitempty"`
	Data     *domain.StructuredContractData `json:"data,omitempty"`
	Contract string                         `json:"contract,omitempty"`
	Content  string                         `json:"content,omitempty"`
	Analysis *domain.AnalysisReport         `json:"analysis,omitempty"`
}

// Manager owns the backend registry and the single active backend. Selection
// is an atomic swap guarded by a completed Initialize; a failed initialize
// leaves any previously-working backend untouched.
type Manager struct {
	mu       sync.RWMutex
	backends map[string]Backend
	current  Backend
	logger   *zap.Logger
}

// NewManager creates an empty manager.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		backends: make(map[string]Backend),
		logger:   logger,
	}
}

// Register adds a backend under its model name, replacing any prior instance
// registered for the same name.
func (m *Manager) Register(backend Backend) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.backends[backend.Name()]; exists {
		m.logger.Info("replacing registered backend", zap.String("model", backend.Name()))
	}
	m.backends[backend.Name()] = backend
}

// Models lists registered model names.
func (m *Manager) Models() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.backends))
	for name := range m.backends {
		names = append(names, name)
	}
	return names
}

// SelectModel initializes the named backend and, only on success, makes it
// current. Initialization runs outside the lock so a slow backend cannot
// block reads; the swap itself is atomic.
func (m *Manager) SelectModel(ctx context.Context, name string) error {
	m.mu.RLock()
	backend, ok := m.backends[name]
	m.mu.RUnlock()
	if !ok {
		return domain.ErrModelNotFound
	}

	if err := backend.Initialize(ctx); err != nil {
		m.logger.Warn("backend initialize failed",
			zap.String("model", name),
			zap.Error(err),
		)
		return err
	}

	m.mu.Lock()
	m.current = backend
	m.mu.Unlock()

	m.logger.Info("model selected", zap.String("model", name))
	return nil
}

// CurrentModel returns the active backend, or ErrNoModelSelected.
func (m *Manager) CurrentModel() (Backend, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil, domain.ErrNoModelSelected
	}
	return m.current, nil
}

// CurrentModelName returns the active model name, or "".
func (m *Manager) CurrentModelName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return ""
	}
	return m.current.Name()
}

// stillCurrent reports whether the backend a call started with is still the
// active one. Results from a backend that lost a select race are discarded
// rather than applied to shared state.
func (m *Manager) stillCurrent(b Backend) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current == b
}

func failure(err error) Envelope {
	return Envelope{Success: false, Error: err.Error()}
}

// ProcessFile runs the full upload pipeline through the active backend.
func (m *Manager) ProcessFile(ctx context.Context, filename string, size int64, r io.Reader) Envelope {
	backend, err := m.CurrentModel()
	if err != nil {
		return failure(err)
	}

	result, err := backend.ProcessFile(ctx, filename, size, r)
	if err != nil {
		return failure(err)
	}
	if !m.stillCurrent(backend) {
		return failure(domain.ErrModelChanged)
	}
	return Envelope{Success: true, Rows: result.Rows, Data: result.Data, Contract: result.Contract}
}

// GenerateContract generates or regenerates contract text.
func (m *Manager) GenerateContract(ctx context.Context, req domain.GenerateRequest) Envelope {
	backend, err := m.CurrentModel()
	if err != nil {
		return failure(err)
	}

	content, err := backend.GenerateContract(ctx, req)
	if err != nil {
		return failure(err)
	}
	if !m.stillCurrent(backend) {
		return failure(domain.ErrModelChanged)
	}
	return Envelope{Success: true, Content: content}
}

// ModifyContract rewrites contract content per an instruction.
func (m *Manager) ModifyContract(ctx context.Context, content, instruction string) Envelope {
	backend, err := m.CurrentModel()
	if err != nil {
		return failure(err)
	}

	modified, err := backend.ModifyContract(ctx, content, instruction)
	if err != nil {
		return failure(err)
	}
	if !m.stillCurrent(backend) {
		return failure(domain.ErrModelChanged)
	}
	return Envelope{Success: true, Content: modified}
}

// AnalyzeContract reviews contract content.
func (m *Manager) AnalyzeContract(ctx context.Context, content string) Envelope {
	backend, err := m.CurrentModel()
	if err != nil {
		return failure(err)
	}

	report, err := backend.AnalyzeContract(ctx, content)
	if err != nil {
		return failure(err)
	}
	if !m.stillCurrent(backend) {
		return failure(domain.ErrModelChanged)
	}
	return Envelope{Success: true, Analysis: report}
}

// Chat answers a question against the contract context.
func (m *Manager) Chat(ctx context.Context, content, contractContext string) Envelope {
	backend, err := m.CurrentModel()
	if err != nil {
		return failure(err)
	}

	answer, err := backend.Chat(ctx, content, contractContext)
	if err != nil {
		return failure(err)
	}
	if !m.stillCurrent(backend) {
		return failure(domain.ErrModelChanged)
	}
	return Envelope{Success: true, Content: answer}
}

// Suggest completes partial input through the active backend. Unlike the
// other facades it returns the raw result; suggestion validation lives in
// the conversation layer.
func (m *Manager) Suggest(ctx context.Context, partial string) (string, error) {
	backend, err := m.CurrentModel()
	if err != nil {
		return "", err
	}
	candidate, err := backend.Suggest(ctx, partial)
	if err != nil {
		return "", err
	}
	if !m.stillCurrent(backend) {
		return "", domain.ErrModelChanged
	}
	return candidate, nil
}
