package chat

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/procurement-tools/contractpilot/internal/agent"
	"github.com/procurement-tools/contractpilot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubBackend answers chat and modify deterministically so tests can assert
// on history shape rather than model output.
type stubBackend struct {
	chatErr   error
	chatReply string
	suggestFn func(ctx context.Context, partial string) (string, error)
}

func (s *stubBackend) Name() string { return "stub" }

func (s *stubBackend) Initialize(context.Context) error { return nil }

func (s *stubBackend) ProcessFile(context.Context, string, int64, io.Reader) (*domain.ProcessResult, error) {
	return nil, errors.New("not used")
}

func (s *stubBackend) GenerateContract(context.Context, domain.GenerateRequest) (string, error) {
	return "", errors.New("not used")
}

func (s *stubBackend) ModifyContract(_ context.Context, content, instruction string) (string, error) {
	return content + "+" + instruction, nil
}

func (s *stubBackend) AnalyzeContract(context.Context, string) (*domain.AnalysisReport, error) {
	return nil, errors.New("not used")
}

func (s *stubBackend) Chat(_ context.Context, content, _ string) (string, error) {
	if s.chatErr != nil {
		return "", s.chatErr
	}
	if s.chatReply != "" {
		return s.chatReply, nil
	}
	return "回复:" + content, nil
}

func (s *stubBackend) Suggest(ctx context.Context, partial string) (string, error) {
	if s.suggestFn != nil {
		return s.suggestFn(ctx, partial)
	}
	return partial + "，并加盖公章", nil
}

func newTestConversation(t *testing.T, stub *stubBackend) (*Conversation, *Document) {
	t.Helper()
	m := agent.NewManager(nil)
	m.Register(stub)
	require.NoError(t, m.SelectModel(context.Background(), "stub"))
	doc := NewDocument()
	return NewConversation(m, doc, nil), doc
}

func TestSendAppendsPair(t *testing.T) {
	conv, doc := newTestConversation(t, &stubBackend{})
	doc.Update("合同内容")

	reply, err := conv.Send(context.Background(), "交货期是多久？")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAssistant, reply.Role)
	assert.Equal(t, "回复:交货期是多久？", reply.Content)
	assert.Equal(t, reply.Content, reply.AppliedSuggestion)

	msgs := conv.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Equal(t, "交货期是多久？", msgs[0].Content)
	assert.NotEmpty(t, msgs[0].ID)
}

func TestSendFailureKeepsUserTurn(t *testing.T) {
	conv, _ := newTestConversation(t, &stubBackend{chatErr: errors.New("model exploded")})

	_, err := conv.Send(context.Background(), "问题")
	require.Error(t, err)

	msgs := conv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
}

func TestMessagesReturnsSnapshot(t *testing.T) {
	conv, _ := newTestConversation(t, &stubBackend{})
	_, err := conv.Send(context.Background(), "问题")
	require.NoError(t, err)

	msgs := conv.Messages()
	msgs[0].Content = "被调用方篡改"
	assert.Equal(t, "问题", conv.Messages()[0].Content)
}

func TestEditMessageReplacesReply(t *testing.T) {
	stub := &stubBackend{}
	conv, _ := newTestConversation(t, stub)

	_, err := conv.Send(context.Background(), "第一问")
	require.NoError(t, err)
	_, err = conv.Send(context.Background(), "第二问")
	require.NoError(t, err)

	userID := conv.Messages()[0].ID
	reply, err := conv.EditMessage(context.Background(), userID, "改过的第一问")
	require.NoError(t, err)
	assert.Equal(t, "回复:改过的第一问", reply.Content)

	// Still four messages: the paired reply was replaced, not inserted.
	msgs := conv.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "改过的第一问", msgs[0].Content)
	assert.True(t, msgs[0].Edited)
	require.NotNil(t, msgs[0].EditedAt)
	assert.Equal(t, reply.ID, msgs[1].ID)
	assert.Equal(t, "第二问", msgs[2].Content)
}

func TestEditMessageRejectsAssistantTurn(t *testing.T) {
	conv, _ := newTestConversation(t, &stubBackend{})
	reply, err := conv.Send(context.Background(), "问题")
	require.NoError(t, err)

	_, err = conv.EditMessage(context.Background(), reply.ID, "改写助手消息")
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestEditMessageNotFound(t *testing.T) {
	conv, _ := newTestConversation(t, &stubBackend{})
	_, err := conv.EditMessage(context.Background(), "nope", "内容")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteMessageCascades(t *testing.T) {
	conv, _ := newTestConversation(t, &stubBackend{})
	_, err := conv.Send(context.Background(), "第一问")
	require.NoError(t, err)
	reply, err := conv.Send(context.Background(), "第二问")
	require.NoError(t, err)

	// Deleting a user turn takes its paired reply with it.
	require.NoError(t, conv.DeleteMessage(conv.Messages()[0].ID))
	msgs := conv.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "第二问", msgs[0].Content)

	// Deleting an assistant turn removes only itself.
	require.NoError(t, conv.DeleteMessage(reply.ID))
	msgs = conv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)

	assert.ErrorIs(t, conv.DeleteMessage("nope"), domain.ErrNotFound)
}

func TestApplySuggestion(t *testing.T) {
	stub := &stubBackend{chatReply: "建议将付款方式改为月结"}
	conv, doc := newTestConversation(t, stub)
	doc.Update("原合同")

	reply, err := conv.Send(context.Background(), "付款方式怎么改？")
	require.NoError(t, err)

	rev, err := conv.ApplySuggestion(context.Background(), reply.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, rev)

	content, _ := doc.Content()
	assert.Equal(t, "原合同+建议将付款方式改为月结", content)
}

func TestApplySuggestionRejectsUserTurn(t *testing.T) {
	conv, _ := newTestConversation(t, &stubBackend{})
	_, err := conv.Send(context.Background(), "问题")
	require.NoError(t, err)

	userID := conv.Messages()[0].ID
	_, err = conv.ApplySuggestion(context.Background(), userID)
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)

	_, err = conv.ApplySuggestion(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSuggest(t *testing.T) {
	conv, _ := newTestConversation(t, &stubBackend{})
	assert.Equal(t, "把交货期改为三十天，并加盖公章", conv.Suggest(context.Background(), "把交货期改为三十天"))
}

func TestSuggestRespectsConfiguredMaxLength(t *testing.T) {
	conv, _ := newTestConversation(t, &stubBackend{})
	conv.SetSuggestionMaxLength(10)

	// The stub's completion is well-formed but longer than the bound.
	assert.Empty(t, conv.Suggest(context.Background(), "把交货期"))

	conv.SetSuggestionMaxLength(200)
	assert.NotEmpty(t, conv.Suggest(context.Background(), "把交货期"))
}

func TestSuggestSupersededByNewerInput(t *testing.T) {
	var conv *Conversation
	stub := &stubBackend{}
	stub.suggestFn = func(ctx context.Context, partial string) (string, error) {
		if partial == "慢请求" {
			// A newer suggestion request arrives while this one is in flight.
			conv.Suggest(ctx, "新输入")
			return "慢请求的补全", nil
		}
		return partial + "的补全", nil
	}
	conv, _ = newTestConversation(t, stub)

	assert.Empty(t, conv.Suggest(context.Background(), "慢请求"))
}

func TestAcceptableSuggestion(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		candidate string
		want      bool
	}{
		{"extends input", "把交货期", "把交货期改为三十天", true},
		{"case-insensitive prefix", "Please Extend", "please extend the delivery window", true},
		{"empty candidate", "abc", "", false},
		{"not an extension", "把交货期", "建议修改付款条款", false},
		{"echoes input only", "把交货期", "把交货期", false},
		{"too long", "x", "x" + string(make([]byte, 200)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, acceptableSuggestion(tt.input, tt.candidate, defaultSuggestionMaxLength))
		})
	}
}
