package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	messages []llms.MessageContent
	resp     *llms.ContentResponse
	err      error
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	return f.resp, f.err
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", errors.New("not implemented")
}

func TestGenerateText(t *testing.T) {
	t.Run("system and user prompt", func(t *testing.T) {
		model := &fakeModel{resp: &llms.ContentResponse{
			Choices: []*llms.ContentChoice{{Content: "  the answer \n"}},
		}}

		got, err := GenerateText(context.Background(), model, "be brief", "what?")
		require.NoError(t, err)
		assert.Equal(t, "the answer", got)
		require.Len(t, model.messages, 2)
		assert.Equal(t, llms.ChatMessageTypeSystem, model.messages[0].Role)
		assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[1].Role)
	})

	t.Run("no system prompt", func(t *testing.T) {
		model := &fakeModel{resp: &llms.ContentResponse{
			Choices: []*llms.ContentChoice{{Content: "ok"}},
		}}

		_, err := GenerateText(context.Background(), model, "", "hi")
		require.NoError(t, err)
		assert.Len(t, model.messages, 1)
	})

	t.Run("empty response", func(t *testing.T) {
		model := &fakeModel{resp: &llms.ContentResponse{}}

		_, err := GenerateText(context.Background(), model, "", "hi")
		assert.ErrorIs(t, err, ErrEmptyCompletion)
	})

	t.Run("model error", func(t *testing.T) {
		model := &fakeModel{err: errors.New("throttled")}

		_, err := GenerateText(context.Background(), model, "", "hi")
		assert.EqualError(t, err, "throttled")
	})
}
