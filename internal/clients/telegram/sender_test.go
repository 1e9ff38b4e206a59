package telegram

import (
	"context"
	"errors"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"testing"
)

type mockApi struct {
	mock.Mock
}

func (m *mockApi) Send(chattable botApi.Chattable) (botApi.Message, error) {
	args := m.Called(chattable)
	return botApi.Message{}, args.Error(0)
}

func Test_Sender_SendsMarkdownWithoutPreview(t *testing.T) {

	api := &mockApi{}
	api.On("Send", mock.MatchedBy(func(c botApi.Chattable) bool {
		msg, ok := c.(botApi.MessageConfig)
		return ok && msg.ChatID == 42 && msg.Text == "*hi*" &&
			msg.ParseMode == botApi.ModeMarkdown && msg.DisableWebPagePreview
	})).Return(nil).Once()

	sender := NewSender(api, 100)
	require.NoError(t, sender.Send(context.Background(), 42, "*hi*"))
	api.AssertExpectations(t)
}

func Test_Sender_WrapsApiError(t *testing.T) {

	apiErr := errors.New("Forbidden: bot was blocked by the user")
	api := &mockApi{}
	api.On("Send", mock.Anything).Return(apiErr)

	err := NewSender(api, 0).Send(context.Background(), 42, "text")
	assert.ErrorIs(t, err, apiErr)
	assert.Contains(t, err.Error(), "chat 42")
}

func Test_Sender_RespectsCancelledContext(t *testing.T) {

	api := &mockApi{}
	sender := NewSender(api, 0.001)
	ctx, cancel := context.WithCancel(context.Background())

	// the first token is available immediately
	api.On("Send", mock.Anything).Return(nil).Once()
	require.NoError(t, sender.Send(ctx, 1, "first"))

	cancel()
	assert.Error(t, sender.Send(ctx, 1, "second"))
	api.AssertNumberOfCalls(t, "Send", 1)
}
