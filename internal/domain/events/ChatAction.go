package events

import "github.com/maxaizer/dou-jobs-bot/internal/domain/models"

var ChatActionTopic = "ChatActionEvent"

type ChatAction struct {
	ChatID int64
	Action models.Action
	Meta   map[string]any
}
