package bot

import (
	"encoding/json"
	"sync"
)

// userContext holds the command a chat is in the middle of. mu serializes the chat's messages.
type userContext struct {
	mu              sync.Mutex
	chatID          int64
	isAdmin         bool
	curCommand      command
	curCommandName  actionID
	curCommandState []byte
}

func newUserContext(chatID int64, isAdmin bool) *userContext {
	return &userContext{chatID: chatID, isAdmin: isAdmin}
}

func (u *userContext) RunCommand(command command, name actionID) {
	u.setCommand(command, name)
	u.curCommand.Run()
}

func (u *userContext) ResumeCommandAfterBotRestart(command command) {
	u.setCommand(command, u.curCommandName)
}

func (u *userContext) HasRunningCommand() bool {
	return u.curCommand != nil
}

func (u *userContext) OnUserInput(input string) {
	u.curCommand.OnUserInput(input)
}

func (u *userContext) Reset() {
	u.curCommand = nil
	u.curCommandName = ""
	u.curCommandState = nil
}

func (u *userContext) MarshalJSON() ([]byte, error) {

	var cmdState []byte
	var err error
	if u.curCommand != nil {
		if saveableCmd, ok := u.curCommand.(saveable); ok {
			cmdState, err = saveableCmd.SaveState()
		}
	}
	if err != nil {
		return nil, err
	}

	return json.Marshal(&struct {
		ChatID          int64    `json:"chatID"`
		IsAdmin         bool     `json:"isAdmin"`
		CurCommandName  actionID `json:"curCommandName"`
		CurCommandState []byte   `json:"curCommandState"`
	}{
		ChatID:          u.chatID,
		IsAdmin:         u.isAdmin,
		CurCommandName:  u.curCommandName,
		CurCommandState: cmdState,
	})
}

func (u *userContext) UnmarshalJSON(data []byte) error {

	aux := &struct {
		ChatID          int64    `json:"chatID"`
		IsAdmin         bool     `json:"isAdmin"`
		CurCommandName  actionID `json:"curCommandName"`
		CurCommandState []byte   `json:"curCommandState"`
	}{}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	u.chatID = aux.ChatID
	u.isAdmin = aux.IsAdmin
	u.curCommandName = aux.CurCommandName
	u.curCommandState = aux.CurCommandState
	return nil
}

func (u *userContext) setCommand(command command, name actionID) {
	u.curCommand = command
	u.curCommandName = name
	u.curCommand.WithFinishCallback(u.Reset)
	u.curCommand.WithKeyboardOnFinalMessage(defaultReplyKeyboard(u.isAdmin))
}
