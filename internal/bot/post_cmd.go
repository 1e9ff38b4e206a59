package bot

import (
	"context"
	"encoding/json"
	"fmt"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/dou-jobs-bot/internal/logger"
	log "github.com/sirupsen/logrus"
	"unicode/utf8"
)

type postStep int

const (
	postStepText postStep = iota
	postStepCity
	postStepCategory
	postStepConfirm
	postStepDone
)

const maxPostLength = 4096

const (
	publishOptionID = iota + 1
	deleteOptionID
)

type postCommand struct {
	api                  apiInterface
	chatID               int64
	posts                postService
	inputs               map[postStep]inputHandler
	step                 postStep
	postID               int
	failed               bool
	finishCallback       func()
	finalMessageKeyboard *botApi.ReplyKeyboardMarkup
}

func newPostCommand(api apiInterface, chatID int64, posts postService, references referenceRepository) (*postCommand, error) {

	cmd := &postCommand{api: api, chatID: chatID, posts: posts}

	text := newTextInput(chatID, "Надішліть текст поста (Markdown).", cmd.onText)
	text.AddValidation(validation{
		function:     func(input string) bool { return utf8.RuneCountInString(input) <= maxPostLength },
		errorMessage: fmt.Sprintf("Пост задовгий, максимум %d символів.", maxPostLength),
	})

	city, err := newCityInput(chatID, references, true, func(id *int) {
		cmd.apply(postStepCategory, func(ctx context.Context) error { return posts.SetCity(ctx, cmd.postID, id) })
	})
	if err != nil {
		return nil, err
	}

	category, err := newCategoryInput(chatID, references, true, func(id *int) {
		cmd.apply(postStepConfirm, func(ctx context.Context) error { return posts.SetCategory(ctx, cmd.postID, id) })
	})
	if err != nil {
		return nil, err
	}

	confirm := newOptionInput(chatID, "Опублікувати пост?", []option{
		{ID: publishOptionID, Name: "Опублікувати"},
		{ID: deleteOptionID, Name: "Видалити"},
	}, false, func(id *int) {
		if *id == publishOptionID {
			cmd.publish()
		} else {
			cmd.delete()
		}
		cmd.step = postStepDone
	})

	cmd.inputs = map[postStep]inputHandler{
		postStepText:     text,
		postStepCity:     city,
		postStepCategory: category,
		postStepConfirm:  confirm,
	}
	return cmd, nil
}

func (c *postCommand) WithFinishCallback(callback func()) {
	c.finishCallback = callback
}

func (c *postCommand) WithKeyboardOnFinalMessage(keyboard botApi.ReplyKeyboardMarkup) {
	c.finalMessageKeyboard = &keyboard
}

type postState struct {
	Step   postStep
	PostID int
}

func (c *postCommand) SaveState() ([]byte, error) {
	return json.Marshal(postState{Step: c.step, PostID: c.postID})
}

func (c *postCommand) LoadState(data []byte) error {
	var state postState
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}
	if state.Step < postStepText || state.Step >= postStepDone {
		return fmt.Errorf("invalid post step: %d", state.Step)
	}
	c.step, c.postID = state.Step, state.PostID
	return nil
}

func (c *postCommand) Run() {
	_, _ = sendWithLogError(c.api, c.inputs[c.step].InitMessage())
}

func (c *postCommand) OnUserInput(input string) {

	previous := c.step
	msg := c.inputs[c.step].HandleInput(input)

	if c.failed {
		_, _ = sendWithLogError(c.api, finalMessage(c.chatID, "Внутрішня помилка!", c.finalMessageKeyboard))
		c.finish()
		return
	}

	if previous == c.step {
		_, _ = sendWithLogError(c.api, msg)
		return
	}

	if c.step != postStepDone {
		_, _ = sendWithLogError(c.api, c.inputs[c.step].InitMessage())
		return
	}

	c.finish()
}

func (c *postCommand) onText(text string) {
	post, err := c.posts.Create(context.Background(), text)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to create post: %v", err)
		c.failed = true
		return
	}
	c.postID = post.ID
	c.step = postStepCity
}

func (c *postCommand) apply(next postStep, update func(ctx context.Context) error) {
	if err := update(context.Background()); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to update post %d: %v", c.postID, err)
		c.failed = true
		return
	}
	c.step = next
}

func (c *postCommand) publish() {
	sent, err := c.posts.Publish(context.Background(), c.postID)
	if err != nil {
		log.Errorf("failed to publish post %d: %v", c.postID, err)
		_, _ = sendWithLogError(c.api, finalMessage(c.chatID, "Не вдалося опублікувати пост.", c.finalMessageKeyboard))
		return
	}
	_, _ = sendWithLogError(c.api, finalMessage(c.chatID,
		fmt.Sprintf("Пост надіслано у %d чатів.", sent), c.finalMessageKeyboard))
}

func (c *postCommand) delete() {
	if err := c.posts.Delete(context.Background(), c.postID); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to delete post %d: %v", c.postID, err)
	}
	_, _ = sendWithLogError(c.api, finalMessage(c.chatID, "Пост видалено.", c.finalMessageKeyboard))
}

func (c *postCommand) finish() {
	if c.finishCallback != nil {
		c.finishCallback()
	}
}
