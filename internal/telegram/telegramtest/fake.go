// Package telegramtest provides an in-memory telegram.Client for tests.
package telegramtest

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/mnbots/mnbot/internal/telegram"
)

var _ telegram.Client = (*Client)(nil)

type Sent struct {
	ChatID    int64
	Text      string
	ReplyTo   int
	HasMarkup bool
}

type Copy struct {
	ChatID     int64
	FromChatID int64
	MessageID  int
}

type Edit struct {
	ChatID    int64
	MessageID int
	Text      string
}

type Forward struct {
	ChatID     int64
	FromChatID int64
	MessageID  int
	ResultID   int
}

type Upload struct {
	Kind     string
	ChatID   int64
	Filename string
	Size     int
	Duration int
	Width    int
	Height   int
	Caption  string
}

// Client records every call. Hooks, when set, decide the result of a call.
type Client struct {
	mu sync.Mutex

	Messages  []Sent
	Edits     []Edit
	Deletes   []int
	Copies    []int64
	CopyCalls []Copy
	FwdCalls  []Forward
	Answers   []string
	Forwards  []int64
	Uploads   []Upload
	FileCalls []string

	CopyHook    func(chatID int64, attempt int) error
	EditHook    func(p *bot.EditMessageTextParams) error
	SendHook    func(chatID int64, attempt int) error
	ForwardHook func(chatID int64) error
	UploadHook  func(u Upload) error
	GetFileHook func(fileID string) (*models.File, error)

	copyAttempts map[int64]int
	sendAttempts map[int64]int
	nextID       int
}

func New() *Client {
	return &Client{copyAttempts: map[int64]int{}, sendAttempts: map[int64]int{}, nextID: 100}
}

func chatIDOf(v any) int64 {
	switch id := v.(type) {
	case int64:
		return id
	case int:
		return int64(id)
	default:
		panic(fmt.Sprintf("telegramtest: unsupported chat id %T", v))
	}
}

func (c *Client) newID() int {
	c.nextID++
	return c.nextID
}

func (c *Client) SendMessage(_ context.Context, p *bot.SendMessageParams) (*models.Message, error) {
	chatID := chatIDOf(p.ChatID)
	c.mu.Lock()
	c.sendAttempts[chatID]++
	attempt := c.sendAttempts[chatID]
	hook := c.SendHook
	c.mu.Unlock()
	if hook != nil {
		if err := hook(chatID, attempt); err != nil {
			return nil, err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	sent := Sent{ChatID: chatID, Text: p.Text, HasMarkup: p.ReplyMarkup != nil}
	if p.ReplyParameters != nil {
		sent.ReplyTo = p.ReplyParameters.MessageID
	}
	c.Messages = append(c.Messages, sent)
	return &models.Message{ID: c.newID(), Chat: models.Chat{ID: chatID}, Text: p.Text}, nil
}

func (c *Client) EditMessageText(_ context.Context, p *bot.EditMessageTextParams) (*models.Message, error) {
	c.mu.Lock()
	hook := c.EditHook
	c.mu.Unlock()
	if hook != nil {
		if err := hook(p); err != nil {
			return nil, err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Edits = append(c.Edits, Edit{ChatID: chatIDOf(p.ChatID), MessageID: p.MessageID, Text: p.Text})
	return &models.Message{ID: p.MessageID, Text: p.Text}, nil
}

func (c *Client) DeleteMessage(_ context.Context, p *bot.DeleteMessageParams) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Deletes = append(c.Deletes, p.MessageID)
	return true, nil
}

func (c *Client) CopyMessage(_ context.Context, p *bot.CopyMessageParams) (*models.MessageID, error) {
	chatID := chatIDOf(p.ChatID)
	c.mu.Lock()
	c.copyAttempts[chatID]++
	attempt := c.copyAttempts[chatID]
	hook := c.CopyHook
	c.mu.Unlock()
	if hook != nil {
		if err := hook(chatID, attempt); err != nil {
			return nil, err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Copies = append(c.Copies, chatID)
	c.CopyCalls = append(c.CopyCalls, Copy{ChatID: chatID, FromChatID: chatIDOf(p.FromChatID), MessageID: p.MessageID})
	return &models.MessageID{ID: c.newID()}, nil
}

func (c *Client) ForwardMessage(_ context.Context, p *bot.ForwardMessageParams) (*models.Message, error) {
	chatID := chatIDOf(p.ChatID)
	c.mu.Lock()
	hook := c.ForwardHook
	c.mu.Unlock()
	if hook != nil {
		if err := hook(chatID); err != nil {
			return nil, err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Forwards = append(c.Forwards, chatID)
	id := c.newID()
	c.FwdCalls = append(c.FwdCalls, Forward{ChatID: chatID, FromChatID: chatIDOf(p.FromChatID), MessageID: p.MessageID, ResultID: id})
	return &models.Message{ID: id, Chat: models.Chat{ID: chatID}}, nil
}

func (c *Client) upload(kind string, chatID any, f models.InputFile, caption string, duration, width, height int) (*models.Message, error) {
	u := Upload{Kind: kind, ChatID: chatIDOf(chatID), Caption: caption, Duration: duration, Width: width, Height: height}
	if in, ok := f.(*models.InputFileUpload); ok {
		u.Filename = in.Filename
		if in.Data != nil {
			data, err := io.ReadAll(in.Data)
			if err != nil {
				return nil, err
			}
			u.Size = len(data)
		}
	}
	c.mu.Lock()
	hook := c.UploadHook
	c.mu.Unlock()
	if hook != nil {
		if err := hook(u); err != nil {
			return nil, err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Uploads = append(c.Uploads, u)
	return &models.Message{ID: c.newID()}, nil
}

func (c *Client) SendVideo(_ context.Context, p *bot.SendVideoParams) (*models.Message, error) {
	return c.upload("video", p.ChatID, p.Video, p.Caption, p.Duration, p.Width, p.Height)
}

func (c *Client) SendAudio(_ context.Context, p *bot.SendAudioParams) (*models.Message, error) {
	return c.upload("audio", p.ChatID, p.Audio, p.Caption, p.Duration, 0, 0)
}

func (c *Client) SendDocument(_ context.Context, p *bot.SendDocumentParams) (*models.Message, error) {
	return c.upload("document", p.ChatID, p.Document, p.Caption, 0, 0, 0)
}

func (c *Client) GetFile(_ context.Context, p *bot.GetFileParams) (*models.File, error) {
	c.mu.Lock()
	c.FileCalls = append(c.FileCalls, p.FileID)
	hook := c.GetFileHook
	c.mu.Unlock()
	if hook != nil {
		return hook(p.FileID)
	}
	return &models.File{FileID: p.FileID, FilePath: "files/" + p.FileID}, nil
}

func (c *Client) AnswerCallbackQuery(_ context.Context, p *bot.AnswerCallbackQueryParams) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Answers = append(c.Answers, p.CallbackQueryID)
	return true, nil
}

// Snapshot helpers copy under the lock so tests can read after concurrent use.

func (c *Client) SentMessages() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sent(nil), c.Messages...)
}

func (c *Client) EditTexts() []Edit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Edit(nil), c.Edits...)
}

func (c *Client) CopiedTo() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int64(nil), c.Copies...)
}

func (c *Client) CopyAttempts(chatID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyAttempts[chatID]
}

func (c *Client) SendAttempts(chatID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendAttempts[chatID]
}

func (c *Client) UploadList() []Upload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Upload(nil), c.Uploads...)
}

func (c *Client) DeletedMessages() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.Deletes...)
}

func (c *Client) ForwardedTo() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int64(nil), c.Forwards...)
}

func (c *Client) CopyList() []Copy {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Copy(nil), c.CopyCalls...)
}

func (c *Client) AnsweredCallbacks() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.Answers...)
}

func (c *Client) ForwardList() []Forward {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Forward(nil), c.FwdCalls...)
}
