package broadcast

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/mnbots/mnbot/internal/messages"
	"github.com/mnbots/mnbot/internal/telegram"
)

// StatusReporter renders progress into one status message in the operator chat.
type StatusReporter struct {
	client    telegram.Client
	chatID    int64
	replyTo   int
	messageID int
}

func NewStatusReporter(client telegram.Client, chatID int64, replyTo int) *StatusReporter {
	return &StatusReporter{client: client, chatID: chatID, replyTo: replyTo}
}

// Start posts the status message. A failed post leaves the reporter without
// a message to edit; Done then sends a fresh one.
func (r *StatusReporter) Start(ctx context.Context, total int) error {
	params := &bot.SendMessageParams{
		ChatID: r.chatID,
		Text:   messages.BroadcastStarted(total),
	}
	if r.replyTo != 0 {
		params.ReplyParameters = replyParams(r.replyTo)
	}
	msg, err := r.client.SendMessage(ctx, params)
	if err != nil {
		return err
	}
	r.messageID = msg.ID
	return nil
}

func (r *StatusReporter) Progress(ctx context.Context, res Result) error {
	return r.edit(ctx, messages.BroadcastProgress(res.Sent, res.Failed, res.Processed, res.Total))
}

func (r *StatusReporter) Done(ctx context.Context, res Result) error {
	ctx, cancel := detached(ctx)
	defer cancel()
	text := messages.BroadcastDone(res.Sent, res.Failed, res.Total)
	if r.messageID == 0 {
		_, err := r.client.SendMessage(ctx, &bot.SendMessageParams{ChatID: r.chatID, Text: text})
		return err
	}
	return r.edit(ctx, text)
}

func (r *StatusReporter) edit(ctx context.Context, text string) error {
	if r.messageID == 0 {
		return nil
	}
	_, err := r.client.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    r.chatID,
		MessageID: r.messageID,
		Text:      text,
	})
	return err
}

// detached keeps the final summary deliverable after the run context ends.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
}

func replyParams(messageID int) *models.ReplyParameters {
	return &models.ReplyParameters{MessageID: messageID}
}
