package handlers

import (
	"context"
	"errors"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/mnbots/mnbot/internal/broadcast"
	"github.com/mnbots/mnbot/internal/messages"
)

// HandleBroadcast copies the replied-to message to every recipient. The run
// continues in the background and reports into its own status message.
func (h *Handlers) HandleBroadcast(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := update.Message
	invoker := senderID(msg)
	if !h.broadcast.Authorized(invoker) {
		h.log.Warn().Int64("user", invoker).Msg("unauthorized broadcast attempt")
		h.reply(ctx, msg, messages.BroadcastUnauthorized())
		return
	}
	if msg.ReplyToMessage == nil {
		h.reply(ctx, msg, messages.BroadcastNeedsReply())
		return
	}

	reporter := broadcast.NewStatusReporter(h.client, msg.Chat.ID, msg.ID)
	src := broadcast.Source{ChatID: msg.Chat.ID, MessageID: msg.ReplyToMessage.ID}
	h.goAsync(func() {
		_, err := h.broadcast.Run(ctx, invoker, src, reporter)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled):
			h.log.Warn().Msg("broadcast interrupted by shutdown")
		default:
			h.log.Error().Err(err).Msg("broadcast failed")
			h.reply(context.WithoutCancel(ctx), msg, messages.ErrorDefault())
		}
	})
}
