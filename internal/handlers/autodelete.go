package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// HandleAutoDelete removes a message from a configured chat after DeleteDelay.
func (h *Handlers) HandleAutoDelete(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := update.Message
	chatID, messageID := msg.Chat.ID, msg.ID

	h.goAsync(func() {
		if err := h.sleep(ctx, h.cfg.DeleteDelay); err != nil {
			return
		}
		if _, err := h.client.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: chatID, MessageID: messageID}); err != nil {
			h.log.Warn().Err(err).Int64("chat", chatID).Int("message", messageID).Msg("auto delete failed")
		}
	})
}
