package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/mnbots/mnbot/internal/messages"
)

// HandleHelpCallback switches the help message between topics.
func (h *Handlers) HandleHelpCallback(ctx context.Context, _ *bot.Bot, update *models.Update) {
	cq := update.CallbackQuery
	if cq == nil {
		return
	}
	defer h.answerCallback(ctx, cq.ID)

	msg := cq.Message.Message
	if msg == nil {
		return
	}
	data := strings.TrimSpace(cq.Data)

	switch data {
	case callbackCloseHelp:
		if _, err := h.client.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: msg.Chat.ID, MessageID: msg.ID}); err != nil {
			h.log.Debug().Err(err).Msg("close help")
		}
		return
	case callbackBackToMain:
		h.editHelp(ctx, msg, messages.StartWelcome(), buildHelpKeyboard())
		return
	}
	h.editHelp(ctx, msg, h.helpTopic(data), buildBackKeyboard())
}

func (h *Handlers) editHelp(ctx context.Context, msg *models.Message, text string, kb *models.InlineKeyboardMarkup) {
	_, err := h.client.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      msg.Chat.ID,
		MessageID:   msg.ID,
		Text:        text,
		ParseMode:   messages.ParseModeHTML,
		ReplyMarkup: kb,
	})
	if err != nil {
		h.log.Debug().Err(err).Msg("edit help")
	}
}

func (h *Handlers) answerCallback(ctx context.Context, callbackID string) {
	if _, err := h.client.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: callbackID}); err != nil {
		h.log.Debug().Err(err).Msg("answer callback")
	}
}
