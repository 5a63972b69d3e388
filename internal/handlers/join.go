package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/mnbots/mnbot/internal/messages"
	"github.com/mnbots/mnbot/internal/retry"
	"github.com/mnbots/mnbot/internal/telegram"
	"github.com/mnbots/mnbot/types"
)

// HandleJoinRequest records the requester as a broadcast recipient and sends
// a welcome message. Failures are logged only.
func (h *Handlers) HandleJoinRequest(ctx context.Context, _ *bot.Bot, update *models.Update) {
	req := update.ChatJoinRequest
	if req == nil {
		return
	}
	userID := req.From.ID
	log := h.log.With().Int64("user", userID).Int64("chat", req.Chat.ID).Logger()

	recipient := types.Recipient{ID: userID, DisplayName: senderName(&req.From), CreatedAt: h.now().UTC()}
	if err := h.recipients.Upsert(ctx, recipient); err != nil {
		log.Error().Err(err).Msg("save join requester")
	}

	chatID := req.UserChatID
	if chatID == 0 {
		chatID = userID
	}
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      messages.JoinWelcome(),
		ParseMode: messages.ParseModeHTML,
	}
	if kb := h.joinKeyboard(); kb != nil {
		params.ReplyMarkup = kb
	}
	err := retry.Once(ctx, func(ctx context.Context) error {
		_, err := h.client.SendMessage(ctx, params)
		return err
	}, retry.Options{
		Sleep:  h.sleep,
		OnWait: func(wait time.Duration) { log.Warn().Dur("wait", wait).Msg("welcome rate limited") },
	})
	if err == nil {
		log.Debug().Msg("welcome sent")
		return
	}

	switch outcome, _ := telegram.Classify(err); outcome {
	case telegram.OutcomePermanent:
		log.Warn().Err(err).Msg("requester unreachable")
	case telegram.OutcomeRateLimited:
		log.Warn().Err(err).Msg("welcome retry rate limited")
	default:
		log.Error().Err(err).Msg("welcome failed")
	}
}

func (h *Handlers) joinKeyboard() *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, 2)
	if h.cfg.UpdatesURL != "" {
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: messages.BtnBotUpdates(), URL: h.cfg.UpdatesURL},
		})
	}
	if h.cfg.BotUsername != "" {
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: messages.BtnAddToGroup(), URL: fmt.Sprintf("https://t.me/%s?startgroup=AdBots&admin=invite_users+manage_chat", h.cfg.BotUsername)},
			{Text: messages.BtnAddToChannel(), URL: fmt.Sprintf("https://t.me/%s?startchannel=AdBots&admin=invite_users+manage_chat", h.cfg.BotUsername)},
		})
	}
	if len(rows) == 0 {
		return nil
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}
