package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/mnbots/mnbot/internal/contextkeys"
	"github.com/mnbots/mnbot/internal/messages"
)

// HandleRelay forwards a private message to the owner and remembers which
// user the forwarded copy belongs to.
func (h *Handlers) HandleRelay(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := update.Message
	userID := senderID(msg)
	kind, _ := contextkeys.GetMessageType(ctx)
	log := h.log.With().Int64("user", userID).Str("kind", string(kind)).Logger()

	fwd, err := h.client.ForwardMessage(ctx, &bot.ForwardMessageParams{
		ChatID:     h.cfg.OwnerID,
		FromChatID: msg.Chat.ID,
		MessageID:  msg.ID,
	})
	if err != nil {
		log.Warn().Err(err).Msg("forward to owner")
		return
	}
	if fwd == nil || h.relay == nil {
		return
	}
	if err := h.relay.Remember(ctx, fwd.ID, msg.Chat.ID); err != nil {
		log.Warn().Err(err).Int("owner_message", fwd.ID).Msg("remember relay origin")
	}
}

// HandleOwnerReply sends the owner's reply back to the user whose message was
// forwarded.
func (h *Handlers) HandleOwnerReply(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := update.Message
	target, ok := h.relayOrigin(ctx, msg.ReplyToMessage)
	if !ok {
		h.reply(ctx, msg, messages.RelayUnknownSender())
		return
	}

	_, err := h.client.CopyMessage(ctx, &bot.CopyMessageParams{
		ChatID:     target,
		FromChatID: msg.Chat.ID,
		MessageID:  msg.ID,
	})
	if err != nil {
		h.log.Warn().Err(err).Int64("user", target).Msg("relay reply failed")
		h.reply(ctx, msg, messages.RelayFailed(err))
	}
}

// HandleOwnerMessage answers owner messages that are not replies.
func (h *Handlers) HandleOwnerMessage(ctx context.Context, _ *bot.Bot, update *models.Update) {
	h.reply(ctx, update.Message, messages.RelayReplyHint())
}

// relayOrigin prefers the stored mapping, which also covers senders who hide
// their account in forwards.
func (h *Handlers) relayOrigin(ctx context.Context, forwarded *models.Message) (int64, bool) {
	if forwarded == nil {
		return 0, false
	}
	if h.relay != nil {
		userID, found, err := h.relay.Lookup(ctx, forwarded.ID)
		if err != nil {
			h.log.Warn().Err(err).Int("owner_message", forwarded.ID).Msg("relay lookup")
		}
		if found {
			return userID, true
		}
	}
	if o := forwarded.ForwardOrigin; o != nil && o.MessageOriginUser != nil {
		return o.MessageOriginUser.SenderUser.ID, true
	}
	return 0, false
}
