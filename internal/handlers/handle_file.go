package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/mnbots/mnbot/internal/contextkeys"
	"github.com/mnbots/mnbot/internal/telegram"
	"github.com/mnbots/mnbot/types"
)

// HandleFile routes a private attachment: into an active combine session,
// through the default video plugin, or on to the owner.
func (h *Handlers) HandleFile(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	userID := senderID(msg)

	ref, ok := contextkeys.GetFileInfo(ctx, 0)
	if !ok {
		if ref, ok = telegram.FirstFile(msg); !ok {
			return
		}
	}

	if userID != 0 && h.appendCombine(ctx, msg, userID, ref) {
		return
	}

	// Video notes share the video kind but are relayed as they are.
	if kind, _ := contextkeys.GetMessageType(ctx); kind == contextkeys.MessageTypeVideo && msg.VideoNote == nil {
		h.runPlugin(ctx, msg, userID, h.cfg.DefaultVideoPlugin, []types.FileRef{ref}, "", nil)
		return
	}

	if userID == h.cfg.OwnerID {
		h.HandleOwnerMessage(ctx, b, update)
		return
	}
	h.HandleRelay(ctx, b, update)
}
