package middleware

import (
	"context"
	"runtime/debug"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"

	"github.com/mnbots/mnbot/internal/contextkeys"
	"github.com/mnbots/mnbot/internal/telegram"
)

type Middlewares struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Middlewares {
	return &Middlewares{log: log.With().Str("component", "middleware").Logger()}
}

// Recover keeps a panicking handler from taking down the polling loop.
func (m *Middlewares) Recover(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		defer func() {
			if r := recover(); r != nil {
				m.log.Error().
					Interface("panic", r).
					Int64("update", update.ID).
					Bytes("stack", debug.Stack()).
					Msg("handler panicked")
			}
		}()
		next(ctx, b, update)
	}
}

// AnalyzeMessage stores the message type and attachments in the context.
func (m *Middlewares) AnalyzeMessage(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		next(Analyze(ctx, update), b, update)
	}
}

func Analyze(ctx context.Context, update *models.Update) context.Context {
	switch {
	case update.CallbackQuery != nil:
		return contextkeys.WithMessageType(ctx, contextkeys.MessageTypeCallback)
	case update.ChatJoinRequest != nil:
		return contextkeys.WithMessageType(ctx, contextkeys.MessageTypeJoinRequest)
	case update.Message == nil:
		return ctx
	}

	msg := update.Message
	if strings.HasPrefix(msg.Text, "/") {
		return contextkeys.WithMessageType(ctx, contextkeys.MessageTypeCommand)
	}
	ctx = contextkeys.WithMessageType(ctx, determineMessageType(msg))
	if files := telegram.FileRefs(msg); len(files) > 0 {
		ctx = contextkeys.WithFilesInfo(ctx, &contextkeys.FilesInfo{Files: files})
	}
	return ctx
}

func determineMessageType(msg *models.Message) contextkeys.MessageType {
	switch {
	case len(msg.Photo) > 0:
		return contextkeys.MessageTypePhoto
	case msg.Video != nil, msg.VideoNote != nil:
		return contextkeys.MessageTypeVideo
	case msg.Document != nil:
		return contextkeys.MessageTypeDocument
	case msg.Audio != nil:
		return contextkeys.MessageTypeAudio
	case msg.Voice != nil:
		return contextkeys.MessageTypeVoice
	case msg.Sticker != nil:
		return contextkeys.MessageTypeSticker
	case msg.Text != "" || msg.Caption != "":
		return contextkeys.MessageTypeText
	}
	return contextkeys.MessageTypeUnknown
}
