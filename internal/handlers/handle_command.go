package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/mnbots/mnbot/internal/media"
	"github.com/mnbots/mnbot/internal/messages"
	"github.com/mnbots/mnbot/internal/router"
	"github.com/mnbots/mnbot/internal/telegram"
	"github.com/mnbots/mnbot/types"
)

func knownCommands() []string {
	return []string{
		"start", "help",
		"settings", "myoptions",
		"setprefix", "setsuffix",
		"setwatermark", "wm",
		"setmetadata", "meta",
		"showmetadata", "fileinfo",
		"rename", "r",
		"watermark",
		"combine", "merge",
		"finishcombine", "mergefinish",
		"cancelcombine", "mergecancel",
	}
}

func (h *Handlers) HandleCommand(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := update.Message
	name, target, args, ok := router.ParseCommand(msg.Text)
	if !ok || !router.AddressedTo(target, h.cfg.BotUsername) {
		return
	}
	userID := senderID(msg)
	if userID == 0 {
		return
	}
	h.log.Debug().Str("command", name).Int64("user", userID).Msg("command")

	switch name {
	case "start", "help":
		h.replyWithMarkup(ctx, msg, messages.StartWelcome(), buildHelpKeyboard())
	case "settings", "myoptions":
		h.cmdSettings(ctx, msg, userID)
	case "setprefix":
		h.updateSettings(ctx, msg, userID, func(s *types.Settings) string {
			s.Prefix = args
			return messages.PrefixUpdated(args)
		})
	case "setsuffix":
		h.updateSettings(ctx, msg, userID, func(s *types.Settings) string {
			s.Suffix = args
			return messages.SuffixUpdated(args)
		})
	case "setwatermark", "wm":
		h.cmdSetWatermark(ctx, msg, userID, args)
	case "setmetadata", "meta":
		h.cmdSetMetadata(ctx, msg, userID, args)
	case "showmetadata", "fileinfo":
		h.cmdShowMetadata(ctx, msg, userID)
	case "rename", "r":
		h.cmdRename(ctx, msg, userID, args)
	case "watermark":
		h.cmdWatermark(ctx, msg, userID)
	case "combine", "merge":
		h.cmdCombine(ctx, msg, userID)
	case "finishcombine", "mergefinish":
		h.cmdFinishCombine(ctx, msg, userID, args)
	case "cancelcombine", "mergecancel":
		h.cmdCancelCombine(ctx, msg, userID)
	}
}

func (h *Handlers) cmdSettings(ctx context.Context, msg *models.Message, userID int64) {
	s, err := h.settings.GetSettings(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Int64("user", userID).Msg("load settings")
		h.reply(ctx, msg, messages.ErrorDefault())
		return
	}
	view := messages.SettingsView{
		Prefix:            s.Prefix,
		Suffix:            s.Suffix,
		WatermarkText:     s.WatermarkText,
		WatermarkPosition: s.WatermarkPosition,
		WatermarkOpacity:  s.WatermarkOpacity,
		WatermarkSize:     s.WatermarkSize,
		MetadataTitle:     s.MetadataTitle,
		MetadataArtist:    s.MetadataArtist,
		MetadataAlbum:     s.MetadataAlbum,
		RenameCount:       s.RenameCount,
	}
	if session, err := h.settings.GetCombine(ctx, userID); err != nil {
		h.log.Warn().Err(err).Int64("user", userID).Msg("load combine session")
	} else if session != nil {
		view.CombineActive = true
		view.CombineFiles = len(session.Files)
		view.CombineType = session.FileType
	}
	h.reply(ctx, msg, messages.Settings(view))
}

// updateSettings loads, mutates and stores the user's settings, then replies
// with the text returned by apply. An empty text stores nothing.
func (h *Handlers) updateSettings(ctx context.Context, msg *models.Message, userID int64, apply func(s *types.Settings) string) {
	s, err := h.settings.GetSettings(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Int64("user", userID).Msg("load settings")
		h.reply(ctx, msg, messages.ErrorDefault())
		return
	}
	text := apply(&s)
	if text == "" {
		return
	}
	s.LastActivity = h.now().UTC()
	if err := h.settings.SetSettings(ctx, userID, s); err != nil {
		h.log.Error().Err(err).Int64("user", userID).Msg("save settings")
		h.reply(ctx, msg, messages.ErrorDefault())
		return
	}
	h.reply(ctx, msg, text)
}

func (h *Handlers) cmdSetWatermark(ctx context.Context, msg *models.Message, userID int64, args string) {
	if args == "" {
		h.reply(ctx, msg, messages.WatermarkUsage())
		return
	}
	parsed, err := media.ParseWatermarkArgs(args)
	if err != nil {
		h.reply(ctx, msg, messages.InvalidOption(err))
		return
	}
	h.updateSettings(ctx, msg, userID, func(s *types.Settings) string {
		s.WatermarkText = parsed.WatermarkText
		s.WatermarkPosition = parsed.WatermarkPosition
		s.WatermarkOpacity = parsed.WatermarkOpacity
		s.WatermarkSize = parsed.WatermarkSize
		return messages.WatermarkUpdated(s.WatermarkText, s.WatermarkPosition, s.WatermarkOpacity, s.WatermarkSize)
	})
}

func (h *Handlers) cmdSetMetadata(ctx context.Context, msg *models.Message, userID int64, args string) {
	if args == "" {
		h.reply(ctx, msg, messages.MetadataUsage())
		return
	}
	tags := media.ParseMetadataArgs(args)
	title, hasTitle := tags["title"]
	artist, hasArtist := tags["artist"]
	album, hasAlbum := tags["album"]
	if !hasTitle && !hasArtist && !hasAlbum {
		h.reply(ctx, msg, messages.MetadataInvalid())
		return
	}
	h.updateSettings(ctx, msg, userID, func(s *types.Settings) string {
		if hasTitle {
			s.MetadataTitle = title
		}
		if hasArtist {
			s.MetadataArtist = artist
		}
		if hasAlbum {
			s.MetadataAlbum = album
		}
		return messages.MetadataUpdated()
	})
}

func (h *Handlers) cmdShowMetadata(ctx context.Context, msg *models.Message, userID int64) {
	ref, ok := repliedFile(msg)
	if !ok {
		h.reply(ctx, msg, messages.ReplyToFile("show its metadata"))
		return
	}
	h.runPlugin(ctx, msg, userID, "showmetadata", []types.FileRef{ref}, "", nil)
}

func (h *Handlers) cmdRename(ctx context.Context, msg *models.Message, userID int64, newName string) {
	ref, ok := repliedFile(msg)
	if !ok {
		h.reply(ctx, msg, messages.ReplyToFile("rename"))
		return
	}
	if media.CleanFilename(newName) == "" {
		h.reply(ctx, msg, messages.RenameUsage())
		return
	}
	h.runPlugin(ctx, msg, userID, "rename", []types.FileRef{ref}, newName, func(ctx context.Context) {
		s, err := h.settings.GetSettings(ctx, userID)
		if err != nil {
			h.log.Warn().Err(err).Int64("user", userID).Msg("load settings for rename count")
			return
		}
		s.RenameCount++
		s.LastActivity = h.now().UTC()
		if err := h.settings.SetSettings(ctx, userID, s); err != nil {
			h.log.Warn().Err(err).Int64("user", userID).Msg("save rename count")
		}
	})
}

func (h *Handlers) cmdWatermark(ctx context.Context, msg *models.Message, userID int64) {
	reply := msg.ReplyToMessage
	if reply == nil || reply.Video == nil {
		h.reply(ctx, msg, messages.SendVideoHint())
		return
	}
	ref, _ := telegram.FirstFile(reply)
	h.runPlugin(ctx, msg, userID, "watermark", []types.FileRef{ref}, "", nil)
}

// runPlugin queues a media job for files. onSuccess runs after a successful
// delivery.
func (h *Handlers) runPlugin(ctx context.Context, msg *models.Message, userID int64, pluginName string, files []types.FileRef, newName string, onSuccess func(ctx context.Context)) {
	plugin, err := h.plugins.Lookup(pluginName)
	if err != nil {
		h.log.Error().Err(err).Msg("plugin lookup")
		h.reply(ctx, msg, messages.ErrorDefault())
		return
	}
	h.enqueue(ctx, msg, userID, plugin, files, newName, onSuccess)
}

func (h *Handlers) enqueue(ctx context.Context, msg *models.Message, userID int64, plugin media.Plugin, files []types.FileRef, newName string, onSuccess func(ctx context.Context)) {
	for _, f := range files {
		if h.cfg.MaxFileSize > 0 && f.FileSize > h.cfg.MaxFileSize {
			h.reply(ctx, msg, messages.FileTooLarge(h.cfg.MaxFileSize/(1024*1024)))
			return
		}
	}

	settings, err := h.settings.GetSettings(ctx, userID)
	if err != nil {
		h.log.Warn().Err(err).Int64("user", userID).Msg("load settings, using defaults")
		settings = types.DefaultSettings()
	}
	username := ""
	if msg.From != nil {
		username = msg.From.Username
	}
	replyTo := msg.ID
	if msg.ReplyToMessage != nil {
		replyTo = msg.ReplyToMessage.ID
	}

	req := media.Request{
		ChatID:   msg.Chat.ID,
		ReplyTo:  replyTo,
		UserID:   userID,
		Username: username,
		Files:    files,
		NewName:  newName,
		Settings: settings,
	}
	task := &media.Task{
		Key:      fmt.Sprintf("%d:%d", msg.Chat.ID, msg.ID),
		ChatID:   msg.Chat.ID,
		ReplyTo:  msg.ID,
		FileName: files[0].FileName,
		Run: func(ctx context.Context, statusMessageID int) error {
			req.StatusMessageID = statusMessageID
			if err := h.pipeline.Run(ctx, req, plugin); err != nil {
				return err
			}
			if onSuccess != nil {
				onSuccess(ctx)
			}
			return nil
		},
	}

	if _, err := h.queue.Enqueue(ctx, task); err != nil {
		switch {
		case errors.Is(err, media.ErrQueueFull):
			h.reply(ctx, msg, messages.ErrorQueueFull())
		case errors.Is(err, media.ErrAlreadyQueued):
			h.log.Debug().Str("task", task.Key).Msg("duplicate media task")
		default:
			h.log.Error().Err(err).Msg("enqueue media task")
			h.reply(ctx, msg, messages.ErrorDefault())
		}
	}
}

// repliedFile returns the document, video or audio the command replies to.
func repliedFile(msg *models.Message) (types.FileRef, bool) {
	r := msg.ReplyToMessage
	if r == nil || (r.Document == nil && r.Video == nil && r.Audio == nil) {
		return types.FileRef{}, false
	}
	return telegram.FirstFile(r)
}
