package handlers

import (
	"context"

	"github.com/go-telegram/bot/models"

	"github.com/mnbots/mnbot/internal/formats"
	"github.com/mnbots/mnbot/internal/media"
	"github.com/mnbots/mnbot/internal/messages"
	"github.com/mnbots/mnbot/types"
)

const mb = 1024 * 1024

func (h *Handlers) cmdCombine(ctx context.Context, msg *models.Message, userID int64) {
	session, err := h.settings.GetCombine(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Int64("user", userID).Msg("load combine session")
		h.reply(ctx, msg, messages.ErrorDefault())
		return
	}
	if session != nil {
		h.reply(ctx, msg, messages.CombineAlreadyActive())
		return
	}

	ref, ok := repliedFile(msg)
	if !ok {
		h.reply(ctx, msg, messages.CombineHelp(formats.CombineTypes, h.cfg.MaxCombineSize/mb))
		return
	}
	ext := formats.Extension(ref)
	if !formats.IsCombineType(ext) {
		h.reply(ctx, msg, messages.CombineUnsupported(ext, formats.CombineTypes))
		return
	}

	session = &types.CombineSession{FileType: ext, Files: []types.FileRef{ref}, StartedAt: h.now().UTC()}
	if err := h.settings.SetCombine(ctx, userID, session); err != nil {
		h.log.Error().Err(err).Int64("user", userID).Msg("save combine session")
		h.reply(ctx, msg, messages.ErrorDefault())
		return
	}
	h.reply(ctx, msg, messages.CombineStarted(ext))
}

// appendCombine adds ref to an active session. It reports false when the user
// is not in combine mode.
func (h *Handlers) appendCombine(ctx context.Context, msg *models.Message, userID int64, ref types.FileRef) bool {
	session, err := h.settings.GetCombine(ctx, userID)
	if err != nil {
		h.log.Warn().Err(err).Int64("user", userID).Msg("load combine session")
		return false
	}
	if session == nil {
		return false
	}
	if formats.Extension(ref) != session.FileType {
		h.reply(ctx, msg, messages.CombineWrongType(session.FileType))
		return true
	}
	session.Files = append(session.Files, ref)
	if err := h.settings.SetCombine(ctx, userID, session); err != nil {
		h.log.Error().Err(err).Int64("user", userID).Msg("save combine session")
		h.reply(ctx, msg, messages.ErrorDefault())
		return true
	}
	h.reply(ctx, msg, messages.CombineFileAdded(len(session.Files)))
	return true
}

func (h *Handlers) cmdFinishCombine(ctx context.Context, msg *models.Message, userID int64, name string) {
	session, err := h.settings.GetCombine(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Int64("user", userID).Msg("load combine session")
		h.reply(ctx, msg, messages.ErrorDefault())
		return
	}
	if session == nil {
		h.reply(ctx, msg, messages.CombineNotActive())
		return
	}
	if len(session.Files) < media.MinCombineFiles {
		h.reply(ctx, msg, messages.CombineNeedMore())
		return
	}
	if total := session.TotalSize(); h.cfg.MaxCombineSize > 0 && total > h.cfg.MaxCombineSize {
		h.reply(ctx, msg, messages.CombineTooLarge(total/mb, h.cfg.MaxCombineSize/mb))
		return
	}

	// The session ends here whatever the job's outcome.
	if err := h.settings.DeleteCombine(ctx, userID); err != nil {
		h.log.Warn().Err(err).Int64("user", userID).Msg("clear combine session")
	}
	plugin := media.CombinePlugin{FileType: session.FileType}
	h.enqueue(ctx, msg, userID, plugin, session.Files, name, nil)
}

func (h *Handlers) cmdCancelCombine(ctx context.Context, msg *models.Message, userID int64) {
	session, err := h.settings.GetCombine(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Int64("user", userID).Msg("load combine session")
		h.reply(ctx, msg, messages.ErrorDefault())
		return
	}
	if session == nil {
		h.reply(ctx, msg, messages.CombineNothingToCancel())
		return
	}
	if err := h.settings.DeleteCombine(ctx, userID); err != nil {
		h.log.Error().Err(err).Int64("user", userID).Msg("clear combine session")
		h.reply(ctx, msg, messages.ErrorDefault())
		return
	}
	h.reply(ctx, msg, messages.CombineCanceled())
}
