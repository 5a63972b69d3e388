package handlers

import (
	"github.com/go-telegram/bot/models"

	"github.com/mnbots/mnbot/internal/formats"
	"github.com/mnbots/mnbot/internal/messages"
)

const (
	helpCallbackPrefix  = "help_"
	callbackHelpRename  = "help_rename"
	callbackHelpWM      = "help_watermark"
	callbackHelpMeta    = "help_metadata"
	callbackHelpCombine = "help_combine"
	callbackBackToMain  = "back_to_main"
	callbackCloseHelp   = "close_help"
)

func buildHelpKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{
		{
			{Text: messages.BtnHelpRename(), CallbackData: callbackHelpRename},
			{Text: messages.BtnHelpWatermark(), CallbackData: callbackHelpWM},
		},
		{
			{Text: messages.BtnHelpMetadata(), CallbackData: callbackHelpMeta},
			{Text: messages.BtnHelpCombine(), CallbackData: callbackHelpCombine},
		},
		{
			{Text: messages.BtnCloseHelp(), CallbackData: callbackCloseHelp},
		},
	}}
}

func buildBackKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{
		{{Text: messages.BtnBackToHelp(), CallbackData: callbackBackToMain}},
	}}
}

func (h *Handlers) helpTopic(data string) string {
	switch data {
	case callbackHelpRename:
		return messages.HelpRename()
	case callbackHelpWM:
		return messages.HelpWatermark()
	case callbackHelpMeta:
		return messages.HelpMetadata()
	case callbackHelpCombine:
		return messages.HelpCombine(formats.CombineTypes, h.cfg.MaxCombineSize/(1024*1024))
	}
	return messages.HelpSelectTopic()
}
