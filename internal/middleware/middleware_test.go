package middleware_test

import (
	"context"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"

	"github.com/mnbots/mnbot/internal/contextkeys"
	"github.com/mnbots/mnbot/internal/middleware"
)

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name  string
		upd   *models.Update
		want  contextkeys.MessageType
		files int
	}{
		{"command", &models.Update{Message: &models.Message{Text: "/start"}}, contextkeys.MessageTypeCommand, 0},
		{"text", &models.Update{Message: &models.Message{Text: "hello"}}, contextkeys.MessageTypeText, 0},
		{"video", &models.Update{Message: &models.Message{Video: &models.Video{FileID: "v"}}}, contextkeys.MessageTypeVideo, 1},
		{"document", &models.Update{Message: &models.Message{Document: &models.Document{FileID: "d", FileName: "a.pdf"}}}, contextkeys.MessageTypeDocument, 1},
		{"callback", &models.Update{CallbackQuery: &models.CallbackQuery{Data: "help_rename"}}, contextkeys.MessageTypeCallback, 0},
		{"join", &models.Update{ChatJoinRequest: &models.ChatJoinRequest{}}, contextkeys.MessageTypeJoinRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := middleware.Analyze(context.Background(), tt.upd)
			got, ok := contextkeys.GetMessageType(ctx)
			if !ok || got != tt.want {
				t.Fatalf("type = %q, want %q", got, tt.want)
			}
			info, _ := contextkeys.GetFilesInfo(ctx)
			n := 0
			if info != nil {
				n = len(info.Files)
			}
			if n != tt.files {
				t.Fatalf("files = %d, want %d", n, tt.files)
			}
		})
	}
}

func TestRecoverSwallowsPanic(t *testing.T) {
	m := middleware.New(zerolog.Nop())
	called := false
	h := m.Recover(func(context.Context, *bot.Bot, *models.Update) {
		called = true
		panic("boom")
	})
	h(context.Background(), nil, &models.Update{ID: 7})
	if !called {
		t.Fatal("handler not called")
	}
}

func TestAnalyzeMessagePassesContext(t *testing.T) {
	m := middleware.New(zerolog.Nop())
	var got contextkeys.MessageType
	h := m.AnalyzeMessage(func(ctx context.Context, _ *bot.Bot, _ *models.Update) {
		got, _ = contextkeys.GetMessageType(ctx)
	})
	h(context.Background(), nil, &models.Update{Message: &models.Message{Audio: &models.Audio{FileID: "a"}}})
	if got != contextkeys.MessageTypeAudio {
		t.Fatalf("type = %q", got)
	}
}
