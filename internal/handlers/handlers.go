package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"

	"github.com/mnbots/mnbot/internal/broadcast"
	"github.com/mnbots/mnbot/internal/media"
	"github.com/mnbots/mnbot/internal/messages"
	"github.com/mnbots/mnbot/internal/retry"
	"github.com/mnbots/mnbot/internal/router"
	"github.com/mnbots/mnbot/internal/telegram"
	"github.com/mnbots/mnbot/types"
)

// JobRunner runs one media plugin. *media.Pipeline implements it.
type JobRunner interface {
	Run(ctx context.Context, req media.Request, plugin media.Plugin) error
}

// TaskEnqueuer schedules media work. *media.Queue implements it.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, t *media.Task) (int, error)
}

type Config struct {
	OwnerID            int64
	Chats              []int64
	DeleteDelay        time.Duration
	DefaultVideoPlugin string
	MaxCombineSize     int64
	// MaxFileSize caps a single download. Zero disables the check.
	MaxFileSize int64
	BotUsername string
	UpdatesURL  string
}

type Deps struct {
	Client     telegram.Client
	Recipients types.RecipientStore
	Settings   types.SettingsStore
	Relay      types.RelayStore
	Broadcast  *broadcast.Engine
	Pipeline   JobRunner
	Queue      TaskEnqueuer
	Plugins    *media.Registry
}

type Handlers struct {
	client     telegram.Client
	recipients types.RecipientStore
	settings   types.SettingsStore
	relay      types.RelayStore
	broadcast  *broadcast.Engine
	pipeline   JobRunner
	queue      TaskEnqueuer
	plugins    *media.Registry

	cfg   Config
	log   zerolog.Logger
	sleep retry.SleepFunc
	now   func() time.Time

	wg sync.WaitGroup
}

func NewHandlers(d Deps, cfg Config, log zerolog.Logger) *Handlers {
	return &Handlers{
		client:     d.Client,
		recipients: d.Recipients,
		settings:   d.Settings,
		relay:      d.Relay,
		broadcast:  d.Broadcast,
		pipeline:   d.Pipeline,
		queue:      d.Queue,
		plugins:    d.Plugins,
		cfg:        cfg,
		log:        log.With().Str("component", "handlers").Logger(),
		sleep:      retry.Sleep,
		now:        time.Now,
	}
}

// WithSleep replaces the sleep used for auto-delete delays and retry waits.
func (h *Handlers) WithSleep(fn retry.SleepFunc) *Handlers {
	h.sleep = fn
	return h
}

// Wait blocks until background work started by handlers has finished.
func (h *Handlers) Wait() {
	h.wg.Wait()
}

func (h *Handlers) goAsync(fn func()) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		fn()
	}()
}

// Register installs every route. Order matters: the first match wins.
func (h *Handlers) Register(r *router.Router) {
	isOwner := router.From(h.cfg.OwnerID)
	me := h.cfg.BotUsername

	r.Handle("join_request", router.JoinRequest, h.HandleJoinRequest)
	r.Handle("help_callback", router.CallbackPrefix(helpCallbackPrefix, callbackBackToMain, callbackCloseHelp), h.HandleHelpCallback)
	r.Handle("auto_delete", router.All(router.Group, router.InChats(h.cfg.Chats), router.Not(router.IsCommand(me))), h.HandleAutoDelete)
	r.Handle("broadcast", router.Command(me, "broadcast"), h.HandleBroadcast)
	r.Handle("command", router.Command(me, knownCommands()...), h.HandleCommand)
	r.Handle("owner_reply", router.All(router.Private, isOwner, router.IsReply), h.HandleOwnerReply)
	r.Handle("private_file", router.All(router.Private, router.HasMedia), h.HandleFile)
	r.Handle("owner_message", router.All(router.Private, isOwner), h.HandleOwnerMessage)
	r.Handle("relay", router.All(router.Private, router.HasMessage), h.HandleRelay)
}

func (h *Handlers) reply(ctx context.Context, msg *models.Message, text string) {
	h.replyWithMarkup(ctx, msg, text, nil)
}

func (h *Handlers) replyWithMarkup(ctx context.Context, msg *models.Message, text string, markup models.ReplyMarkup) {
	params := &bot.SendMessageParams{
		ChatID:          msg.Chat.ID,
		Text:            text,
		ParseMode:       messages.ParseModeHTML,
		ReplyParameters: &models.ReplyParameters{MessageID: msg.ID, AllowSendingWithoutReply: true},
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	if _, err := h.client.SendMessage(ctx, params); err != nil {
		h.log.Warn().Err(err).Int64("chat", msg.Chat.ID).Msg("reply failed")
	}
}

func senderID(msg *models.Message) int64 {
	if msg == nil || msg.From == nil {
		return 0
	}
	return msg.From.ID
}

func senderName(u *models.User) string {
	if u == nil {
		return ""
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return u.Username
	}
	return "Unknown"
}
