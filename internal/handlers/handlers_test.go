package handlers_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"

	"github.com/mnbots/mnbot/internal/broadcast"
	"github.com/mnbots/mnbot/internal/handlers"
	"github.com/mnbots/mnbot/internal/media"
	"github.com/mnbots/mnbot/internal/middleware"
	"github.com/mnbots/mnbot/internal/router"
	"github.com/mnbots/mnbot/internal/telegram/telegramtest"
	"github.com/mnbots/mnbot/store"
	"github.com/mnbots/mnbot/types"
)

const (
	owner     = int64(1000)
	user      = int64(55)
	groupChat = int64(-100123)
)

type runCall struct {
	req    media.Request
	plugin media.Plugin
}

type fakeRunner struct {
	mu    sync.Mutex
	calls []runCall
	err   error
}

func (r *fakeRunner) Run(_ context.Context, req media.Request, plugin media.Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, runCall{req: req, plugin: plugin})
	return r.err
}

func (r *fakeRunner) Calls() []runCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]runCall(nil), r.calls...)
}

// syncQueue runs each task inline.
type syncQueue struct {
	err   error
	tasks []*media.Task
}

func (q *syncQueue) Enqueue(ctx context.Context, t *media.Task) (int, error) {
	if q.err != nil {
		return -1, q.err
	}
	q.tasks = append(q.tasks, t)
	return 0, t.Run(ctx, 900)
}

type sleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleeper) Waits() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.waits...)
}

type env struct {
	t          *testing.T
	client     *telegramtest.Client
	recipients *store.RedisRecipientStore
	settings   *store.RedisSettingsStore
	relay      *store.RedisRelayStore
	runner     *fakeRunner
	queue      *syncQueue
	sleeper    *sleeper
	h          *handlers.Handlers
	router     *router.Router
}

func newEnv(t *testing.T) *env {
	t.Helper()
	mr := miniredis.RunT(t)
	rc, err := store.NewRedisClient(context.Background(), mr.Addr(), "", 0, "test")
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })

	e := &env{
		t:          t,
		client:     telegramtest.New(),
		recipients: store.NewRedisRecipientStore(rc),
		settings:   store.NewRedisSettingsStore(rc, 1),
		relay:      store.NewRedisRelayStore(rc, time.Hour),
		runner:     &fakeRunner{},
		queue:      &syncQueue{},
		sleeper:    &sleeper{},
	}
	engine := broadcast.NewEngine(e.recipients, broadcast.CopySender{Client: e.client},
		broadcast.Config{OperatorID: owner, BatchSize: 2, BatchDelay: time.Second}, zerolog.Nop()).
		WithSleep(e.sleeper.Sleep)

	e.h = handlers.NewHandlers(handlers.Deps{
		Client:     e.client,
		Recipients: e.recipients,
		Settings:   e.settings,
		Relay:      e.relay,
		Broadcast:  engine,
		Pipeline:   e.runner,
		Queue:      e.queue,
		Plugins: media.NewRegistry(
			media.ThumbnailPlugin{},
			media.WatermarkPlugin{},
			media.RenamePlugin{},
			media.ShowMetadataPlugin{},
		),
	}, handlers.Config{
		OwnerID:            owner,
		Chats:              []int64{groupChat},
		DeleteDelay:        5 * time.Second,
		DefaultVideoPlugin: "thumbnail",
		MaxCombineSize:     10 * 1024 * 1024,
		MaxFileSize:        20 * 1024 * 1024,
		BotUsername:        "mn_test_bot",
		UpdatesURL:         "https://t.me/mnbots",
	}, zerolog.Nop()).WithSleep(e.sleeper.Sleep)

	e.router = router.New(zerolog.Nop())
	e.h.Register(e.router)
	return e
}

func (e *env) dispatch(u *models.Update) {
	e.t.Helper()
	ctx := middleware.Analyze(context.Background(), u)
	if !e.router.Dispatch(ctx, nil, u) {
		e.t.Fatalf("no route matched update %+v", u)
	}
	e.h.Wait()
}

var nextMessageID = 1

func privateMsg(from int64, text string) *models.Message {
	nextMessageID++
	return &models.Message{
		ID:   nextMessageID,
		Chat: models.Chat{ID: from, Type: models.ChatTypePrivate},
		From: &models.User{ID: from, Username: "someone"},
		Text: text,
	}
}

func update(m *models.Message) *models.Update {
	return &models.Update{Message: m}
}

func tooManyRequests(seconds int) error {
	return &bot.TooManyRequestsError{Message: "Too Many Requests", RetryAfter: seconds}
}

func blocked() error {
	return fmt.Errorf("%w, Forbidden: bot was blocked by the user", bot.ErrorForbidden)
}

func (e *env) lastText() string {
	e.t.Helper()
	sent := e.client.SentMessages()
	if len(sent) == 0 {
		e.t.Fatal("nothing sent")
	}
	return sent[len(sent)-1].Text
}

func TestJoinRequestSavesRecipientAndWelcomes(t *testing.T) {
	e := newEnv(t)
	e.dispatch(&models.Update{ChatJoinRequest: &models.ChatJoinRequest{
		Chat: models.Chat{ID: groupChat},
		From: models.User{ID: user, FirstName: "Ann"},
	}})

	all, err := e.recipients.ScanAll(context.Background())
	if err != nil || len(all) != 1 || all[0].ID != user {
		t.Fatalf("recipients = %+v, %v", all, err)
	}
	sent := e.client.SentMessages()
	if len(sent) != 1 || sent[0].ChatID != user || !sent[0].HasMarkup {
		t.Fatalf("sent = %+v", sent)
	}
}

func TestJoinRequestRetriesOnceAfterRateLimit(t *testing.T) {
	e := newEnv(t)
	e.client.SendHook = func(chatID int64, attempt int) error {
		if attempt == 1 {
			return tooManyRequests(3)
		}
		return nil
	}
	e.dispatch(&models.Update{ChatJoinRequest: &models.ChatJoinRequest{From: models.User{ID: user}}})

	if got := e.client.SendAttempts(user); got != 2 {
		t.Fatalf("attempts = %d, want 2", got)
	}
	if waits := e.sleeper.Waits(); len(waits) != 1 || waits[0] != 3*time.Second {
		t.Fatalf("waits = %v", waits)
	}
	if len(e.client.SentMessages()) != 1 {
		t.Fatal("welcome not delivered on retry")
	}
}

func TestJoinRequestBlockedRequesterStaysStored(t *testing.T) {
	e := newEnv(t)
	e.client.SendHook = func(int64, int) error { return blocked() }
	e.dispatch(&models.Update{ChatJoinRequest: &models.ChatJoinRequest{From: models.User{ID: user}}})

	if got := e.client.SendAttempts(user); got != 1 {
		t.Fatalf("attempts = %d, want 1", got)
	}
	n, _ := e.recipients.Count(context.Background())
	if n != 1 {
		t.Fatalf("recipients = %d, want 1", n)
	}
}

func TestBroadcastRejectsNonOperator(t *testing.T) {
	e := newEnv(t)
	_ = e.recipients.Upsert(context.Background(), types.Recipient{ID: 7})

	m := privateMsg(user, "/broadcast")
	m.ReplyToMessage = &models.Message{ID: 1}
	e.dispatch(update(m))

	sent := e.client.SentMessages()
	if len(sent) != 1 || !strings.Contains(sent[0].Text, "not authorized") {
		t.Fatalf("sent = %+v", sent)
	}
	if len(e.client.CopiedTo()) != 0 {
		t.Fatal("non-operator broadcast delivered")
	}
}

func TestBroadcastNeedsReply(t *testing.T) {
	e := newEnv(t)
	e.dispatch(update(privateMsg(owner, "/broadcast")))
	if !strings.Contains(e.lastText(), "Reply to the message") {
		t.Fatalf("text = %q", e.lastText())
	}
}

func TestBroadcastCopiesToEveryRecipient(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	for _, id := range []int64{11, 12, 13} {
		_ = e.recipients.Upsert(ctx, types.Recipient{ID: id})
	}

	m := privateMsg(owner, "/broadcast@mn_test_bot")
	m.ReplyToMessage = &models.Message{ID: 77}
	e.dispatch(update(m))

	copies := e.client.CopyList()
	if len(copies) != 3 {
		t.Fatalf("copies = %+v", copies)
	}
	for _, c := range copies {
		if c.FromChatID != owner || c.MessageID != 77 {
			t.Fatalf("copy = %+v", c)
		}
	}
	edits := e.client.EditTexts()
	if len(edits) == 0 || !strings.Contains(edits[len(edits)-1].Text, "Sent: 3") {
		t.Fatalf("edits = %+v", edits)
	}
}

func TestCommandForAnotherBotIsRelayed(t *testing.T) {
	e := newEnv(t)
	_ = e.recipients.Upsert(context.Background(), types.Recipient{ID: 7})

	m := privateMsg(user, "/broadcast@OtherBot")
	m.ReplyToMessage = &models.Message{ID: 1}
	e.dispatch(update(m))

	for _, s := range e.client.SentMessages() {
		if strings.Contains(s.Text, "not authorized") {
			t.Fatalf("handled as our broadcast: %+v", s)
		}
	}
	fwd := e.client.ForwardList()
	if len(fwd) != 1 || fwd[0].ChatID != owner {
		t.Fatalf("forwards = %+v", fwd)
	}

	e.dispatch(update(privateMsg(user, "/help@OtherBot")))
	if got := len(e.client.ForwardList()); got != 2 {
		t.Fatalf("forwards = %d, want the help command relayed", got)
	}
}

func TestRelayRoundTrip(t *testing.T) {
	e := newEnv(t)
	e.dispatch(update(privateMsg(user, "hello owner")))

	fwd := e.client.ForwardList()
	if len(fwd) != 1 || fwd[0].ChatID != owner || fwd[0].FromChatID != user {
		t.Fatalf("forwards = %+v", fwd)
	}

	reply := privateMsg(owner, "hi back")
	reply.ReplyToMessage = &models.Message{ID: fwd[0].ResultID}
	e.dispatch(update(reply))

	copies := e.client.CopyList()
	if len(copies) != 1 || copies[0].ChatID != user || copies[0].MessageID != reply.ID {
		t.Fatalf("copies = %+v", copies)
	}
}

func TestOwnerReplyUsesForwardOrigin(t *testing.T) {
	e := newEnv(t)
	reply := privateMsg(owner, "answer")
	reply.ReplyToMessage = &models.Message{ID: 4242, ForwardOrigin: &models.MessageOrigin{
		MessageOriginUser: &models.MessageOriginUser{SenderUser: models.User{ID: 99}},
	}}
	e.dispatch(update(reply))

	copies := e.client.CopyList()
	if len(copies) != 1 || copies[0].ChatID != 99 {
		t.Fatalf("copies = %+v", copies)
	}
}

func TestOwnerReplyUnknownSender(t *testing.T) {
	e := newEnv(t)
	reply := privateMsg(owner, "answer")
	reply.ReplyToMessage = &models.Message{ID: 4243}
	e.dispatch(update(reply))

	if !strings.Contains(e.lastText(), "original sender") {
		t.Fatalf("text = %q", e.lastText())
	}
	if len(e.client.CopyList()) != 0 {
		t.Fatal("copied without a target")
	}
}

func TestOwnerMessageWithoutReplyGetsHint(t *testing.T) {
	e := newEnv(t)
	e.dispatch(update(privateMsg(owner, "just talking")))
	if !strings.Contains(e.lastText(), "reply to a forwarded message") {
		t.Fatalf("text = %q", e.lastText())
	}
	if len(e.client.ForwardList()) != 0 {
		t.Fatal("owner message forwarded to owner")
	}
}

func TestAutoDelete(t *testing.T) {
	e := newEnv(t)
	group := func(chatID int64, text string) *models.Update {
		nextMessageID++
		return update(&models.Message{
			ID:   nextMessageID,
			Chat: models.Chat{ID: chatID, Type: models.ChatTypeSupergroup},
			From: &models.User{ID: user},
			Text: text,
		})
	}

	plain := group(groupChat, "spam")
	e.dispatch(plain)
	deleted := e.client.DeletedMessages()
	if len(deleted) != 1 || deleted[0] != plain.Message.ID {
		t.Fatalf("deleted = %v", deleted)
	}
	if waits := e.sleeper.Waits(); len(waits) != 1 || waits[0] != 5*time.Second {
		t.Fatalf("waits = %v", waits)
	}

	e.dispatch(group(groupChat, "/help"))
	if got := len(e.client.DeletedMessages()); got != 1 {
		t.Fatalf("command deleted, deletes = %d", got)
	}

	e.dispatch(group(groupChat, "/help@OtherBot"))
	if got := len(e.client.DeletedMessages()); got != 2 {
		t.Fatalf("another bot's command kept, deletes = %d", got)
	}

	if e.router.Dispatch(context.Background(), nil, group(-5, "elsewhere")) {
		t.Fatal("message in an unconfigured group was routed")
	}
}

func TestHelpAndCallbacks(t *testing.T) {
	e := newEnv(t)
	e.dispatch(update(privateMsg(user, "/start")))
	sent := e.client.SentMessages()
	if len(sent) != 1 || !sent[0].HasMarkup {
		t.Fatalf("start = %+v", sent)
	}

	cb := func(data string) *models.Update {
		return &models.Update{CallbackQuery: &models.CallbackQuery{
			ID:   "cb-" + data,
			Data: data,
			Message: models.MaybeInaccessibleMessage{Message: &models.Message{
				ID: 300, Chat: models.Chat{ID: user, Type: models.ChatTypePrivate},
			}},
		}}
	}
	e.dispatch(cb("help_rename"))
	edits := e.client.EditTexts()
	if len(edits) != 1 || !strings.Contains(edits[0].Text, "File Renaming Help") {
		t.Fatalf("edits = %+v", edits)
	}
	e.dispatch(cb("close_help"))
	if d := e.client.DeletedMessages(); len(d) != 1 || d[0] != 300 {
		t.Fatalf("deleted = %v", d)
	}
	if a := e.client.AnsweredCallbacks(); len(a) != 2 {
		t.Fatalf("answered = %v", a)
	}
}
