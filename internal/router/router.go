// Package router dispatches updates to the first registered route whose
// predicate matches.
package router

import (
	"context"
	"strings"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"

	"github.com/mnbots/mnbot/internal/contextkeys"
)

type Predicate func(u *models.Update) bool

type route struct {
	name    string
	match   Predicate
	handler bot.HandlerFunc
}

type Router struct {
	mu     sync.RWMutex
	routes []route
	log    zerolog.Logger
}

func New(log zerolog.Logger) *Router {
	return &Router{log: log.With().Str("component", "router").Logger()}
}

// Handle appends a route. Routes are tried in registration order.
func (r *Router) Handle(name string, match Predicate, handler bot.HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route{name: name, match: match, handler: handler})
}

// Reset drops every route.
func (r *Router) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = nil
}

// Dispatch runs the first matching route and reports whether one matched.
// It has the shape of bot.HandlerFunc apart from the return value.
func (r *Router) Dispatch(ctx context.Context, b *bot.Bot, update *models.Update) bool {
	r.mu.RLock()
	routes := r.routes
	r.mu.RUnlock()

	kind, _ := contextkeys.GetMessageType(ctx)
	for _, rt := range routes {
		if rt.match(update) {
			r.log.Debug().Str("route", rt.name).Str("kind", string(kind)).Int64("update", update.ID).Msg("dispatch")
			rt.handler(ctx, b, update)
			return true
		}
	}
	r.log.Debug().Str("kind", string(kind)).Int64("update", update.ID).Msg("no route")
	return false
}

// Handler adapts the router for bot.WithDefaultHandler.
func (r *Router) Handler() bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		r.Dispatch(ctx, b, update)
	}
}

// Predicates

func All(preds ...Predicate) Predicate {
	return func(u *models.Update) bool {
		for _, p := range preds {
			if !p(u) {
				return false
			}
		}
		return true
	}
}

func Not(p Predicate) Predicate {
	return func(u *models.Update) bool { return !p(u) }
}

func HasMessage(u *models.Update) bool {
	return u.Message != nil
}

func JoinRequest(u *models.Update) bool {
	return u.ChatJoinRequest != nil
}

func Private(u *models.Update) bool {
	return u.Message != nil && u.Message.Chat.Type == models.ChatTypePrivate
}

func Group(u *models.Update) bool {
	return u.Message != nil &&
		(u.Message.Chat.Type == models.ChatTypeGroup || u.Message.Chat.Type == models.ChatTypeSupergroup)
}

func IsReply(u *models.Update) bool {
	return u.Message != nil && u.Message.ReplyToMessage != nil
}

func From(userID int64) Predicate {
	return func(u *models.Update) bool {
		return u.Message != nil && u.Message.From != nil && u.Message.From.ID == userID
	}
}

func InChats(ids []int64) Predicate {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return func(u *models.Update) bool {
		if u.Message == nil {
			return false
		}
		_, ok := set[u.Message.Chat.ID]
		return ok
	}
}

// IsCommand matches any command addressed to username or to no bot in
// particular. "/cmd@OtherBot" is not a command for this bot.
func IsCommand(username string) Predicate {
	return func(u *models.Update) bool {
		if u.Message == nil {
			return false
		}
		_, target, _, ok := ParseCommand(u.Message.Text)
		return ok && AddressedTo(target, username)
	}
}

// Command matches "/name", "/name args" and "/name@username" for any of names.
func Command(username string, names ...string) Predicate {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[strings.ToLower(n)] = struct{}{}
	}
	return func(u *models.Update) bool {
		if u.Message == nil {
			return false
		}
		name, target, _, ok := ParseCommand(u.Message.Text)
		if !ok || !AddressedTo(target, username) {
			return false
		}
		_, found := set[name]
		return found
	}
}

// ParseCommand splits "/Name@bot  args" into ("name", "bot", "args").
func ParseCommand(text string) (name, target, args string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", "", false
	}
	head, rest, _ := strings.Cut(text[1:], " ")
	if nl := strings.IndexByte(head, '\n'); nl >= 0 {
		rest = head[nl+1:] + " " + rest
		head = head[:nl]
	}
	head, target, _ = strings.Cut(head, "@")
	if head == "" {
		return "", "", "", false
	}
	return strings.ToLower(head), target, strings.TrimSpace(rest), true
}

// AddressedTo reports whether a command target names username. An empty
// target addresses every bot; an unknown username accepts any target.
func AddressedTo(target, username string) bool {
	if target == "" || username == "" {
		return true
	}
	return strings.EqualFold(target, strings.TrimPrefix(username, "@"))
}

func HasMedia(u *models.Update) bool {
	m := u.Message
	return m != nil && (m.Video != nil || m.Audio != nil || m.Document != nil || len(m.Photo) > 0)
}

func Callback(u *models.Update) bool {
	return u.CallbackQuery != nil
}

// CallbackPrefix matches callback queries whose data starts with any of prefixes.
func CallbackPrefix(prefixes ...string) Predicate {
	return func(u *models.Update) bool {
		if !Callback(u) {
			return false
		}
		for _, p := range prefixes {
			if strings.HasPrefix(u.CallbackQuery.Data, p) {
				return true
			}
		}
		return false
	}
}
