package media

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"

	"github.com/mnbots/mnbot/internal/messages"
	"github.com/mnbots/mnbot/internal/telegram"
)

var (
	ErrQueueFull      = errors.New("media queue is full")
	ErrAlreadyQueued  = errors.New("media task already queued")
	ErrQueueNotActive = errors.New("media queue is not running")
)

// Task is one unit of work. Run receives the queue's status message ID so the
// job can keep editing the same message.
type Task struct {
	Key      string
	ChatID   int64
	ReplyTo  int
	FileName string
	Run      func(ctx context.Context, statusMessageID int) error
}

type QueueConfig struct {
	Workers  int
	Capacity int
}

// Queue runs tasks on a fixed number of workers. Waiting tasks see their
// position in a status message that is edited as the queue advances. The
// queue is in memory only.
type Queue struct {
	client   telegram.Client
	workers  int
	capacity int
	log      zerolog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool

	tasks      chan *Task
	inFlight   map[string]*inFlightEntry
	inFlightMu sync.Mutex
}

type inFlightEntry struct {
	chatID    int64
	messageID int
	position  int
	fileName  string
}

func NewQueue(client telegram.Client, cfg QueueConfig, log zerolog.Logger) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 3
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = cfg.Workers * 10
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		client:   client,
		workers:  cfg.Workers,
		capacity: cfg.Capacity,
		log:      log.With().Str("component", "media_queue").Logger(),
		ctx:      ctx,
		cancel:   cancel,
		tasks:    make(chan *Task, cfg.Capacity),
		inFlight: make(map[string]*inFlightEntry),
	}
}

func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}
	q.running = true

	q.log.Info().Int("workers", q.workers).Msg("media queue started")
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
}

// Stop cancels running tasks and waits for the workers to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	q.mu.Unlock()

	q.log.Info().Int("pending", q.Pending()).Msg("stopping media queue")
	q.cancel()
	q.wg.Wait()
	q.log.Info().Msg("media queue stopped")
}

// Enqueue schedules t and posts its status message. It returns the queue
// position, 0 meaning a worker is free.
func (q *Queue) Enqueue(ctx context.Context, t *Task) (int, error) {
	q.mu.Lock()
	running := q.running
	q.mu.Unlock()
	if !running {
		return -1, ErrQueueNotActive
	}

	q.inFlightMu.Lock()
	if _, exists := q.inFlight[t.Key]; exists {
		q.inFlightMu.Unlock()
		return -1, ErrAlreadyQueued
	}
	if len(q.inFlight) >= q.capacity {
		q.inFlightMu.Unlock()
		return -1, ErrQueueFull
	}

	active, maxPos := 0, 0
	for _, e := range q.inFlight {
		if e.position == 0 {
			active++
			continue
		}
		if e.position > maxPos {
			maxPos = e.position
		}
	}
	position := 0
	if active >= q.workers {
		position = maxPos + 1
	}
	entry := &inFlightEntry{chatID: t.ChatID, position: position, fileName: t.FileName}
	q.inFlight[t.Key] = entry
	q.inFlightMu.Unlock()

	text := messages.QueueStarted(t.FileName)
	if position > 0 {
		text = messages.QueueQueued(t.FileName, position)
	}
	params := &bot.SendMessageParams{ChatID: t.ChatID, Text: text, ParseMode: messages.ParseModeHTML}
	if t.ReplyTo != 0 {
		params.ReplyParameters = &models.ReplyParameters{MessageID: t.ReplyTo}
	}
	if msg, err := q.client.SendMessage(ctx, params); err != nil {
		q.log.Warn().Err(err).Int64("chat", t.ChatID).Msg("queue notice failed")
	} else if msg != nil {
		q.inFlightMu.Lock()
		entry.messageID = msg.ID
		q.inFlightMu.Unlock()
	}

	q.tasks <- t
	return position, nil
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			q.log.Debug().Int("worker", id).Msg("worker stopped")
			return
		case t := <-q.tasks:
			q.execute(id, t)
		}
	}
}

func (q *Queue) execute(id int, t *Task) {
	q.inFlightMu.Lock()
	messageID := 0
	if e := q.inFlight[t.Key]; e != nil {
		e.position = 0
		messageID = e.messageID
	}
	q.inFlightMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			q.log.Error().Interface("panic", r).Str("task", t.Key).Msg("media task panicked")
		}
		q.inFlightMu.Lock()
		delete(q.inFlight, t.Key)
		q.inFlightMu.Unlock()
		q.advance()
	}()

	start := time.Now()
	err := t.Run(q.ctx, messageID)
	ev := q.log.Info()
	if err != nil {
		ev = q.log.Warn().Err(err)
	}
	ev.Int("worker", id).Str("task", t.Key).Dur("took", time.Since(start)).Msg("media task finished")
}

// advance moves every waiting task one place up and edits its notice.
func (q *Queue) advance() {
	type upd struct {
		chatID    int64
		messageID int
		text      string
	}
	var updates []upd

	q.inFlightMu.Lock()
	for _, e := range q.inFlight {
		if e.position == 0 {
			continue
		}
		e.position--
		if e.chatID == 0 || e.messageID == 0 {
			continue
		}
		name := strings.TrimSpace(e.fileName)
		text := messages.QueueQueued(name, e.position)
		if e.position == 0 {
			text = messages.QueueStarted(name)
		}
		updates = append(updates, upd{chatID: e.chatID, messageID: e.messageID, text: text})
	}
	q.inFlightMu.Unlock()

	if len(updates) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	for _, u := range updates {
		_, err := q.client.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    u.chatID,
			MessageID: u.messageID,
			Text:      u.text,
			ParseMode: messages.ParseModeHTML,
		})
		if err != nil {
			q.log.Debug().Err(err).Int64("chat", u.chatID).Msg("queue update failed")
		}
	}
}

// Pending reports how many tasks are queued or running.
func (q *Queue) Pending() int {
	q.inFlightMu.Lock()
	defer q.inFlightMu.Unlock()
	return len(q.inFlight)
}
