// Package broadcast replicates one message to every stored recipient in
// sequential batches with concurrent sends inside a batch.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mnbots/mnbot/internal/retry"
	"github.com/mnbots/mnbot/internal/telegram"
	"github.com/mnbots/mnbot/types"
)

const (
	DefaultBatchSize  = 20
	DefaultBatchDelay = 2 * time.Second
)

var ErrUnauthorized = errors.New("broadcast: invoker is not the operator")

// Source identifies the message that is copied to every recipient.
type Source struct {
	ChatID    int64
	MessageID int
}

type Sender interface {
	Send(ctx context.Context, recipientID int64, src Source) error
}

// Reporter receives running totals. Its errors never abort a run.
type Reporter interface {
	// Start is called once with the size of the run's snapshot.
	Start(ctx context.Context, total int) error
	Progress(ctx context.Context, r Result) error
	Done(ctx context.Context, r Result) error
}

type Result struct {
	Sent      int
	Failed    int
	Pruned    int
	Total     int
	Batches   int
	Processed int
}

type Config struct {
	OperatorID int64
	BatchSize  int
	BatchDelay time.Duration
}

type Engine struct {
	store  types.RecipientStore
	sender Sender
	cfg    Config
	log    zerolog.Logger
	sleep  retry.SleepFunc
}

func NewEngine(store types.RecipientStore, sender Sender, cfg Config, log zerolog.Logger) *Engine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchDelay < 0 {
		cfg.BatchDelay = DefaultBatchDelay
	}
	return &Engine{
		store:  store,
		sender: sender,
		cfg:    cfg,
		log:    log.With().Str("component", "broadcast").Logger(),
		sleep:  retry.Sleep,
	}
}

// WithSleep replaces the sleep used for batch delays and rate-limit waits.
func (e *Engine) WithSleep(fn retry.SleepFunc) *Engine {
	e.sleep = fn
	return e
}

func (e *Engine) Authorized(invokerID int64) bool {
	return e.cfg.OperatorID != 0 && invokerID == e.cfg.OperatorID
}

// Partition splits recipients into consecutive slices of at most size.
func Partition(recipients []types.Recipient, size int) [][]types.Recipient {
	if size <= 0 {
		size = DefaultBatchSize
	}
	batches := make([][]types.Recipient, 0, (len(recipients)+size-1)/size)
	for start := 0; start < len(recipients); start += size {
		end := start + size
		if end > len(recipients) {
			end = len(recipients)
		}
		batches = append(batches, recipients[start:end])
	}
	return batches
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeFailed
	outcomePruned
)

// Run copies src to every recipient in the store snapshot. Only the
// configured operator may run it.
func (e *Engine) Run(ctx context.Context, invokerID int64, src Source, reporter Reporter) (Result, error) {
	if !e.Authorized(invokerID) {
		return Result{}, ErrUnauthorized
	}

	snapshot, err := e.store.ScanAll(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("scan recipients: %w", err)
	}

	res := Result{Total: len(snapshot)}
	e.log.Info().Int("total", res.Total).Int("batch_size", e.cfg.BatchSize).Msg("broadcast started")
	if reporter != nil {
		if err := reporter.Start(ctx, res.Total); err != nil {
			e.log.Warn().Err(err).Msg("status message failed")
		}
	}

	for _, batch := range Partition(snapshot, e.cfg.BatchSize) {
		if ctx.Err() != nil {
			break
		}

		outcomes := e.sendBatch(ctx, batch, src)
		for _, o := range outcomes {
			switch o {
			case outcomeSent:
				res.Sent++
			case outcomePruned:
				res.Pruned++
				res.Failed++
			default:
				res.Failed++
			}
		}
		res.Batches++
		res.Processed += len(batch)

		if reporter != nil {
			if err := reporter.Progress(ctx, res); err != nil {
				e.log.Debug().Err(err).Msg("progress update failed")
			}
		}

		if err := e.sleep(ctx, e.cfg.BatchDelay); err != nil {
			break
		}
	}

	e.log.Info().
		Int("sent", res.Sent).
		Int("failed", res.Failed).
		Int("pruned", res.Pruned).
		Int("total", res.Total).
		Int("batches", res.Batches).
		Msg("broadcast finished")

	if reporter != nil {
		if err := reporter.Done(ctx, res); err != nil {
			e.log.Warn().Err(err).Msg("final summary failed")
		}
	}
	return res, ctx.Err()
}

// sendBatch launches every send in the batch and waits for all of them.
func (e *Engine) sendBatch(ctx context.Context, batch []types.Recipient, src Source) []outcome {
	outcomes := make([]outcome, len(batch))
	var g errgroup.Group
	for i, r := range batch {
		i, r := i, r
		g.Go(func() error {
			outcomes[i] = e.deliver(ctx, r, src)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (e *Engine) deliver(ctx context.Context, r types.Recipient, src Source) outcome {
	err := retry.Once(ctx, func(ctx context.Context) error {
		if r.ID == 0 {
			return telegram.ErrNoTarget
		}
		return e.sender.Send(ctx, r.ID, src)
	}, retry.Options{
		Sleep: e.sleep,
		OnWait: func(wait time.Duration) {
			e.log.Debug().Int64("recipient", r.ID).Dur("wait", wait).Msg("rate limited, retrying once")
		},
	})

	kind, _ := telegram.Classify(err)
	switch kind {
	case telegram.OutcomeOK:
		return outcomeSent
	case telegram.OutcomePermanent:
		if delErr := e.store.Delete(ctx, r.ID); delErr != nil {
			e.log.Error().Err(delErr).Int64("recipient", r.ID).Msg("failed to prune recipient")
			return outcomeFailed
		}
		e.log.Info().Int64("recipient", r.ID).Err(err).Msg("recipient pruned")
		return outcomePruned
	default:
		e.log.Warn().Int64("recipient", r.ID).Str("outcome", kind.String()).Err(err).Msg("send failed")
		return outcomeFailed
	}
}

// CopySender copies the source message into each recipient chat.
type CopySender struct {
	Client telegram.Client
}

func (s CopySender) Send(ctx context.Context, recipientID int64, src Source) error {
	_, err := s.Client.CopyMessage(ctx, &bot.CopyMessageParams{
		ChatID:     recipientID,
		FromChatID: src.ChatID,
		MessageID:  src.MessageID,
	})
	return err
}
