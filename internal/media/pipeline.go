package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mnbots/mnbot/internal/ffmpeg"
	"github.com/mnbots/mnbot/internal/formats"
	"github.com/mnbots/mnbot/internal/messages"
	"github.com/mnbots/mnbot/internal/telegram"
	"github.com/mnbots/mnbot/types"
)

const maxParallelDownloads = 3

type Pipeline struct {
	client  telegram.Client
	fetcher Fetcher
	encoder Encoder
	workDir string
	log     zerolog.Logger
}

func NewPipeline(client telegram.Client, fetcher Fetcher, encoder Encoder, workDir string, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		client:  client,
		fetcher: fetcher,
		encoder: encoder,
		workDir: workDir,
		log:     log.With().Str("component", "media").Logger(),
	}
}

// Run executes plugin for req. Every file the job creates is removed before
// Run returns, and the user sees exactly one failure text when it fails.
func (p *Pipeline) Run(ctx context.Context, req Request, plugin Plugin) (err error) {
	status := &statusMessage{client: p.client, chatID: req.ChatID, messageID: req.StatusMessageID, replyTo: req.ReplyTo}
	status.set(ctx, messages.StageDownloading())

	job, err := NewJob(p.workDir, p.log)
	if err != nil {
		err = &UnclassifiedFailure{Err: err}
		p.fail(ctx, status, nil, plugin, err)
		return err
	}
	log := p.log.With().Str("job", job.ID.String()).Str("plugin", plugin.Name()).Int64("user", req.UserID).Logger()

	defer job.Cleanup()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("media job panicked")
			err = &UnclassifiedFailure{Panic: r, Err: fmt.Errorf("panic: %v", r)}
			p.fail(ctx, status, job, plugin, err)
		}
	}()

	if err = p.run(ctx, job, req, plugin, status, log); err != nil {
		p.fail(ctx, status, job, plugin, err)
		return err
	}
	job.SetStatus(types.JobDone, "")
	log.Info().Msg("media job done")
	return nil
}

func (p *Pipeline) run(ctx context.Context, job *Job, req Request, plugin Plugin, status *statusMessage, log zerolog.Logger) error {
	if len(req.Files) == 0 {
		return &DownloadError{Err: errors.New("no file attached")}
	}

	sources := make([]string, len(req.Files))
	for i, f := range req.Files {
		sources[i] = job.Path(fmt.Sprintf("source_%d%s", i, formats.Extension(f)))
	}
	job.setSource(sources[0])

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelDownloads)
	for i, f := range req.Files {
		path := sources[i]
		fileID := f.FileID
		g.Go(func() error {
			_, err := p.fetcher.FetchFile(gctx, fileID, path)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return &DownloadError{Err: err}
	}
	log.Debug().Int("files", len(sources)).Msg("sources downloaded")

	assets := map[string]string{}
	if aux := plugin.Auxiliary(req); len(aux) > 0 {
		status.set(ctx, messages.StageFetchingAsset())
		for _, a := range aux {
			path := job.Path(a.FileName)
			if _, err := p.fetcher.FetchURL(ctx, a.URL, path); err != nil {
				if a.Optional {
					log.Warn().Err(err).Str("asset", a.Name).Msg("optional asset unavailable, skipping")
					continue
				}
				return &AuxiliaryFetchError{Asset: a.Name, Err: err}
			}
			assets[a.Name] = path
		}
	}

	var probe *ffmpeg.Probe
	if want := plugin.RequiredStream(); want != "" {
		job.SetStatus(types.JobProbing, "")
		status.set(ctx, messages.StageProbing())
		pr, err := p.encoder.Probe(ctx, sources[0])
		if err != nil {
			return asTransform(err)
		}
		if want == "video" {
			if _, ok := pr.FirstVideo(); !ok {
				return &MissingStreamError{Stream: want}
			}
		}
		if want == "audio" && !pr.HasAudio() {
			return &MissingStreamError{Stream: want}
		}
		probe = pr
	}

	job.SetStatus(types.JobTranscoding, "")
	status.set(ctx, messages.StageTranscoding(plugin.Name()))
	out, err := plugin.Transform(ctx, &Env{
		Job:     job,
		Req:     req,
		Sources: sources,
		Probe:   probe,
		Assets:  assets,
		Encoder: p.encoder,
	})
	if err != nil {
		return asTransform(err)
	}
	if out == nil {
		return &UnclassifiedFailure{Err: errors.New("plugin produced no output")}
	}

	job.SetStatus(types.JobUploading, "")
	if out.Text != "" {
		if err := p.reply(ctx, req, out.Text); err != nil {
			return &DeliveryError{Err: err}
		}
		status.remove(ctx)
		return nil
	}

	status.set(ctx, messages.StageUploading())
	attrs := attributesOf(probe)
	if probe == nil {
		attrs = uploadAttrs{duration: req.Files[0].Duration, width: req.Files[0].Width, height: req.Files[0].Height}
	}
	if out.Reprobe {
		if rp, err := p.encoder.Probe(ctx, out.Path); err != nil {
			log.Warn().Err(err).Msg("could not probe output, uploading without attributes")
			attrs = uploadAttrs{}
		} else {
			attrs = attributesOf(rp)
		}
	}
	if err := p.deliver(ctx, req, out, attrs); err != nil {
		return &DeliveryError{Err: err}
	}
	status.set(ctx, messages.StageDone())
	return nil
}

func (p *Pipeline) fail(ctx context.Context, status *statusMessage, job *Job, plugin Plugin, err error) {
	if job != nil {
		job.SetStatus(types.JobFailed, err.Error())
	}
	ev := p.log.Warn()
	var unclassified *UnclassifiedFailure
	if errors.As(err, &unclassified) {
		ev = p.log.Error()
	}
	ev.Err(err).Str("plugin", plugin.Name()).Msg("media job failed")
	status.set(ctx, UserMessage(err))
}

type uploadAttrs struct {
	duration, width, height int
}

func attributesOf(pr *ffmpeg.Probe) uploadAttrs {
	if pr == nil {
		return uploadAttrs{}
	}
	a := uploadAttrs{duration: pr.DurationSeconds()}
	if v, ok := pr.FirstVideo(); ok {
		a.width, a.height = v.Width, v.Height
	}
	return a
}

func (p *Pipeline) deliver(ctx context.Context, req Request, out *Output, attrs uploadAttrs) error {
	f, err := os.Open(out.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	name := out.FileName
	if strings.TrimSpace(name) == "" {
		name = filepath.Base(out.Path)
	}
	upload := &models.InputFileUpload{Filename: name, Data: f}

	switch out.Kind {
	case types.KindVideo:
		params := &bot.SendVideoParams{
			ChatID:            req.ChatID,
			Video:             upload,
			Caption:           out.Caption,
			ParseMode:         messages.ParseModeHTML,
			Duration:          attrs.duration,
			Width:             attrs.width,
			Height:            attrs.height,
			SupportsStreaming: true,
		}
		if req.ReplyTo != 0 {
			params.ReplyParameters = &models.ReplyParameters{MessageID: req.ReplyTo}
		}
		_, err = p.client.SendVideo(ctx, params)
	case types.KindAudio:
		params := &bot.SendAudioParams{
			ChatID:    req.ChatID,
			Audio:     upload,
			Caption:   out.Caption,
			ParseMode: messages.ParseModeHTML,
			Duration:  attrs.duration,
		}
		if req.ReplyTo != 0 {
			params.ReplyParameters = &models.ReplyParameters{MessageID: req.ReplyTo}
		}
		_, err = p.client.SendAudio(ctx, params)
	default:
		params := &bot.SendDocumentParams{
			ChatID:    req.ChatID,
			Document:  upload,
			Caption:   out.Caption,
			ParseMode: messages.ParseModeHTML,
		}
		if req.ReplyTo != 0 {
			params.ReplyParameters = &models.ReplyParameters{MessageID: req.ReplyTo}
		}
		_, err = p.client.SendDocument(ctx, params)
	}
	return err
}

func (p *Pipeline) reply(ctx context.Context, req Request, text string) error {
	params := &bot.SendMessageParams{
		ChatID:    req.ChatID,
		Text:      text,
		ParseMode: messages.ParseModeHTML,
	}
	if req.ReplyTo != 0 {
		params.ReplyParameters = &models.ReplyParameters{MessageID: req.ReplyTo}
	}
	_, err := p.client.SendMessage(ctx, params)
	return err
}

// statusMessage is the one status line a job edits as it progresses.
// Every call is best-effort.
type statusMessage struct {
	client    telegram.Client
	chatID    int64
	messageID int
	replyTo   int
	last      string
}

func (s *statusMessage) set(ctx context.Context, text string) {
	if text == s.last {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if s.messageID == 0 {
		params := &bot.SendMessageParams{ChatID: s.chatID, Text: text, ParseMode: messages.ParseModeHTML}
		if s.replyTo != 0 {
			params.ReplyParameters = &models.ReplyParameters{MessageID: s.replyTo}
		}
		msg, err := s.client.SendMessage(ctx, params)
		if err == nil && msg != nil {
			s.messageID = msg.ID
			s.last = text
		}
		return
	}
	_, err := s.client.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    s.chatID,
		MessageID: s.messageID,
		Text:      text,
		ParseMode: messages.ParseModeHTML,
	})
	if err == nil {
		s.last = text
	}
}

func (s *statusMessage) remove(ctx context.Context) {
	if s.messageID == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	_, _ = s.client.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: s.chatID, MessageID: s.messageID})
	s.messageID = 0
}
