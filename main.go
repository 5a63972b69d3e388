package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/rs/zerolog"

	"github.com/mnbots/mnbot/internal/broadcast"
	"github.com/mnbots/mnbot/internal/config"
	"github.com/mnbots/mnbot/internal/ffmpeg"
	"github.com/mnbots/mnbot/internal/handlers"
	"github.com/mnbots/mnbot/internal/health"
	"github.com/mnbots/mnbot/internal/logging"
	"github.com/mnbots/mnbot/internal/media"
	"github.com/mnbots/mnbot/internal/messages"
	"github.com/mnbots/mnbot/internal/middleware"
	"github.com/mnbots/mnbot/internal/router"
	"github.com/mnbots/mnbot/internal/supervisor"
	"github.com/mnbots/mnbot/internal/telegram"
	"github.com/mnbots/mnbot/store"
	"github.com/mnbots/mnbot/types"
)

const (
	pollTimeout      = 50 * time.Second
	maxRestartDelay  = time.Minute
	settingsTTLHours = 24 * 30
)

func main() {
	_ = config.LoadEnvFile("config.env")

	cfg, err := config.Load()
	if err != nil {
		boot := logging.New(os.Stderr, "info", "console")
		boot.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rdb, err := store.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("failed to connect to redis")
	}
	defer rdb.Close()

	settingsStore := store.NewRedisSettingsStore(rdb, settingsTTLHours)
	relayStore := store.NewRedisRelayStore(rdb, 0)

	var recipients types.RecipientStore
	switch cfg.RecipientStore {
	case config.StoreRedis:
		recipients = store.NewRedisRecipientStore(rdb)
	default:
		pg, err := store.NewPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		defer pg.Close()
		recipients = pg
	}
	log.Info().Str("backend", cfg.RecipientStore).Msg("recipient store ready")

	rt := router.New(log)
	mw := middleware.New(log)

	opts := []bot.Option{
		bot.WithSkipGetMe(),
		bot.WithDefaultHandler(rt.Handler()),
		bot.WithMiddlewares(mw.Recover, mw.AnalyzeMessage),
		bot.WithHTTPClient(pollTimeout, &http.Client{Timeout: 10 * time.Minute}),
	}
	if cfg.BotAPIURL != "" {
		opts = append(opts, bot.WithServerURL(cfg.BotAPIURL))
	}
	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create bot")
	}

	downloader := telegram.NewDownloader(b, cfg.BotToken, nil)
	if cfg.BotAPIURL != "" {
		downloader = downloader.WithServerURL(cfg.BotAPIURL)
	}
	if !ffmpeg.Available(cfg.Media.FFmpegPath) {
		log.Warn().Str("path", cfg.Media.FFmpegPath).Msg("ffmpeg not found, media commands will fail")
	}
	tool := ffmpeg.New(ffmpeg.Config{
		FFmpegPath:  cfg.Media.FFmpegPath,
		FFprobePath: cfg.Media.FFprobePath,
		Timeout:     cfg.Media.FFmpegTimeout,
	})
	pipeline := media.NewPipeline(b, downloader, tool, cfg.Media.WorkDir, log)
	queue := media.NewQueue(b, media.QueueConfig{Workers: cfg.Media.Workers}, log)
	queue.Start()
	defer queue.Stop()

	plugins := media.NewRegistry(
		media.ThumbnailPlugin{CoverURL: cfg.Media.ThumbnailURL, Tag: cfg.Media.BrandTag},
		media.WatermarkPlugin{ImageURL: cfg.Media.WatermarkImageURL, Text: cfg.Media.WatermarkText, Font: cfg.Media.WatermarkFont},
		media.RenamePlugin{Font: cfg.Media.WatermarkFont},
		media.ShowMetadataPlugin{},
	)

	engine := broadcast.NewEngine(recipients, broadcast.CopySender{Client: b}, broadcast.Config{
		OperatorID: cfg.OwnerID,
		BatchSize:  cfg.BatchSize,
		BatchDelay: cfg.BatchDelay,
	}, log)

	hcfg := handlers.Config{
		OwnerID:            cfg.OwnerID,
		Chats:              cfg.Chats,
		DeleteDelay:        cfg.DeleteDelay,
		DefaultVideoPlugin: cfg.Media.DefaultVideoPlugin,
		MaxCombineSize:     cfg.Media.MaxCombineSize,
		MaxFileSize:        cfg.Media.MaxFileSize,
		UpdatesURL:         cfg.Media.UpdatesURL,
	}

	healthSrv := health.New(cfg.Port, log)
	healthSrv.Start()
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := healthSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("health endpoint shutdown")
		}
	}()

	session := func(ctx context.Context) error {
		me, err := b.GetMe(ctx)
		if err != nil {
			return err
		}
		hcfg.BotUsername = me.Username

		// Routes are rebuilt each session so a restart picks up the bot's
		// current username.
		h := handlers.NewHandlers(handlers.Deps{
			Client:     b,
			Recipients: recipients,
			Settings:   settingsStore,
			Relay:      relayStore,
			Broadcast:  engine,
			Pipeline:   pipeline,
			Queue:      queue,
			Plugins:    plugins,
		}, hcfg, log)
		rt.Reset()
		h.Register(rt)
		defer h.Wait()

		notifyOwner(ctx, b, cfg.OwnerID, me.FirstName, log)
		log.Info().Str("username", me.Username).Msg("bot started")

		b.Start(ctx)
		return ctx.Err()
	}

	err = supervisor.Run(ctx, "telegram", session, supervisor.Options{
		MinBackoff:  cfg.RestartDelay,
		MaxBackoff:  maxRestartDelay,
		MaxRestarts: cfg.MaxRestarts,
	}, log)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("bot stopped")
		return
	}
	log.Info().Msg("shutting down")
}

func notifyOwner(ctx context.Context, client telegram.Client, ownerID int64, name string, log zerolog.Logger) {
	if ownerID == 0 {
		return
	}
	_, err := client.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    ownerID,
		Text:      messages.Started(name),
		ParseMode: messages.ParseModeHTML,
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to notify owner of startup")
	}
}
