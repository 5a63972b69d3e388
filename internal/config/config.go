package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	BotToken  string
	BotAPIURL string
	APIID     int
	APIHash   string
	OwnerID   int64

	Chats       []int64
	DeleteDelay time.Duration

	BatchSize  int
	BatchDelay time.Duration

	Port int

	RecipientStore string
	PostgresDSN    string
	Redis          RedisConfig

	Media MediaConfig

	LogLevel  string
	LogFormat string

	RestartDelay time.Duration
	MaxRestarts  int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type MediaConfig struct {
	WorkDir            string
	Workers            int
	FFmpegPath         string
	FFprobePath        string
	FFmpegTimeout      time.Duration
	ThumbnailURL       string
	WatermarkImageURL  string
	WatermarkText      string
	WatermarkFont      string
	BrandTag           string
	UpdatesURL         string
	DefaultVideoPlugin string
	MaxCombineSize     int64
	MaxFileSize        int64
}

const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	var errs []error
	env := envReader{errs: &errs}

	cfg := &Config{
		BotToken:  firstNonEmpty(os.Getenv("TOKEN"), os.Getenv("BOT_TOKEN")),
		BotAPIURL: strings.TrimRight(strings.TrimSpace(os.Getenv("BOT_API_URL")), "/"),
		APIID:     env.getInt("API_ID", 0),
		APIHash:   strings.TrimSpace(os.Getenv("API_HASH")),
		OwnerID:   env.getInt64("OWNER", 0),

		Chats:       env.getInt64List("CHATS"),
		DeleteDelay: env.getSeconds("DELETE_DELAY", 5*time.Second),

		BatchSize:  env.getInt("BATCH_SIZE", 20),
		BatchDelay: env.getSeconds("BATCH_DELAY", 2*time.Second),

		Port: env.getInt("PORT", 8000),

		RecipientStore: strings.ToLower(env.getString("RECIPIENT_STORE", StorePostgres)),
		PostgresDSN:    strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
		Redis: RedisConfig{
			Addr:     fmt.Sprintf("%s:%s", env.getString("REDIS_HOST", "localhost"), env.getString("REDIS_PORT", "6379")),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       env.getInt("REDIS_DB", 0),
			Prefix:   env.getString("REDIS_PREFIX", "mnbot"),
		},

		Media: MediaConfig{
			WorkDir:            env.getString("WORK_DIR", filepath.Join(os.TempDir(), "mnbot")),
			Workers:            env.getInt("MEDIA_WORKERS", 3),
			FFmpegPath:         env.getString("FFMPEG_PATH", "ffmpeg"),
			FFprobePath:        env.getString("FFPROBE_PATH", "ffprobe"),
			FFmpegTimeout:      env.getSeconds("FFMPEG_TIMEOUT", 10*time.Minute),
			ThumbnailURL:       env.getString("THUMBNAIL_URL", "https://i.ibb.co/MDwd1f3D/6087047735061627461.jpg"),
			WatermarkImageURL:  env.getString("WATERMARK_IMAGE_URL", "https://i.ibb.co/xW7NS5d/image.jpg"),
			WatermarkText:      env.getString("WATERMARK_TEXT", "join @mnbots in telegram"),
			WatermarkFont:      env.getString("WATERMARK_FONT", "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf"),
			BrandTag:           env.getString("BRAND_TAG", "@mnbots in telegram"),
			UpdatesURL:         env.getString("UPDATES_URL", "https://t.me/mnbots"),
			DefaultVideoPlugin: strings.ToLower(env.getString("DEFAULT_VIDEO_PLUGIN", "thumbnail")),
			MaxCombineSize:     int64(env.getInt("MAX_COMBINE_MB", 500)) * 1024 * 1024,
		},

		LogLevel:  env.getString("LOG_LEVEL", "info"),
		LogFormat: env.getString("LOG_FORMAT", "console"),

		RestartDelay: env.getSeconds("RESTART_DELAY", 5*time.Second),
		MaxRestarts:  env.getInt("MAX_RESTARTS", 0),
	}

	// The public Bot API refuses downloads above 20MB; a local server allows 2GB.
	defaultFileMB := 20
	if cfg.BotAPIURL != "" {
		defaultFileMB = 2000
	}
	cfg.Media.MaxFileSize = int64(env.getInt("MAX_FILE_MB", defaultFileMB)) * 1024 * 1024

	if cfg.PostgresDSN == "" {
		cfg.PostgresDSN = buildPostgresDSN(
			env.getString("POSTGRES_HOST", "localhost"),
			env.getString("POSTGRES_PORT", "5432"),
			env.getString("POSTGRES_DB", "mnbot"),
			env.getString("POSTGRES_USER", "mnbot"),
			os.Getenv("POSTGRES_PASSWORD"),
		)
	}

	if err := cfg.validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.BotToken == "" {
		errs = append(errs, errors.New("TOKEN is required"))
	}
	if c.OwnerID == 0 {
		errs = append(errs, errors.New("OWNER is required"))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("BATCH_SIZE must be positive, got %d", c.BatchSize))
	}
	if c.BatchDelay < 0 {
		errs = append(errs, fmt.Errorf("BATCH_DELAY must not be negative"))
	}
	if c.RecipientStore != StorePostgres && c.RecipientStore != StoreRedis {
		errs = append(errs, fmt.Errorf("RECIPIENT_STORE must be %q or %q, got %q", StorePostgres, StoreRedis, c.RecipientStore))
	}
	if c.Media.Workers <= 0 {
		c.Media.Workers = 1
	}
	return errors.Join(errs...)
}

// IsAutoDeleteChat reports whether messages in chatID are deleted after DeleteDelay.
func (c *Config) IsAutoDeleteChat(chatID int64) bool {
	for _, id := range c.Chats {
		if id == chatID {
			return true
		}
	}
	return false
}

func buildPostgresDSN(host, port, db, user, pass string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", urlEscape(user), urlEscape(pass), host, port, db)
}

func urlEscape(s string) string {
	r := strings.NewReplacer(
		"%", "%25",
		":", "%3A",
		"/", "%2F",
		"@", "%40",
		"?", "%3F",
		"#", "%23",
		"[", "%5B",
		"]", "%5D",
	)
	return r.Replace(s)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

type envReader struct {
	errs *[]error
}

func (e envReader) getString(name, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}

func (e envReader) getInt(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*e.errs = append(*e.errs, fmt.Errorf("%s: invalid integer %q", name, v))
		return def
	}
	return n
}

func (e envReader) getInt64(name string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		*e.errs = append(*e.errs, fmt.Errorf("%s: invalid integer %q", name, v))
		return def
	}
	return n
}

// getSeconds accepts either a bare number of seconds or a Go duration string.
func (e envReader) getSeconds(name string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(f * float64(time.Second))
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*e.errs = append(*e.errs, fmt.Errorf("%s: invalid duration %q", name, v))
		return def
	}
	return d
}

func (e envReader) getInt64List(name string) []int64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' || r == ' ' || r == '\n' || r == '\t' })
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			*e.errs = append(*e.errs, fmt.Errorf("%s: invalid chat id %q", name, p))
			continue
		}
		out = append(out, id)
	}
	return out
}
