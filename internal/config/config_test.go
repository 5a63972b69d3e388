package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TOKEN", "123:abc")
	t.Setenv("OWNER", "777")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BatchSize != 20 || cfg.BatchDelay != 2*time.Second {
		t.Fatalf("batch defaults = %d/%s", cfg.BatchSize, cfg.BatchDelay)
	}
	if cfg.Port != 8000 {
		t.Fatalf("port = %d", cfg.Port)
	}
	if cfg.RecipientStore != StorePostgres {
		t.Fatalf("store = %q", cfg.RecipientStore)
	}
	if !strings.HasPrefix(cfg.PostgresDSN, "postgres://mnbot:@localhost:5432/mnbot") {
		t.Fatalf("dsn = %q", cfg.PostgresDSN)
	}
	if cfg.OwnerID != 777 {
		t.Fatalf("owner = %d", cfg.OwnerID)
	}
	if cfg.Media.MaxFileSize != 20*1024*1024 {
		t.Fatalf("max file size = %d", cfg.Media.MaxFileSize)
	}
}

func TestLocalBotAPIRaisesFileLimit(t *testing.T) {
	t.Setenv("TOKEN", "123:abc")
	t.Setenv("OWNER", "1")
	t.Setenv("BOT_API_URL", "http://localhost:8081/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BotAPIURL != "http://localhost:8081" {
		t.Fatalf("api url = %q", cfg.BotAPIURL)
	}
	if cfg.Media.MaxFileSize != 2000*1024*1024 {
		t.Fatalf("max file size = %d", cfg.Media.MaxFileSize)
	}
}

func TestLoadParsesListsAndDurations(t *testing.T) {
	t.Setenv("TOKEN", "123:abc")
	t.Setenv("OWNER", "1")
	t.Setenv("CHATS", "-1001 -1002,-1003")
	t.Setenv("DELETE_DELAY", "1.5")
	t.Setenv("BATCH_DELAY", "500ms")
	t.Setenv("FFMPEG_TIMEOUT", "90")
	t.Setenv("RECIPIENT_STORE", "Redis")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Chats) != 3 || !cfg.IsAutoDeleteChat(-1002) || cfg.IsAutoDeleteChat(5) {
		t.Fatalf("chats = %v", cfg.Chats)
	}
	if cfg.DeleteDelay != 1500*time.Millisecond {
		t.Fatalf("delete delay = %s", cfg.DeleteDelay)
	}
	if cfg.BatchDelay != 500*time.Millisecond {
		t.Fatalf("batch delay = %s", cfg.BatchDelay)
	}
	if cfg.Media.FFmpegTimeout != 90*time.Second {
		t.Fatalf("ffmpeg timeout = %s", cfg.Media.FFmpegTimeout)
	}
	if cfg.RecipientStore != StoreRedis {
		t.Fatalf("store = %q", cfg.RecipientStore)
	}
}

func TestLoadReportsAllErrors(t *testing.T) {
	t.Setenv("TOKEN", "")
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("OWNER", "")
	t.Setenv("BATCH_SIZE", "abc")
	t.Setenv("RECIPIENT_STORE", "mongo")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"TOKEN is required", "OWNER is required", "BATCH_SIZE", "RECIPIENT_STORE"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestLoadEnvFileDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.env")
	if err := os.WriteFile(path, []byte("# comment\nMNBOT_TEST_A=from_file\nexport MNBOT_TEST_B=\"quoted\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MNBOT_TEST_A", "from_env")
	t.Setenv("MNBOT_TEST_B", "")
	os.Unsetenv("MNBOT_TEST_B")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	if got := os.Getenv("MNBOT_TEST_A"); got != "from_env" {
		t.Fatalf("A = %q", got)
	}
	if got := os.Getenv("MNBOT_TEST_B"); got != "quoted" {
		t.Fatalf("B = %q", got)
	}
	if err := LoadEnvFile(filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("missing file: %v", err)
	}
}
