package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-telegram/bot"
)

const defaultFileServer = "https://api.telegram.org"

var ErrEmptyFile = errors.New("downloaded file is empty")

// Downloader fetches Telegram attachments and plain URLs to local disk.
type Downloader struct {
	client     Client
	token      string
	serverURL  string
	httpClient *http.Client
}

func NewDownloader(client Client, token string, httpClient *http.Client) *Downloader {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Minute}
	}
	return &Downloader{
		client:     client,
		token:      token,
		serverURL:  defaultFileServer,
		httpClient: httpClient,
	}
}

// WithServerURL points file downloads at a different Bot API server.
func (d *Downloader) WithServerURL(serverURL string) *Downloader {
	d.serverURL = strings.TrimRight(serverURL, "/")
	return d
}

// FetchFile resolves fileID and writes its content to destPath.
func (d *Downloader) FetchFile(ctx context.Context, fileID, destPath string) (int64, error) {
	fileInfo, err := d.client.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return 0, fmt.Errorf("get file %s: %w", fileID, err)
	}
	if fileInfo == nil || strings.TrimSpace(fileInfo.FilePath) == "" {
		return 0, fmt.Errorf("get file %s: %w", fileID, ErrEmptyFile)
	}

	fileURL := fmt.Sprintf("%s/file/bot%s/%s", d.serverURL, d.token, fileInfo.FilePath)
	return d.FetchURL(ctx, fileURL, destPath)
}

// FetchURL downloads rawURL into destPath. A partial file is removed on failure.
func (d *Downloader) FetchURL(ctx context.Context, rawURL, destPath string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, err
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, redactToken(err, d.token)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download failed: status %d", resp.StatusCode)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n == 0 {
		err = ErrEmptyFile
	}
	if err != nil {
		_ = os.Remove(destPath)
		return 0, redactToken(err, d.token)
	}
	return n, nil
}

// redactToken masks the bot token in the URL of a *url.Error. The error chain
// is left intact.
func redactToken(err error, token string) error {
	if err == nil || token == "" {
		return err
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		ue.URL = strings.ReplaceAll(ue.URL, "/bot"+token+"/", "/bot<token>/")
	}
	return err
}
