package media

import (
	"context"

	"github.com/mnbots/mnbot/internal/ffmpeg"
	"github.com/mnbots/mnbot/types"
)

// Encoder is the external tool surface plugins use. *ffmpeg.Tool implements it.
type Encoder interface {
	Run(ctx context.Context, spec ffmpeg.Spec) error
	Exec(ctx context.Context, name string, args []string) ([]byte, error)
	Probe(ctx context.Context, path string) (*ffmpeg.Probe, error)
}

// Fetcher downloads attachments and plain URLs. *telegram.Downloader implements it.
type Fetcher interface {
	FetchFile(ctx context.Context, fileID, destPath string) (int64, error)
	FetchURL(ctx context.Context, url, destPath string) (int64, error)
}

// Request is one inbound asset job.
type Request struct {
	ChatID   int64
	ReplyTo  int
	UserID   int64
	Username string
	Files    []types.FileRef
	// NewName is the user-chosen output name for rename and combine.
	NewName  string
	Settings types.Settings
	// StatusMessageID reuses an existing status message, e.g. the queue notice.
	StatusMessageID int
}

// AuxAsset is a file fetched from a fixed URL before the transform.
type AuxAsset struct {
	Name     string
	URL      string
	FileName string
	// Optional assets that fail to download are skipped instead of failing the job.
	Optional bool
}

// Env is what a plugin sees during its transform step.
type Env struct {
	Job     *Job
	Req     Request
	Sources []string
	Probe   *ffmpeg.Probe
	Assets  map[string]string
	Encoder Encoder
}

// Output describes what to deliver. When Text is set, it is sent as a reply
// and no file is uploaded.
type Output struct {
	Path     string
	FileName string
	Kind     types.FileKind
	Caption  string
	Text     string
	// Reprobe asks the pipeline to read upload attributes from Path.
	Reprobe bool
}

type Plugin interface {
	Name() string
	Auxiliary(req Request) []AuxAsset
	// RequiredStream is the stream kind the first source must carry, or "".
	RequiredStream() string
	Transform(ctx context.Context, env *Env) (*Output, error)
}
