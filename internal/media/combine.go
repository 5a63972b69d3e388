package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mnbots/mnbot/internal/ffmpeg"
	"github.com/mnbots/mnbot/internal/messages"
	"github.com/mnbots/mnbot/types"
)

const MinCombineFiles = 2

var (
	ErrTooFewFiles        = errors.New("combine: at least two files are required")
	ErrUnsupportedCombine = errors.New("combine: unsupported file type")
)

// CombinePlugin joins several files of one type: mp4 through the concat
// demuxer, mp3 through the concat filter and pdf through pdftk or qpdf.
type CombinePlugin struct {
	FileType string
	// PDFTool forces "pdftk" or "qpdf". Empty picks whichever is installed.
	PDFTool string
	Now     func() time.Time
}

func (p CombinePlugin) Name() string                 { return "combine" }
func (p CombinePlugin) RequiredStream() string       { return "" }
func (p CombinePlugin) Auxiliary(Request) []AuxAsset { return nil }

func (p CombinePlugin) Transform(ctx context.Context, env *Env) (*Output, error) {
	if len(env.Sources) < MinCombineFiles {
		return nil, ErrTooFewFiles
	}

	name := CleanFilename(env.Req.NewName)
	if name == "" {
		now := time.Now
		if p.Now != nil {
			now = p.Now
		}
		name = "combined_" + now().Format("20060102_150405")
	}
	name += p.FileType
	out := env.Job.Path("combined" + p.FileType)

	var kind types.FileKind
	switch p.FileType {
	case ".mp4":
		list := env.Job.Path("file_list.txt")
		if err := os.WriteFile(list, []byte(ConcatList(env.Sources)), 0o644); err != nil {
			return nil, fmt.Errorf("write concat list: %w", err)
		}
		if err := env.Encoder.Run(ctx, ConcatDemuxerSpec(list, out)); err != nil {
			return nil, err
		}
		kind = types.KindVideo
	case ".mp3":
		if err := env.Encoder.Run(ctx, ConcatFilterSpec(env.Sources, out)); err != nil {
			return nil, err
		}
		kind = types.KindAudio
	case ".pdf":
		tool, args := p.pdfCommand(env.Sources, out)
		if _, err := env.Encoder.Exec(ctx, tool, args); err != nil {
			return nil, err
		}
		kind = types.KindDocument
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCombine, p.FileType)
	}

	info, err := os.Stat(out)
	if err != nil {
		return nil, fmt.Errorf("combined output missing: %w", err)
	}
	return &Output{
		Path:     out,
		FileName: name,
		Kind:     kind,
		Caption:  messages.CombineCaption(len(env.Sources), info.Size()),
		Reprobe:  kind == types.KindVideo,
	}, nil
}

func (p CombinePlugin) pdfCommand(sources []string, out string) (string, []string) {
	tool := p.PDFTool
	if tool == "" {
		tool = "qpdf"
		if ffmpeg.Available("pdftk") {
			tool = "pdftk"
		}
	}
	if tool == "pdftk" {
		args := append(append([]string{}, sources...), "cat", "output", out)
		return tool, args
	}
	args := append([]string{"--empty", "--pages"}, sources...)
	return tool, append(args, "--", out)
}

// ConcatList renders an ffmpeg concat demuxer list.
func ConcatList(paths []string) string {
	var b strings.Builder
	for _, p := range paths {
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(p, "'", `'\''`))
	}
	return b.String()
}

func ConcatDemuxerSpec(list, out string) ffmpeg.Spec {
	return ffmpeg.Spec{
		Inputs: []ffmpeg.Input{{Path: list, Options: []string{"-f", "concat", "-safe", "0"}}},
		Output: out,
		Codec:  "copy",
	}
}

func ConcatFilterSpec(sources []string, out string) ffmpeg.Spec {
	inputs := make([]ffmpeg.Input, 0, len(sources))
	for _, s := range sources {
		inputs = append(inputs, ffmpeg.Input{Path: s})
	}
	return ffmpeg.Spec{
		Inputs:        inputs,
		Output:        out,
		FilterComplex: fmt.Sprintf("concat=n=%d:v=0:a=1", len(sources)),
	}
}
