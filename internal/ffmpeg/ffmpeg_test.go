package ffmpeg_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mnbots/mnbot/internal/ffmpeg"
)

func TestSpecArgs(t *testing.T) {
	spec := ffmpeg.Spec{
		Inputs: []ffmpeg.Input{
			{Path: "/w/src.mp4"},
			{Path: "/w/thumb.jpg"},
		},
		Output: "/w/out.mp4",
		Maps:   []string{"0:v", "0:a?", "1:v"},
		Codec:  "copy",
		Metadata: []ffmpeg.Metadata{
			{Key: "title", Value: "clip"},
			{Stream: "s:v:1", Key: "title", Value: "Thumbnail"},
		},
		Extra: []string{"-disposition:v:1", "attached_pic", "-movflags", "faststart"},
	}

	want := []string{
		"-hide_banner", "-y",
		"-i", "/w/src.mp4",
		"-i", "/w/thumb.jpg",
		"-map", "0:v", "-map", "0:a?", "-map", "1:v",
		"-c", "copy",
		"-metadata", "title=clip",
		"-metadata:s:v:1", "title=Thumbnail",
		"-disposition:v:1", "attached_pic", "-movflags", "faststart",
		"/w/out.mp4",
	}
	if got := spec.Args(); strings.Join(got, " ") != strings.Join(want, " ") {
		t.Fatalf("args:\n got %q\nwant %q", got, want)
	}
}

func TestSpecArgsInputOptionsAndFilters(t *testing.T) {
	spec := ffmpeg.Spec{
		Inputs:        []ffmpeg.Input{{Path: "list.txt", Options: []string{"-f", "concat", "-safe", "0"}}},
		Output:        "out.mp4",
		FilterComplex: "[0:v]null[v]",
		VideoFilter:   "scale=320:-1",
		VideoCodec:    "libx264",
		AudioCodec:    "copy",
	}
	got := strings.Join(spec.Args(), " ")
	want := "-hide_banner -y -f concat -safe 0 -i list.txt -filter_complex [0:v]null[v] -vf scale=320:-1 -c:v libx264 -c:a copy out.mp4"
	if got != want {
		t.Fatalf("args = %q", got)
	}
}

func TestEscapeFilterValue(t *testing.T) {
	tests := map[string]string{
		"/tmp/plain.txt": "/tmp/plain.txt",
		"/tmp/a:b.txt":   `/tmp/a\\:b.txt`,
		"x,y":            `x\,y`,
	}
	for in, want := range tests {
		if got := ffmpeg.EscapeFilterValue(in); got != want {
			t.Errorf("EscapeFilterValue(%q) = %q, want %q", in, got, want)
		}
	}
}

type fakeRunner struct {
	name   string
	args   []string
	stdout string
	stderr string
	err    error
	block  bool
}

func (f *fakeRunner) Run(ctx context.Context, name string, args []string) ([]byte, []byte, error) {
	f.name = name
	f.args = args
	if f.block {
		<-ctx.Done()
		return nil, []byte("frame=  10"), ctx.Err()
	}
	return []byte(f.stdout), []byte(f.stderr), f.err
}

func TestRunReturnsToolErrorWithDiagnostic(t *testing.T) {
	runner := &fakeRunner{stderr: "Input #0\nsrc.mp4: Invalid data found when processing input\n", err: errors.New("exit status 1")}
	tool := ffmpeg.New(ffmpeg.Config{FFmpegPath: "/usr/bin/ffmpeg"}).WithRunner(runner)

	err := tool.Run(context.Background(), ffmpeg.Spec{Inputs: []ffmpeg.Input{{Path: "src.mp4"}}, Output: "out.mp4"})
	var toolErr *ffmpeg.ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("err = %T %v", err, err)
	}
	if !strings.Contains(toolErr.Diagnostic, "Invalid data found") {
		t.Fatalf("diagnostic = %q", toolErr.Diagnostic)
	}
	if toolErr.TimedOut {
		t.Fatal("unexpected timeout flag")
	}
	if runner.name != "/usr/bin/ffmpeg" {
		t.Fatalf("ran %q", runner.name)
	}
}

func TestRunTimeout(t *testing.T) {
	runner := &fakeRunner{block: true}
	tool := ffmpeg.New(ffmpeg.Config{Timeout: 20 * time.Millisecond}).WithRunner(runner)

	err := tool.Run(context.Background(), ffmpeg.Spec{Output: "out.mp4"})
	var toolErr *ffmpeg.ToolError
	if !errors.As(err, &toolErr) || !toolErr.TimedOut {
		t.Fatalf("err = %v, want timeout ToolError", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err does not unwrap to DeadlineExceeded: %v", err)
	}
}

func TestRunParentCancelIsNotTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tool := ffmpeg.New(ffmpeg.Config{}).WithRunner(&fakeRunner{block: true})

	err := tool.Run(ctx, ffmpeg.Spec{Output: "out.mp4"})
	var toolErr *ffmpeg.ToolError
	if !errors.As(err, &toolErr) || toolErr.TimedOut {
		t.Fatalf("err = %v", err)
	}
}

const probeJSON = `{
  "streams": [
    {"index": 0, "codec_type": "video", "codec_name": "h264", "width": 1280, "height": 720},
    {"index": 1, "codec_type": "audio", "codec_name": "aac"}
  ],
  "format": {"filename": "src.mp4", "duration": "61.480000", "tags": {"title": "Clip", "encoder": "Lavf60"}}
}`

func TestProbe(t *testing.T) {
	runner := &fakeRunner{stdout: probeJSON}
	tool := ffmpeg.New(ffmpeg.Config{FFprobePath: "ffprobe"}).WithRunner(runner)

	p, err := tool.Probe(context.Background(), "src.mp4")
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if runner.name != "ffprobe" || runner.args[len(runner.args)-1] != "src.mp4" {
		t.Fatalf("ran %s %v", runner.name, runner.args)
	}
	v, ok := p.FirstVideo()
	if !ok || v.Width != 1280 || v.Height != 720 {
		t.Fatalf("video = %+v %v", v, ok)
	}
	if !p.HasAudio() {
		t.Fatal("expected audio")
	}
	if p.DurationSeconds() != 61 {
		t.Fatalf("duration = %d", p.DurationSeconds())
	}
	if p.Format.Tags["title"] != "Clip" {
		t.Fatalf("tags = %v", p.Format.Tags)
	}
}

func TestProbeWithoutVideo(t *testing.T) {
	p, err := ffmpeg.ParseProbe([]byte(`{"streams":[{"codec_type":"audio"}],"format":{"duration":"N/A"}}`))
	if err != nil {
		t.Fatalf("ParseProbe: %v", err)
	}
	if _, ok := p.FirstVideo(); ok {
		t.Fatal("unexpected video stream")
	}
	if p.DurationSeconds() != 0 {
		t.Fatalf("duration = %d", p.DurationSeconds())
	}
}

func TestParseProbeRejectsGarbage(t *testing.T) {
	if _, err := ffmpeg.ParseProbe([]byte("not json")); err == nil {
		t.Fatal("expected error")
	}
}
