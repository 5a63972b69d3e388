package media

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mnbots/mnbot/internal/ffmpeg"
	"github.com/mnbots/mnbot/internal/messages"
	"github.com/mnbots/mnbot/types"
)

const (
	imageWatermarkAlpha = 0.7
	textWatermarkAlpha  = 0.8
	textWatermarkSize   = 24
)

// WatermarkPlugin overlays an image in the top-left corner and a caption
// centred at the bottom, then re-encodes the video.
type WatermarkPlugin struct {
	ImageURL string
	Text     string
	Font     string
}

func (p WatermarkPlugin) Name() string           { return "watermark" }
func (p WatermarkPlugin) RequiredStream() string { return "video" }

func (p WatermarkPlugin) Auxiliary(Request) []AuxAsset {
	if p.ImageURL == "" {
		return nil
	}
	return []AuxAsset{{Name: "watermark image", URL: p.ImageURL, FileName: "watermark.png", Optional: true}}
}

func (p WatermarkPlugin) Transform(ctx context.Context, env *Env) (*Output, error) {
	textFile, err := writeTextFile(env.Job, "watermark.txt", p.Text)
	if err != nil {
		return nil, err
	}
	title := baseTitle(env.Req.Files[0], "video")
	name := "watermarked_" + title + ".mp4"
	out := env.Job.Path(name)

	spec := WatermarkSpec(env.Sources[0], env.Assets["watermark image"], textFile, p.Font, out)
	if err := env.Encoder.Run(ctx, spec); err != nil {
		return nil, err
	}
	return &Output{
		Path:     out,
		FileName: name,
		Kind:     types.KindVideo,
		Caption:  messages.WatermarkCaption(p.Text, title),
		Reprobe:  true,
	}, nil
}

// WatermarkSpec re-encodes src with libx264. image may be empty, in which
// case only the text overlay is drawn. Audio is copied when present.
func WatermarkSpec(src, image, textFile, font, out string) ffmpeg.Spec {
	drawtext := drawtextFilter(textFile, font, textWatermarkSize, textWatermarkAlpha, "(w-text_w)/2", "h-text_h-10")

	inputs := []ffmpeg.Input{{Path: src}}
	var graph string
	if image != "" {
		inputs = append(inputs, ffmpeg.Input{Path: image})
		graph = fmt.Sprintf("[1:v]format=rgba,colorchannelmixer=aa=%.1f[wm];[0:v][wm]overlay=x=10:y=10[bg];[bg]%s[v]",
			imageWatermarkAlpha, drawtext)
	} else {
		graph = fmt.Sprintf("[0:v]%s[v]", drawtext)
	}

	return ffmpeg.Spec{
		Inputs:        inputs,
		Output:        out,
		FilterComplex: graph,
		Maps:          []string{"[v]", "0:a?"},
		VideoCodec:    "libx264",
		AudioCodec:    "copy",
		Extra:         []string{"-preset", "medium", "-crf", "26", "-pix_fmt", "yuv420p", "-movflags", "faststart"},
	}
}

func drawtextFilter(textFile, font string, size int, alpha float64, x, y string) string {
	opts := []string{}
	if font != "" {
		opts = append(opts, "fontfile="+ffmpeg.EscapeFilterValue(font))
	}
	opts = append(opts,
		"textfile="+ffmpeg.EscapeFilterValue(textFile),
		fmt.Sprintf("fontcolor=white@%.2g", alpha),
		fmt.Sprintf("fontsize=%d", size),
		"x="+x,
		"y="+y,
	)
	return "drawtext=" + strings.Join(opts, ":")
}

// writeTextFile stores overlay text in the job dir so drawtext reads it
// verbatim without filter escaping.
func writeTextFile(job *Job, name, text string) (string, error) {
	path := job.Path(name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}
