package media

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mnbots/mnbot/internal/ffmpeg"
	"github.com/mnbots/mnbot/internal/formats"
	"github.com/mnbots/mnbot/internal/messages"
	"github.com/mnbots/mnbot/types"
)

var ErrNoName = errors.New("rename: new name is empty")

// WatermarkPositions maps a user position onto drawtext x and y expressions.
var WatermarkPositions = map[string][2]string{
	"top-left":     {"10", "10"},
	"top-right":    {"main_w-text_w-10", "10"},
	"bottom-left":  {"10", "main_h-text_h-10"},
	"bottom-right": {"main_w-text_w-10", "main_h-text_h-10"},
	"center":       {"(main_w-text_w)/2", "(main_h-text_h)/2"},
}

// RenamePlugin re-uploads a file under a new name, applying the user's text
// watermark and metadata settings where the format supports them.
type RenamePlugin struct {
	Font string
}

func (p RenamePlugin) Name() string                 { return "rename" }
func (p RenamePlugin) RequiredStream() string       { return "" }
func (p RenamePlugin) Auxiliary(Request) []AuxAsset { return nil }

func (p RenamePlugin) Transform(ctx context.Context, env *Env) (*Output, error) {
	ref := env.Req.Files[0]
	settings := env.Req.Settings
	if CleanFilename(env.Req.NewName) == "" {
		return nil, ErrNoName
	}

	ext := formats.Extension(ref)
	current := env.Sources[0]
	processed := false

	if strings.TrimSpace(settings.WatermarkText) != "" && (formats.IsVideo(ext) || formats.IsImage(ext)) {
		textFile, err := writeTextFile(env.Job, "rename_watermark.txt", settings.WatermarkText)
		if err != nil {
			return nil, err
		}
		out := env.Job.Path("watermarked" + ext)
		if err := env.Encoder.Run(ctx, TextWatermarkSpec(current, textFile, p.Font, out, settings, formats.IsImage(ext))); err != nil {
			return nil, err
		}
		current, processed = out, true
	}

	if settings.HasMetadata() && (formats.IsVideo(ext) || formats.IsAudio(ext)) {
		out := env.Job.Path("tagged" + ext)
		if err := env.Encoder.Run(ctx, MetadataSpec(current, out, settings, formats.IsAudio(ext))); err != nil {
			return nil, err
		}
		current, processed = out, true
	}

	original := ref.FileName
	if original == "" {
		original = "file" + ext
	}
	kind := formats.UploadKind(ref)
	return &Output{
		Path:     current,
		FileName: FinalName(settings, env.Req.NewName, ext),
		Kind:     kind,
		Caption:  messages.RenameCaption(env.Req.Username, original),
		Reprobe:  processed && kind == types.KindVideo,
	}, nil
}

// TextWatermarkSpec draws the user's watermark text. Images are written as a
// single frame; videos keep their audio.
func TextWatermarkSpec(src, textFile, font, out string, s types.Settings, image bool) ffmpeg.Spec {
	pos, ok := WatermarkPositions[s.WatermarkPosition]
	if !ok {
		pos = WatermarkPositions[types.DefaultWatermarkPosition]
	}
	size := s.WatermarkSize
	if size <= 0 {
		size = types.DefaultWatermarkSize
	}
	alpha := float64(s.WatermarkOpacity) / 100

	spec := ffmpeg.Spec{
		Inputs:      []ffmpeg.Input{{Path: src}},
		Output:      out,
		VideoFilter: drawtextFilter(textFile, font, size, alpha, pos[0], pos[1]),
	}
	if image {
		spec.Extra = []string{"-frames:v", "1"}
		return spec
	}
	spec.AudioCodec = "copy"
	return spec
}

// MetadataSpec rewrites container tags without re-encoding. Video files only
// get a title.
func MetadataSpec(src, out string, s types.Settings, audio bool) ffmpeg.Spec {
	spec := ffmpeg.Spec{
		Inputs: []ffmpeg.Input{{Path: src}},
		Output: out,
		Codec:  "copy",
	}
	add := func(key, value string) {
		if value != "" {
			spec.Metadata = append(spec.Metadata, ffmpeg.Metadata{Key: key, Value: value})
		}
	}
	add("title", s.MetadataTitle)
	if audio {
		add("artist", s.MetadataArtist)
		add("album", s.MetadataAlbum)
	}
	return spec
}

// ParseWatermarkArgs splits "/setwatermark" arguments into the text and its
// position=, opacity= and size= options.
func ParseWatermarkArgs(args string) (types.Settings, error) {
	s := types.DefaultSettings()
	var text []string
	for _, part := range strings.Fields(args) {
		key, value, found := strings.Cut(part, "=")
		if !found {
			text = append(text, part)
			continue
		}
		switch strings.ToLower(key) {
		case "position":
			value = strings.ToLower(value)
			if _, ok := WatermarkPositions[value]; !ok {
				return s, fmt.Errorf("unknown position %q", value)
			}
			s.WatermarkPosition = value
		case "opacity":
			n, err := parseBounded(key, value, 0, 100)
			if err != nil {
				return s, err
			}
			s.WatermarkOpacity = n
		case "size":
			n, err := parseBounded(key, value, 10, 50)
			if err != nil {
				return s, err
			}
			s.WatermarkSize = n
		default:
			text = append(text, part)
		}
	}
	s.WatermarkText = strings.Join(text, " ")
	return s, nil
}

func parseBounded(key, value string, lo, hi int) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", key)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%s must be between %d and %d", key, lo, hi)
	}
	return n, nil
}

// ParseMetadataArgs reads key="value" pairs. Unquoted single-word values are
// accepted too. Keys are lower-cased.
func ParseMetadataArgs(args string) map[string]string {
	out := map[string]string{}
	rest := strings.TrimSpace(args)
	for rest != "" {
		eq := strings.IndexByte(rest, '=')
		if eq <= 0 {
			break
		}
		key := strings.ToLower(strings.TrimSpace(rest[:eq]))
		rest = strings.TrimLeft(rest[eq+1:], " ")

		var value string
		if strings.HasPrefix(rest, `"`) {
			end := strings.IndexByte(rest[1:], '"')
			if end < 0 {
				value, rest = rest[1:], ""
			} else {
				value, rest = rest[1:end+1], rest[end+2:]
			}
		} else {
			sp := strings.IndexByte(rest, ' ')
			if sp < 0 {
				value, rest = rest, ""
			} else {
				value, rest = rest[:sp], rest[sp+1:]
			}
		}
		if key != "" && !strings.ContainsAny(key, " \"") {
			out[key] = strings.TrimSpace(value)
		}
		rest = strings.TrimSpace(rest)
	}
	return out
}
