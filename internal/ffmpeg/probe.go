package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

type Stream struct {
	Index     int               `json:"index"`
	CodecType string            `json:"codec_type"`
	CodecName string            `json:"codec_name"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Duration  string            `json:"duration"`
	Tags      map[string]string `json:"tags"`
}

type Format struct {
	Filename   string            `json:"filename"`
	FormatName string            `json:"format_name"`
	Duration   string            `json:"duration"`
	Size       string            `json:"size"`
	BitRate    string            `json:"bit_rate"`
	Tags       map[string]string `json:"tags"`
}

// Probe is the subset of ffprobe's JSON report the bot reads.
type Probe struct {
	Format  Format   `json:"format"`
	Streams []Stream `json:"streams"`
}

func (p *Probe) FirstVideo() (Stream, bool) {
	return p.first("video")
}

func (p *Probe) HasAudio() bool {
	_, ok := p.first("audio")
	return ok
}

func (p *Probe) first(kind string) (Stream, bool) {
	if p == nil {
		return Stream{}, false
	}
	for _, s := range p.Streams {
		if s.CodecType == kind {
			return s, true
		}
	}
	return Stream{}, false
}

// DurationSeconds truncates the container duration to whole seconds.
// Unknown or malformed durations yield 0.
func (p *Probe) DurationSeconds() int {
	if p == nil || p.Format.Duration == "" {
		return 0
	}
	d, err := strconv.ParseFloat(p.Format.Duration, 64)
	if err != nil || d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return 0
	}
	return int(d)
}

// Probe runs ffprobe against path.
func (t *Tool) Probe(ctx context.Context, path string) (*Probe, error) {
	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}
	out, err := t.Exec(ctx, t.ffprobe, args)
	if err != nil {
		return nil, err
	}
	return ParseProbe(out)
}

func ParseProbe(data []byte) (*Probe, error) {
	var p Probe
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode ffprobe output: %w", err)
	}
	return &p, nil
}
