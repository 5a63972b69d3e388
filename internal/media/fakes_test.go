package media_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mnbots/mnbot/internal/ffmpeg"
)

type fakeFetcher struct {
	failFiles map[string]bool
	failURLs  map[string]bool
}

func (f *fakeFetcher) FetchFile(_ context.Context, fileID, dest string) (int64, error) {
	if f.failFiles[fileID] {
		return 0, errors.New("file is too big")
	}
	return write(dest, "src:"+fileID)
}

func (f *fakeFetcher) FetchURL(_ context.Context, url, dest string) (int64, error) {
	if f.failURLs[url] {
		return 0, errors.New("status 404")
	}
	return write(dest, "asset:"+url)
}

func write(path, content string) (int64, error) {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return 0, err
	}
	return int64(len(content)), nil
}

// fakeEncoder creates each output file so cleanup has something to remove.
type fakeEncoder struct {
	mu       sync.Mutex
	specs    []ffmpeg.Spec
	execs    [][]string
	probes   map[string]*ffmpeg.Probe
	probe    *ffmpeg.Probe
	probeErr error
	// outputProbeErr fails probes of files other than the first source.
	outputProbeErr error
	runErr         error
	probed         []string
}

func (e *fakeEncoder) Run(_ context.Context, spec ffmpeg.Spec) error {
	e.mu.Lock()
	e.specs = append(e.specs, spec)
	e.mu.Unlock()
	if _, err := write(spec.Output, "encoded"); err != nil {
		return err
	}
	return e.runErr
}

func (e *fakeEncoder) Exec(_ context.Context, name string, args []string) ([]byte, error) {
	e.mu.Lock()
	e.execs = append(e.execs, append([]string{name}, args...))
	e.mu.Unlock()
	if _, err := write(args[len(args)-1], "merged"); err != nil {
		return nil, err
	}
	return nil, e.runErr
}

func (e *fakeEncoder) Probe(_ context.Context, path string) (*ffmpeg.Probe, error) {
	e.mu.Lock()
	e.probed = append(e.probed, path)
	first := len(e.probed) == 1
	e.mu.Unlock()
	if !first && e.outputProbeErr != nil {
		return nil, e.outputProbeErr
	}
	if e.probeErr != nil {
		return nil, e.probeErr
	}
	if p, ok := e.probes[filepath.Base(path)]; ok {
		return p, nil
	}
	return e.probe, nil
}

func videoProbe(duration string, w, h int) *ffmpeg.Probe {
	return &ffmpeg.Probe{
		Format: ffmpeg.Format{Duration: duration},
		Streams: []ffmpeg.Stream{
			{CodecType: "video", CodecName: "h264", Width: w, Height: h},
			{CodecType: "audio", CodecName: "aac"},
		},
	}
}

// assertEmptyDir fails when dir holds anything, i.e. a job leaked a file.
func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read %s: %v", dir, err)
	}
	if len(entries) != 0 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("leaked files in %s: %v", dir, names)
	}
}
