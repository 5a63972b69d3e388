package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const (
	DefaultTimeout = 10 * time.Minute
	diagnosticTail = 1500
)

// Runner executes an external program and returns its stdout and stderr.
type Runner interface {
	Run(ctx context.Context, name string, args []string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args []string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// ToolError carries the tail of an external tool's diagnostic output.
type ToolError struct {
	Tool       string
	Diagnostic string
	TimedOut   bool
	Err        error
}

func (e *ToolError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("%s timed out", e.Tool)
	}
	if e.Diagnostic != "" {
		return fmt.Sprintf("%s failed: %v: %s", e.Tool, e.Err, e.Diagnostic)
	}
	return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

type Config struct {
	FFmpegPath  string
	FFprobePath string
	Timeout     time.Duration
}

type Tool struct {
	ffmpeg  string
	ffprobe string
	timeout time.Duration
	runner  Runner
}

func New(cfg Config) *Tool {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Tool{
		ffmpeg:  cfg.FFmpegPath,
		ffprobe: cfg.FFprobePath,
		timeout: cfg.Timeout,
		runner:  execRunner{},
	}
}

// WithRunner swaps the process runner, mainly for tests.
func (t *Tool) WithRunner(r Runner) *Tool {
	t.runner = r
	return t
}

// Run executes ffmpeg for spec.
func (t *Tool) Run(ctx context.Context, spec Spec) error {
	_, err := t.Exec(ctx, t.ffmpeg, spec.Args())
	return err
}

// Exec runs any helper binary under the same timeout and error rules as ffmpeg.
func (t *Tool) Exec(ctx context.Context, name string, args []string) ([]byte, error) {
	runCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	stdout, stderr, err := t.runner.Run(runCtx, name, args)
	if err == nil {
		return stdout, nil
	}

	toolErr := &ToolError{Tool: name, Err: err, Diagnostic: tail(stderr, diagnosticTail)}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		toolErr.TimedOut = true
		toolErr.Err = context.DeadlineExceeded
		if toolErr.Diagnostic == "" {
			toolErr.Diagnostic = fmt.Sprintf("no result after %s", t.timeout)
		}
	}
	return stdout, toolErr
}

// Available reports whether name resolves on PATH.
func Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func tail(b []byte, max int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= max {
		return s
	}
	s = s[len(s)-max:]
	if i := strings.IndexByte(s, '\n'); i >= 0 && i < len(s)-1 {
		s = s[i+1:]
	}
	return s
}
