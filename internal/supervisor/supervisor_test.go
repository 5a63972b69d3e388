package supervisor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mnbots/mnbot/internal/supervisor"
)

type sleeps []time.Duration

func (s *sleeps) sleep(ctx context.Context, d time.Duration) error {
	*s = append(*s, d)
	return ctx.Err()
}

func TestRestartsWithDoublingBackoff(t *testing.T) {
	var waits sleeps
	runs := 0
	err := supervisor.Run(context.Background(), "bot", func(context.Context) error {
		runs++
		switch runs {
		case 1:
			return errors.New("network down")
		case 2:
			panic("nil map")
		case 3:
			return errors.New("again")
		}
		return nil
	}, supervisor.Options{MinBackoff: 5 * time.Second, MaxBackoff: 15 * time.Second, Sleep: waits.sleep}, zerolog.Nop())

	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if runs != 4 {
		t.Fatalf("runs = %d, want 4", runs)
	}
	want := []time.Duration{5 * time.Second, 10 * time.Second, 15 * time.Second}
	if len(waits) != len(want) {
		t.Fatalf("waits = %v", waits)
	}
	for i := range want {
		if waits[i] != want[i] {
			t.Fatalf("waits = %v, want %v", waits, want)
		}
	}
}

func TestGivesUpAfterMaxRestarts(t *testing.T) {
	var waits sleeps
	runs := 0
	err := supervisor.Run(context.Background(), "bot", func(context.Context) error {
		runs++
		return errors.New("bad token")
	}, supervisor.Options{MinBackoff: time.Second, MaxRestarts: 2, Sleep: waits.sleep}, zerolog.Nop())

	if !errors.Is(err, supervisor.ErrGaveUp) {
		t.Fatalf("err = %v", err)
	}
	if runs != 3 {
		t.Fatalf("runs = %d, want 3", runs)
	}
}

func TestCancellationStopsCleanly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runs := 0
	err := supervisor.Run(ctx, "bot", func(ctx context.Context) error {
		runs++
		cancel()
		return errors.New("session ended")
	}, supervisor.Options{}, zerolog.Nop())

	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if runs != 1 {
		t.Fatalf("runs = %d", runs)
	}
}
