package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func newTestSpinner(ctx context.Context, message string) (*Spinner, *bytes.Buffer) {
	var buf bytes.Buffer
	s := newSpinnerWithContext(ctx, message)
	s.out = &buf
	return s, &buf
}

func TestSpinnerDrawsMessage(t *testing.T) {
	s, buf := newTestSpinner(context.Background(), "Connecting to store...")
	s.Start()
	time.Sleep(150 * time.Millisecond)
	s.Stop()

	if !strings.Contains(buf.String(), "Connecting to store...") {
		t.Errorf("output %q does not contain the message", buf.String())
	}
	if !strings.HasSuffix(buf.String(), "\r") {
		t.Error("Stop should leave the line cleared")
	}
}

func TestSpinnerSetMessage(t *testing.T) {
	s, buf := newTestSpinner(context.Background(), "Connecting to store...")
	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.SetMessage("Pushing portal...")
	time.Sleep(150 * time.Millisecond)
	s.Stop()

	out := buf.String()
	first := strings.Index(out, "Connecting to store...")
	second := strings.LastIndex(out, "Pushing portal...")
	if first < 0 || second < first {
		t.Errorf("messages not drawn in order: %q", out)
	}
	if strings.Contains(out[second:], "Connecting") {
		t.Error("old message drawn after SetMessage")
	}
}

func TestSpinnerCancelled(t *testing.T) {
	tests := []struct {
		name string
		ctx  func() (context.Context, context.CancelFunc)
		want bool
	}{
		{"running", func() (context.Context, context.CancelFunc) {
			return context.WithCancel(context.Background())
		}, false},
		{"parent cancelled", func() (context.Context, context.CancelFunc) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			return ctx, cancel
		}, true},
		{"parent timed out", func() (context.Context, context.CancelFunc) {
			return context.WithTimeout(context.Background(), time.Millisecond)
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := tt.ctx()
			defer cancel()
			s, _ := newTestSpinner(ctx, "Pushing...")
			s.Start()
			time.Sleep(20 * time.Millisecond)
			if got := s.Cancelled(); got != tt.want {
				t.Errorf("Cancelled() = %v, want %v", got, tt.want)
			}
			s.Stop()
		})
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s, _ := newTestSpinner(context.Background(), "Pushing...")
	s.Start()
	s.Stop()
	s.Stop()
}

func TestSpinnerStopAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s, _ := newTestSpinner(ctx, "Pushing...")
	s.Start()
	cancel()
	s.StopWithError("Push cancelled")
}
