package transcode

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"testing"
	"time"
)

// newShellTranscoder はffmpegの代わりにシェルスクリプトを実行するTranscoderを作成する
func newShellTranscoder(t *testing.T, script string, idle time.Duration) *Transcoder {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh is not available")
	}

	tr := New(Options{
		Binary:      "sh",
		Profile:     DefaultProfile(),
		IdleTimeout: idle,
		WaitDelay:   500 * time.Millisecond,
	})
	tr.args = func(StartOptions) []string {
		return []string{"-c", script}
	}
	return tr
}

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func TestTranscoder_PassThrough(t *testing.T) {
	tr := newShellTranscoder(t, "cat", 0)
	input := &closeTracker{Reader: strings.NewReader("frame-data-0123456789")}

	proc, err := tr.Start(context.Background(), input, StartOptions{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	out, err := io.ReadAll(proc)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(out) != "frame-data-0123456789" {
		t.Errorf("Expected passthrough output, got %q", out)
	}

	if err := proc.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if !input.closed {
		t.Error("Expected input to be closed")
	}
}

func TestTranscoder_FailureIsReported(t *testing.T) {
	tr := newShellTranscoder(t, "echo partial; echo 'invalid data' >&2; exit 3", 0)

	proc, err := tr.Start(context.Background(), bytes.NewReader(nil), StartOptions{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() { _ = proc.Close() }()

	out, err := io.ReadAll(proc)
	if err == nil {
		t.Fatal("Expected error from failed process")
	}
	if string(out) != "partial\n" {
		t.Errorf("Expected partial output, got %q", out)
	}
	if !strings.Contains(err.Error(), "invalid data") {
		t.Errorf("Expected stderr in error, got %v", err)
	}
}

func TestTranscoder_IdleTimeout(t *testing.T) {
	tr := newShellTranscoder(t, "exec sleep 10", 100*time.Millisecond)

	proc, err := tr.Start(context.Background(), bytes.NewReader(nil), StartOptions{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() { _ = proc.Close() }()

	start := time.Now()
	_, err = io.ReadAll(proc)
	if !errors.Is(err, ErrStalled) {
		t.Fatalf("Expected ErrStalled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Expected process to be stopped quickly, took %v", elapsed)
	}
}

// TestTranscoder_SlowConsumerIsNotStalled は読み手が遅いだけでは停止しないことを確認する
func TestTranscoder_SlowConsumerIsNotStalled(t *testing.T) {
	tr := newShellTranscoder(t, "exec cat", 100*time.Millisecond)

	data := bytes.Repeat([]byte("0123456789abcdef"), 64*1024) // 1MiB
	proc, err := tr.Start(context.Background(), bytes.NewReader(data), StartOptions{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() { _ = proc.Close() }()

	head := make([]byte, 8192)
	if _, err := io.ReadFull(proc, head); err != nil {
		t.Fatalf("ReadFull failed: %v", err)
	}

	// クライアント側の一時停止を想定してIdleTimeoutより長く待つ
	time.Sleep(400 * time.Millisecond)

	rest, err := io.ReadAll(proc)
	if err != nil {
		t.Fatalf("Expected no error after pause, got %v", err)
	}
	if got := len(head) + len(rest); got != len(data) {
		t.Errorf("Expected %d bytes, got %d", len(data), got)
	}
	if !bytes.Equal(append(head, rest...), data) {
		t.Error("Output does not match input")
	}
}

func TestTranscoder_CloseStopsRunningProcess(t *testing.T) {
	tr := newShellTranscoder(t, "exec sleep 10", 0)

	proc, err := tr.Start(context.Background(), bytes.NewReader(nil), StartOptions{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- proc.Close() }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected nil error when closing a running process, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}

	// 2回目のCloseも安全
	if err := proc.Close(); err != nil {
		t.Errorf("Second Close failed: %v", err)
	}
}

func TestTranscoder_ContextCancel(t *testing.T) {
	tr := newShellTranscoder(t, "exec sleep 10", 0)

	ctx, cancel := context.WithCancel(context.Background())
	proc, err := tr.Start(ctx, bytes.NewReader(nil), StartOptions{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() { _ = proc.Close() }()

	time.AfterFunc(50*time.Millisecond, cancel)

	_, err = io.ReadAll(proc)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestTranscoder_StartFailure(t *testing.T) {
	tr := New(Options{Binary: "/nonexistent/ffmpeg", Profile: DefaultProfile()})

	_, err := tr.Start(context.Background(), bytes.NewReader(nil), StartOptions{})
	if err == nil {
		t.Fatal("Expected error for missing binary")
	}
}

func TestValidateFFmpeg_Missing(t *testing.T) {
	if err := ValidateFFmpeg(context.Background(), "/nonexistent/ffmpeg"); err == nil {
		t.Error("Expected error for missing binary")
	}
}

func TestTailBuffer(t *testing.T) {
	tail := &tailBuffer{max: 8}
	_, _ = tail.Write([]byte("0123456789"))
	_, _ = tail.Write([]byte("ab"))

	if got := tail.String(); got != "456789ab" {
		t.Errorf("Expected last 8 bytes, got %q", got)
	}
}
