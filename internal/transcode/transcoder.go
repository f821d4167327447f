package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// デフォルト値
const (
	DefaultBinary      = "ffmpeg"
	DefaultIdleTimeout = 30 * time.Second
	DefaultWaitDelay   = 2 * time.Second
)

// ErrStalled は一定時間ffmpegから出力がなかったことを表す
var ErrStalled = errors.New("transcode: 出力が停止しました")

// Options はTranscoderの設定
type Options struct {
	Binary      string        // ffmpegの実行ファイル
	Profile     Profile       // エンコード設定
	IdleTimeout time.Duration // 出力が途絶えてからプロセスを止めるまでの時間（0 で無効）
	WaitDelay   time.Duration // 終了後にパイプを強制的に閉じるまでの猶予
}

// Transcoder はffmpegプロセスを起動して入力を変換する
type Transcoder struct {
	opts Options
	args func(StartOptions) []string
}

// New は新しいTranscoderを作成する
func New(opts Options) *Transcoder {
	if opts.Binary == "" {
		opts.Binary = DefaultBinary
	}
	if opts.WaitDelay <= 0 {
		opts.WaitDelay = DefaultWaitDelay
	}
	return &Transcoder{
		opts: opts,
		args: opts.Profile.Args,
	}
}

// Profile はエンコード設定を返す
func (t *Transcoder) Profile() Profile {
	return t.opts.Profile
}

// ContentType は出力のMIMEタイプを返す
func (t *Transcoder) ContentType() string {
	return t.opts.Profile.ContentType()
}

// Start はプロセスを起動する
// input は標準入力へ渡され、プロセスの終了時にクローズされる。
// opts.Input を指定した場合、ffmpegはそちらを直接開くため input は nil でよい
func (t *Transcoder) Start(ctx context.Context, input io.Reader, opts StartOptions) (*Process, error) {
	procCtx, cancel := context.WithCancel(ctx)

	args := t.args(opts)
	cmd := exec.CommandContext(procCtx, t.opts.Binary, args...)
	cmd.Stdin = input
	cmd.WaitDelay = t.opts.WaitDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stdoutパイプの作成に失敗: %w", err)
	}

	// stderrはデバッグログへ流し、末尾だけエラー用に残す
	logWriter := log.WithField("binary", t.opts.Binary).WriterLevel(log.DebugLevel)
	tail := &tailBuffer{max: 4096}
	cmd.Stderr = io.MultiWriter(logWriter, tail)

	if err := cmd.Start(); err != nil {
		cancel()
		_ = logWriter.Close()
		return nil, fmt.Errorf("%sの起動に失敗: %w", t.opts.Binary, err)
	}

	log.Debugf("トランスコードを開始: %s %v", t.opts.Binary, args)

	p := &Process{
		ctx:       ctx,
		cmd:       cmd,
		stdout:    stdout,
		cancel:    cancel,
		logWriter: logWriter,
		tail:      tail,
		idle:      t.opts.IdleTimeout,
	}
	if closer, ok := input.(io.Closer); ok {
		p.input = closer
	}
	if p.idle > 0 {
		// Read の実行中だけ動かす
		p.watchdog = time.AfterFunc(p.idle, p.stall)
		p.watchdog.Stop()
	}

	return p, nil
}

// Process は実行中のffmpegプロセス
// 標準出力を io.ReadCloser として読み出せる
type Process struct {
	ctx       context.Context
	cmd       *exec.Cmd
	stdout    io.ReadCloser
	cancel    context.CancelFunc
	input     io.Closer
	logWriter io.Closer
	tail      *tailBuffer

	idle     time.Duration
	watchdog *time.Timer // Read の実行中のみ動作する
	stalled  atomic.Bool

	waitOnce sync.Once
	waitErr  error

	closeOnce sync.Once
	closeErr  error
}

func (p *Process) stall() {
	p.stalled.Store(true)
	log.Warnf("ffmpegの出力が %v 途絶えたため停止します", p.idle)
	p.cancel()
}

// Read は変換済みのバイト列を読み込む
// IdleTimeout は読み込みでブロックしている時間だけを数える。
// 呼び出し側が次の Read を遅らせても停止しない
func (p *Process) Read(b []byte) (int, error) {
	if p.watchdog != nil {
		p.watchdog.Reset(p.idle)
	}
	n, err := p.stdout.Read(b)
	if p.watchdog != nil {
		p.watchdog.Stop()
	}
	if err == nil {
		return n, nil
	}

	if errors.Is(err, io.EOF) {
		// 出力の終端ではプロセスの終了状態を確認する
		if exitErr := p.exitError(); exitErr != nil {
			return n, exitErr
		}
		return n, io.EOF
	}
	if p.stalled.Load() {
		return n, ErrStalled
	}
	return n, err
}

// Close はプロセスを停止して資源を解放する。複数回呼んでもよい
// 自発的に異常終了していた場合のみエラーを返す
func (p *Process) Close() error {
	p.closeOnce.Do(func() {
		if p.watchdog != nil {
			p.watchdog.Stop()
		}
		p.cancel()

		err := p.wait()

		if p.input != nil {
			_ = p.input.Close()
		}
		_ = p.logWriter.Close()

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.Exited() && !p.stalled.Load() {
			p.closeErr = fmt.Errorf("ffmpegが異常終了: %w (stderr: %s)", err, p.tail.String())
		}
	})
	return p.closeErr
}

func (p *Process) wait() error {
	p.waitOnce.Do(func() {
		p.waitErr = p.cmd.Wait()
	})
	return p.waitErr
}

// exitError は出力終端時のプロセス状態をエラーに変換する
func (p *Process) exitError() error {
	err := p.wait()

	switch {
	case p.stalled.Load():
		return ErrStalled
	case p.ctx.Err() != nil:
		return p.ctx.Err()
	case err == nil, errors.Is(err, exec.ErrWaitDelay):
		return nil
	default:
		return fmt.Errorf("ffmpegが異常終了: %w (stderr: %s)", err, p.tail.String())
	}
}

// tailBuffer は書き込まれたデータの末尾だけを保持する
type tailBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (t *tailBuffer) Write(b []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf.Write(b)
	if over := t.buf.Len() - t.max; over > 0 {
		t.buf.Next(over)
	}
	return len(b), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(bytes.TrimSpace(t.buf.Bytes()))
}

// ValidateFFmpeg はffmpegが実行可能かチェックする
func ValidateFFmpeg(ctx context.Context, binary string) error {
	if binary == "" {
		binary = DefaultBinary
	}

	cmd := exec.CommandContext(ctx, binary, "-hide_banner", "-version")
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%sを実行できません: %w (output: %s)", binary, err, string(output))
	}
	return nil
}
