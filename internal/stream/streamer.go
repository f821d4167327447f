package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// DefaultChunkSize は1回の読み込みで扱う最大バイト数
const DefaultChunkSize = 8 * 1024

// Opener は指定位置からバイト列を読み出せるソース
// length が負の場合は終端まで読む
type Opener interface {
	OpenAt(ctx context.Context, offset, length int64) (io.ReadCloser, error)
}

// Streamer は配信計画をチャンク列として実行する
type Streamer struct {
	ChunkSize      int   // チャンクの最大サイズ
	BytesPerSecond int64 // 1ストリームあたりの帯域上限（0 は無制限）
}

// NewStreamer は新しいStreamerを作成する
func NewStreamer(chunkSize int, bytesPerSecond int64) *Streamer {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Streamer{
		ChunkSize:      chunkSize,
		BytesPerSecond: bytesPerSecond,
	}
}

// Open はソースを plan.Start の位置で開き、配信可能なStreamを返す
// ここでのエラーはヘッダー送信前に発生するため、呼び出し側で500にできる
func (s *Streamer) Open(ctx context.Context, src Opener, plan Plan) (*Stream, error) {
	chunkSize := s.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	st := &Stream{
		plan:      plan,
		chunkSize: chunkSize,
		remaining: plan.ContentLength,
	}

	if s.BytesPerSecond > 0 {
		st.limiter = rate.NewLimiter(rate.Limit(s.BytesPerSecond), chunkSize)
	}

	// 空の窓ではソースを開かない
	if plan.Bounded() && plan.ContentLength == 0 {
		return st, nil
	}

	length := int64(-1)
	if plan.Bounded() {
		length = plan.ContentLength
	}

	rc, err := src.OpenAt(ctx, plan.Start, length)
	if err != nil {
		return nil, fmt.Errorf("ソースを位置 %d で開けません: %w", plan.Start, err)
	}
	st.rc = rc

	return st, nil
}

// Stream は1回限りのチャンク列
type Stream struct {
	plan      Plan
	rc        io.ReadCloser
	chunkSize int
	limiter   *rate.Limiter

	remaining int64
	produced  atomic.Int64
	truncated bool

	started   atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Plan は配信計画を返す
func (st *Stream) Plan() Plan {
	return st.plan
}

// Produced はこれまでに生成したバイト数を返す
func (st *Stream) Produced() int64 {
	return st.produced.Load()
}

// Truncated はソースが計画より早く終端に達したかを返す
func (st *Stream) Truncated() bool {
	return st.truncated
}

// Close はソースを解放する。複数回呼んでもよい
func (st *Stream) Close() error {
	st.closeOnce.Do(func() {
		if st.rc != nil {
			st.closeErr = st.rc.Close()
		}
	})
	return st.closeErr
}

// Chunks はチャンクを遅延生成するシーケンスを返す
//
// 生成されるスライスは次の反復まで有効。窓を使い切るか、ソースが終端に
// 達するか、ctx がキャンセルされると終了し、その時点でソースをクローズする。
// 2回目以降の呼び出しは何も生成しない。
func (st *Stream) Chunks(ctx context.Context) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		if !st.started.CompareAndSwap(false, true) {
			return
		}
		defer func() {
			_ = st.Close()
		}()

		if st.rc == nil {
			return
		}

		buf := make([]byte, st.chunkSize)
		for {
			if st.plan.Bounded() && st.remaining <= 0 {
				return
			}

			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			want := len(buf)
			if st.plan.Bounded() && int64(want) > st.remaining {
				want = int(st.remaining)
			}

			n, err := io.ReadFull(st.rc, buf[:want])
			if n > 0 {
				st.produced.Add(int64(n))
				if st.plan.Bounded() {
					st.remaining -= int64(n)
				}

				if st.limiter != nil {
					if werr := st.limiter.WaitN(ctx, n); werr != nil {
						yield(nil, werr)
						return
					}
				}

				if !yield(buf[:n], nil) {
					return
				}
			}

			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				// 早期終端は切り詰めとして扱い、パディングはしない
				if st.plan.Bounded() && st.remaining > 0 {
					st.truncated = true
				}
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("ソースの読み込みに失敗: %w", err))
				return
			}
		}
	}
}

// Copy はチャンクを順に w へ書き込む
// w が http.Flusher の場合はチャンクごとにフラッシュしてから次を読む
func (st *Stream) Copy(ctx context.Context, w io.Writer) (int64, error) {
	flusher, _ := w.(http.Flusher)

	var written int64
	for chunk, err := range st.Chunks(ctx) {
		if err != nil {
			return written, err
		}

		n, werr := w.Write(chunk)
		written += int64(n)
		if werr != nil {
			return written, fmt.Errorf("チャンクの書き込みに失敗: %w", werr)
		}

		if flusher != nil {
			flusher.Flush()
		}
	}

	return written, nil
}
