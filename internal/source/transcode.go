package source

import (
	"context"
	"errors"
	"fmt"
	"io"

	"nagare/internal/transcode"
)

// TranscodeSource は入力ソースをffmpegで変換しながら提供する
// 出力長は事前にわからないため、先頭からの逐次読み出しのみ可能
type TranscodeSource struct {
	input      Source
	transcoder *transcode.Transcoder
	seek       float64
}

// NewTranscodeSource は新しいTranscodeSourceを作成する
func NewTranscodeSource(input Source, transcoder *transcode.Transcoder) *TranscodeSource {
	return &TranscodeSource{
		input:      input,
		transcoder: transcoder,
	}
}

// WithSeek は入力の seconds 秒目から変換するソースを返す
func (s *TranscodeSource) WithSeek(seconds float64) *TranscodeSource {
	clone := *s
	clone.seek = seconds
	return &clone
}

// Stat は変換後のメタデータを返す
// 入力が存在しない場合は入力側のエラーをそのまま返す
func (s *TranscodeSource) Stat(ctx context.Context) (Info, error) {
	in, err := s.input.Stat(ctx)
	if err != nil {
		return Info{}, err
	}

	return Info{
		Size:        -1,
		ContentType: s.transcoder.ContentType(),
		ModTime:     in.ModTime,
		Seekable:    false,
	}, nil
}

// OpenAt は変換プロセスを起動して出力を返す
// offset は 0 のみ受け付ける
//
// 入力が Locator なら、ffmpegにパスかURLを直接渡す。
// 末尾にmoovがあるmp4はパイプからは読めないため、標準入力は最後の手段とする
func (s *TranscodeSource) OpenAt(ctx context.Context, offset, length int64) (io.ReadCloser, error) {
	if offset != 0 {
		return nil, fmt.Errorf("オフセット %d: %w", offset, ErrNotSeekable)
	}

	opts := transcode.StartOptions{SeekSeconds: s.seek}
	if loc, ok := s.input.(Locator); ok {
		location, err := loc.Locate(ctx)
		switch {
		case err == nil:
			opts.Input = location
		case !errors.Is(err, ErrNoLocation):
			return nil, err
		}
	}

	var in io.ReadCloser
	if opts.Input == "" {
		var err error
		in, err = s.input.OpenAt(ctx, 0, -1)
		if err != nil {
			return nil, err
		}
	}

	proc, err := s.transcoder.Start(ctx, in, opts)
	if err != nil {
		if in != nil {
			_ = in.Close()
		}
		return nil, err
	}

	if length >= 0 {
		return &limitedReadCloser{Reader: io.LimitReader(proc, length), Closer: proc}, nil
	}
	return proc, nil
}

type limitedReadCloser struct {
	io.Reader
	io.Closer
}
