package source

import (
	"context"
	"errors"
	"io"
	"time"
)

// Source のエラー定義
var (
	ErrNotFound    = errors.New("source: not found")
	ErrNotSeekable = errors.New("source: not seekable")
	ErrNoLocation  = errors.New("source: no direct location")
)

// Info はソースのメタデータ
type Info struct {
	Size        int64     // バイト長（不明な場合は -1）
	ContentType string    // MIMEタイプ
	ModTime     time.Time // 最終更新時刻（不明な場合はゼロ値）
	Seekable    bool      // 任意の位置から読めるか
}

// Source は配信対象のバイト列を提供する
type Source interface {
	// Stat はメタデータを返す
	Stat(ctx context.Context) (Info, error)

	// OpenAt は offset から length バイトを読むリーダーを返す
	// length が負の場合は終端まで読む
	OpenAt(ctx context.Context, offset, length int64) (io.ReadCloser, error)
}

// Locator は外部プロセスが直接開ける場所を返せるソース
// ffmpegにシーク可能な入力を渡すために使う
type Locator interface {
	// Locate はローカルパスかURLを返す
	// 提供できない場合は ErrNoLocation を返す
	Locate(ctx context.Context) (string, error)
}
