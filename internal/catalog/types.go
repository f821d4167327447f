package catalog

import (
	"context"
	"regexp"
	"time"

	"nagare/internal/source"
)

// Resource は配信可能な動画1件を表す
type Resource struct {
	Name        string      `json:"name"`         // URL上の名前
	Key         string      `json:"key"`          // バケット内のキー
	ContentType string      `json:"content_type"` // MIMEタイプの明示指定（空なら推定）
	Type        source.Type `json:"type"`         // ソースの種類
	Discovered  bool        `json:"discovered"`   // 自動検出されたか
	AddedAt     time.Time   `json:"added_at"`     // 登録時刻
}

// Discovery は動画ファイルの検出を抽象化する
type Discovery interface {
	// Scan は現在利用可能な動画を返す
	Scan(ctx context.Context) ([]Resource, error)
}

// namePattern はURLに使える名前
var namePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidName は名前がURLに使えるかを返す
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}
