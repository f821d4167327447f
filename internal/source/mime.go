package source

import (
	"path"
	"strings"
)

// DefaultContentType は種類が判別できない場合のMIMEタイプ
const DefaultContentType = "application/octet-stream"

// videoTypes は拡張子ごとの動画MIMEタイプ
var videoTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".mov":  "video/quicktime",
	".ts":   "video/mp2t",
	".ogv":  "video/ogg",
	".avi":  "video/x-msvideo",
}

// ContentTypeByExt はキーの拡張子からMIMEタイプを推定する
func ContentTypeByExt(key string) string {
	if ct, ok := videoTypes[strings.ToLower(path.Ext(key))]; ok {
		return ct
	}
	return DefaultContentType
}

// IsVideo はキーが動画ファイルの拡張子を持つかを返す
func IsVideo(key string) bool {
	_, ok := videoTypes[strings.ToLower(path.Ext(key))]
	return ok
}

// detectContentType は明示指定、ストレージ属性、拡張子の順でMIMEタイプを決める
func detectContentType(override, stored, key string) string {
	if override != "" {
		return override
	}
	if stored != "" && !strings.HasPrefix(stored, DefaultContentType) {
		return stored
	}
	return ContentTypeByExt(key)
}
