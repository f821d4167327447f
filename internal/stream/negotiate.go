package stream

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// HTTPヘッダー名
const (
	HeaderRange         = "Range"
	HeaderContentRange  = "Content-Range"
	HeaderAcceptRanges  = "Accept-Ranges"
	HeaderContentLength = "Content-Length"
	HeaderContentType   = "Content-Type"
)

const rangeUnit = "bytes"

// ErrRangeNotSatisfiable はRangeヘッダーから有効な窓を作れないことを表す
var ErrRangeNotSatisfiable = errors.New("stream: range not satisfiable")

// RangeError は満たせないRange要求の詳細を保持する
type RangeError struct {
	Header string // 受け取ったヘッダー値
	Size   int64  // リソース長（不明な場合は -1）
	Reason string // 失敗理由
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("stream: range %q not satisfiable (size=%d): %s", e.Header, e.Size, e.Reason)
}

// Is は errors.Is(err, ErrRangeNotSatisfiable) を成立させる
func (e *RangeError) Is(target error) bool {
	return target == ErrRangeNotSatisfiable
}

// ContentRange は416応答に付けるContent-Range値を返す
func (e *RangeError) ContentRange() string {
	if e.Size < 0 {
		return ""
	}
	return fmt.Sprintf("%s */%d", rangeUnit, e.Size)
}

// RangeRequest は解析済みのRangeヘッダー
type RangeRequest struct {
	Start  int64
	End    int64 // HasEnd が false の場合は無意味
	HasEnd bool
}

// ParseRange は "bytes=<start>-<end>" 形式のヘッダーを解析する
// start は必須、end は省略可能
func ParseRange(header string) (RangeRequest, error) {
	set, ok := strings.CutPrefix(header, rangeUnit+"=")
	if !ok {
		return RangeRequest{}, fmt.Errorf("単位が %s ではありません", rangeUnit)
	}

	startText, endText, ok := strings.Cut(set, "-")
	if !ok {
		return RangeRequest{}, errors.New("区切り文字 '-' がありません")
	}

	if startText == "" {
		return RangeRequest{}, errors.New("開始位置がありません")
	}
	start, err := parseOffset(startText)
	if err != nil {
		return RangeRequest{}, fmt.Errorf("開始位置が不正: %w", err)
	}

	req := RangeRequest{Start: start}
	if endText != "" {
		end, err := parseOffset(endText)
		if err != nil {
			return RangeRequest{}, fmt.Errorf("終了位置が不正: %w", err)
		}
		req.End = end
		req.HasEnd = true
	}

	return req, nil
}

// parseOffset は10進数の非負整数だけを受け付ける
func parseOffset(s string) (int64, error) {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("数値ではありません: %q", s)
		}
	}
	return strconv.ParseInt(s, 10, 64)
}

// Plan は1リクエスト分の配信計画
type Plan struct {
	Status        int   // 200 または 206
	Start         int64 // 窓の開始位置
	End           int64 // 窓の終了位置（含む）
	ContentLength int64 // 配信バイト数（不明な場合は -1）
	Total         int64 // リソース長（不明な場合は -1）
	ContentType   string
	Header        http.Header
}

// Bounded は配信バイト数が決まっているかを返す
func (p Plan) Bounded() bool {
	return p.ContentLength >= 0
}

// Partial は部分配信（206）かを返す
func (p Plan) Partial() bool {
	return p.Status == http.StatusPartialContent
}

// ApplyHeader は計画のヘッダーを h に書き込む
func (p Plan) ApplyHeader(h http.Header) {
	for key, values := range p.Header {
		h[key] = append([]string(nil), values...)
	}
}

// Negotiate はRangeヘッダーとリソース長から配信計画を決める
// 空のヘッダーは「Rangeなし」として扱う
func Negotiate(rangeHeader string, size int64, contentType string) (Plan, error) {
	if size < 0 {
		return Plan{}, fmt.Errorf("stream: 無効なリソース長: %d", size)
	}

	if rangeHeader == "" {
		return Full(size, contentType), nil
	}

	req, err := ParseRange(rangeHeader)
	if err != nil {
		return Plan{}, &RangeError{Header: rangeHeader, Size: size, Reason: err.Error()}
	}

	end := size - 1
	if req.HasEnd {
		end = req.End
	}

	switch {
	case req.Start >= size:
		return Plan{}, &RangeError{Header: rangeHeader, Size: size, Reason: "開始位置がリソース長以上です"}
	case end >= size:
		return Plan{}, &RangeError{Header: rangeHeader, Size: size, Reason: "終了位置がリソース長以上です"}
	case req.Start > end:
		return Plan{}, &RangeError{Header: rangeHeader, Size: size, Reason: "開始位置が終了位置より後ろです"}
	}

	length := end - req.Start + 1
	header := http.Header{}
	header.Set(HeaderContentRange, fmt.Sprintf("%s %d-%d/%d", rangeUnit, req.Start, end, size))
	header.Set(HeaderAcceptRanges, rangeUnit)
	header.Set(HeaderContentLength, strconv.FormatInt(length, 10))
	header.Set(HeaderContentType, contentType)

	return Plan{
		Status:        http.StatusPartialContent,
		Start:         req.Start,
		End:           end,
		ContentLength: length,
		Total:         size,
		ContentType:   contentType,
		Header:        header,
	}, nil
}

// Full はリソース全体を配信する計画を返す
func Full(size int64, contentType string) Plan {
	header := http.Header{}
	header.Set(HeaderContentLength, strconv.FormatInt(size, 10))
	header.Set(HeaderContentType, contentType)
	header.Set(HeaderAcceptRanges, rangeUnit)

	return Plan{
		Status:        http.StatusOK,
		Start:         0,
		End:           size - 1,
		ContentLength: size,
		Total:         size,
		ContentType:   contentType,
		Header:        header,
	}
}

// Sequential は長さ不明でシーク不可能なソース用の計画を返す
// Content-Lengthを付けないため、応答はチャンク転送になる
func Sequential(contentType string) Plan {
	header := http.Header{}
	header.Set(HeaderContentType, contentType)

	return Plan{
		Status:        http.StatusOK,
		Start:         0,
		End:           -1,
		ContentLength: -1,
		Total:         -1,
		ContentType:   contentType,
		Header:        header,
	}
}
