package transcode

import (
	"fmt"
	"strconv"
)

// Format は出力コンテナ形式
type Format string

// Format の定数定義
const (
	FormatMPEGTS Format = "mpegts" // MPEG-TS（チャンク出力向け）
	FormatMP4    Format = "mp4"    // フラグメント化MP4
)

// Profile はffmpegのエンコード設定
type Profile struct {
	Format     Format `yaml:"format"`      // 出力フォーマット
	VideoCodec string `yaml:"video_codec"` // 映像コーデック（copy で再エンコードなし）
	AudioCodec string `yaml:"audio_codec"` // 音声コーデック
	Quality    int    `yaml:"quality"`     // 品質 (1-5)
	Preset     string `yaml:"preset"`      // x264プリセット
}

// StartOptions はプロセス起動ごとの設定
type StartOptions struct {
	SeekSeconds float64 // 入力の開始位置（秒）。フレーム単位でシークする
	Input       string  // ffmpegが直接開く入力（ローカルパスかURL）。空なら標準入力
}

// inputArg は -i に渡す値を返す
// シーク可能な入力を渡せない場合だけ標準入力を使う
func (o StartOptions) inputArg() string {
	if o.Input == "" {
		return "pipe:0"
	}
	return o.Input
}

// DefaultProfile はデフォルトのエンコード設定を返す
func DefaultProfile() Profile {
	return Profile{
		Format:     FormatMPEGTS,
		VideoCodec: "libx264",
		AudioCodec: "aac",
		Quality:    3,
		Preset:     "veryfast",
	}
}

// Validate は設定の妥当性を検証する
func (p Profile) Validate() error {
	switch p.Format {
	case FormatMPEGTS, FormatMP4:
	default:
		return fmt.Errorf("サポートされていない出力フォーマット: %s", p.Format)
	}

	if p.VideoCodec == "" {
		return fmt.Errorf("映像コーデックが指定されていません")
	}
	if p.AudioCodec == "" {
		return fmt.Errorf("音声コーデックが指定されていません")
	}
	if p.Quality < 1 || p.Quality > 5 {
		return fmt.Errorf("無効な品質: %d", p.Quality)
	}

	return nil
}

// ContentType は出力のMIMEタイプを返す
func (p Profile) ContentType() string {
	if p.Format == FormatMP4 {
		return "video/mp4"
	}
	return "video/mp2t"
}

// Args は標準入力から読み、標準出力へ書き出すffmpeg引数を組み立てる
func (p Profile) Args(opts StartOptions) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}

	if opts.SeekSeconds > 0 {
		args = append(args, "-ss", strconv.FormatFloat(opts.SeekSeconds, 'f', 3, 64))
	}

	args = append(args, "-i", opts.inputArg(), "-c:v", p.VideoCodec)
	if p.VideoCodec != "copy" {
		args = append(args, "-preset", p.Preset, "-crf", qualityToCRF(p.Quality))
	}
	args = append(args, "-c:a", p.AudioCodec)

	switch p.Format {
	case FormatMP4:
		args = append(args, "-movflags", "frag_keyframe+empty_moov", "-f", "mp4")
	default:
		args = append(args, "-f", "mpegts")
	}

	return append(args, "pipe:1")
}

// qualityToCRF は品質設定をFFmpegのCRF値に変換する
func qualityToCRF(quality int) string {
	// 品質1(低) -> CRF28, 品質5(高) -> CRF18
	crf := 28.0 - float64(quality-1)*2.5
	if crf < 18 {
		crf = 18
	}
	if crf > 28 {
		crf = 28
	}
	return strconv.FormatFloat(crf, 'f', 1, 64)
}
